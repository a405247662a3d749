package internal

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// NumericCode generates a random numeric code of the given length with
// uniform digit distribution, for out-of-band reset delivery.
func NumericCode(digits int) (string, error) {
	var b strings.Builder
	b.Grow(digits)

	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
