package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// TicketID is a 128-bit random identifier rendered as 32 lowercase hex
// characters. The hex form is what travels in URLs and is what the ticket
// format allow-list validates against.
type TicketID [16]byte

const ticketIDHexLen = 32

func NewTicketID() (TicketID, error) {
	var id TicketID
	_, err := rand.Read(id[:])
	return id, err
}

func (t TicketID) Bytes() []byte {
	return t[:]
}

func (t TicketID) String() string {
	return hex.EncodeToString(t[:])
}

// ValidTicketFormat reports whether raw matches the fixed-length lowercase
// hex pattern of a [TicketID]. Malformed input must be rejected before any
// store access.
func ValidTicketFormat(raw string) bool {
	if len(raw) != ticketIDHexLen {
		return false
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func ParseTicketID(raw string) (TicketID, error) {
	var id TicketID

	if !ValidTicketFormat(raw) {
		return id, errors.New("invalid ticket id format")
	}

	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return id, err
	}

	copy(id[:], decoded)
	return id, nil
}

// Digest computes a keyed one-way digest of value under the given secret
// context. Equal (context, value) pairs always digest equal; recovering
// value or forging a match without the key is infeasible. Used wherever two
// parties must prove they saw the same secret without the store holding it
// in the clear (redirect URIs, state strings, reset codes).
func Digest(key []byte, context, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(context))
	mac.Write([]byte{0})
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEqual compares two digest strings without leaking the position
// of the first differing byte.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// NewDigestKey generates a random 32-byte digest key for deployments that do
// not pin one in configuration. All processes sharing a ticket store must use
// the same key, so generated keys are only suitable for single-process runs
// and tests.
func NewDigestKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
