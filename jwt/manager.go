package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for unparseable, tampered, or expired tokens.
var ErrTokenInvalid = errors.New("invalid session token")

// Config defines signing parameters for session tokens. Tokens are HS256;
// all processes validating sessions share the signing key, the same trust
// model as the shared ticket store.
type Config struct {
	SessionTTL time.Duration
	SigningKey []byte
	Issuer     string
	Leeway     time.Duration
}

// Manager signs and parses session tokens.
//
// Manager instances are intended to be configured during initialization and then treated as immutable.
type Manager struct {
	config Config
}

// SessionClaims is the payload carried by a session token. Ver is the auth
// version observed at login; SID identifies the session for logging only.
type SessionClaims struct {
	UID string `json:"uid"`
	Ver int64  `json:"ver"`
	SID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("invalid session TTL configuration")
	}
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("session signing key must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

// CreateSession signs a session token binding uid to the auth version
// observed at login.
func (j *Manager) CreateSession(uid string, authVersion int64, sid string) (string, error) {
	if uid == "" {
		return "", errors.New("uid required")
	}

	now := time.Now()
	claims := SessionClaims{
		UID: uid,
		Ver: authVersion,
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.config.SigningKey)
}

// ParseSession verifies signature and expiry and returns the claims. The
// caller still has to compare claims.Ver against the current auth version.
func (j *Manager) ParseSession(tokenStr string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if j.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(j.config.Leeway))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return j.config.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
