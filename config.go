package goSSO

import (
	"errors"
	"log"
	"time"
)

// ResetStrategy selects how raw password-reset tokens are generated.
type ResetStrategy uint8

const (
	// ResetToken issues a 128-bit random hex token.
	ResetToken ResetStrategy = iota
	// ResetUUID issues an RFC 4122 UUID string.
	ResetUUID
	// ResetOTP issues a short numeric code for out-of-band delivery.
	ResetOTP
)

const (
	ssoTTLMin     = 30 * time.Second
	ssoTTLMax     = 120 * time.Second
	ssoTTLDefault = 60 * time.Second
)

// SSOTicketConfig controls cross-system handoff tickets.
//
// TTL outside [30s, 120s] falls back to 60s with a logged warning instead of
// failing construction; a misconfigured TTL must not take login handoff down.
type SSOTicketConfig struct {
	TTL time.Duration
}

// ActionTicketConfig controls the action-ticket escalator.
type ActionTicketConfig struct {
	TTL           time.Duration
	PrivilegedTTL time.Duration
}

// PasswordResetConfig controls reset-token issuance and throttling.
type PasswordResetConfig struct {
	TokenTTL    time.Duration
	GuardTTL    time.Duration
	MaxFailures int64
	Strategy    ResetStrategy
	OTPDigits   int
	// MinPasswordLength is the credential-strength floor applied to new
	// passwords in reset and change flows.
	MinPasswordLength int
}

// SessionTokenConfig controls the signed session tokens minted by
// [Engine.IssueSessionToken]. SigningKey must be shared by every process
// validating sessions.
type SessionTokenConfig struct {
	TTL        time.Duration
	SigningKey []byte
	Issuer     string
}

// EventConfig controls the durable event stream. Group is required only when
// this process runs a consumer loop; a publish-only process leaves it empty.
// Consumer defaults to a generated instance name.
type EventConfig struct {
	Stream        string
	Group         string
	Consumer      string
	DedupTTL      time.Duration
	BatchSize     int64
	Block         time.Duration
	PendingIdle   time.Duration
	RetryInterval time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// Config is the full engine configuration. Zero values are filled by
// defaultConfig; use [New] and [Builder.WithConfig] to override.
type Config struct {
	// AllowedHosts is the redirect/return URL host allow-list shared by the
	// SSO and action flows. Comparison is case-insensitive and exact.
	AllowedHosts []string

	// DigestKey keys the one-way digests of redirect URIs, state values,
	// and reset tokens. Must be identical across all processes sharing the
	// store. At least 16 bytes.
	DigestKey []byte

	SSO     SSOTicketConfig
	Action  ActionTicketConfig
	Reset   PasswordResetConfig
	Session SessionTokenConfig
	Events  EventConfig
	Metrics MetricsConfig
}

func defaultConfig() Config {
	return Config{
		SSO: SSOTicketConfig{
			TTL: ssoTTLDefault,
		},
		Action: ActionTicketConfig{
			TTL:           300 * time.Second,
			PrivilegedTTL: 600 * time.Second,
		},
		Reset: PasswordResetConfig{
			TokenTTL:          5 * time.Minute,
			GuardTTL:          60 * time.Second,
			MaxFailures:       5,
			Strategy:          ResetToken,
			OTPDigits:         6,
			MinPasswordLength: 8,
		},
		Session: SessionTokenConfig{
			TTL: 12 * time.Hour,
		},
		Events: EventConfig{
			Stream:        "auth-events",
			DedupTTL:      7 * 24 * time.Hour,
			BatchSize:     16,
			Block:         5 * time.Second,
			PendingIdle:   30 * time.Second,
			RetryInterval: 10 * time.Second,
		},
	}
}

// Validate rejects configurations that cannot work. The SSO TTL is clamped,
// not rejected; see [SSOTicketConfig].
func (c *Config) Validate() error {
	if len(c.AllowedHosts) == 0 {
		return errors.New("AllowedHosts must not be empty")
	}
	if len(c.DigestKey) < 16 {
		return errors.New("DigestKey must be at least 16 bytes")
	}
	if c.Action.TTL <= 0 || c.Action.PrivilegedTTL <= 0 {
		return errors.New("Action TTLs must be positive")
	}
	if c.Reset.TokenTTL <= 0 || c.Reset.GuardTTL <= 0 {
		return errors.New("Reset TTLs must be positive")
	}
	if c.Reset.MaxFailures <= 0 {
		return errors.New("Reset MaxFailures must be positive")
	}
	if c.Reset.Strategy == ResetOTP && (c.Reset.OTPDigits < 4 || c.Reset.OTPDigits > 10) {
		return errors.New("Reset OTPDigits must be in [4, 10]")
	}
	if c.Reset.MinPasswordLength < 6 {
		return errors.New("Reset MinPasswordLength must be at least 6")
	}
	if len(c.Session.SigningKey) > 0 && c.Session.TTL <= 0 {
		return errors.New("Session TTL must be positive when a signing key is set")
	}
	if c.Events.Stream == "" {
		return errors.New("Events Stream must not be empty")
	}
	return nil
}

// clampSSOTTL enforces the bounded SSO ticket lifetime. Out-of-range values
// are a configuration mistake, not a reason to fail login handoff.
func clampSSOTTL(ttl time.Duration) time.Duration {
	if ttl < ssoTTLMin || ttl > ssoTTLMax {
		log.Printf("goSSO: sso ticket ttl %v outside [%v, %v], using %v", ttl, ssoTTLMin, ssoTTLMax, ssoTTLDefault)
		return ssoTTLDefault
	}
	return ttl
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.AllowedHosts = append([]string(nil), cfg.AllowedHosts...)
	out.DigestKey = append([]byte(nil), cfg.DigestKey...)
	out.Session.SigningKey = append([]byte(nil), cfg.Session.SigningKey...)
	return out
}
