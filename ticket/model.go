package ticket

// Ticket is the payload bound to an opaque SSO handoff ticket ID. It is
// stored as a Redis hash under prefix:id with a store-level TTL, so presence
// in the store is the single source of truth for validity: a ticket that
// cannot be read is consumed, expired, or never existed.
type Ticket struct {
	UserID            string
	SystemCode        string
	RedirectURIDigest string
	StateDigest       string
	IssuedAt          int64
}

// Hash field names. These are part of the on-wire store layout shared by all
// processes and must not change without a coordinated rollout.
const (
	fieldUserID         = "user_id"
	fieldSystemCode     = "system_code"
	fieldRedirectDigest = "redirect_digest"
	fieldStateDigest    = "state_digest"
	fieldIssuedAt       = "issued_at"
)
