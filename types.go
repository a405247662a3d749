package goSSO

import "context"

// AccountStatus represents the lifecycle state of a user account as reported
// by the user directory.
type AccountStatus uint8

const (
	// AccountActive is the normal state of a usable account.
	AccountActive AccountStatus = iota
	// AccountDisabled marks an account locked out by an operator.
	AccountDisabled
)

// Scopes accepted by the action-ticket escalator. A privileged token is bound
// to exactly one scope and gates exactly one kind of operation.
const (
	// ScopePasswordChange gates [Engine.ChangePassword].
	ScopePasswordChange = "password"
	// ScopeProfileUpdate gates [Engine.UpdateProfile].
	ScopeProfileUpdate = "profile"
)

// UserDirectory is the interface callers implement to connect the engine to
// their user database. The engine never persists user records itself; it
// resolves identities after ticket redemption and applies credential, status,
// and role changes through this interface.
//
// Implementations return [ErrUserNotFound] for unknown identities and any
// other error for backend failures; the engine maps the latter to
// [ErrUserDirectory].
type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (UserRecord, error)
	FindByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	UpdatePassword(ctx context.Context, userID string, newPassword string) error
	UpdateProfile(ctx context.Context, userID string, fields map[string]string) (int64, error)
	UpdateStatus(ctx context.Context, userID string, status AccountStatus) error
	UpdateRoles(ctx context.Context, userID string, roles []string) error
}

// UserRecord is the account snapshot returned by [UserDirectory].
type UserRecord struct {
	UserID         string
	Identifier     string
	DisplayName    string
	Status         AccountStatus
	Roles          []string
	ProfileVersion int64
}

// SSORedemption is returned by [Engine.VerifySSOTicket]. It carries the
// identity proven by the redeemed ticket together with the resolved account.
type SSORedemption struct {
	UserID     string
	SystemCode string
	IssuedAt   int64
	User       UserRecord
}

// ActionGrant is returned by [Engine.EnterAction]. Token is the privileged
// token minted from the consumed action ticket; it gates one sensitive
// operation and is deleted when that operation completes.
type ActionGrant struct {
	Token            string
	UserID           string
	Scope            string
	ReturnURL        string
	SourceSystemCode string
}

// SessionInfo is returned by [Engine.ValidateSessionToken] after the embedded
// auth version has been checked against the current counter.
type SessionInfo struct {
	UserID      string
	SessionID   string
	AuthVersion int64
}
