package goSSO

import "errors"

var (
	// ErrInvalidArgument reports a malformed or missing caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidReturnURL reports a target or return URL outside the allow-list.
	ErrInvalidReturnURL = errors.New("invalid return url")
	// ErrInvalidTicket reports a malformed, unknown, expired, or already
	// redeemed handoff ticket.
	ErrInvalidTicket = errors.New("invalid sso ticket")
	// ErrClientMismatch reports a ticket redeemed by a different client system
	// than the one it was issued for.
	ErrClientMismatch = errors.New("sso ticket client mismatch")
	// ErrRedirectURIMismatch reports a redirect URI that differs from the one
	// bound at issue time.
	ErrRedirectURIMismatch = errors.New("sso ticket redirect uri mismatch")
	// ErrStateMismatch reports a CSRF state value that differs from the one
	// bound at issue time. The ticket survives this failure.
	ErrStateMismatch = errors.New("sso ticket state mismatch")
	// ErrActionTicketInvalid reports a malformed or unknown action ticket.
	ErrActionTicketInvalid = errors.New("invalid action ticket")
	// ErrActionTicketExpired reports an action ticket past its TTL.
	ErrActionTicketExpired = errors.New("action ticket expired")
	// ErrActionTicketReplayed reports a second redemption of an action ticket.
	ErrActionTicketReplayed = errors.New("action ticket already used")
	// ErrPrivilegedTokenInvalid reports a missing, expired, or already
	// consumed privileged token.
	ErrPrivilegedTokenInvalid = errors.New("invalid privileged token")
	// ErrResetTooFrequent reports a reset request inside the issue guard window.
	ErrResetTooFrequent = errors.New("password reset requested too frequently")
	// ErrResetTokenExpired reports a reset confirmation with no live token.
	ErrResetTokenExpired = errors.New("password reset token expired")
	// ErrResetTokenMismatch reports a reset confirmation with a wrong token.
	ErrResetTokenMismatch = errors.New("password reset token mismatch")
	// ErrResetTooManyFailures reports a reset identity locked out for the
	// remainder of the token lifetime.
	ErrResetTooManyFailures = errors.New("password reset attempts exceeded")
	// ErrPasswordPolicy reports a new password that fails the policy check.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrSessionVersionStale reports a session token whose embedded auth
	// version no longer matches the user's current counter.
	ErrSessionVersionStale = errors.New("session auth version stale")
	// ErrSessionInvalid reports an unparseable or expired session token.
	ErrSessionInvalid = errors.New("invalid session token")
	// ErrUserDisabled reports an operation against a disabled account.
	ErrUserDisabled = errors.New("user account disabled")
	// ErrUserNotFound is returned by [UserDirectory] implementations for
	// unknown identities.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDirectory reports a user directory lookup or update failure.
	ErrUserDirectory = errors.New("user directory unavailable")
	// ErrStoreUnavailable wraps shared-store connectivity failures.
	ErrStoreUnavailable = errors.New("shared store unavailable")
	// ErrEngineNotReady reports a call on an unbuilt or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
