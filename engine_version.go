package goSSO

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSSO/event"
)

// BumpAuthVersion increments userID's auth-version counter and returns the
// new value. Every live session minted before the bump becomes invalid.
func (e *Engine) BumpAuthVersion(ctx context.Context, userID string) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrInvalidArgument
	}

	v, err := e.versions.bump(ctx, userID)
	if err != nil {
		return 0, err
	}
	e.metrics.Inc(MetricVersionBumped)
	return v, nil
}

// CurrentAuthVersion returns userID's counter, 0 for a user never bumped.
func (e *Engine) CurrentAuthVersion(ctx context.Context, userID string) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrInvalidArgument
	}
	return e.versions.current(ctx, userID)
}

// IsSessionValid reports whether a session minted at sessionVersion is still
// valid against currentVersion. Exact equality only; a session with no
// recorded version (nil) is always invalid.
func IsSessionValid(sessionVersion *int64, currentVersion int64) bool {
	if sessionVersion == nil {
		return false
	}
	return *sessionVersion == currentVersion
}

// IssueSessionToken mints a signed session token for userID carrying the auth
// version observed right now. Requires [SessionTokenConfig].SigningKey.
func (e *Engine) IssueSessionToken(ctx context.Context, userID, sessionID string) (string, error) {
	if e == nil || e.sessions == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" {
		return "", ErrInvalidArgument
	}

	version, err := e.versions.current(ctx, userID)
	if err != nil {
		return "", err
	}
	return e.sessions.CreateSession(userID, version, sessionID)
}

// ValidateSessionToken parses a session token and checks its embedded auth
// version against the user's current counter. A stale version means the
// password changed, the account was disabled, or permissions moved since
// login; the caller must force re-authentication.
func (e *Engine) ValidateSessionToken(ctx context.Context, token string) (*SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.sessions.ParseSession(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	current, err := e.versions.current(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if !IsSessionValid(&claims.Ver, current) {
		e.metrics.Inc(MetricSessionStale)
		return nil, ErrSessionVersionStale
	}

	return &SessionInfo{
		UserID:      claims.UID,
		SessionID:   claims.SID,
		AuthVersion: claims.Ver,
	}, nil
}

// DisableUser marks the account disabled, invalidates every live session,
// and announces the change on the event stream. operatorID identifies the
// admin performing the action.
func (e *Engine) DisableUser(ctx context.Context, userID, operatorID string) error {
	return e.setStatus(ctx, userID, operatorID, AccountDisabled, event.TypeAccountDisabled)
}

// EnableUser restores a disabled account. The version bump forces users to
// log in fresh rather than resurrecting pre-disablement sessions.
func (e *Engine) EnableUser(ctx context.Context, userID, operatorID string) error {
	return e.setStatus(ctx, userID, operatorID, AccountActive, event.TypeAccountEnabled)
}

func (e *Engine) setStatus(ctx context.Context, userID, operatorID string, status AccountStatus, eventType string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrInvalidArgument
	}

	if err := e.directory.UpdateStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}

	newVersion, err := e.versions.bump(ctx, userID)
	if err != nil {
		return err
	}
	e.metrics.Inc(MetricVersionBumped)

	return e.publish(ctx, event.Message{
		Type:        eventType,
		UserID:      userID,
		AuthVersion: newVersion,
		OperatorID:  operatorID,
	})
}

// GrantRoles replaces userID's role set. Roles feed authorization decisions
// cached per process, so the bump plus event is what makes the change take
// effect everywhere.
func (e *Engine) GrantRoles(ctx context.Context, userID string, roles []string, operatorID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" || len(roles) == 0 {
		return ErrInvalidArgument
	}

	if err := e.directory.UpdateRoles(ctx, userID, roles); err != nil {
		return fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}

	newVersion, err := e.versions.bump(ctx, userID)
	if err != nil {
		return err
	}
	e.metrics.Inc(MetricVersionBumped)

	return e.publish(ctx, event.Message{
		Type:        event.TypeRolesChanged,
		UserID:      userID,
		AuthVersion: newVersion,
		OperatorID:  operatorID,
		Payload:     map[string]string{"roles": strings.Join(roles, ",")},
	})
}
