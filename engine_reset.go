package goSSO

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSSO/event"
	"github.com/MrEthical07/goSSO/internal"
	"github.com/google/uuid"
)

// RequestPasswordReset issues a one-time reset token for the account behind
// identity (a mobile number or similar caller-facing identifier) and returns
// the raw token for out-of-band delivery. Only the keyed digest is stored.
//
// Re-requests inside the guard window fail with [ErrResetTooFrequent].
// Unknown identities receive a decoy token that is never stored, so the
// response shape cannot be used to enumerate accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, identity string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if identity == "" {
		return "", ErrInvalidArgument
	}

	acquired, err := e.resets.acquireGuard(ctx, identity, e.config.Reset.GuardTTL)
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", ErrResetTooFrequent
	}

	raw, err := e.newResetToken()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := e.directory.FindByIdentifier(ctx, identity); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Decoy: same response, nothing stored, confirmation can
			// never succeed.
			e.metrics.Inc(MetricResetRequested)
			return raw, nil
		}
		return "", fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}

	digest := e.digest(digestContextReset, raw)
	if err := e.resets.saveDigest(ctx, identity, digest, e.config.Reset.TokenTTL); err != nil {
		return "", err
	}

	e.metrics.Inc(MetricResetRequested)

	return raw, nil
}

// ConfirmPasswordReset redeems a reset token and applies the new password.
//
// The failure ceiling is sticky: once an identity has burned MaxFailures
// attempts, even the correct token fails with [ErrResetTooManyFailures]
// until a fresh token is issued. Digest comparison is constant-time.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, identity, rawToken, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if identity == "" || rawToken == "" {
		return ErrInvalidArgument
	}

	failures, err := e.resets.failures(ctx, identity)
	if err != nil {
		return err
	}
	if failures >= e.config.Reset.MaxFailures {
		e.metrics.Inc(MetricResetFailed)
		return ErrResetTooManyFailures
	}

	stored, found, err := e.resets.loadDigest(ctx, identity)
	if err != nil {
		return err
	}
	if !found {
		e.metrics.Inc(MetricResetFailed)
		return ErrResetTokenExpired
	}

	if !internal.ConstantTimeEqual(e.digest(digestContextReset, rawToken), stored) {
		count, err := e.resets.recordFailure(ctx, identity)
		if err != nil {
			return err
		}
		if count >= e.config.Reset.MaxFailures {
			// Stop further guesses immediately instead of waiting out
			// the token TTL.
			if err := e.resets.deleteToken(ctx, identity); err != nil {
				return err
			}
			e.metrics.Inc(MetricResetLockout)
		}
		e.metrics.Inc(MetricResetFailed)
		return ErrResetTokenMismatch
	}

	if err := e.checkPasswordPolicy(newPassword); err != nil {
		e.metrics.Inc(MetricResetFailed)
		return err
	}

	user, err := e.directory.FindByIdentifier(ctx, identity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}
	if err := e.directory.UpdatePassword(ctx, user.UserID, newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}

	if err := e.resets.clear(ctx, identity); err != nil {
		return err
	}

	newVersion, err := e.versions.bump(ctx, user.UserID)
	if err != nil {
		return err
	}
	e.metrics.Inc(MetricVersionBumped)
	e.metrics.Inc(MetricResetConfirmed)

	return e.publish(ctx, event.Message{
		Type:        event.TypePasswordChanged,
		UserID:      user.UserID,
		AuthVersion: newVersion,
	})
}

func (e *Engine) newResetToken() (string, error) {
	switch e.config.Reset.Strategy {
	case ResetUUID:
		return uuid.NewString(), nil
	case ResetOTP:
		return internal.NumericCode(e.config.Reset.OTPDigits)
	default:
		id, err := internal.NewTicketID()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}
