package goSSO

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/goSSO/event"
	"github.com/MrEthical07/goSSO/internal"
)

// IssueActionTicket writes a short-lived ticket letting userID perform one
// sensitive action of the given scope. The caller is a trusted system, not
// the end user's browser; returnURL is where the user lands after the action
// and must pass the allow-list.
func (e *Engine) IssueActionTicket(ctx context.Context, userID, scope, sourceSystemCode, returnURL string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" || scope == "" || sourceSystemCode == "" {
		return "", ErrInvalidArgument
	}

	if _, err := validateReturnURL(returnURL, e.config.AllowedHosts); err != nil {
		return "", err
	}

	id, err := internal.NewTicketID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	nonce, err := internal.NewTicketID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec := actionRecord{
		UserID:           userID,
		Scope:            scope,
		SourceSystemCode: sourceSystemCode,
		ReturnURL:        returnURL,
		Nonce:            nonce.String(),
		ExpireAt:         time.Now().Add(e.config.Action.TTL).Unix(),
	}
	if err := e.actions.save(ctx, id.String(), rec, e.config.Action.TTL); err != nil {
		return "", err
	}

	e.metrics.Inc(MetricActionIssued)

	return id.String(), nil
}

// EnterAction consumes an action ticket and mints the privileged token that
// gates the actual operation. The delete is the replay gate: when two
// redemptions race, the one whose delete reports "already gone" lost and
// gets [ErrActionTicketReplayed].
func (e *Engine) EnterAction(ctx context.Context, scope, rawTicket string) (*ActionGrant, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if scope == "" {
		return nil, ErrInvalidArgument
	}
	if !internal.ValidTicketFormat(rawTicket) {
		return nil, ErrActionTicketInvalid
	}

	rec, found, err := e.actions.load(ctx, rawTicket)
	if err != nil {
		return nil, err
	}
	if !found {
		// A tombstone means the ticket was valid and already consumed, which
		// callers treat differently from a ticket that never existed.
		wasConsumed, err := e.actions.consumed(ctx, rawTicket)
		if err != nil {
			return nil, err
		}
		if wasConsumed {
			e.metrics.Inc(MetricActionReplayed)
			return nil, ErrActionTicketReplayed
		}
		return nil, ErrActionTicketInvalid
	}

	if time.Now().Unix() > rec.ExpireAt {
		return nil, ErrActionTicketExpired
	}
	if rec.ReturnURL == "" || rec.SourceSystemCode == "" || rec.UserID == "" {
		return nil, ErrActionTicketInvalid
	}
	if rec.Scope != scope {
		return nil, ErrActionTicketInvalid
	}

	// The URL passed the allow-list at issue time; recheck in case the list
	// changed between issue and redemption.
	if _, err := validateReturnURL(rec.ReturnURL, e.config.AllowedHosts); err != nil {
		return nil, err
	}

	deleted, err := e.actions.remove(ctx, rawTicket, e.config.Action.TTL)
	if err != nil {
		return nil, err
	}
	if !deleted {
		e.metrics.Inc(MetricActionReplayed)
		return nil, ErrActionTicketReplayed
	}

	token, err := internal.NewTicketID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	ptk := ptkRecord{
		UserID:           rec.UserID,
		Scope:            rec.Scope,
		ReturnURL:        rec.ReturnURL,
		SourceSystemCode: rec.SourceSystemCode,
	}
	if err := e.ptks.save(ctx, token.String(), ptk, e.config.Action.PrivilegedTTL); err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricActionEntered)

	return &ActionGrant{
		Token:            token.String(),
		UserID:           rec.UserID,
		Scope:            rec.Scope,
		ReturnURL:        rec.ReturnURL,
		SourceSystemCode: rec.SourceSystemCode,
	}, nil
}

// ChangePassword applies a new password for the actor proven by ptkToken,
// falling back to the ambient session token when no privileged token is
// presented. Once the actor is authenticated, the privileged token is
// consumed on the way out regardless of outcome, so it cannot be retried
// within its TTL window.
func (e *Engine) ChangePassword(ctx context.Context, ptkToken, sessionToken, newPassword string) error {
	userID, consume, err := e.resolveActor(ctx, ptkToken, sessionToken, ScopePasswordChange)
	if err != nil {
		return err
	}
	defer consume(ctx)

	if err := e.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	if err := e.directory.UpdatePassword(ctx, userID, newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}

	newVersion, err := e.versions.bump(ctx, userID)
	if err != nil {
		return err
	}
	e.metrics.Inc(MetricVersionBumped)

	return e.publish(ctx, event.Message{
		Type:        event.TypePasswordChanged,
		UserID:      userID,
		AuthVersion: newVersion,
	})
}

// UpdateProfile applies profile field changes for the actor proven by
// ptkToken, with the same session fallback and token consumption rules as
// [Engine.ChangePassword]. Profile edits do not touch the auth version; only
// the profile-updated event is published so other processes can refresh
// cached display data.
func (e *Engine) UpdateProfile(ctx context.Context, ptkToken, sessionToken string, fields map[string]string) error {
	if len(fields) == 0 {
		return ErrInvalidArgument
	}

	userID, consume, err := e.resolveActor(ctx, ptkToken, sessionToken, ScopeProfileUpdate)
	if err != nil {
		return err
	}
	defer consume(ctx)

	profileVersion, err := e.directory.UpdateProfile(ctx, userID, fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}

	return e.publish(ctx, event.Message{
		Type:           event.TypeProfileUpdated,
		UserID:         userID,
		ProfileVersion: profileVersion,
	})
}

// resolveActor authenticates the acting user for a gated operation: the
// privileged token when present, the ambient session identity otherwise.
// The returned consume func deletes the privileged token and must run once
// the operation completes, success or failure alike.
func (e *Engine) resolveActor(ctx context.Context, ptkToken, sessionToken, scope string) (string, func(context.Context), error) {
	if e == nil {
		return "", nil, ErrEngineNotReady
	}

	noop := func(context.Context) {}

	if ptkToken != "" {
		if !internal.ValidTicketFormat(ptkToken) {
			return "", nil, ErrPrivilegedTokenInvalid
		}
		rec, found, err := e.ptks.load(ctx, ptkToken)
		if err != nil {
			return "", nil, err
		}
		if !found || rec.Scope != scope {
			return "", nil, ErrPrivilegedTokenInvalid
		}
		consume := func(ctx context.Context) {
			if err := e.ptks.remove(ctx, ptkToken); err != nil {
				log.Print("goSSO: privileged token cleanup failed")
				return
			}
			e.metrics.Inc(MetricPrivilegedConsumed)
		}
		return rec.UserID, consume, nil
	}

	if sessionToken == "" {
		return "", nil, ErrPrivilegedTokenInvalid
	}
	info, err := e.ValidateSessionToken(ctx, sessionToken)
	if err != nil {
		return "", nil, err
	}
	return info.UserID, noop, nil
}

func (e *Engine) checkPasswordPolicy(password string) error {
	if len(password) < e.config.Reset.MinPasswordLength {
		return ErrPasswordPolicy
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrPasswordPolicy
	}
	return nil
}
