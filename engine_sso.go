package goSSO

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSSO/internal"
	"github.com/MrEthical07/goSSO/ticket"
)

// ssoTicketParam is the query parameter carrying the ticket to the target
// system.
const ssoTicketParam = "ticket"

// IssueSSOTicket writes a single-use handoff ticket for userID into
// systemCode and returns targetURL with the ticket appended as a query
// parameter. state is an optional CSRF binding; pass "" to skip it.
//
// targetURL must be an absolute http/https URL whose host is on the
// configured allow-list, otherwise [ErrInvalidReturnURL].
func (e *Engine) IssueSSOTicket(ctx context.Context, userID, systemCode, targetURL, state string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" || systemCode == "" {
		return "", ErrInvalidArgument
	}

	target, err := validateReturnURL(targetURL, e.config.AllowedHosts)
	if err != nil {
		return "", err
	}

	id, err := internal.NewTicketID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	stateDigest := ""
	if state != "" {
		stateDigest = e.digest(digestContextState, state)
	}

	t := &ticket.Ticket{
		UserID:            userID,
		SystemCode:        systemCode,
		RedirectURIDigest: e.digest(digestContextRedirect, targetURL),
		StateDigest:       stateDigest,
		IssuedAt:          time.Now().Unix(),
	}
	if err := e.tickets.Save(ctx, id.String(), t, e.config.SSO.TTL); err != nil {
		return "", e.mapTicketError(err)
	}

	e.metrics.Inc(MetricSSOIssued)

	return appendQueryParam(target, ssoTicketParam, id.String()), nil
}

// VerifySSOTicket atomically redeems rawTicket for systemCode. Exactly one
// concurrent caller succeeds; everyone else gets [ErrInvalidTicket].
// redirectURI must match the URL the ticket was issued for, state must match
// the issue-time state when both sides carry one.
//
// The redeemed identity is resolved against the user directory before it is
// returned; a missing user at this point is a system fault, not an
// authentication failure, because the ticket itself already proved valid.
func (e *Engine) VerifySSOTicket(ctx context.Context, systemCode, rawTicket, redirectURI, state string) (*SSORedemption, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if systemCode == "" || redirectURI == "" {
		return nil, ErrInvalidArgument
	}

	// Format gate before any store access: malformed input never costs a
	// round trip.
	if !internal.ValidTicketFormat(rawTicket) {
		e.metrics.Inc(MetricSSORejected)
		return nil, ErrInvalidTicket
	}

	stateDigest := ""
	if state != "" {
		stateDigest = e.digest(digestContextState, state)
	}

	redeemed, err := e.tickets.Consume(
		ctx,
		rawTicket,
		systemCode,
		e.digest(digestContextRedirect, redirectURI),
		stateDigest,
	)
	if err != nil {
		if !errors.Is(err, ticket.ErrRedisUnavailable) {
			e.metrics.Inc(MetricSSORejected)
		}
		return nil, e.mapTicketError(err)
	}

	user, err := e.directory.FindByID(ctx, redeemed.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserDirectory, err)
	}
	if user.Status == AccountDisabled {
		return nil, ErrUserDisabled
	}

	e.metrics.Inc(MetricSSORedeemed)

	return &SSORedemption{
		UserID:     redeemed.UserID,
		SystemCode: redeemed.SystemCode,
		IssuedAt:   redeemed.IssuedAt,
		User:       user,
	}, nil
}

func (e *Engine) mapTicketError(err error) error {
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		return ErrInvalidTicket
	case errors.Is(err, ticket.ErrClientMismatch):
		return ErrClientMismatch
	case errors.Is(err, ticket.ErrRedirectMismatch):
		return ErrRedirectURIMismatch
	case errors.Is(err, ticket.ErrStateMismatch):
		return ErrStateMismatch
	case errors.Is(err, ticket.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
