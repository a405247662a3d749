// Package goSSO is a ticket-based authentication handoff and invalidation
// engine for systems split across independent server processes that share
// nothing but a Redis instance.
//
// Four flows share one pattern — an opaque random token bound to a payload,
// with strict single-use and expiry semantics enforced against concurrent
// redemption:
//
//   - SSO handoff: [Engine.IssueSSOTicket] / [Engine.VerifySSOTicket] move an
//     authenticated user into a second system with an exactly-once ticket.
//   - Step-up escalation: [Engine.IssueActionTicket] / [Engine.EnterAction]
//     convert an externally issued action ticket into a privileged token
//     gating one sensitive operation ([Engine.ChangePassword],
//     [Engine.UpdateProfile]).
//   - Password reset: [Engine.RequestPasswordReset] /
//     [Engine.ConfirmPasswordReset] with digest-only storage and bounded,
//     throttled retries.
//   - Invalidation: a per-user monotonic auth version
//     ([Engine.BumpAuthVersion]) plus a durable event stream lets every
//     process drop now-invalid sessions without a shared session database.
//
// # Architecture boundaries
//
// The engine owns tickets, tokens, counters, and events. User accounts live
// behind the [UserDirectory] interface; HTTP concerns (cookies, redirects,
// status codes) belong to the caller, which maps the sentinel errors in this
// package onto its own responses.
//
// All correctness-critical concurrency is pushed into Redis atomic
// primitives; the engine keeps no cross-request state in process.
//
// Construction:
//
//	engine, err := goSSO.New().
//		WithRedis(client).
//		WithConfig(cfg).
//		WithUserDirectory(dir).
//		Build()
package goSSO
