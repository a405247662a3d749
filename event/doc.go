// Package event provides durable authentication-change propagation over a
// Redis Stream with consumer groups.
//
// # Delivery model
//
// Publishing appends an envelope to the stream; each process consumes through
// its own consumer-group reader. Delivery is at-least-once: entries stay
// pending until acknowledged, and a periodic sweep reclaims entries that sat
// pending past an idle threshold. Handling is collapsed to effectively-once
// by a per-event dedup marker (SET NX with TTL) claimed before dispatch.
//
// # Failure handling
//
// A handler error releases the dedup marker and leaves the entry pending so
// the sweep can re-dispatch it. A consumer crash after the marker claim but
// before the acknowledge results in skip-on-reclaim — the documented
// tradeoff of idempotent at-least-once handling. Store outages never crash
// the loops; the affected cycle is skipped and the next one retries.
//
// # What this package must NOT do
//
//   - Import goSSO, jwt, or ticket (no upward imports).
//   - Interpret event semantics; dispatch is by type tag only.
package event
