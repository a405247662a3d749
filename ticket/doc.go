// Package ticket provides the Redis-backed single-use SSO handoff ticket store.
//
// # Atomicity
//
// Redemption is the one concurrency-critical operation in the system: N
// concurrent callers presenting the same ticket must produce exactly one
// success. The store pushes that guarantee into Redis with a Lua script that
// reads, validates, and conditionally deletes the ticket hash server-side in
// a single indivisible step — no client round trips between check and delete.
//
// # Architecture boundaries
//
// This package owns ticket persistence and the redemption protocol. It does
// NOT validate redirect hosts, compute digests, or resolve users — those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goSSO or jwt (no upward imports).
//   - Store plaintext redirect URIs or state values; only digests go in.
package ticket
