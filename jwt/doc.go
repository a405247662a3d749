// Package jwt provides the signed session-token carrier for the auth-version
// invalidation protocol.
//
// A session token embeds the user ID and the auth version observed at login.
// Processes validate a presented token by comparing its embedded version
// against the current per-user counter: any mismatch — password change,
// disablement, permission change — forces re-authentication without any
// shared session database.
//
// # What this package must NOT do
//
//   - Talk to Redis; version comparison belongs to the Engine.
//   - Carry permissions, roles, or any payload beyond identity + version.
package jwt
