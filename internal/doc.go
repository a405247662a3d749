// Package internal contains helper utilities that are intentionally private to goSSO:
// secure random ticket identifiers, keyed one-way digests, and constant-time
// comparison helpers.
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSSO API.
//   - Be imported by any package outside the goSSO module.
//   - Touch Redis or perform any I/O.
package internal
