// Package tokenstore provides persistent storage abstractions for the OAuth
// credential pair (access token and refresh token).
//
// Five storage backends with different deployment tradeoffs are supported:
//   - File: Local JSON file with atomic writes and secure permissions
//   - Env: Process environment variables (writes survive only for the process)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Redis: Managed key-value service reached via rueidis
//   - Table: Remote relational table store reached over HTTP (PostgREST-style)
//
// All backends satisfy the same two-operation TokenStore contract; the token
// lifecycle controller is agnostic to which one is active.
package tokenstore
