// Package identity provides the user database behind the gateway: credential
// and role lookups for the guards, audit record persistence, and the account
// operations used by the dashboard endpoints.
//
// Three implementations share one query layout (users and api_usage tables):
//
//   - [Postgres] over a pgx connection pool, for production.
//   - [SQLite] over sqlx and the mattn/go-sqlite3 driver, for single-node
//     deployments and tests.
//   - [Memory], an in-process map used by examples and unit tests.
//
// # Architecture boundaries
//
// Stores return goGate.ErrIdentityNotFound on a miss and wrap driver errors
// otherwise. They never cache: every FindByID is a fresh read, which the role
// guard depends on.
//
// # What this package must NOT do
//
//   - Hash or verify passwords (package password does that).
//   - Decide authorization outcomes.
package identity
