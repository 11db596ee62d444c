// Package identity implements the credential lifecycle for a multi-tenant
// platform: registration, email verification via one-time codes, password
// login, JWT access/refresh token rotation, password reset, and a login audit
// trail.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus persisted via Bun. Registration leaves
//     an account pending until its email is verified; operators can suspend
//     and reinstate active accounts.
//   - AccountStateMachine centralizes the transition graph and persistence.
//     Invoke Transition whenever an account changes status so the same
//     invariants hold across every entry point.
//
// Tokens:
//   - TokenService signs HS256 access and refresh tokens with independent
//     keys. Refresh tokens are single use: Rotate revokes the presented token
//     and issues its successor inside one transaction, so a replayed token is
//     always rejected.
//
// Auditing:
//   - LoginAuditor records every login and refresh attempt best-effort
//     (failures are logged, never surfaced) and serves queries and aggregate
//     stats over the trail.
package identity
