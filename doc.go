// Package auth implements the session and authentication core for a
// portfolio site client: durable session storage, a typed gateway over the
// backend's REST auth API, a session state machine, and role-aware route
// guards.
//
// Session lifecycle:
//   - Manager owns a four-state machine (uninitialized, loading,
//     authenticated, unauthenticated). Every mutation runs as an ordered
//     command that enters loading and always settles, so the session can
//     never be stuck mid-flight. Guards distinguish "not yet known" from
//     "settled anonymous" and hold rendering instead of guessing.
//   - Start restores a persisted session from the Store. Restoration is
//     optimistic by default; wire a TokenValidator to verify the stored
//     token eagerly.
//
// Gateway:
//   - HTTPGateway is the single normalization boundary over the backend.
//     Transport failures collapse to a fixed connectivity message, 401 and
//     403 login failures map to distinct sentinel errors, and callers only
//     ever see typed results.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter fed by the session
//     manager on restore, login, logout, and OAuth reconciliation. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
//
// The social subpackage reconciles OAuth provider callbacks into the same
// session manager.
package auth
