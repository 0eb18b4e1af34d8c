// Package client implements the session engine for the Pulse cloud
// portal: login/logout, background keepalive and change polling, and a
// request executor that re-authenticates on demand.
//
// # Session Lifecycle
//
// A Client is built in two phases: New validates the credentials and
// Initialize prepares the cookie-bearing HTTP session and the session
// signals. Login then discovers the portal version, submits the
// credentials, and on success starts two background tasks that live
// until Logout:
//
//   - the keepalive task, which periodically resets the portal's
//     server-side idle timer, and
//   - the sync-check task, which polls a lightweight endpoint for a
//     change token and triggers a full state refresh (or a forced
//     re-login when the token shows the session was invalidated).
//
// # Two Calling Modes
//
// Every operation exists in two forms. The ...Context methods are for
// callers that drive the client from their own goroutines; nothing is
// spawned on their behalf beyond the two background tasks. The
// synchronous forms (Login, Logout, Query, Update, WaitForUpdate) are
// for callers that want blocking semantics: the first Login starts a
// session runtime (one goroutine draining a job queue) and each
// synchronous call is marshalled onto it. The mode is fixed once the
// runtime exists; calling a synchronous operation other than Login
// without one is a usage error.
//
// # Failure Policy
//
// Transport errors and non-2xx statuses are caught at the executor,
// logged, and returned as classified PortalError values; they never
// panic past that boundary. Rejected credentials leave the session
// unauthenticated without an error (observe Connected). The background
// tasks never let a failure escape a tick: everything is logged and the
// loop continues until cancellation.
package client
