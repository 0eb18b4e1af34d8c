// Package portal holds the vendor-defined constants for the Pulse
// cloud portal: endpoint URIs, the versioned path prefix, default
// headers, polling cadences, and the recoverable HTTP status set.
//
// The portal has no documented API; these values were recovered by
// observing the browser flow. One constant exists per endpoint role
// (sign-in, sign-out, keepalive, sync-check, state pages) so that the
// rest of the codebase never embeds a literal path.
package portal
