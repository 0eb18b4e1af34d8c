// Package logging provides structured logging for the pulseguard client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the client. It provides both general logging
// functions and specialized functions for session and polling events.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (request traces, sync tokens)
//   - Info: Normal operations (login, logout, state refreshes)
//   - Warn: Non-fatal issues (keepalive misses, transient portal errors)
//   - Error: Fatal issues (rejected credentials, unusable responses)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Zone state changed",
//	    zap.String("zone", "Front Door"),
//	    zap.String("state", "Open"),
//	)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is configured (flag or PULSEGUARD_LOG_LEVEL), the logger
// is a silent nop so library consumers see no unexpected output.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
