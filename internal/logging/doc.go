// Package logging provides a simple leveled logging interface for the
// streaming server: the acceptor, worker pool, auth, catalog watcher, and
// thumbnail generator all log through it rather than the bare "log"
// package directly.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages (auth logins/registrations,
//     catalog sync outcomes)
//   - WARN: Warning conditions (failed login attempts, retryable
//     filesystem errors)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
// Session tokens and raw passwords are never passed to any of these
// functions — only usernames and outcomes.
package logging
