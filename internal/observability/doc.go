// Package observability builds the service logger and carries request-scoped
// log fields.
//
// Logs are structured (zap). Production uses JSON output; development uses a
// coloured console encoder. Request loggers are tagged with the chi request ID.
package observability
