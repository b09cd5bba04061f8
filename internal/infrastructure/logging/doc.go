// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Diagnostics that must reach the process error stream regardless of log
// configuration (best-effort cleanup paths, degraded exception bridging)
// go through Diagnostic, which writes directly to stderr.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Engine starting", zap.Int64("main_isolate", id))
//	logger.Error("Run failed", zap.Error(err))
package logging
