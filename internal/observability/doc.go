// Package observability provides observability infrastructure for the
// demo server.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//
// Breaker-level metrics and tracing live in pkg/breaker
// (PrometheusMetrics, TracingListener); this tree holds only the
// process-level concerns.
//
// Example usage:
//
//	import "fusebox/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("server started")
//	}
package observability
