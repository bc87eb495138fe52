// Package observability provides logging and metrics support for the paper
// scroll service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for syncs, the paper feed, and stars
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("issn", issn).Msg("journal sync started")
//
// Add sync context to a logger:
//
//	logger = observability.WithSyncContext(logger, journal, year)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("paper_scroll")
//
// Record metrics:
//
//	metrics.RecordSyncStarted()
//	metrics.RecordPaperServed("buffered")
//	metrics.SetBufferSize(7)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - sync_run_id: Catalog sync run identifier
//   - journal: Journal display name
//   - issn: Journal ISSN
//   - year: Publication year being synced
//   - doi: Paper DOI
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
