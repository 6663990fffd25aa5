// Package metrics provides observability primitives for the HKDS/DUKPT key-distribution library.
//
// # Overview
//
// The metrics package offers a complete observability solution including:
//   - Metrics collection (counters, gauges, histograms)
//   - Prometheus-compatible metrics export
//   - Distributed tracing support (OpenTelemetry-compatible interface)
//   - Structured logging with levels
//   - Health check endpoints
//
// # Quick Start
//
// Basic usage with global collector:
//
//	import "github.com/dfd-labs/hkds-go/pkg/metrics"
//
//	// Record metrics
//	metrics.Global().TransactionStarted()
//	metrics.Global().RecordTokenExchangeLatency(150 * time.Millisecond)
//	metrics.Global().RecordBytesSent(1024)
//
//	// Start Prometheus server
//	go metrics.ServePrometheus(":9090", metrics.Global(), "hkds")
//
// # Metrics Collection
//
// The Collector type aggregates metrics from device transactions:
//
//	collector := metrics.NewCollector(metrics.Labels{
//		"instance": "node-1",
//		"region":   "us-west-2",
//	})
//
//	// Transaction metrics
//	collector.TransactionStarted()
//	collector.TransactionEnded()
//	collector.RecordTokenExchangeLatency(d)
//
//	// Traffic metrics
//	collector.RecordBytesSent(n)
//	collector.RecordBytesReceived(n)
//
//	// Security metrics
//	collector.RecordCounterReuseBlocked()
//	collector.RecordAuthFailure()
//	collector.RecordCacheRefillInitiated()
//
//	// Get snapshot
//	snap := collector.Snapshot()
//
// # Prometheus Export
//
// Export metrics in Prometheus format:
//
//	exporter := metrics.NewPrometheusExporter(collector, "hkds")
//	http.Handle("/metrics", exporter.Handler())
//
// # Tracing
//
// The package provides a Tracer interface compatible with OpenTelemetry:
//
//	// Use the simple tracer for testing
//	tracer := metrics.NewSimpleTracer()
//	metrics.SetTracer(tracer)
//
//	// OpenTelemetry adapter (uses global provider)
//	otelTracer := metrics.NewOTelTracer("hkds")
//	metrics.SetTracer(otelTracer)
//	// Build with -tags otel to enable the adapter.
//
//	// Start spans
//	ctx, end := metrics.StartSpan(ctx, metrics.SpanTokenExchangeClient)
//	defer end(nil) // or end(err) on error
//
//	// Use with OpenTelemetry SDK (implement the Tracer interface)
//	// metrics.SetTracer(myOTelAdapter)
//
// # Structured Logging
//
// The Logger provides structured logging with levels:
//
//	logger := metrics.NewLogger(
//		metrics.WithLevel(metrics.LevelInfo),
//		metrics.WithFormat(metrics.FormatJSON),
//		metrics.WithFields(metrics.Fields{"service": "hkds"}),
//	)
//
//	logger.Info("transaction established", metrics.Fields{
//		"device_id": deviceID,
//		"cipher":     "AES-256-GCM",
//	})
//
//	// Child loggers
//	txLog := logger.Named("transaction").With(metrics.Fields{"id": deviceID})
//	txLog.Debug("encrypting data")
//
// # Health Checks
//
// Provide health check endpoints for Kubernetes and load balancers:
//
//	health := metrics.NewHealthCheck(collector, "1.0.0")
//	health.AddCheck("crypto", func() error {
//		// Verify crypto subsystem
//		return nil
//	})
//
//	http.Handle("/health", health.Handler())
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler())
//
// # Observability Server
//
// Start a complete observability server:
//
//	server := metrics.NewServer(metrics.ServerConfig{
//		Collector:        collector,
//		Version:          "1.0.0",
//		Namespace:        "hkds",
//		EnablePrometheus: true,
//		EnableHealth:     true,
//	})
//
//	go server.ListenAndServe(":9090")
//
// This provides:
//   - /metrics - Prometheus metrics
//   - /health  - Detailed health status
//   - /healthz - Kubernetes liveness probe
//   - /readyz  - Kubernetes readiness probe
package metrics
