// Package observability provides logrus logging, Prometheus metrics, health probes and
// OpenTelemetry tracing for the sync daemon.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org_id", org.ID).Info("datasource created")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.DatasourceCreated()
//	router.Handle("/metrics", observability.Handler(registry))
//
// # Health Checks
//
// The driver reports every finished cycle; readiness fails until the first cycle
// completes or when the last one is older than the configured max age:
//
//	checker := observability.NewHealthChecker(version, 3*interval)
//	checker.RecordCycle("ok", nil)
//	observability.RegisterHealthRoutes(router, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "grafana-sync",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
//	client := &http.Client{Transport: observability.Transport(nil)}
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/reconcile: Emits the metrics recorded here
package observability
