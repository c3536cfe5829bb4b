package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/config"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"github.com/platinummonkey/grafana-sync/pkg/observability"
	"github.com/platinummonkey/grafana-sync/pkg/reconcile"
	"github.com/platinummonkey/grafana-sync/pkg/signing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var version = "dev"

// shutdownTimeout bounds ops server and telemetry shutdown
const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("grafana-sync stopped")
		stop()
		os.Exit(1)
	}
	logger.Info("grafana-sync stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without it")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
			logger.WithError(err).Warn("Failed to shut down OpenTelemetry")
		}
	}()

	transport := observability.Transport(http.DefaultTransport)

	provider := auth0.NewProvider(auth0.Config{
		Domain:       cfg.Auth0.Domain,
		ClientID:     cfg.Auth0.ClientID,
		ClientSecret: cfg.Auth0.ClientSecret,
		Audience:     cfg.Auth0.Audience,
		Transport:    transport,
		Timeout:      cfg.Sync.HTTPTimeout,
	})

	grafanaClient, err := grafana.NewClient(grafana.Config{
		URL:       cfg.Grafana.URL,
		Username:  cfg.Grafana.Username,
		Password:  cfg.Grafana.Password,
		Transport: transport,
		Timeout:   cfg.Sync.HTTPTimeout,
	})
	if err != nil {
		return fmt.Errorf("create grafana client: %w", err)
	}

	signer, err := signing.NewSigner(cfg.Signing.Algorithm, cfg.Signing.Secret)
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	health := observability.NewHealthChecker(version, 6*cfg.Sync.Interval)

	var limiter *rate.Limiter
	if cfg.Sync.IdentityRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Sync.IdentityRPS), 1)
	}

	users := reconcile.NewUserReconciler(grafanaClient, reconcile.UserReconcilerConfig{
		RateLimitBackoff: cfg.Sync.RateLimitBackoff,
		RateLimitRetries: cfg.Sync.RateLimitRetries,
		Limiter:          limiter,
	}, logger, metrics)
	datasources := reconcile.NewDatasourceProvisioner(
		grafanaClient,
		reconcile.DefaultTemplates(),
		signer,
		reconcile.NewAdminCache(cfg.Sync.AdminCacheTTL),
		grafanaClient.Username(),
		logger,
		metrics,
	)
	driver := reconcile.NewDriver(reconcile.ProviderAuthenticator(provider), users, datasources, reconcile.DriverConfig{
		Interval: cfg.Sync.Interval,
	}, logger, metrics)
	driver.OnCycle(func(result reconcile.CycleResult, err error) {
		health.RecordCycle(string(result), err)
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Observability.OpsAddr != "" {
		server := newOpsServer(cfg, registry, health, logger)
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "ops server")
			logger.WithField("addr", server.Addr).Info("Starting ops server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ops server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		logger.WithFields(logrus.Fields{
			"version":  version,
			"auth0":    cfg.Auth0.Domain,
			"grafana":  cfg.Grafana.URL,
			"interval": cfg.Sync.Interval,
			"run_once": cfg.Sync.RunOnce,
		}).Info("Starting grafana-sync")

		if cfg.Sync.RunOnce {
			return runSingleCycle(gctx, driver)
		}
		return driver.Run(gctx)
	})

	return g.Wait()
}

// runSingleCycle runs a single cycle, repeating it once when it only refreshed the Auth0 session
func runSingleCycle(ctx context.Context, driver *reconcile.Driver) error {
	result, err := driver.RunOnce(ctx)
	if err == nil && result == reconcile.CycleReauthenticated {
		_, err = driver.RunOnce(ctx)
	}
	if !reconcile.IsFatal(err) {
		return nil
	}
	return err
}

func newOpsServer(cfg *config.Config, registry *prometheus.Registry, health *observability.HealthChecker, logger logrus.FieldLogger) *http.Server {
	router := mux.NewRouter()
	observability.RegisterHealthRoutes(router, health)
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.Handler(registry)).Methods(http.MethodGet)
	}

	handler := httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.LoggingMiddleware(logger),
	)(router)

	return &http.Server{
		Addr:              cfg.Observability.OpsAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
