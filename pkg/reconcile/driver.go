package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"github.com/platinummonkey/grafana-sync/pkg/observability"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CycleResult labels the outcome of one cycle
type CycleResult string

// Cycle results
const (
	CycleOK              CycleResult = "ok"
	CycleReauthenticated CycleResult = "reauthenticated"
	CycleFailed          CycleResult = "failed"
)

// DefaultInterval is the pause between cycles
const DefaultInterval = 10 * time.Second

// DriverConfig tunes the cycle loop
type DriverConfig struct {
	// Interval is the pause after each completed cycle
	Interval time.Duration
}

// CycleHook observes finished cycles
type CycleHook func(result CycleResult, err error)

// Driver runs user and datasource passes in a loop
type Driver struct {
	authenticator Authenticator
	identity      IdentitySearcher
	users         *UserReconciler
	datasources   *DatasourceProvisioner
	interval      time.Duration
	logger        logrus.FieldLogger
	recorder      Recorder
	sleep         Sleeper
	hooks         []CycleHook
	lastResult    CycleResult
}

// NewDriver creates a new driver. The Auth0 session is created lazily by the first
// cycle.
func NewDriver(authenticator Authenticator, users *UserReconciler, datasources *DatasourceProvisioner, config DriverConfig, logger logrus.FieldLogger, recorder Recorder) *Driver {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Driver{
		authenticator: authenticator,
		users:         users,
		datasources:   datasources,
		interval:      interval,
		logger:        logger,
		recorder:      recorder,
		sleep:         sleepContext,
	}
}

// WithSleeper replaces the pause between cycles
func (d *Driver) WithSleeper(sleep Sleeper) *Driver {
	d.sleep = sleep
	return d
}

// OnCycle registers a hook called after every cycle
func (d *Driver) OnCycle(hook CycleHook) {
	d.hooks = append(d.hooks, hook)
}

// Authenticate creates the Auth0 session used by subsequent cycles
func (d *Driver) Authenticate(ctx context.Context) error {
	identity, err := d.authenticator.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate with auth0: %w", err)
	}
	d.identity = identity
	return nil
}

// Run authenticates and then runs cycles until ctx is cancelled, returning nil in
// that case. Any other error returned is fatal.
func (d *Driver) Run(ctx context.Context) error {
	if d.identity == nil {
		if err := d.Authenticate(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	for {
		previous := d.lastResult
		result, err := d.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		// A fresh session goes straight into the next cycle, unless the
		// previous cycle also had to re-authenticate.
		if result == CycleReauthenticated && previous != CycleReauthenticated {
			continue
		}

		if err := d.sleep(ctx, d.interval); err != nil {
			return nil
		}
	}
}

// RunOnce runs a single cycle
func (d *Driver) RunOnce(ctx context.Context) (CycleResult, error) {
	cycleID := uuid.New().String()

	ctx, span := observability.Tracer().Start(ctx, "reconcile.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("cycle.id", cycleID))
	log := observability.WithTraceContext(ctx, d.logger.WithField("cycle_id", cycleID))

	start := time.Now()
	result, err := d.cycle(ctx, log)
	duration := time.Since(start)

	d.lastResult = result
	d.recorder.CycleCompleted(string(result), duration)
	span.SetAttributes(attribute.String("cycle.result", string(result)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	for _, hook := range d.hooks {
		hook(result, err)
	}

	log.WithFields(logrus.Fields{
		"result":   result,
		"duration": duration,
	}).Debug("Cycle finished")
	return result, err
}

func (d *Driver) cycle(ctx context.Context, log logrus.FieldLogger) (CycleResult, error) {
	if d.identity == nil {
		if err := d.Authenticate(ctx); err != nil {
			return CycleFailed, err
		}
	}

	users, err := d.users.PassUsers(ctx, d.identity)
	if err != nil {
		if ctx.Err() != nil {
			return CycleFailed, ctx.Err()
		}
		if !httputil.IsServiceKind(err, auth0.ServiceName, httputil.KindAuthorization) {
			log.WithError(err).Error("User pass failed")
			return CycleFailed, fmt.Errorf("user pass: %w", err)
		}

		log.WithError(err).Warn("Auth0 rejected the session, re-authenticating")
		if err := d.Authenticate(ctx); err != nil {
			log.WithError(err).Error("Re-authentication failed")
			return CycleFailed, err
		}
		d.recorder.Reauthenticated()
		return CycleReauthenticated, nil
	}
	if users.Malformed > 0 {
		log.WithFields(logrus.Fields{
			"malformed": users.Malformed,
			"repaired":  users.Repaired,
			"unmatched": users.Unmatched,
			"skipped":   users.Skipped,
		}).Info("User pass finished")
	}

	if ctx.Err() != nil {
		return CycleFailed, ctx.Err()
	}

	datasources := d.datasources.Provision(ctx)
	if datasources.Created > 0 || datasources.Failed > 0 {
		log.WithFields(logrus.Fields{
			"orgs":     datasources.Orgs,
			"created":  datasources.Created,
			"existing": datasources.Existing,
			"failed":   datasources.Failed,
		}).Info("Datasource pass finished")
	}

	if ctx.Err() != nil {
		return CycleFailed, ctx.Err()
	}
	return CycleOK, nil
}

// IsFatal reports whether err returned by Run or RunOnce should stop the process
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
