package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// UserReconcilerConfig tunes identity lookups
type UserReconcilerConfig struct {
	// RateLimitBackoff is the pause after an Auth0 429
	RateLimitBackoff time.Duration
	// RateLimitRetries bounds consecutive 429 retries for a single user
	RateLimitRetries int
	// Limiter paces Auth0 searches, unlimited when nil
	Limiter *rate.Limiter
}

// UserPassResult summarizes one user pass
type UserPassResult struct {
	Malformed int
	Repaired  int
	Unmatched int
	Skipped   int
}

// UserReconciler repairs malformed Grafana users from Auth0 records
type UserReconciler struct {
	dashboard UserDirectory
	config    UserReconcilerConfig
	logger    logrus.FieldLogger
	recorder  Recorder
	sleep     Sleeper
}

// NewUserReconciler creates a new user reconciler
func NewUserReconciler(dashboard UserDirectory, config UserReconcilerConfig, logger logrus.FieldLogger, recorder Recorder) *UserReconciler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &UserReconciler{
		dashboard: dashboard,
		config:    config,
		logger:    logger,
		recorder:  recorder,
		sleep:     sleepContext,
	}
}

// WithSleeper replaces the pause used for rate limit backoff
func (r *UserReconciler) WithSleeper(sleep Sleeper) *UserReconciler {
	r.sleep = sleep
	return r
}

// PassUsers snapshots Grafana users and orgs and reconciles them
func (r *UserReconciler) PassUsers(ctx context.Context, identity IdentitySearcher) (UserPassResult, error) {
	users, err := r.dashboard.ListUsers(ctx)
	if err != nil {
		return UserPassResult{}, fmt.Errorf("list grafana users: %w", err)
	}
	orgs, err := r.dashboard.ListOrgs(ctx)
	if err != nil {
		return UserPassResult{}, fmt.Errorf("list grafana orgs: %w", err)
	}
	return r.Reconcile(ctx, identity, users, orgs)
}

// Reconcile repairs every malformed user in users. orgs is the snapshot used to
// find the org named after a user's pre-repair email.
//
// Lookup and update failures are logged and skip the user. Auth0 and Grafana
// authorization failures end the pass and are returned, as is context
// cancellation.
func (r *UserReconciler) Reconcile(ctx context.Context, identity IdentitySearcher, users []grafana.User, orgs []grafana.Org) (UserPassResult, error) {
	malformed := FilterMalformed(users)
	result := UserPassResult{Malformed: len(malformed)}
	if len(malformed) == 0 {
		return result, nil
	}

	r.logger.WithField("count", len(malformed)).Info("Updating malformed users")

	for _, user := range malformed {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := r.logger.WithFields(logrus.Fields{
			"user_id":    user.ID,
			"user_login": user.Login,
		})

		match, err := r.lookup(ctx, identity, user)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if httputil.IsServiceKind(err, auth0.ServiceName, httputil.KindAuthorization) {
				return result, err
			}
			kind := httputil.KindOf(err)
			r.recorder.UserLookupFailed(kind.String())
			log.WithError(err).WithField("query", LookupQuery(user)).Warn("Auth0 lookup failed, skipping user")
			result.Skipped++
			continue
		}
		if match == nil {
			log.Debug("No Auth0 record for user")
			result.Unmatched++
			continue
		}

		repaired, err := r.repair(ctx, log, user, *match, orgs)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if httputil.IsServiceKind(err, grafana.ServiceName, httputil.KindAuthorization) {
				return result, err
			}
			log.WithError(err).Warn("Failed to repair user")
			result.Skipped++
			continue
		}
		if !repaired {
			result.Unmatched++
			continue
		}
		result.Repaired++
	}

	return result, nil
}

// lookup returns the first Auth0 record matching user, nil when none does
func (r *UserReconciler) lookup(ctx context.Context, identity IdentitySearcher, user grafana.User) (*auth0.User, error) {
	query := LookupQuery(user)

	for attempt := 0; ; attempt++ {
		if r.config.Limiter != nil {
			if err := r.config.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		matches, err := identity.SearchUsers(ctx, query)
		if err == nil {
			if len(matches) == 0 {
				return nil, nil
			}
			return &matches[0], nil
		}

		if !httputil.IsKind(err, httputil.KindRateLimit) || attempt >= r.config.RateLimitRetries {
			return nil, err
		}

		r.logger.WithField("backoff", r.config.RateLimitBackoff).Info("Auth0 rate limited, waiting")
		r.recorder.RateLimitWait()
		if err := r.sleep(ctx, r.config.RateLimitBackoff); err != nil {
			return nil, err
		}
	}
}

// repair applies match to user, renaming the org named after the old email first.
// It reports false without touching Grafana when match cannot fix the record.
func (r *UserReconciler) repair(ctx context.Context, log logrus.FieldLogger, user grafana.User, match auth0.User, orgs []grafana.Org) (bool, error) {
	update := grafana.UserUpdate{
		Name:  match.Username,
		Login: match.Username,
		Email: match.Email,
	}
	if update.Name == "" {
		update.Name = match.Name
	}
	if update.Login == "" {
		update.Login = user.Login
	}

	repaired := user
	repaired.Login = update.Login
	repaired.Email = update.Email
	if IsMalformed(repaired) {
		log.WithField("auth0_user_id", match.UserID).Warn("Auth0 record would leave user malformed, skipping")
		return false, nil
	}

	if match.Username != "" && user.Email != "" {
		for _, org := range orgs {
			if org.Name != user.Email {
				continue
			}
			if err := r.dashboard.UpdateOrg(ctx, org.ID, grafana.OrgUpdate{Name: match.Username}); err != nil {
				return false, err
			}
			log.WithFields(logrus.Fields{
				"org_id":   org.ID,
				"org_name": match.Username,
			}).Info("Renamed org")
			break
		}
	}

	if err := r.dashboard.UpdateUser(ctx, user.ID, update); err != nil {
		return false, err
	}
	r.recorder.UserRepaired()
	log.WithFields(logrus.Fields{
		"login": update.Login,
		"email": update.Email,
	}).Info("Repaired user")
	return true, nil
}
