package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/grafana/grafanatest"
	"github.com/platinummonkey/grafana-sync/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	identities []reconcile.IdentitySearcher
	errs       []error
	calls      int
}

func (a *fakeAuthenticator) Authenticate(ctx context.Context) (reconcile.IdentitySearcher, error) {
	i := a.calls
	a.calls++
	if i < len(a.errs) && a.errs[i] != nil {
		return nil, a.errs[i]
	}
	if i < len(a.identities) {
		return a.identities[i], nil
	}
	return a.identities[len(a.identities)-1], nil
}

type driverFixture struct {
	server   *grafanatest.Server
	recorder *countingRecorder
	sleeper  *recordingSleeper
	driver   *reconcile.Driver
}

func newDriverFixture(t *testing.T, authenticator reconcile.Authenticator) *driverFixture {
	t.Helper()

	server, client := newGrafana(t)
	recorder := &countingRecorder{}
	users, _ := newUserReconciler(client, defaultUserConfig(), recorder)
	datasources := newProvisioner(client, fakeSigner{}, nil, recorder)
	sleeper := &recordingSleeper{}

	driver := reconcile.NewDriver(authenticator, users, datasources, reconcile.DriverConfig{}, newLogger(), recorder).
		WithSleeper(sleeper.Sleep)

	return &driverFixture{
		server:   server,
		recorder: recorder,
		sleeper:  sleeper,
		driver:   driver,
	}
}

// cancelAfter returns a Sleeper that cancels after n pauses
func cancelAfter(sleeper *recordingSleeper, cancel context.CancelFunc, n int) reconcile.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		if len(sleeper.Pauses())+1 >= n {
			cancel()
		}
		return sleeper.Sleep(ctx, d)
	}
}

func TestRunOnceRunsBothPasses(t *testing.T) {
	identity := newFakeIdentity()
	identity.add(`nickname:"bob"`, auth0.User{Username: "bob", Email: "bob@x.com"})
	authenticator := &fakeAuthenticator{identities: []reconcile.IdentitySearcher{identity}}
	f := newDriverFixture(t, authenticator)
	f.server.AddUser(grafana.User{ID: 1, Login: "bob"})
	f.server.AddOrg(1, "Main Org.")

	var hooked []reconcile.CycleResult
	f.driver.OnCycle(func(result reconcile.CycleResult, err error) {
		assert.NoError(t, err)
		hooked = append(hooked, result)
	})

	result, err := f.driver.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, reconcile.CycleOK, result)
	assert.Equal(t, []reconcile.CycleResult{reconcile.CycleOK}, hooked)
	assert.Equal(t, 1, authenticator.calls)
	assert.Equal(t, "bob@x.com", f.server.Users()[0].Email)
	assert.Len(t, f.server.Datasources(1), 1)
	assert.Equal(t, []string{"ok"}, f.recorder.cycles)
}

func TestRunOnceReauthenticatesOnAuth0Unauthorized(t *testing.T) {
	expired := newFakeIdentity()
	expired.failNext(`nickname:"bob"`, auth0Error(http.StatusUnauthorized), 1)
	fresh := newFakeIdentity()
	fresh.add(`nickname:"bob"`, auth0.User{Username: "bob", Email: "bob@x.com"})
	authenticator := &fakeAuthenticator{identities: []reconcile.IdentitySearcher{expired, fresh}}
	f := newDriverFixture(t, authenticator)
	f.server.AddUser(grafana.User{ID: 1, Login: "bob"})
	f.server.AddOrg(1, "Main Org.")

	result, err := f.driver.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, reconcile.CycleReauthenticated, result)
	assert.Equal(t, 2, authenticator.calls)
	assert.Equal(t, 1, f.recorder.reauths)
	assert.Zero(t, f.server.CountCalls(http.MethodPost, "/api/datasources"))
	assert.Zero(t, f.server.CountCalls(http.MethodPost, "/api/orgs/1/users"))

	result, err = f.driver.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, reconcile.CycleOK, result)
	assert.Equal(t, 2, authenticator.calls)
	assert.Equal(t, []string{`nickname:"bob"`}, fresh.Queries())
	assert.Equal(t, "bob@x.com", f.server.Users()[0].Email)
	assert.Len(t, f.server.Datasources(1), 1)
}

func TestRunSkipsDelayAfterReauthentication(t *testing.T) {
	expired := newFakeIdentity()
	expired.failNext(`nickname:"bob"`, auth0Error(http.StatusUnauthorized), 1)
	fresh := newFakeIdentity()
	fresh.add(`nickname:"bob"`, auth0.User{Username: "bob", Email: "bob@x.com"})
	authenticator := &fakeAuthenticator{identities: []reconcile.IdentitySearcher{expired, fresh}}
	f := newDriverFixture(t, authenticator)
	f.server.AddUser(grafana.User{ID: 1, Login: "bob"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.driver.WithSleeper(cancelAfter(f.sleeper, cancel, 1))

	err := f.driver.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"reauthenticated", "ok"}, f.recorder.cycles)
	assert.Equal(t, []time.Duration{reconcile.DefaultInterval}, f.sleeper.Pauses())
}

func TestRunDelaysRepeatedReauthentication(t *testing.T) {
	rejected := newFakeIdentity()
	rejected.failNext(`nickname:"bob"`, auth0Error(http.StatusUnauthorized), 100)
	authenticator := &fakeAuthenticator{identities: []reconcile.IdentitySearcher{rejected}}
	f := newDriverFixture(t, authenticator)
	f.server.AddUser(grafana.User{ID: 1, Login: "bob"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.driver.WithSleeper(cancelAfter(f.sleeper, cancel, 1))

	err := f.driver.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"reauthenticated", "reauthenticated"}, f.recorder.cycles)
	assert.Len(t, f.sleeper.Pauses(), 1)
	assert.Equal(t, 3, authenticator.calls)
}

func TestRunWaitsIntervalBetweenCycles(t *testing.T) {
	authenticator := &fakeAuthenticator{identities: []reconcile.IdentitySearcher{newFakeIdentity()}}
	f := newDriverFixture(t, authenticator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.driver.WithSleeper(cancelAfter(f.sleeper, cancel, 3))

	err := f.driver.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "ok", "ok"}, f.recorder.cycles)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 10 * time.Second}, f.sleeper.Pauses())
	assert.Equal(t, 1, authenticator.calls)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name          string
		authErrs      []error
		setup         func(server *grafanatest.Server, identity *fakeIdentity)
		wantErr       string
		wantAuthCalls int
	}{
		{
			name:          "initial authentication",
			authErrs:      []error{errors.New("access_denied")},
			wantErr:       "authenticate with auth0",
			wantAuthCalls: 1,
		},
		{
			name:     "re-authentication",
			authErrs: []error{nil, errors.New("access_denied")},
			setup: func(server *grafanatest.Server, identity *fakeIdentity) {
				server.AddUser(grafana.User{ID: 1, Login: "bob"})
				identity.failNext(`nickname:"bob"`, auth0Error(http.StatusUnauthorized), 1)
			},
			wantErr:       "authenticate with auth0",
			wantAuthCalls: 2,
		},
		{
			name: "grafana listing",
			setup: func(server *grafanatest.Server, identity *fakeIdentity) {
				server.FailNext(http.MethodGet, "/api/users", http.StatusInternalServerError, 1)
			},
			wantErr:       "user pass: list grafana users",
			wantAuthCalls: 1,
		},
		{
			name: "grafana authorization",
			setup: func(server *grafanatest.Server, identity *fakeIdentity) {
				server.FailNext(http.MethodGet, "/api/orgs", http.StatusUnauthorized, 1)
			},
			wantErr:       "user pass: list grafana orgs",
			wantAuthCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := newFakeIdentity()
			authenticator := &fakeAuthenticator{
				identities: []reconcile.IdentitySearcher{identity},
				errs:       tt.authErrs,
			}
			f := newDriverFixture(t, authenticator)
			if tt.setup != nil {
				tt.setup(f.server, identity)
			}

			err := f.driver.Run(context.Background())

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, reconcile.IsFatal(err))
			assert.Equal(t, tt.wantAuthCalls, authenticator.calls)
			assert.Empty(t, f.sleeper.Pauses())
		})
	}
}

func TestRunReturnsNilWhenCancelled(t *testing.T) {
	authenticator := &fakeAuthenticator{identities: []reconcile.IdentitySearcher{newFakeIdentity()}}
	f := newDriverFixture(t, authenticator)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, f.driver.Run(ctx))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped deadline", fmt.Errorf("user pass: %w", context.DeadlineExceeded), false},
		{"other", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconcile.IsFatal(tt.err))
		})
	}
}
