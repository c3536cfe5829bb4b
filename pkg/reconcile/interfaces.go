package reconcile

import (
	"context"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
)

// IdentitySearcher looks up identity provider user records
type IdentitySearcher interface {
	SearchUsers(ctx context.Context, query string) ([]auth0.User, error)
}

// Authenticator produces a freshly authenticated IdentitySearcher
type Authenticator interface {
	Authenticate(ctx context.Context) (IdentitySearcher, error)
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(ctx context.Context) (IdentitySearcher, error)

// Authenticate calls f(ctx)
func (f AuthenticatorFunc) Authenticate(ctx context.Context) (IdentitySearcher, error) {
	return f(ctx)
}

// ProviderAuthenticator adapts an auth0.Provider to Authenticator
func ProviderAuthenticator(provider *auth0.Provider) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context) (IdentitySearcher, error) {
		client, err := provider.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// UserDirectory is the part of the Grafana API used by the user pass
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]grafana.User, error)
	ListOrgs(ctx context.Context) ([]grafana.Org, error)
	UpdateUser(ctx context.Context, id int64, update grafana.UserUpdate) error
	UpdateOrg(ctx context.Context, id int64, update grafana.OrgUpdate) error
}

// OrgProvisioner is the part of the Grafana API used by the datasource pass
type OrgProvisioner interface {
	ListOrgs(ctx context.Context) ([]grafana.Org, error)
	AddOrgUser(ctx context.Context, orgID int64, loginOrEmail, role string) error
	SwitchActiveOrg(ctx context.Context, orgID int64) (grafana.ActiveOrg, error)
	ListDatasources(ctx context.Context, org grafana.ActiveOrg) ([]grafana.Datasource, error)
	CreateDatasource(ctx context.Context, org grafana.ActiveOrg, req grafana.CreateDatasourceRequest) (*grafana.CreateDatasourceResponse, error)
}

// TokenSigner issues datasource passwords
type TokenSigner interface {
	SignStatsToken(username string) (string, error)
}

// Recorder receives reconciliation events, typically *observability.Metrics
type Recorder interface {
	CycleCompleted(result string, duration time.Duration)
	UserRepaired()
	UserLookupFailed(kind string)
	RateLimitWait()
	Reauthenticated()
	DatasourceCreated()
	DatasourceFailed()
	AdminEnrollment(result string)
}

// NopRecorder discards all events
type NopRecorder struct{}

func (NopRecorder) CycleCompleted(string, time.Duration) {}
func (NopRecorder) UserRepaired()                        {}
func (NopRecorder) UserLookupFailed(string)              {}
func (NopRecorder) RateLimitWait()                       {}
func (NopRecorder) Reauthenticated()                     {}
func (NopRecorder) DatasourceCreated()                   {}
func (NopRecorder) DatasourceFailed()                    {}
func (NopRecorder) AdminEnrollment(string)               {}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the default Sleeper
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
