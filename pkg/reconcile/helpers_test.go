package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/grafana/grafanatest"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	testAccount  = "sync-admin"
	testPassword = "sync-password"
)

type searchResponse struct {
	users []auth0.User
	err   error
}

// fakeIdentity answers searches from canned records. Queued responses are served
// before the canned records.
type fakeIdentity struct {
	mu      sync.Mutex
	records map[string][]auth0.User
	queued  map[string][]searchResponse
	queries []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		records: make(map[string][]auth0.User),
		queued:  make(map[string][]searchResponse),
	}
}

func (f *fakeIdentity) add(query string, users ...auth0.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[query] = append(f.records[query], users...)
}

func (f *fakeIdentity) failNext(query string, err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.queued[query] = append(f.queued[query], searchResponse{err: err})
	}
}

func (f *fakeIdentity) SearchUsers(ctx context.Context, query string) ([]auth0.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)

	if queue := f.queued[query]; len(queue) > 0 {
		f.queued[query] = queue[1:]
		return queue[0].users, queue[0].err
	}
	return f.records[query], nil
}

func (f *fakeIdentity) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func auth0Error(status int) error {
	return &httputil.Error{
		Service:    auth0.ServiceName,
		Op:         "search users",
		StatusCode: status,
		Kind:       httputil.KindForStatus(status),
	}
}

// recordingSleeper records requested pauses without sleeping
type recordingSleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

// countingRecorder counts reconciliation events
type countingRecorder struct {
	mu          sync.Mutex
	cycles      []string
	repaired    int
	lookupFails []string
	waits       int
	reauths     int
	created     int
	dsFailed    int
	enrollments []string
}

func (r *countingRecorder) CycleCompleted(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, result)
}

func (r *countingRecorder) UserRepaired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repaired++
}

func (r *countingRecorder) UserLookupFailed(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupFails = append(r.lookupFails, kind)
}

func (r *countingRecorder) RateLimitWait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits++
}

func (r *countingRecorder) Reauthenticated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reauths++
}

func (r *countingRecorder) DatasourceCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *countingRecorder) DatasourceFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dsFailed++
}

func (r *countingRecorder) AdminEnrollment(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollments = append(r.enrollments, result)
}

// fakeSigner returns a predictable token per username
type fakeSigner struct {
	err error
}

func (s fakeSigner) SignStatsToken(username string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-for-" + username, nil
}

func newLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func newGrafana(t *testing.T) (*grafanatest.Server, *grafana.Client) {
	t.Helper()

	server := grafanatest.NewServer(testAccount, testPassword)
	t.Cleanup(server.Close)

	client, err := grafana.NewClient(grafana.Config{
		URL:      server.URL,
		Username: testAccount,
		Password: testPassword,
		PageSize: 2,
	})
	require.NoError(t, err)
	return server, client
}
