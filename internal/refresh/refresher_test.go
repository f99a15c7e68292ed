package refresh_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
	"github.com/hazz-dev/statuswatch/internal/probe"
	"github.com/hazz-dev/statuswatch/internal/refresh"
	"github.com/hazz-dev/statuswatch/internal/storage"
)

// fakeProber returns a fixed result per URL, healthy by default.
type fakeProber struct {
	mu       sync.Mutex
	results  map[string]probe.Result
	delays   map[string]time.Duration
	timeouts map[string]int64
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		results:  make(map[string]probe.Result),
		delays:   make(map[string]time.Duration),
		timeouts: make(map[string]int64),
	}
}

func (f *fakeProber) Probe(_ context.Context, target string, timeoutMs int64) probe.Result {
	f.mu.Lock()
	f.timeouts[target] = timeoutMs
	res, ok := f.results[target]
	delay := f.delays[target]
	f.mu.Unlock()
	time.Sleep(delay)
	if !ok {
		return healthyResult()
	}
	return res
}

type notification struct {
	endpoint endpoint.Endpoint
	result   probe.Result
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (n *recordingNotifier) NotifyUnhealthy(_ context.Context, e endpoint.Endpoint, r probe.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{endpoint: e, result: r})
	return n.err
}

// failingStore fails updates for one endpoint id.
type failingStore struct {
	*storage.Memory
	failID string
}

func (s *failingStore) Update(ctx context.Context, ownerID, endpointID string, p endpoint.Patch) (endpoint.Endpoint, error) {
	if endpointID == s.failID {
		return endpoint.Endpoint{}, errors.New("storage unavailable")
	}
	return s.Memory.Update(ctx, ownerID, endpointID, p)
}

func seed(t *testing.T, store endpoint.Store, endpoints ...endpoint.Endpoint) {
	t.Helper()
	for _, e := range endpoints {
		_, err := store.Create(context.Background(), e)
		require.NoError(t, err)
	}
}

func makeEndpoint(owner, id, url string) endpoint.Endpoint {
	return endpoint.Endpoint{
		OwnerID:     owner,
		EndpointID:  id,
		TenantID:    "tenant",
		Category:    "api",
		Name:        id,
		URL:         url,
		TimeoutMs:   5000,
		Status:      endpoint.StatusUnknown,
		StatusSince: epoch,
	}
}

func fixedClock() func() time.Time {
	return func() time.Time { return now }
}

func TestRefreshOwner_DownEndpointNotifiesOnce(t *testing.T) {
	store := storage.NewMemory()
	dir := endpoint.NewDirectory(store, nil, nil)
	created, err := dir.Create(context.Background(), "owner-1", endpoint.CreateInput{
		TenantID: "tenant", Category: "api", Name: "down", URL: "http://down.test",
	})
	require.NoError(t, err)

	prober := newFakeProber()
	prober.results["http://down.test"] = unhealthyResult("connect ECONNREFUSED 127.0.0.1:80")
	notifier := &recordingNotifier{}

	r := refresh.New(store, prober, notifier, refresh.WithClock(fixedClock()))
	updated, err := r.RefreshOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, updated, 1)

	got := updated[0]
	assert.Equal(t, created.EndpointID, got.EndpointID)
	assert.Equal(t, endpoint.StatusUnhealthy, got.Status)
	assert.Equal(t, now, got.StatusSince)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "ECONNREFUSED")
	assert.Nil(t, got.StatusCode)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, got, notifier.calls[0].endpoint)
	assert.Equal(t, prober.results["http://down.test"], notifier.calls[0].result)

	stored, err := store.Get(context.Background(), "owner-1", created.EndpointID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, endpoint.StatusUnhealthy, stored.Status)
}

func TestRefreshOwner_HealthyDoesNotNotify(t *testing.T) {
	store := storage.NewMemory()
	prior := makeEndpoint("owner-1", "ep-1", "https://ok.test")
	prior.Status = endpoint.StatusUnhealthy
	prior.ErrorMessage = strPtr("Non-2xx status code: 429")
	seed(t, store, prior)

	notifier := &recordingNotifier{}
	r := refresh.New(store, newFakeProber(), notifier, refresh.WithClock(fixedClock()))

	updated, err := r.RefreshOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, endpoint.StatusHealthy, updated[0].Status)
	assert.Nil(t, updated[0].ErrorMessage)
	assert.Empty(t, notifier.calls)
}

func TestRefreshOwner_ScopedToOwner(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store,
		makeEndpoint("owner-1", "a", "https://a.test"),
		makeEndpoint("owner-2", "b", "https://b.test"),
	)

	r := refresh.New(store, newFakeProber(), nil)
	updated, err := r.RefreshOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "a", updated[0].EndpointID)

	other, err := store.Get(context.Background(), "owner-2", "b")
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusUnknown, other.Status)
}

func TestRefreshAll_EveryUnhealthyCycleNotifies(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store,
		makeEndpoint("owner-1", "a", "https://a.test"),
		makeEndpoint("owner-2", "b", "https://b.test"),
	)
	prober := newFakeProber()
	prober.results["https://b.test"] = unhealthyResult("Non-2xx status code: 503")
	notifier := &recordingNotifier{}
	r := refresh.New(store, prober, notifier)

	for i := 0; i < 3; i++ {
		updated, err := r.RefreshAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, refresh.Summary{RefreshedCount: 2, UnhealthyCount: 1}, refresh.Summarize(updated))
	}
	assert.Len(t, notifier.calls, 3)
}

func TestRefresh_UsesEndpointTimeoutOrDefault(t *testing.T) {
	store := storage.NewMemory()
	custom := makeEndpoint("owner-1", "a", "https://a.test")
	custom.TimeoutMs = 250
	unset := makeEndpoint("owner-1", "b", "https://b.test")
	unset.TimeoutMs = 0
	seed(t, store, custom, unset)

	prober := newFakeProber()
	_, err := refresh.New(store, prober, nil).RefreshAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(250), prober.timeouts["https://a.test"])
	assert.Equal(t, endpoint.DefaultTimeoutMs, prober.timeouts["https://b.test"])
}

func TestRefresh_StoreFailureDoesNotBlockSiblings(t *testing.T) {
	store := &failingStore{Memory: storage.NewMemory(), failID: "bad"}
	seed(t, store,
		makeEndpoint("owner-1", "good", "https://good.test"),
		makeEndpoint("owner-1", "bad", "https://bad.test"),
	)

	updated, err := refresh.New(store, newFakeProber(), nil).RefreshOwner(context.Background(), "owner-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
	require.Len(t, updated, 1)
	assert.Equal(t, "good", updated[0].EndpointID)
	assert.Equal(t, endpoint.StatusHealthy, updated[0].Status)
}

func TestRefresh_NotifierFailureIsReported(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store, makeEndpoint("owner-1", "a", "https://a.test"))
	prober := newFakeProber()
	prober.results["https://a.test"] = unhealthyResult("boom")
	notifier := &recordingNotifier{err: errors.New("webhook down")}

	updated, err := refresh.New(store, prober, notifier).RefreshOwner(context.Background(), "owner-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook down")
	require.Len(t, updated, 1, "the persisted record is still returned")
	assert.Equal(t, endpoint.StatusUnhealthy, updated[0].Status)
}

func TestRefresh_RunsConcurrently(t *testing.T) {
	store := storage.NewMemory()
	prober := newFakeProber()
	for _, id := range []string{"a", "b", "c", "d"} {
		url := "https://" + id + ".test"
		seed(t, store, makeEndpoint("owner-1", id, url))
		prober.delays[url] = 100 * time.Millisecond
	}

	start := time.Now()
	updated, err := refresh.New(store, prober, nil).RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, updated, 4)
	assert.Less(t, time.Since(start), 350*time.Millisecond, "slow probes should overlap")
}

type countingProber struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingProber) Probe(context.Context, string, int64) probe.Result {
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	c.inFlight.Add(-1)
	return healthyResult()
}

func TestRefresh_ConcurrencyLimit(t *testing.T) {
	store := storage.NewMemory()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		seed(t, store, makeEndpoint("owner-1", id, "https://"+id+".test"))
	}

	prober := &countingProber{}
	_, err := refresh.New(store, prober, nil, refresh.WithConcurrency(2)).RefreshAll(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, prober.peak.Load(), int32(2))
}

func TestRefresh_EmptySet(t *testing.T) {
	updated, err := refresh.New(storage.NewMemory(), newFakeProber(), nil).RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, updated)
}
