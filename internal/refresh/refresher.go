package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
	"github.com/hazz-dev/statuswatch/internal/probe"
)

// Store defines the storage operations required by the refresher.
type Store interface {
	ListByOwner(ctx context.Context, ownerID string) ([]endpoint.Endpoint, error)
	ListAll(ctx context.Context) ([]endpoint.Endpoint, error)
	Update(ctx context.Context, ownerID, endpointID string, p endpoint.Patch) (endpoint.Endpoint, error)
}

// Notifier is told about every refresh that leaves an endpoint unhealthy.
type Notifier interface {
	NotifyUnhealthy(ctx context.Context, e endpoint.Endpoint, result probe.Result) error
}

// Summary describes one refresh-all run.
type Summary struct {
	RefreshedCount int `json:"refreshedCount"`
	UnhealthyCount int `json:"unhealthyCount"`
}

// Summarize counts refreshed and unhealthy records.
func Summarize(endpoints []endpoint.Endpoint) Summary {
	s := Summary{RefreshedCount: len(endpoints)}
	for _, e := range endpoints {
		if e.Status == endpoint.StatusUnhealthy {
			s.UnhealthyCount++
		}
	}
	return s
}

// Refresher runs probe, reconcile, persist and notify for a set of endpoints.
type Refresher struct {
	store       Store
	prober      probe.Prober
	notifier    Notifier
	now         func() time.Time
	concurrency int
	logger      *slog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for lastCheckedAt and statusSince.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// WithConcurrency caps the number of endpoints refreshed at once.
// Zero or negative means no limit.
func WithConcurrency(n int) Option {
	return func(r *Refresher) { r.concurrency = n }
}

// New creates a Refresher. A nil notifier disables notifications.
func New(store Store, prober probe.Prober, notifier Notifier, opts ...Option) *Refresher {
	r := &Refresher{
		store:    store,
		prober:   prober,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefreshOwner refreshes every endpoint of one owner.
func (r *Refresher) RefreshOwner(ctx context.Context, ownerID string) ([]endpoint.Endpoint, error) {
	endpoints, err := r.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints for %q: %w", ownerID, err)
	}
	return r.Refresh(ctx, endpoints)
}

// RefreshAll refreshes every endpoint of every owner.
func (r *Refresher) RefreshAll(ctx context.Context) ([]endpoint.Endpoint, error) {
	endpoints, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing all endpoints: %w", err)
	}
	return r.Refresh(ctx, endpoints)
}

// Refresh processes endpoints concurrently and independently. A failing
// record never cancels its siblings: every persisted record is returned in
// input order, and per-record errors are joined into err.
func (r *Refresher) Refresh(ctx context.Context, endpoints []endpoint.Endpoint) ([]endpoint.Endpoint, error) {
	results := make([]*endpoint.Endpoint, len(endpoints))
	errs := make([]error, len(endpoints))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, e := range endpoints {
		g.Go(func() error {
			updated, err := r.refreshOne(ctx, e)
			if err != nil {
				r.logger.Error("refreshing endpoint", "owner", e.OwnerID, "endpoint", e.EndpointID, "error", err)
				errs[i] = err
			}
			results[i] = updated
			return nil
		})
	}
	_ = g.Wait()

	out := make([]endpoint.Endpoint, 0, len(endpoints))
	for _, u := range results {
		if u != nil {
			out = append(out, *u)
		}
	}
	return out, errors.Join(errs...)
}

// refreshOne returns the persisted record even when the notification fails.
func (r *Refresher) refreshOne(ctx context.Context, e endpoint.Endpoint) (*endpoint.Endpoint, error) {
	result := r.prober.Probe(ctx, e.URL, e.EffectiveTimeoutMs())
	patch, notify := Reconcile(e, result, r.now())

	r.logger.Debug("probe result",
		"owner", e.OwnerID,
		"endpoint", e.EndpointID,
		"status", result.Status,
		"response_time_ms", result.ResponseTimeMs,
		"error", result.ErrorMessage,
	)

	updated, err := r.store.Update(ctx, e.OwnerID, e.EndpointID, patch)
	if err != nil {
		return nil, fmt.Errorf("storing refresh of %q: %w", e.EndpointID, err)
	}

	if notify && r.notifier != nil {
		if err := r.notifier.NotifyUnhealthy(ctx, updated, result); err != nil {
			return &updated, fmt.Errorf("notifying for %q: %w", e.EndpointID, err)
		}
	}
	return &updated, nil
}
