package endpoint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Refresher re-probes every endpoint of an owner and returns the updated records.
type Refresher interface {
	RefreshOwner(ctx context.Context, ownerID string) ([]Endpoint, error)
}

// CreateInput holds the fields accepted when registering an endpoint.
type CreateInput struct {
	TenantID  string `json:"tenantId"`
	Category  string `json:"category"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	TimeoutMs *int64 `json:"timeoutMs,omitempty"`
}

// UpdateInput holds the mutable fields; nil means "not provided".
type UpdateInput struct {
	Name      *string `json:"name,omitempty"`
	URL       *string `json:"url,omitempty"`
	TimeoutMs *int64  `json:"timeoutMs,omitempty"`
}

// Directory implements the owner-facing endpoint operations on top of a Store.
type Directory struct {
	store     Store
	refresher Refresher
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// NewDirectory creates a Directory. Pass nil logger to use the default logger.
func NewDirectory(store Store, refresher Refresher, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		store:     store,
		refresher: refresher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// SetClock overrides the time source used for new records.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// Create registers a new endpoint with status unknown.
func (d *Directory) Create(ctx context.Context, ownerID string, in CreateInput) (Endpoint, error) {
	required := []struct{ field, value string }{
		{"tenantId", in.TenantID},
		{"category", in.Category},
		{"name", in.Name},
		{"url", in.URL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return Endpoint{}, invalid(r.field, "tenantId, category, name and url are required fields")
		}
	}

	timeout := DefaultTimeoutMs
	if in.TimeoutMs != nil {
		if *in.TimeoutMs <= 0 {
			return Endpoint{}, invalid("timeoutMs", "timeoutMs must be a positive number")
		}
		timeout = *in.TimeoutMs
	}

	now := d.now()
	e := Endpoint{
		OwnerID:     ownerID,
		EndpointID:  d.newID(),
		TenantID:    in.TenantID,
		Category:    in.Category,
		Name:        in.Name,
		URL:         in.URL,
		TimeoutMs:   timeout,
		Status:      StatusUnknown,
		StatusSince: now,
	}

	created, err := d.store.Create(ctx, e)
	if err != nil {
		return Endpoint{}, fmt.Errorf("creating endpoint: %w", err)
	}
	d.logger.Info("endpoint created", "owner", ownerID, "endpoint", created.EndpointID, "tenant", created.TenantID)
	return created, nil
}

// Get returns a single endpoint or ErrNotFound.
func (d *Directory) Get(ctx context.Context, ownerID, endpointID string) (Endpoint, error) {
	endpointID = strings.TrimSpace(endpointID)
	if endpointID == "" {
		return Endpoint{}, invalid("endpointId", "endpointId cannot be empty")
	}
	e, err := d.store.Get(ctx, ownerID, endpointID)
	if err != nil {
		return Endpoint{}, fmt.Errorf("fetching endpoint %q: %w", endpointID, err)
	}
	if e == nil {
		return Endpoint{}, ErrNotFound
	}
	return *e, nil
}

// List returns the owner's endpoints, re-probing them first when refresh is set.
func (d *Directory) List(ctx context.Context, ownerID string, refresh bool) ([]Endpoint, error) {
	if refresh {
		return d.refresher.RefreshOwner(ctx, ownerID)
	}
	endpoints, err := d.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	return endpoints, nil
}

// Update changes name, url or timeoutMs. Only fields that differ from the
// stored record are written.
func (d *Directory) Update(ctx context.Context, ownerID, endpointID string, in UpdateInput) (Endpoint, error) {
	endpointID = strings.TrimSpace(endpointID)
	if endpointID == "" {
		return Endpoint{}, invalid("endpointId", "endpointId cannot be empty")
	}
	if in.Name == nil && in.URL == nil && in.TimeoutMs == nil {
		return Endpoint{}, invalid("", "At least one of name, url or timeoutMs must be provided")
	}

	var name, url string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return Endpoint{}, invalid("name", "name must be a non-empty string")
		}
	}
	if in.URL != nil {
		url = strings.TrimSpace(*in.URL)
		if url == "" {
			return Endpoint{}, invalid("url", "url must be a non-empty string")
		}
	}
	if in.TimeoutMs != nil && *in.TimeoutMs <= 0 {
		return Endpoint{}, invalid("timeoutMs", "timeoutMs must be a positive number")
	}

	existing, err := d.store.Get(ctx, ownerID, endpointID)
	if err != nil {
		return Endpoint{}, fmt.Errorf("fetching endpoint %q: %w", endpointID, err)
	}
	if existing == nil {
		return Endpoint{}, ErrNotFound
	}

	var p Patch
	if in.Name != nil && name != existing.Name {
		p.Name = Set(name)
	}
	if in.URL != nil && url != existing.URL {
		p.URL = Set(url)
	}
	if in.TimeoutMs != nil && *in.TimeoutMs != existing.TimeoutMs {
		p.TimeoutMs = Set(*in.TimeoutMs)
	}
	if p.Empty() {
		return *existing, nil
	}

	updated, err := d.store.Update(ctx, ownerID, endpointID, p)
	if err != nil {
		return Endpoint{}, fmt.Errorf("updating endpoint %q: %w", endpointID, err)
	}
	d.logger.Info("endpoint updated", "owner", ownerID, "endpoint", endpointID)
	return updated, nil
}

// Delete removes a single endpoint.
func (d *Directory) Delete(ctx context.Context, ownerID, endpointID string) error {
	endpointID = strings.TrimSpace(endpointID)
	if endpointID == "" {
		return invalid("endpointId", "endpointId cannot be empty")
	}

	existing, err := d.store.Get(ctx, ownerID, endpointID)
	if err != nil {
		return fmt.Errorf("fetching endpoint %q: %w", endpointID, err)
	}
	if existing == nil {
		return ErrNotFound
	}

	if err := d.store.Delete(ctx, ownerID, endpointID); err != nil {
		return fmt.Errorf("deleting endpoint %q: %w", endpointID, err)
	}
	d.logger.Info("endpoint deleted", "owner", ownerID, "endpoint", endpointID)
	return nil
}

// DeleteByTenant removes every endpoint of the owner whose tenant matches
// tenantID exactly (after trimming) and returns how many were removed.
func (d *Directory) DeleteByTenant(ctx context.Context, ownerID, tenantID string) (int, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, invalid("tenantId", "tenantId cannot be empty")
	}

	endpoints, err := d.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("listing endpoints: %w", err)
	}

	var matches []Endpoint
	for _, e := range endpoints {
		if e.TenantID == tenantID {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return 0, nil
	}

	if err := d.store.DeleteBatch(ctx, matches); err != nil {
		return 0, fmt.Errorf("deleting tenant %q: %w", tenantID, err)
	}
	d.logger.Info("tenant deleted", "owner", ownerID, "tenant", tenantID, "count", len(matches))
	return len(matches), nil
}
