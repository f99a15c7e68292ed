package endpoint

import "context"

// Store persists endpoint records keyed by (ownerID, endpointID).
type Store interface {
	// Get returns nil, nil when the record does not exist.
	Get(ctx context.Context, ownerID, endpointID string) (*Endpoint, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Endpoint, error)
	ListAll(ctx context.Context) ([]Endpoint, error)
	Create(ctx context.Context, e Endpoint) (Endpoint, error)
	// Update merges p into the stored record and returns the result.
	// It returns ErrNotFound when the record does not exist.
	Update(ctx context.Context, ownerID, endpointID string, p Patch) (Endpoint, error)
	Delete(ctx context.Context, ownerID, endpointID string) error
	// DeleteBatch is a no-op for empty input.
	DeleteBatch(ctx context.Context, endpoints []Endpoint) error
}
