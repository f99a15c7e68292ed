package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
)

type key struct {
	owner    string
	endpoint string
}

// Memory is an in-process endpoint.Store. Records do not survive restarts.
type Memory struct {
	mu        sync.RWMutex
	endpoints map[key]endpoint.Endpoint
	now       func() time.Time
}

var _ endpoint.Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		endpoints: make(map[key]endpoint.Endpoint),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Get(_ context.Context, ownerID, endpointID string) (*endpoint.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.endpoints[key{ownerID, endpointID}]
	if !ok {
		return nil, nil
	}
	e = clone(e)
	return &e, nil
}

func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]endpoint.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []endpoint.Endpoint{}
	for k, e := range m.endpoints {
		if k.owner == ownerID {
			out = append(out, clone(e))
		}
	}
	sortEndpoints(out)
	return out, nil
}

func (m *Memory) ListAll(_ context.Context) ([]endpoint.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]endpoint.Endpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		out = append(out, clone(e))
	}
	sortEndpoints(out)
	return out, nil
}

func (m *Memory) Create(_ context.Context, e endpoint.Endpoint) (endpoint.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e.CreatedAt = now
	e.UpdatedAt = now
	m.endpoints[key{e.OwnerID, e.EndpointID}] = clone(e)
	return e, nil
}

func (m *Memory) Update(_ context.Context, ownerID, endpointID string, p endpoint.Patch) (endpoint.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{ownerID, endpointID}
	e, ok := m.endpoints[k]
	if !ok {
		return endpoint.Endpoint{}, endpoint.ErrNotFound
	}
	e = p.Apply(e)
	e.UpdatedAt = m.now()
	m.endpoints[k] = e
	return clone(e), nil
}

func (m *Memory) Delete(_ context.Context, ownerID, endpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.endpoints, key{ownerID, endpointID})
	return nil
}

func (m *Memory) DeleteBatch(_ context.Context, endpoints []endpoint.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range endpoints {
		delete(m.endpoints, key{e.OwnerID, e.EndpointID})
	}
	return nil
}

// clone copies the pointer fields so callers never share them with the map.
func clone(e endpoint.Endpoint) endpoint.Endpoint {
	e.StatusCode = copyPtr(e.StatusCode)
	e.ResponseTimeMs = copyPtr(e.ResponseTimeMs)
	e.ErrorMessage = copyPtr(e.ErrorMessage)
	e.LastCheckedAt = copyPtr(e.LastCheckedAt)
	return e
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortEndpoints(endpoints []endpoint.Endpoint) {
	sort.Slice(endpoints, func(i, j int) bool {
		a, b := endpoints[i], endpoints[j]
		if a.OwnerID != b.OwnerID {
			return a.OwnerID < b.OwnerID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.EndpointID < b.EndpointID
	})
}
