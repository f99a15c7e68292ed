// Package endpoint defines monitored endpoint records and the directory
// service that owners use to manage them.
package endpoint

import "time"

// Status is the last known health of an endpoint.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown is only held before the first probe.
	StatusUnknown Status = "unknown"
)

// DefaultTimeoutMs is applied when an endpoint is created without a timeout.
const DefaultTimeoutMs int64 = 5000

// Endpoint is one monitored target, identified by (OwnerID, EndpointID).
//
// ErrorMessage is nil unless Status is unhealthy. StatusSince only moves when
// Status changes value; LastCheckedAt moves on every refresh.
type Endpoint struct {
	OwnerID        string     `json:"ownerId"`
	EndpointID     string     `json:"endpointId"`
	TenantID       string     `json:"tenantId"`
	Category       string     `json:"category"`
	Name           string     `json:"name"`
	URL            string     `json:"url"`
	TimeoutMs      int64      `json:"timeoutMs"`
	Status         Status     `json:"status"`
	StatusCode     *int       `json:"statusCode,omitempty"`
	ResponseTimeMs *int64     `json:"responseTimeMs,omitempty"`
	ErrorMessage   *string    `json:"errorMessage"`
	StatusSince    time.Time  `json:"statusSince"`
	LastCheckedAt  *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// EffectiveTimeoutMs returns the endpoint's probe budget, falling back to
// DefaultTimeoutMs when unset.
func (e Endpoint) EffectiveTimeoutMs() int64 {
	if e.TimeoutMs <= 0 {
		return DefaultTimeoutMs
	}
	return e.TimeoutMs
}
