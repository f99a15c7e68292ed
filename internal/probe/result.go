package probe

// Status represents the health classification of a single probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Result is the outcome of a single probe.
type Result struct {
	Status Status `json:"status"`
	// StatusCode is nil when no HTTP response was received.
	StatusCode     *int   `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// Healthy reports whether the probe succeeded.
func (r Result) Healthy() bool {
	return r.Status == StatusHealthy
}
