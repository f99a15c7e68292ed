// Package refresh probes endpoints and reconciles the outcome into their
// persisted records.
package refresh

import (
	"time"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
	"github.com/hazz-dev/statuswatch/internal/probe"
)

// Reconcile computes the patch that merges result into prior and reports
// whether an unhealthy notification should fire.
//
// The error message is cleared explicitly on recovery, and statusSince is
// only written when the status value changes. Every unhealthy result
// notifies, not only the transition into unhealthy.
func Reconcile(prior endpoint.Endpoint, result probe.Result, now time.Time) (endpoint.Patch, bool) {
	next := endpoint.Status(result.Status)

	p := endpoint.Patch{
		Status:         endpoint.Set(next),
		StatusCode:     endpoint.SetPtr(result.StatusCode),
		ResponseTimeMs: endpoint.Set(result.ResponseTimeMs),
		LastCheckedAt:  endpoint.Set(now),
	}

	if next == endpoint.StatusUnhealthy {
		p.ErrorMessage = endpoint.Set(result.ErrorMessage)
	} else {
		p.ErrorMessage = endpoint.Clear[string]()
	}

	if prior.Status != next {
		p.StatusSince = endpoint.Set(now)
	}

	return p, next == endpoint.StatusUnhealthy
}
