package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hazz-dev/statuswatch/internal/version"
)

// DefaultTimeoutMs is the probe budget used when an endpoint has none.
const DefaultTimeoutMs int64 = 5000

// Prober performs a single health probe against a URL.
type Prober interface {
	Probe(ctx context.Context, target string, timeoutMs int64) Result
}

// HTTPProber issues GET requests with a per-call timeout.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber returns a prober that ignores proxy settings from the
// environment. A nil transport uses a clone of http.DefaultTransport.
func NewHTTPProber(transport *http.Transport) *HTTPProber {
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.Proxy = nil
	return &HTTPProber{
		client: &http.Client{Transport: transport},
	}
}

// EffectiveTimeout coerces a non-positive budget to 1ms.
func EffectiveTimeout(timeoutMs int64) int64 {
	if timeoutMs <= 0 {
		return 1
	}
	return timeoutMs
}

// Probe never returns an error: every failure becomes an unhealthy Result.
func (p *HTTPProber) Probe(ctx context.Context, target string, timeoutMs int64) Result {
	timeoutMs = EffectiveTimeout(timeoutMs)
	start := time.Now()

	if err := validateURL(target); err != nil {
		return Result{
			Status:         StatusUnhealthy,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			ErrorMessage:   err.Error(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{
			Status:         StatusUnhealthy,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			ErrorMessage:   err.Error(),
		}
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		msg := err.Error()
		if isTimeout(ctx, err) {
			msg = fmt.Sprintf("Request timed out after %d ms", timeoutMs)
		}
		return Result{
			Status:         StatusUnhealthy,
			ResponseTimeMs: elapsed,
			ErrorMessage:   msg,
		}
	}
	resp.Body.Close()

	code := resp.StatusCode
	if code < 200 || code >= 300 {
		return Result{
			Status:         StatusUnhealthy,
			StatusCode:     &code,
			ResponseTimeMs: elapsed,
			ErrorMessage:   fmt.Sprintf("Non-2xx status code: %d", code),
		}
	}

	return Result{
		Status:         StatusHealthy,
		StatusCode:     &code,
		ResponseTimeMs: elapsed,
	}
}

func validateURL(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", target, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q", target)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
