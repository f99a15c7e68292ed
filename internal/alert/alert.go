// Package alert delivers unhealthy-endpoint notifications.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
	"github.com/hazz-dev/statuswatch/internal/probe"
)

// IssueDetail describes why a probe was unhealthy.
func IssueDetail(result probe.Result) string {
	if result.ErrorMessage != "" {
		return result.ErrorMessage
	}
	if result.StatusCode != nil {
		return fmt.Sprintf("Received status code %d", *result.StatusCode)
	}
	return "Unknown issue"
}

// Issue is the notification body shared by every notifier.
type Issue struct {
	OwnerID    string `json:"ownerId"`
	TenantID   string `json:"tenantId"`
	EndpointID string `json:"endpointId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Issue      string `json:"issue"`
	StatusCode *int   `json:"statusCode,omitempty"`
	CheckedAt  string `json:"checkedAt,omitempty"`
	Source     string `json:"source"`
}

// NewIssue builds the notification body for an unhealthy endpoint.
func NewIssue(e endpoint.Endpoint, result probe.Result) Issue {
	issue := Issue{
		OwnerID:    e.OwnerID,
		TenantID:   e.TenantID,
		EndpointID: e.EndpointID,
		Name:       e.Name,
		URL:        e.URL,
		Issue:      IssueDetail(result),
		StatusCode: result.StatusCode,
		Source:     "statuswatch",
	}
	if e.LastCheckedAt != nil {
		issue.CheckedAt = e.LastCheckedAt.UTC().Format(time.RFC3339)
	}
	return issue
}

// Logger writes every notification to a structured logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a log notifier. Pass nil logger to use the default logger.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// NotifyUnhealthy logs the issue at warn level.
func (l *Logger) NotifyUnhealthy(_ context.Context, e endpoint.Endpoint, result probe.Result) error {
	issue := NewIssue(e, result)
	l.logger.Warn("endpoint unhealthy",
		"owner", issue.OwnerID,
		"tenant", issue.TenantID,
		"endpoint", issue.EndpointID,
		"name", issue.Name,
		"url", issue.URL,
		"issue", issue.Issue,
		"checked_at", issue.CheckedAt,
	)
	return nil
}

// Webhook POSTs every notification as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a webhook notifier. Pass nil logger to use the default logger.
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// NotifyUnhealthy sends the issue and waits for the webhook to answer.
func (w *Webhook) NotifyUnhealthy(ctx context.Context, e endpoint.Endpoint, result probe.Result) error {
	body, err := json.Marshal(NewIssue(e, result))
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook for %q: %w", e.EndpointID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.logger.Warn("webhook returned non-2xx status",
			"endpoint", e.EndpointID,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("webhook for %q returned status %d", e.EndpointID, resp.StatusCode)
	}
	return nil
}

// Notifier is implemented by every notification channel.
type Notifier interface {
	NotifyUnhealthy(ctx context.Context, e endpoint.Endpoint, result probe.Result) error
}

// Multi fans a notification out to every channel and joins their errors.
type Multi []Notifier

func (m Multi) NotifyUnhealthy(ctx context.Context, e endpoint.Endpoint, result probe.Result) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyUnhealthy(ctx, e, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
