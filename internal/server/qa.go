package server

import (
	"encoding/json"
	"net/http"
	"time"
)

type qaKind int

const (
	qaRespond qaKind = iota
	qaFail
	qaHang
)

// qaOutcome is one simulated behaviour of the QA health endpoint.
type qaOutcome struct {
	kind       qaKind
	name       string
	statusCode int
	message    string
	delay      time.Duration
	location   string
}

var qaOutcomes = []qaOutcome{
	{kind: qaRespond, name: "fast-success", statusCode: 200, message: "Simulated healthy response"},
	{kind: qaRespond, name: "slow-success", statusCode: 200, message: "Healthy response after a noticeable delay", delay: 7 * time.Second},
	{kind: qaRespond, name: "created-success", statusCode: 201, message: "Simulated resource creation response"},
	{kind: qaRespond, name: "no-content", statusCode: 204, message: "Simulated response with no body content"},
	{kind: qaRespond, name: "bad-request", statusCode: 400, message: "Simulated 400 Bad Request"},
	{kind: qaRespond, name: "unauthorized", statusCode: 401, message: "Simulated 401 Unauthorized"},
	{kind: qaRespond, name: "forbidden", statusCode: 403, message: "Simulated 403 Forbidden"},
	{kind: qaRespond, name: "not-found", statusCode: 404, message: "Simulated 404 Not Found"},
	{kind: qaRespond, name: "conflict", statusCode: 409, message: "Simulated 409 Conflict"},
	{kind: qaRespond, name: "rate-limited", statusCode: 429, message: "Simulated 429 Too Many Requests"},
	{kind: qaRespond, name: "server-error", statusCode: 500, message: "Simulated 500 Internal Server Error"},
	{kind: qaRespond, name: "bad-gateway", statusCode: 502, message: "Simulated 502 Bad Gateway"},
	{kind: qaRespond, name: "service-unavailable", statusCode: 503, message: "Simulated 503 Service Unavailable"},
	{kind: qaRespond, name: "gateway-timeout", statusCode: 504, message: "Simulated 504 Gateway Timeout response"},
	{kind: qaRespond, name: "teapot", statusCode: 418, message: "Simulated 418 I'm a teapot"},
	{kind: qaRespond, name: "redirect", statusCode: 302, message: "Simulated redirect to an alternate location", location: "https://example.com/maintenance"},
	{kind: qaFail, name: "unhandled-exception", message: "Simulated unexpected runtime failure"},
	{kind: qaHang, name: "timeout", message: "Simulated function timeout"},
}

type qaBody struct {
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleQAHealth answers with a randomly chosen outcome so probes can be
// exercised against every status class, slow replies and hangs.
func (s *Server) handleQAHealth(w http.ResponseWriter, r *http.Request) {
	o := qaOutcomes[s.pick(len(qaOutcomes))]
	s.logger.Info("qa health scenario", "outcome", o.name)

	switch o.kind {
	case qaHang:
		<-r.Context().Done()
		return
	case qaFail:
		writeError(w, http.StatusInternalServerError, o.message)
		return
	}

	if o.delay > 0 {
		t := time.NewTimer(o.delay)
		defer t.Stop()
		select {
		case <-r.Context().Done():
			return
		case <-t.C:
		}
	}

	if o.location != "" {
		w.Header().Set("Location", o.location)
	}
	if o.statusCode == http.StatusNoContent {
		w.WriteHeader(o.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(o.statusCode)
	json.NewEncoder(w).Encode(qaBody{
		Outcome:    o.name,
		StatusCode: o.statusCode,
		Message:    o.message,
		Timestamp:  time.Now().UTC(),
	})
}
