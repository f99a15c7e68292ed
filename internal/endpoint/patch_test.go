package endpoint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
)

func TestField_States(t *testing.T) {
	var omitted endpoint.Field[string]
	assert.True(t, omitted.Omitted())
	assert.False(t, omitted.Cleared())

	set := endpoint.Set("x")
	v, ok := set.Value()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, "x", set.SQLValue())

	cleared := endpoint.Clear[string]()
	assert.True(t, cleared.Cleared())
	_, ok = cleared.Value()
	assert.False(t, ok)
	assert.Nil(t, cleared.SQLValue())

	assert.True(t, endpoint.SetPtr[int](nil).Cleared())
	code := 503
	v2, ok := endpoint.SetPtr(&code).Value()
	assert.True(t, ok)
	assert.Equal(t, 503, v2)
}

func TestPatch_Empty(t *testing.T) {
	assert.True(t, endpoint.Patch{}.Empty())
	assert.False(t, endpoint.Patch{ErrorMessage: endpoint.Clear[string]()}.Empty())
	assert.False(t, endpoint.Patch{Name: endpoint.Set("n")}.Empty())
}

func TestPatch_Apply(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	checked := since.Add(time.Hour)
	code := 500
	msg := "Non-2xx status code: 500"
	prior := endpoint.Endpoint{
		Name:         "Site",
		URL:          "https://example.com",
		TimeoutMs:    5000,
		Status:       endpoint.StatusUnhealthy,
		StatusCode:   &code,
		ErrorMessage: &msg,
		StatusSince:  since,
	}

	got := endpoint.Patch{
		Status:        endpoint.Set(endpoint.StatusHealthy),
		StatusCode:    endpoint.Set(200),
		ErrorMessage:  endpoint.Clear[string](),
		LastCheckedAt: endpoint.Set(checked),
	}.Apply(prior)

	assert.Equal(t, endpoint.StatusHealthy, got.Status)
	require.NotNil(t, got.StatusCode)
	assert.Equal(t, 200, *got.StatusCode)
	assert.Nil(t, got.ErrorMessage)
	require.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, checked, *got.LastCheckedAt)

	// Omitted fields are untouched.
	assert.Equal(t, "Site", got.Name)
	assert.Equal(t, since, got.StatusSince)
	assert.Equal(t, int64(5000), got.TimeoutMs)

	// The input is not mutated.
	assert.Equal(t, endpoint.StatusUnhealthy, prior.Status)
	assert.Equal(t, 500, *prior.StatusCode)
}

func TestEndpoint_EffectiveTimeoutMs(t *testing.T) {
	assert.Equal(t, endpoint.DefaultTimeoutMs, endpoint.Endpoint{}.EffectiveTimeoutMs())
	assert.Equal(t, int64(1200), endpoint.Endpoint{TimeoutMs: 1200}.EffectiveTimeoutMs())
}
