package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokexpress/storefront/internal/provider/resilience"
)

func registeredClient(t *testing.T, registry *resilience.Registry, name string) *resilience.Client {
	t.Helper()
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterOnConstruction(t *testing.T) {
	registry := resilience.NewRegistry()
	client := registeredClient(t, registry, "mapbox")

	assert.Equal(t, 1, registry.ProviderCount())
	assert.Equal(t, "mapbox", client.Name())

	health := registry.GetHealth("mapbox")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())
	assert.False(t, health.IsUnhealthy())
	assert.Nil(t, health.LastSuccessAt)
}

func TestRegistry_RecordedBySuccessfulRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registeredClient(t, registry, "openrouteservice")

	resp, err := client.Do(newGet(t, context.Background(), server.URL))
	require.NoError(t, err)
	resp.Body.Close()

	health := registry.GetHealth("openrouteservice")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestRegistry_RecordFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	registeredClient(t, registry, "telegram")

	registry.RecordFailure("telegram", errors.New("chat not found"))

	health := registry.GetHealth("telegram")
	require.NotNil(t, health)
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "chat not found", health.LastError)
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"telegram", "mapbox", "openrouteservice"} {
		registeredClient(t, registry, name)
	}

	all := registry.GetAllHealth()
	require.Len(t, all, 3)
	assert.Equal(t, "mapbox", all[0].Name)
	assert.Equal(t, "openrouteservice", all[1].Name)
	assert.Equal(t, "telegram", all[2].Name)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Nil(t, registry.GetHealth("unknown"))
	assert.NotPanics(t, func() {
		registry.RecordSuccess("unknown")
		registry.RecordFailure("unknown", errors.New("boom"))
	})
	assert.Zero(t, registry.ProviderCount())
}
