package websocket

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/pkg/config"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	logger, err := logging.New(config.LoggingConfig{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	return NewHub(logger)
}

func waitForGauge(t *testing.T, gauge prometheus.Gauge, want float64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(gauge) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("gauge = %v, want %v", testutil.ToFloat64(gauge), want)
}

func TestHubTracksClientGauge(t *testing.T) {
	hub := newTestHub(t)
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "connected_clients_test",
		Help: "Connected clients seen by the test.",
	})
	hub.SetClientsGauge(gauge)
	go hub.Run()

	first := &Client{hub: hub, send: make(chan Message, 1)}
	second := &Client{hub: hub, send: make(chan Message, 1)}

	hub.Register(first)
	waitForGauge(t, gauge, 1)

	hub.Register(second)
	waitForGauge(t, gauge, 2)

	hub.Unregister(first)
	waitForGauge(t, gauge, 1)

	hub.Unregister(second)
	waitForGauge(t, gauge, 0)
}

func TestHubCountsClients(t *testing.T) {
	hub := newTestHub(t)
	go hub.Run()

	client := &Client{hub: hub, send: make(chan Message, 1)}
	hub.Register(client)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && hub.ClientCount() != 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}
}
