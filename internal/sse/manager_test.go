package sse

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	return m, cancel
}

func waitForEvent(t *testing.T, c *Client, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.EventChan:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestManagerConnectDisconnect(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	client, err := m.Connect()
	require.NoError(t, err)
	assert.Contains(t, client.ID, "sse-")
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Disconnecting twice is a no-op.
	m.Disconnect(client.ID)
}

func TestManagerBroadcastsToAllClients(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	a, err := m.Connect()
	require.NoError(t, err)
	b, err := m.Connect()
	require.NoError(t, err)

	m.AnnounceLoading("fetching collection")

	for _, c := range []*Client{a, b} {
		ev := waitForEvent(t, c, EventRunStarted)
		data, ok := ev.Data.(RunStartedEventData)
		require.True(t, ok)
		assert.Equal(t, "fetching collection", data.Message)
	}
}

func TestManagerTracksRunState(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	c, err := m.Connect()
	require.NoError(t, err)

	assert.False(t, m.IsRunning())

	m.AnnounceLoading("starting")
	waitForEvent(t, c, EventRunStarted)
	assert.True(t, m.IsRunning())

	m.AnnounceSuccess("done")
	waitForEvent(t, c, EventRunCompleted)
	assert.False(t, m.IsRunning())

	m.AnnounceError("boom")
	waitForEvent(t, c, EventRunFailed)
	assert.False(t, m.IsRunning())
}

func TestManagerMetricEvent(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	c, err := m.Connect()
	require.NoError(t, err)

	m.RecordMetric("records_fetched", 42)

	ev := waitForEvent(t, c, EventRunMetric)
	data, ok := ev.Data.(RunMetricEventData)
	require.True(t, ok)
	assert.Equal(t, "records_fetched", data.Name)
	assert.InDelta(t, 42.0, data.Value, 0.001)
}

func TestManagerShutdownDropsLateEmits(t *testing.T) {
	m, cancel := testManager(t)

	// Stop the broadcast loop first, as the lifecycle handle does.
	cancel()

	ctx, shutCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutCancel()
	require.NoError(t, m.Shutdown(ctx))

	// Must not panic on a closed manager.
	m.AnnounceSuccess("after shutdown")
}

func TestManagerClientsIterator(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	for range 3 {
		_, err := m.Connect()
		require.NoError(t, err)
	}

	n := 0
	for range m.Clients() {
		n++
	}
	assert.Equal(t, 3, n)
}
