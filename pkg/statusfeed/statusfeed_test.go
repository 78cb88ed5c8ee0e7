package statusfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

func startServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(NewMux(hub, nil))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func snapshot(state types.ControllerState, outcome controller.Outcome) controller.Snapshot {
	return controller.Snapshot{
		Timestamp: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		State:     state,
		Indicator: types.ColorBlue,
		Command:   types.CommandUnlock,
		Outcome:   outcome,
		Counters:  types.Counters{EncodeErrors: 2},
	}
}

func TestBannerAndLatest(t *testing.T) {
	t.Parallel()

	hub, srv := startServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	var banner map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&banner))
	resp.Body.Close()
	assert.Equal(t, "running", banner["status"])

	resp, err = http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	hub.Observe(snapshot(types.StateAwaitCode, controller.OutcomeAwaitingCode))

	resp, err = http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got controller.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, snapshot(types.StateAwaitCode, controller.OutcomeAwaitingCode), got)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsRouteIsOptional(t *testing.T) {
	t.Parallel()

	mux := NewMux(NewHub(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	}))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestWebsocketStreamsLatestThenUpdates(t *testing.T) {
	t.Parallel()

	hub, srv := startServer(t)
	hub.Observe(snapshot(types.StateLocked, controller.OutcomeDenied))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first controller.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, controller.OutcomeDenied, first.Outcome)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Observe(snapshot(types.StateGrantedUnlocked, controller.OutcomeGranted))

	var second controller.Snapshot
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, types.StateGrantedUnlocked, second.State)
	assert.Equal(t, controller.OutcomeGranted, second.Outcome)
}

func TestObserveNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := NewHub() // not running, nothing drains the backlog
	for i := 0; i < cap(hub.updates)+3; i++ {
		hub.Observe(snapshot(types.StateLocked, controller.OutcomeDenied))
	}
	assert.Equal(t, uint64(3), hub.Dropped())
	assert.NotNil(t, hub.Latest())
}

func TestListenerReceivesSnapshots(t *testing.T) {
	t.Parallel()

	hub, srv := startServer(t)
	host := strings.TrimPrefix(srv.URL, "http://")

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan controller.Snapshot, 8)
	done := make(chan error, 1)
	go func() {
		done <- StartListener(ctx, host, DefaultBackoff(), func(s controller.Snapshot) {
			received <- s
		})
	}()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	hub.Observe(snapshot(types.StateDenied, controller.OutcomeIncorrectCode))

	select {
	case s := <-received:
		assert.Equal(t, types.StateDenied, s.State)
		assert.Equal(t, controller.OutcomeIncorrectCode, s.Outcome)
		assert.Equal(t, uint64(2), s.Counters.EncodeErrors)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot received")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenerGivesUp(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	err := StartListener(context.Background(), host, Backoff{MaxRetries: 3, Base: time.Millisecond, Max: 5 * time.Millisecond},
		func(controller.Snapshot) { t.Error("unexpected snapshot") })
	assert.ErrorIs(t, err, ErrMaxRetries)
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	b := DefaultBackoff()
	assert.Equal(t, time.Duration(0), b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, 32*time.Second, b.Delay(5))
	assert.Equal(t, 60*time.Second, b.Delay(6))
	assert.Equal(t, 60*time.Second, b.Delay(100))
}

func TestRedisMirrorUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := NewRedisMirror(ctx, addr, "rfid_bike_lock:events")
	assert.Error(t, err)
}

func TestEventFromSnapshot(t *testing.T) {
	t.Parallel()

	s := snapshot(types.StateGrantedLocked, controller.OutcomeGranted)
	s.FrameCRC = 0xABCD
	ev := EventFromSnapshot(s)
	assert.Equal(t, types.LockEvent{
		Timestamp: s.Timestamp,
		State:     types.StateGrantedLocked,
		Outcome:   "granted",
		Indicator: types.ColorBlue,
		Command:   types.CommandUnlock,
		FrameCRC:  0xABCD,
		Counters:  types.Counters{EncodeErrors: 2},
	}, ev)
}
