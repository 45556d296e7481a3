package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corax/nail/internal/storage"
	"github.com/corax/nail/pkg/core"
	"github.com/corax/nail/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

type serverOptions struct {
	flightID uint // returned in the start_flight ack when non-zero
	noAck    bool
	// dropAfter closes the first connection after this many messages when non-zero
	dropAfter int
}

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages per connection, and acks start_flight/end_flight.
func testServer(t *testing.T, opts serverOptions) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		connIndex := ml.connect(r.URL.Query().Get("secret"))

		received := 0
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(connIndex, env)
			received++

			if !opts.noAck && (env.Type == streaming.TypeStartFlight || env.Type == streaming.TypeEndFlight) {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				if env.Type == streaming.TypeStartFlight {
					ack.ID = opts.flightID
				}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}

			if opts.dropAfter > 0 && connIndex == 0 && received >= opts.dropAfter {
				return
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secrets  []string
	messages [][]streaming.Envelope
}

func (m *messageLog) connect(secret string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets = append(m.secrets, secret)
	m.messages = append(m.messages, nil)
	return len(m.messages) - 1
}

func (m *messageLog) secret(conn int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secrets[conn]
}

func (m *messageLog) add(conn int, env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[conn] = append(m.messages[conn], env)
}

func (m *messageLog) connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *messageLog) on(conn int) []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn >= len(m.messages) {
		return nil
	}
	cp := make([]streaming.Envelope, len(m.messages[conn]))
	copy(cp, m.messages[conn])
	return cp
}

func wsURL(srv *httptest.Server) string {
	return HTTPToWS(srv.URL)
}

func newBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b := New(Config{URL: wsURL(srv), Secret: "test"}, slog.New(slog.DiscardHandler))
	b.conn.baseBackoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestHTTPToWS(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000", HTTPToWS("http://localhost:5000/"))
	assert.Equal(t, "wss://telemetry.example", HTTPToWS("https://telemetry.example"))
}

func TestStartAndEndFlight(t *testing.T) {
	srv, ml := testServer(t, serverOptions{})
	defer srv.Close()
	b := newBackend(t, srv)

	f := &core.Flight{ProgramName: "missile", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartFlight(f))
	assert.Equal(t, uint(1), f.ID, "IDs count up locally when the server does not assign one")

	require.NoError(t, b.EndFlight())

	msgs := ml.on(0)
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartFlight, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndFlight, msgs[len(msgs)-1].Type)
	assert.Equal(t, "test", ml.secret(0))
}

func TestStartFlight_ServerAssignsID(t *testing.T) {
	srv, _ := testServer(t, serverOptions{flightID: 42})
	defer srv.Close()
	b := newBackend(t, srv)

	f := &core.Flight{ProgramName: "missile"}
	require.NoError(t, b.StartFlight(f))

	assert.Equal(t, uint(42), f.ID)
}

func TestEndFlight_WithoutStart(t *testing.T) {
	srv, _ := testServer(t, serverOptions{})
	defer srv.Close()
	b := newBackend(t, srv)

	assert.Error(t, b.EndFlight())
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t, serverOptions{})
	defer srv.Close()
	b := newBackend(t, srv)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &core.Flight{ProgramName: "missile", StartTime: start}
	require.NoError(t, b.StartFlight(f))

	require.NoError(t, b.RecordTick(&core.FlightTick{Tick: 1, Phase: core.PhaseLaunching, HasTarget: true, Distance: 950}))
	require.NoError(t, b.RecordTick(&core.FlightTick{Tick: 2, Phase: core.PhaseGuiding, HasTarget: true, Distance: 900}))
	require.NoError(t, b.RecordPhaseChange(&core.PhaseChange{Tick: 2, From: core.PhaseLaunching, To: core.PhaseGuiding}))
	require.NoError(t, b.RecordTargetLock(&core.TargetLock{Name: "Rock"}))

	f.EndTime = start.Add(10 * time.Second)
	require.NoError(t, b.EndFlight())

	msgs := ml.on(0)
	types := make(map[string]int)
	for _, m := range msgs {
		types[m.Type]++
	}

	assert.Equal(t, 1, types[streaming.TypeStartFlight])
	assert.Equal(t, 1, types[streaming.TypeEndFlight])
	assert.Equal(t, 2, types[streaming.TypeFlightTick])
	assert.Equal(t, 1, types[streaming.TypePhaseChange])
	assert.Equal(t, 1, types[streaming.TypeTargetLock])

	var end streaming.EndFlightPayload
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &end))
	assert.Equal(t, f.ID, end.FlightID)
	assert.Equal(t, 2, end.Summary.Ticks)
	assert.Equal(t, core.PhaseGuiding, end.Summary.FinalPhase)
	assert.Equal(t, 1, end.Summary.TargetLocks)
	assert.InDelta(t, 900.0, end.Summary.ClosestApproach, 1e-9)
	assert.InDelta(t, 10.0, end.Summary.Duration, 1e-9)
}

func TestStartFlight_AckTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the ack timeout")
	}
	srv, _ := testServer(t, serverOptions{noAck: true})
	defer srv.Close()
	b := newBackend(t, srv)

	err := b.StartFlight(&core.Flight{ProgramName: "missile"})
	assert.ErrorContains(t, err, "timeout waiting for ack")
}

func TestReconnectReplaysStartFlight(t *testing.T) {
	// The first connection is dropped after start_flight and one tick.
	srv, ml := testServer(t, serverOptions{dropAfter: 2})
	defer srv.Close()
	b := newBackend(t, srv)

	require.NoError(t, b.StartFlight(&core.Flight{ProgramName: "missile"}))
	require.NoError(t, b.RecordTick(&core.FlightTick{Tick: 1}))

	require.Eventually(t, func() bool {
		return ml.connections() == 2 && len(ml.on(1)) > 0
	}, 3*time.Second, 10*time.Millisecond, "client should reconnect")

	assert.Equal(t, streaming.TypeStartFlight, ml.on(1)[0].Type)

	require.NoError(t, b.RecordTick(&core.FlightTick{Tick: 2}))
	require.Eventually(t, func() bool {
		for _, m := range ml.on(1) {
			if m.Type == streaming.TypeFlightTick {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond, "ticks should flow on the new connection")
}

func TestDropped_CountsMessagesOverflowingSendBuffer(t *testing.T) {
	// Not dialed: nothing drains the send channel.
	b := New(Config{URL: "ws://localhost:1/api"}, slog.New(slog.DiscardHandler))
	assert.Zero(t, b.Dropped())

	for i := 0; i < sendChSize+2; i++ {
		b.conn.send([]byte(`{}`))
	}

	assert.Equal(t, uint64(2), b.Dropped())
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/api"}, slog.New(slog.DiscardHandler))
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestInvalidURL(t *testing.T) {
	b := New(Config{URL: "://bad"}, nil)
	err := b.Init()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid websocket URL"))
}
