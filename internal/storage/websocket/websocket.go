// Package websocket streams flight telemetry to a remote server as JSON envelopes.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corax/nail/pkg/core"
	"github.com/corax/nail/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams flight telemetry over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn         *connection
	cfg          Config
	nextFlightID atomic.Uint64

	mu      sync.Mutex
	flight  *core.Flight
	summary core.FlightSummary // running totals of what was streamed
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// HTTPToWS converts an HTTP(S) URL to a WebSocket URL.
func HTTPToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped is the number of messages lost because the send buffer was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.droppedCount()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartFlight announces the flight and waits for the server ack. The server may assign the
// flight ID in its ack; otherwise IDs count up from 1.
func (b *Backend) StartFlight(f *core.Flight) error {
	data, err := marshalEnvelope(streaming.TypeStartFlight, streaming.StartFlightPayload{Flight: f})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	ack, err := b.conn.sendAndWait(data, streaming.TypeStartFlight, ackTimeout)
	if err != nil {
		return err
	}

	if ack.ID != 0 {
		f.ID = ack.ID
		b.nextFlightID.Store(uint64(ack.ID))
	} else {
		f.ID = uint(b.nextFlightID.Add(1))
	}

	b.mu.Lock()
	b.flight = f
	b.summary = core.Summarize(*f, nil, nil, nil)
	b.mu.Unlock()
	return nil
}

// EndFlight sends end_flight with a summary of what was streamed and waits for server ack.
func (b *Backend) EndFlight() error {
	b.mu.Lock()
	f := b.flight
	if f == nil {
		b.mu.Unlock()
		return fmt.Errorf("no flight started")
	}
	if f.EndTime.IsZero() {
		f.EndTime = time.Now().UTC()
	}
	summary := b.summary
	summary.EndTime = f.EndTime
	summary.Duration = f.EndTime.Sub(f.StartTime).Seconds()
	b.flight = nil
	b.mu.Unlock()

	data, err := marshalEnvelope(streaming.TypeEndFlight, streaming.EndFlightPayload{FlightID: f.ID, Summary: summary})
	if err != nil {
		return err
	}
	_, err = b.conn.sendAndWait(data, streaming.TypeEndFlight, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// RecordTick streams a flight tick.
func (b *Backend) RecordTick(t *core.FlightTick) error {
	b.mu.Lock()
	b.summary.Ticks++
	if t.Phase > b.summary.FinalPhase {
		b.summary.FinalPhase = t.Phase
	}
	if t.HasTarget && (b.summary.ClosestApproach < 0 || t.Distance < b.summary.ClosestApproach) {
		b.summary.ClosestApproach = t.Distance
	}
	b.mu.Unlock()
	return b.sendEnvelope(streaming.TypeFlightTick, t)
}

// RecordPhaseChange streams a phase change.
func (b *Backend) RecordPhaseChange(p *core.PhaseChange) error {
	b.mu.Lock()
	b.summary.Phases = append(b.summary.Phases, *p)
	if p.To > b.summary.FinalPhase {
		b.summary.FinalPhase = p.To
	}
	b.mu.Unlock()
	return b.sendEnvelope(streaming.TypePhaseChange, p)
}

// RecordTargetLock streams a target lock.
func (b *Backend) RecordTargetLock(l *core.TargetLock) error {
	b.mu.Lock()
	b.summary.TargetLocks++
	b.mu.Unlock()
	return b.sendEnvelope(streaming.TypeTargetLock, l)
}
