// Package streaming defines the JSON messages the flight recorder streams to a
// telemetry server over WebSocket.
package streaming

import (
	"encoding/json"

	"github.com/corax/nail/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartFlight = "start_flight"
	TypeEndFlight   = "end_flight"
	TypeFlightTick  = "flight_tick"
	TypePhaseChange = "phase_change"
	TypeTargetLock  = "target_lock"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response. ID carries the server's flight ID
// when acknowledging start_flight.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
	ID   uint   `json:"id,omitempty"`
}

// StartFlightPayload announces a new flight.
type StartFlightPayload struct {
	Flight *core.Flight `json:"flight"`
}

// EndFlightPayload closes a flight.
type EndFlightPayload struct {
	FlightID uint               `json:"flightId"`
	Summary  core.FlightSummary `json:"summary"`
}
