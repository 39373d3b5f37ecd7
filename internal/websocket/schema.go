package websocket

import (
	"github.com/invigil/invigil-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventIntegrity Event = "integrity_event"
	EventPong      Event = "pong"
)

// IntegrityEventMessage forwards one live integrity event to a watching
// proctor.
type IntegrityEventMessage struct {
	Event   Event                `json:"event"`
	Payload model.IntegrityEvent `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
