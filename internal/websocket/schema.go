package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// Request is any message sent by the monitor client.
type Request struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventPong     Event = "pong"
	EventSnapshot Event = "snapshot"
	// EventKeyActivity carries a relayed enrolment key event.
	EventKeyActivity Event = "key_activity"
)

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// SnapshotResponse carries the trailing-day monitor counts.
type SnapshotResponse struct {
	Event Event `json:"event"`
	Data  any   `json:"data"`
}

// ActivityResponse wraps an event envelope exactly as it was published.
type ActivityResponse struct {
	Event    Event           `json:"event"`
	Envelope json.RawMessage `json:"envelope"`
}
