package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated  EventType = "TICKET_CREATED"
	EventStatusUpdated  EventType = "STATUS_UPDATED"
	EventMetricsUpdated EventType = "METRICS_UPDATED"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
