package telemetry

import "time"

type EventType string

const (
	EventCardRegistered   EventType = "card_registered"
	EventCardUnregistered EventType = "card_unregistered"
	EventCardAttached     EventType = "card_attached"
	EventCardDetached     EventType = "card_detached"
	EventDragStarted      EventType = "drag_started"
	EventDragEnded        EventType = "drag_ended"
	EventDragCancelled    EventType = "drag_cancelled"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}
