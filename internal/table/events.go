package table

import "github.com/xiheling1/mask/internal/model"

// EventType names a kind of registry state change.
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

// Event describes a single state change performed by the registry or the
// drag manager. Host, Slot, Overlap and Bonus are only meaningful for
// attach/detach events.
type Event struct {
	Type    EventType    `json:"type"`
	Card    model.CardID `json:"card"`
	Host    model.CardID `json:"host,omitempty"`
	Slot    int          `json:"slot,omitempty"`
	Overlap float64      `json:"overlap,omitempty"`
	Bonus   int          `json:"bonus,omitempty"`
}

// Observer receives registry state changes. Implementations must not call
// back into the registry from TableChanged; they run under its lock.
type Observer interface {
	TableChanged(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// TableChanged implements Observer.
func (f ObserverFunc) TableChanged(ev Event) { f(ev) }
