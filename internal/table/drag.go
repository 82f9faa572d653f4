package table

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiheling1/mask/internal/geom"
	"github.com/xiheling1/mask/internal/model"
)

// DragSession tracks one card being moved by the user. Sessions are
// transient: they exist between a begin and the matching end or cancel,
// and carry no attachment state of their own.
type DragSession struct {
	ID        string       `json:"id"`
	Card      model.CardID `json:"card"`
	Pos       geom.Point   `json:"pos"`
	StartedAt time.Time    `json:"startedAt"`
}

// DragEndResult reports how a drag release resolved.
type DragEndResult struct {
	Attached bool         `json:"attached"`
	Attach   AttachResult `json:"attach"`
}

// DragManager owns the live drag sessions and feeds their positions into
// the registry. At most one session exists per card at any time.
type DragManager struct {
	mu       sync.Mutex
	registry *Registry
	sessions map[string]*DragSession
	byCard   map[model.CardID]string
}

// NewDragManager creates a drag manager bound to a registry.
func NewDragManager(registry *Registry) *DragManager {
	return &DragManager{
		registry: registry,
		sessions: make(map[string]*DragSession),
		byCard:   make(map[model.CardID]string),
	}
}

// Begin starts a drag session for the given card.
// Soft failure: returns nil if the card is not registered or is already
// being dragged.
func (m *DragManager) Begin(card model.CardID, pos geom.Point) *DragSession {
	if m.registry.Card(card) == nil {
		return nil
	}

	m.mu.Lock()
	if _, dragging := m.byCard[card]; dragging {
		m.mu.Unlock()
		return nil
	}
	s := &DragSession{
		ID:        uuid.NewString(),
		Card:      card,
		Pos:       pos,
		StartedAt: time.Now(),
	}
	m.sessions[s.ID] = s
	m.byCard[card] = s.ID
	m.mu.Unlock()

	m.registry.MoveCard(card, pos)
	m.registry.emit(Event{Type: EventDragStarted, Card: card})
	return s
}

// Move records a live position update for the session and moves the card.
// Soft failure: no-op for an unknown session.
func (m *DragManager) Move(sessionID string, pos geom.Point) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		s.Pos = pos
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.registry.MoveCard(s.Card, pos)
	return true
}

// End releases the session's card at pos and asks the registry to resolve
// a snap target. When no free slot is within snap distance the card keeps
// its prior attachment state and Attached is false.
// Soft failure: unknown session returns ok=false.
func (m *DragManager) End(sessionID string, pos geom.Point) (DragEndResult, bool) {
	s, ok := m.take(sessionID)
	if !ok {
		return DragEndResult{}, false
	}

	res, attached := m.registry.OnDragEnd(s.Card, pos)
	m.registry.emit(Event{Type: EventDragEnded, Card: s.Card, Host: res.Host})
	return DragEndResult{Attached: attached, Attach: res}, true
}

// Cancel discards the session without any attachment mutation.
func (m *DragManager) Cancel(sessionID string) bool {
	s, ok := m.take(sessionID)
	if !ok {
		return false
	}
	m.registry.emit(Event{Type: EventDragCancelled, Card: s.Card})
	return true
}

// Session returns the live session with the given ID, if any.
func (m *DragManager) Session(sessionID string) (DragSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return DragSession{}, false
	}
	return *s, true
}

func (m *DragManager) take(sessionID string) (*DragSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(m.sessions, sessionID)
	delete(m.byCard, s.Card)
	return s, true
}
