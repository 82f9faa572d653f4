package model

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/xiheling1/mask/internal/geom"
)

// TableState is the arena of live cards, addressed by handle.
type TableState struct {
	Cards map[CardID]*Card `json:"cards"`

	cardCounter uint64
}

// NewTableState creates a new empty table.
func NewTableState() *TableState {
	return &TableState{
		Cards: make(map[CardID]*Card),
	}
}

// generateCardID creates a new unique card handle.
func (t *TableState) generateCardID() CardID {
	n := atomic.AddUint64(&t.cardCounter, 1)
	return CardID(fmt.Sprintf("card_%d", n))
}

// GetCard returns a card by handle, or nil if not found.
func (t *TableState) GetCard(id CardID) *Card {
	return t.Cards[id]
}

// AddCard adds an existing card to the arena.
// Returns error if the handle is empty or already taken.
func (t *TableState) AddCard(c *Card) error {
	if c == nil {
		return fmt.Errorf("cannot add nil card")
	}
	if c.ID == "" {
		return fmt.Errorf("card has no id")
	}
	if _, exists := t.Cards[c.ID]; exists {
		return fmt.Errorf("duplicate card id: %s", c.ID)
	}
	t.Cards[c.ID] = c
	return nil
}

// RemoveCard removes a card from the arena.
// Soft failure: no-op if the card doesn't exist.
func (t *TableState) RemoveCard(id CardID) {
	delete(t.Cards, id)
}

// CreateCard creates a new card with a fresh handle and registers it.
func (t *TableState) CreateCard(spec CardSpec, pos geom.Point, w, h float64) *Card {
	id := t.generateCardID()
	c := NewCard(id, spec, pos, w, h)
	t.Cards[id] = c
	return c
}

// CardIDs returns all card handles in the arena in sorted order, so that
// iteration over the table is reproducible across runs.
func (t *TableState) CardIDs() []CardID {
	ids := make([]CardID, 0, len(t.Cards))
	for id := range t.Cards {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
