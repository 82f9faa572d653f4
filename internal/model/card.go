package model

import (
	"math"

	"github.com/xiheling1/mask/internal/geom"
)

// CardID is a unique handle for a live card instance. Cards reference each
// other by handle, never by pointer, so a destroyed card can never be
// reached through a stale occupancy or ledger entry.
type CardID string

// SlotCount is the fixed number of attachment slots around a card.
const SlotCount = 8

// NoSlot is the slot index of a card that is not attached to any host.
const NoSlot = -1

const diag = math.Sqrt2 / 2

// SlotDirections are the unit vectors of the slot ring, clockwise from
// "up" (negative Y points up in world space).
var SlotDirections = [SlotCount]geom.Point{
	{X: 0, Y: -1},
	{X: diag, Y: -diag},
	{X: 1, Y: 0},
	{X: diag, Y: diag},
	{X: 0, Y: 1},
	{X: -diag, Y: diag},
	{X: -1, Y: 0},
	{X: -diag, Y: -diag},
}

// CardSpec carries the authored attributes of a card entering play.
// Name, SoulCost and ImageRef are passed through for the presentation
// layer; only Effect participates in the bonus formula.
type CardSpec struct {
	Name     string `json:"name"`
	Effect   int    `json:"effect"`
	SoulCost int    `json:"soulCost"`
	ImageRef string `json:"imageRef,omitempty"`
}

// Card is a live card instance on the table. Its bounds are derived from
// the current position and a fixed size. Occupancy and attachment fields
// are mutated only by the table registry; the bonus ledger is mutated only
// through ApplyBonus/RemoveBonus so the running total never drifts from
// the ledger contents.
type Card struct {
	ID       CardID `json:"id"`
	Name     string `json:"name"`
	Effect   int    `json:"effect"`
	SoulCost int    `json:"soulCost"`
	ImageRef string `json:"imageRef,omitempty"`

	Pos    geom.Point `json:"pos"`
	Width  float64    `json:"w"`
	Height float64    `json:"h"`

	// Occupants[i] holds the card docked at slot i, or "" if the slot is
	// free. Invariant: Occupants[i] == c.ID iff c.AttachedHost == this
	// card's ID and c.AttachedSlot == i.
	Occupants [SlotCount]CardID `json:"occupants"`

	AttachedHost CardID `json:"attachedHost,omitempty"`
	AttachedSlot int    `json:"attachedSlot"`

	ledger map[CardID]int
	bonus  int
}

// NewCard creates a card instance with the given handle, spec, position
// and size. It starts unattached with all slots free.
func NewCard(id CardID, spec CardSpec, pos geom.Point, w, h float64) *Card {
	return &Card{
		ID:           id,
		Name:         spec.Name,
		Effect:       spec.Effect,
		SoulCost:     spec.SoulCost,
		ImageRef:     spec.ImageRef,
		Pos:          pos,
		Width:        w,
		Height:       h,
		AttachedSlot: NoSlot,
		ledger:       make(map[CardID]int),
	}
}

// Bounds returns the card's axis-aligned bounding rectangle, centered on
// its position.
func (c *Card) Bounds() geom.Rect {
	return geom.RectAround(c.Pos, c.Width, c.Height)
}

// SlotWorldPos returns the world position of slot i at the given ring
// radius. Out-of-range indices return the card's own position.
func (c *Card) SlotWorldPos(i int, slotDistance float64) geom.Point {
	if i < 0 || i >= SlotCount {
		return c.Pos
	}
	return c.Pos.Add(SlotDirections[i].Scale(slotDistance))
}

// IsSlotFree reports whether slot i exists and is unoccupied.
func (c *Card) IsSlotFree(i int) bool {
	if i < 0 || i >= SlotCount {
		return false
	}
	return c.Occupants[i] == ""
}

// Occupant returns the card docked at slot i, or "" if the slot is free
// or the index is out of range.
func (c *Card) Occupant(i int) CardID {
	if i < 0 || i >= SlotCount {
		return ""
	}
	return c.Occupants[i]
}

// IsAttached reports whether the card is docked on a host.
func (c *Card) IsAttached() bool {
	return c.AttachedHost != ""
}

// ApplyBonus records the bonus granted by partner at the given overlap
// fraction: round-half-up of (ownEffect+partnerEffect)*overlap. A bonus of
// zero is still recorded so a later RemoveBonus reverses symmetrically.
// No-op if an entry for partner already exists (bonuses never compound).
// Returns the bonus value and whether a new entry was written.
func (c *Card) ApplyBonus(partner CardID, partnerEffect int, overlap float64) (int, bool) {
	if partner == "" {
		return 0, false
	}
	if _, exists := c.ledger[partner]; exists {
		return 0, false
	}

	bonus := int(math.Floor(float64(c.Effect+partnerEffect)*overlap + 0.5))
	c.ledger[partner] = bonus
	c.bonus += bonus
	return bonus, true
}

// RemoveBonus reverses the bonus previously granted by partner. No-op if
// no entry exists. Returns the removed value and whether an entry was
// erased.
func (c *Card) RemoveBonus(partner CardID) (int, bool) {
	bonus, exists := c.ledger[partner]
	if !exists {
		return 0, false
	}
	delete(c.ledger, partner)
	c.bonus -= bonus
	return bonus, true
}

// BonusFrom returns the bonus currently granted by partner, if any.
func (c *Card) BonusFrom(partner CardID) (int, bool) {
	bonus, exists := c.ledger[partner]
	return bonus, exists
}

// CurrentBonus returns the card's running bonus total. Always equal to the
// sum of the ledger values.
func (c *Card) CurrentBonus() int {
	return c.bonus
}

// Ledger returns a copy of the bonus ledger.
func (c *Card) Ledger() map[CardID]int {
	out := make(map[CardID]int, len(c.ledger))
	for partner, bonus := range c.ledger {
		out[partner] = bonus
	}
	return out
}
