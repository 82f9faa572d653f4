package table

import (
	"sync"

	"github.com/xiheling1/mask/internal/geom"
	"github.com/xiheling1/mask/internal/model"
)

// Tuning holds the attachment constants of the registry.
type Tuning struct {
	// SnapDistance is the maximum distance at which a released card may
	// snap onto a candidate slot.
	SnapDistance float64
	// SlotDistance is the ring radius used to compute slot world positions.
	SlotDistance float64
	// OverlapThreshold is the minimum overlap fraction required for an
	// attachment to grant a bonus.
	OverlapThreshold float64
	// CardWidth and CardHeight are the fixed card dimensions.
	CardWidth  float64
	CardHeight float64
}

// SlotRef identifies one slot of one host, with its world position.
type SlotRef struct {
	Host  model.CardID `json:"host"`
	Index int          `json:"index"`
	Pos   geom.Point   `json:"pos"`
}

// AttachResult reports what a successful Attach changed.
type AttachResult struct {
	Host         model.CardID `json:"host"`
	Card         model.CardID `json:"card"`
	Slot         int          `json:"slot"`
	Overlap      float64      `json:"overlap"`
	BonusGranted bool         `json:"bonusGranted"`
	CardBonus    int          `json:"cardBonus"`
	HostBonus    int          `json:"hostBonus"`
}

// DetachResult reports what a successful Detach changed.
type DetachResult struct {
	Host         model.CardID `json:"host"`
	Card         model.CardID `json:"card"`
	Slot         int          `json:"slot"`
	BonusRevoked bool         `json:"bonusRevoked"`
	CardBonus    int          `json:"cardBonus"`
	HostBonus    int          `json:"hostBonus"`
}

// Registry coordinates the attachment graph between live cards. All card
// handles it hands out refer into its arena; occupancy, attachment and
// ledger mutations go through Attach/Detach/Unregister only, which keeps
// the occupancy/attachment biconditional intact after every call.
//
// Every operation on an absent handle or out-of-range slot index is a
// soft-failure no-op: dangling handles from a just-destroyed card are
// routine during interactive play and must never take the frame down.
//
// A single mutex serializes all calls, so each attach or detach is atomic
// as seen by any other caller.
type Registry struct {
	mu        sync.Mutex
	state     *model.TableState
	tuning    Tuning
	observers []Observer
}

// NewRegistry creates a registry with an empty arena.
func NewRegistry(tuning Tuning) *Registry {
	return &Registry{
		state:  model.NewTableState(),
		tuning: tuning,
	}
}

// AddObserver subscribes an observer to registry state changes. Observers
// are invoked synchronously, in subscription order, after each change.
func (r *Registry) AddObserver(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

func (r *Registry) publish(ev Event) {
	for _, o := range r.observers {
		o.TableChanged(ev)
	}
}

// emit publishes an event from outside the registry's own call paths.
func (r *Registry) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publish(ev)
}

// Tuning returns the registry's attachment constants.
func (r *Registry) Tuning() Tuning {
	return r.tuning
}

// Spawn creates a card from the given spec at pos, using the configured
// card dimensions, and registers it.
func (r *Registry) Spawn(spec model.CardSpec, pos geom.Point) *model.Card {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.state.CreateCard(spec, pos, r.tuning.CardWidth, r.tuning.CardHeight)
	r.publish(Event{Type: EventCardRegistered, Card: c.ID})
	return c
}

// Register adds an existing card to the registry.
// Idempotent: registering an already-registered card is a no-op.
func (r *Registry) Register(c *model.Card) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.GetCard(c.ID) != nil {
		return
	}
	if err := r.state.AddCard(c); err != nil {
		return
	}
	r.publish(Event{Type: EventCardRegistered, Card: c.ID})
}

// Unregister removes a card from play. Cards docked on it are detached,
// its own attachment is detached, and only then is it dropped from the
// arena, so no ledger or occupancy entry for it survives anywhere.
// Idempotent: unregistering an absent handle is a no-op.
func (r *Registry) Unregister(id model.CardID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.state.GetCard(id)
	if c == nil {
		return
	}

	for i := 0; i < model.SlotCount; i++ {
		if occ := c.Occupants[i]; occ != "" {
			r.detachLocked(r.state.GetCard(occ))
		}
	}
	r.detachLocked(c)

	r.state.RemoveCard(id)
	r.publish(Event{Type: EventCardUnregistered, Card: id})
}

// Card returns the card for the given handle, or nil if not registered.
func (r *Registry) Card(id model.CardID) *model.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.GetCard(id)
}

// IsSlotFree reports whether the given host exists and has slot i free.
func (r *Registry) IsSlotFree(host model.CardID, i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.state.GetCard(host)
	if h == nil {
		return false
	}
	return h.IsSlotFree(i)
}

// MoveCard updates a card's world position.
// Soft failure: no-op if the card doesn't exist.
func (r *Registry) MoveCard(id model.CardID, pos geom.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.state.GetCard(id)
	if c == nil {
		return
	}
	c.Pos = pos
}

// FindNearestFreeSlot scans every registered card except excluding and
// returns the free slot closest to pos, provided its distance is strictly
// under SnapDistance. Ties keep the first candidate encountered; cards are
// scanned in sorted handle order so the result is reproducible.
func (r *Registry) FindNearestFreeSlot(pos geom.Point, excluding model.CardID) (SlotRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findNearestFreeSlotLocked(pos, excluding)
}

func (r *Registry) findNearestFreeSlotLocked(pos geom.Point, excluding model.CardID) (SlotRef, bool) {
	best := SlotRef{Index: model.NoSlot}
	bestDist := r.tuning.SnapDistance
	found := false

	for _, id := range r.state.CardIDs() {
		if id == excluding {
			continue
		}
		host := r.state.GetCard(id)
		for i := 0; i < model.SlotCount; i++ {
			if !host.IsSlotFree(i) {
				continue
			}
			slotPos := host.SlotWorldPos(i, r.tuning.SlotDistance)
			dist := pos.Distance(slotPos)
			if dist >= bestDist {
				continue
			}
			best = SlotRef{Host: id, Index: i, Pos: slotPos}
			bestDist = dist
			found = true
		}
	}

	return best, found
}

// Attach docks card into the given slot of host. If card is attached
// elsewhere it is detached first, so a card never occupies two slots. The
// card snaps to the slot's world position, occupancy and attachment are
// set, and if the resulting overlap fraction reaches OverlapThreshold a
// bonus is written into both ledgers.
//
// Soft failure (ok=false, nothing changes): absent host or card, host and
// card being the same, out-of-range slot, or a slot occupied by another
// card.
func (r *Registry) Attach(host model.CardID, slot int, card model.CardID) (AttachResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachLocked(host, slot, card)
}

func (r *Registry) attachLocked(host model.CardID, slot int, card model.CardID) (AttachResult, bool) {
	h := r.state.GetCard(host)
	c := r.state.GetCard(card)
	if h == nil || c == nil || host == card {
		return AttachResult{}, false
	}
	if slot < 0 || slot >= model.SlotCount {
		return AttachResult{}, false
	}
	if occ := h.Occupants[slot]; occ != "" && occ != card {
		return AttachResult{}, false
	}

	if c.IsAttached() {
		r.detachLocked(c)
	}

	c.Pos = h.SlotWorldPos(slot, r.tuning.SlotDistance)
	h.Occupants[slot] = card
	c.AttachedHost = host
	c.AttachedSlot = slot

	res := AttachResult{Host: host, Card: card, Slot: slot}
	res.Overlap = geom.OverlapFraction(c.Bounds(), h.Bounds())
	if res.Overlap >= r.tuning.OverlapThreshold {
		// Each side's entry is written from its own formula inputs.
		res.CardBonus, _ = c.ApplyBonus(host, h.Effect, res.Overlap)
		res.HostBonus, _ = h.ApplyBonus(card, c.Effect, res.Overlap)
		res.BonusGranted = true
	}

	r.publish(Event{
		Type:    EventCardAttached,
		Card:    card,
		Host:    host,
		Slot:    slot,
		Overlap: res.Overlap,
		Bonus:   res.CardBonus,
	})
	return res, true
}

// Detach undocks a card from its host, reversing the bonus relationship on
// both sides and clearing occupancy and attachment.
// Idempotent soft failure: absent handle or unattached card is a no-op.
func (r *Registry) Detach(card model.CardID) (DetachResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.detachLocked(r.state.GetCard(card))
}

func (r *Registry) detachLocked(c *model.Card) (DetachResult, bool) {
	if c == nil || !c.IsAttached() {
		return DetachResult{}, false
	}

	host := c.AttachedHost
	slot := c.AttachedSlot
	res := DetachResult{Host: host, Card: c.ID, Slot: slot}

	h := r.state.GetCard(host)
	if h != nil {
		hostBonus, revoked := h.RemoveBonus(c.ID)
		res.HostBonus = hostBonus
		res.BonusRevoked = revoked
		if slot >= 0 && slot < model.SlotCount && h.Occupants[slot] == c.ID {
			h.Occupants[slot] = ""
		}
	}
	res.CardBonus, _ = c.RemoveBonus(host)

	c.AttachedHost = ""
	c.AttachedSlot = model.NoSlot

	r.publish(Event{
		Type:  EventCardDetached,
		Card:  c.ID,
		Host:  host,
		Slot:  slot,
		Bonus: res.CardBonus,
	})
	return res, true
}

// OnDragEnd resolves a released card against the table: the card moves to
// pos, the nearest free slot under SnapDistance is looked up, and if one
// exists the card is attached there. With no candidate in range the card's
// attachment state is left untouched and ok is false; the presentation
// layer decides how to reconcile.
func (r *Registry) OnDragEnd(card model.CardID, pos geom.Point) (AttachResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.state.GetCard(card)
	if c == nil {
		return AttachResult{}, false
	}
	c.Pos = pos

	ref, found := r.findNearestFreeSlotLocked(pos, card)
	if !found {
		return AttachResult{}, false
	}
	return r.attachLocked(ref.Host, ref.Index, card)
}

// OnCardRemoved handles a card leaving the scene: detach plus unregister.
func (r *Registry) OnCardRemoved(card model.CardID) {
	r.Unregister(card)
}

// CardIDs returns the handles of all registered cards in sorted order.
func (r *Registry) CardIDs() []model.CardID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.CardIDs()
}

// Snapshot returns a read-only view of every registered card, for UI
// refresh. None of the snapshot accessors mutate registry state.
func (r *Registry) Snapshot() []CardView {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.state.CardIDs()
	out := make([]CardView, 0, len(ids))
	for _, id := range ids {
		c := r.state.GetCard(id)
		view := CardView{
			ID:           c.ID,
			Name:         c.Name,
			Effect:       c.Effect,
			SoulCost:     c.SoulCost,
			ImageRef:     c.ImageRef,
			Pos:          c.Pos,
			Occupants:    c.Occupants,
			AttachedHost: c.AttachedHost,
			AttachedSlot: c.AttachedSlot,
			CurrentBonus: c.CurrentBonus(),
		}
		out = append(out, view)
	}
	return out
}

// CardView is the read-only card projection exposed to the presentation
// layer.
type CardView struct {
	ID           model.CardID                  `json:"id"`
	Name         string                        `json:"name"`
	Effect       int                           `json:"effect"`
	SoulCost     int                           `json:"soulCost"`
	ImageRef     string                        `json:"imageRef,omitempty"`
	Pos          geom.Point                    `json:"pos"`
	Occupants    [model.SlotCount]model.CardID `json:"occupants"`
	AttachedHost model.CardID                  `json:"attachedHost,omitempty"`
	AttachedSlot int                           `json:"attachedSlot"`
	CurrentBonus int                           `json:"currentBonus"`
}
