package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiheling1/mask/internal/geom"
	"github.com/xiheling1/mask/internal/model"
)

func testTuning() Tuning {
	return Tuning{
		SnapDistance:     80,
		SlotDistance:     60,
		OverlapThreshold: 0.1,
		CardWidth:        100,
		CardHeight:       140,
	}
}

func newRegistryForTest() *Registry {
	return NewRegistry(testTuning())
}

// checkInvariants asserts the occupancy/attachment biconditional and the
// ledger sum invariant for every registered card.
func checkInvariants(t *testing.T, r *Registry) {
	t.Helper()

	for _, id := range r.CardIDs() {
		c := r.Card(id)

		sum := 0
		for _, v := range c.Ledger() {
			sum += v
		}
		require.Equal(t, sum, c.CurrentBonus(), "ledger sum mismatch for %s", id)

		if c.IsAttached() {
			h := r.Card(c.AttachedHost)
			require.NotNil(t, h, "%s attached to unregistered host %s", id, c.AttachedHost)
			require.Equal(t, id, h.Occupant(c.AttachedSlot),
				"%s claims slot %d of %s but host disagrees", id, c.AttachedSlot, c.AttachedHost)
		}

		for i := 0; i < model.SlotCount; i++ {
			occ := c.Occupant(i)
			if occ == "" {
				continue
			}
			oc := r.Card(occ)
			require.NotNil(t, oc, "slot %d of %s holds unregistered card %s", i, id, occ)
			require.Equal(t, id, oc.AttachedHost)
			require.Equal(t, i, oc.AttachedSlot)
		}
	}
}

func TestAttach_BasicScenario(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 500, Y: 500})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 100, Y: 100})

	// Release 5 units away from host's "up" slot.
	target := host.SlotWorldPos(0, 60).Add(geom.Point{X: 3, Y: 4})
	ref, found := r.FindNearestFreeSlot(target, card.ID)
	require.True(t, found)
	assert.Equal(t, host.ID, ref.Host)
	assert.Equal(t, 0, ref.Index)

	res, ok := r.Attach(ref.Host, ref.Index, card.ID)
	require.True(t, ok)

	// Slot distance 60 on a 100x140 card leaves substantial overlap;
	// well above the 0.1 threshold.
	assert.True(t, res.BonusGranted)
	assert.Greater(t, res.Overlap, 0.1)
	assert.Equal(t, host.SlotWorldPos(0, 60), card.Pos)

	checkInvariants(t, r)
}

func TestAttach_FullOverlapBonusIsSumOfEffects(t *testing.T) {
	r := NewRegistry(Tuning{
		SnapDistance:     80,
		SlotDistance:     0, // slot positions collapse onto the host: full overlap
		OverlapThreshold: 0.1,
		CardWidth:        100,
		CardHeight:       140,
	})

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 500, Y: 500})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 505, Y: 500})

	res, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)

	assert.Equal(t, 1.0, res.Overlap)
	assert.Equal(t, 14, res.CardBonus)
	assert.Equal(t, 14, res.HostBonus)
	assert.Equal(t, 14, card.CurrentBonus())
	assert.Equal(t, 14, host.CurrentBonus())

	checkInvariants(t, r)
}

func TestFindNearestFreeSlot_OutOfRangeReturnsNone(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 0, Y: 0})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 1000, Y: 1000})

	// Every slot of host is at most 60 from its center; 1000,1000 is
	// about 1350 away, far past the snap distance of 80.
	_, found := r.FindNearestFreeSlot(card.Pos, card.ID)
	assert.False(t, found)

	_, ok := r.OnDragEnd(card.ID, card.Pos)
	assert.False(t, ok)
	assert.False(t, card.IsAttached())
	assert.Equal(t, 0, host.CurrentBonus())
}

func TestFindNearestFreeSlot_DistanceMustBeStrictlyUnderSnap(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host"}, geom.Point{X: 0, Y: 0})
	probe := host.SlotWorldPos(2, 60).Add(geom.Point{X: 80, Y: 0})

	// Exactly snapDistance away from the right slot, and further from all
	// others: not a candidate.
	_, found := r.FindNearestFreeSlot(probe, "")
	assert.False(t, found)

	probe.X -= 0.5
	ref, found := r.FindNearestFreeSlot(probe, "")
	require.True(t, found)
	assert.Equal(t, 2, ref.Index)
}

func TestFindNearestFreeSlot_SkipsOccupiedSlots(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host"}, geom.Point{X: 0, Y: 0})
	passenger := r.Spawn(model.CardSpec{Name: "p"}, geom.Point{X: 300, Y: 300})
	mover := r.Spawn(model.CardSpec{Name: "m"}, geom.Point{X: 300, Y: -300})

	_, ok := r.Attach(host.ID, 0, passenger.ID)
	require.True(t, ok)

	// Probe right on top of the occupied "up" slot; the nearest free slot
	// is one of the adjacent diagonals.
	ref, found := r.FindNearestFreeSlot(host.SlotWorldPos(0, 60), mover.ID)
	require.True(t, found)
	assert.NotEqual(t, 0, ref.Index)
	assert.Equal(t, host.ID, ref.Host)
}

func TestFindNearestFreeSlot_ExcludesTheDraggedCard(t *testing.T) {
	r := newRegistryForTest()

	lone := r.Spawn(model.CardSpec{Name: "lone"}, geom.Point{X: 0, Y: 0})

	// The only registered card is the one being placed: no candidates.
	_, found := r.FindNearestFreeSlot(lone.Pos, lone.ID)
	assert.False(t, found)
}

func TestDetach_RestoresBothSides(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 500, Y: 500})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 100, Y: 100})

	_, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)
	require.NotZero(t, card.CurrentBonus())

	res, ok := r.Detach(card.ID)
	require.True(t, ok)
	assert.True(t, res.BonusRevoked)

	assert.Equal(t, 0, card.CurrentBonus())
	assert.Equal(t, 0, host.CurrentBonus())
	assert.False(t, card.IsAttached())
	assert.True(t, host.IsSlotFree(0))
	assert.Empty(t, card.Ledger())
	assert.Empty(t, host.Ledger())

	// Detach twice in a row is safe.
	_, ok = r.Detach(card.ID)
	assert.False(t, ok)

	checkInvariants(t, r)
}

func TestAttach_ReattachElsewhereClearsOldHost(t *testing.T) {
	r := newRegistryForTest()

	h1 := r.Spawn(model.CardSpec{Name: "h1", Effect: 4}, geom.Point{X: 0, Y: 0})
	h2 := r.Spawn(model.CardSpec{Name: "h2", Effect: 6}, geom.Point{X: 1000, Y: 0})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 500, Y: 0})

	_, ok := r.Attach(h1.ID, 3, card.ID)
	require.True(t, ok)

	_, ok = r.Attach(h2.ID, 5, card.ID)
	require.True(t, ok)

	// No trace of the card may survive on h1.
	assert.True(t, h1.IsSlotFree(3))
	assert.Equal(t, 0, h1.CurrentBonus())
	_, exists := h1.BonusFrom(card.ID)
	assert.False(t, exists)
	_, exists = card.BonusFrom(h1.ID)
	assert.False(t, exists)

	assert.Equal(t, h2.ID, card.AttachedHost)
	assert.Equal(t, 5, card.AttachedSlot)
	assert.Equal(t, card.ID, h2.Occupant(5))

	checkInvariants(t, r)
}

func TestAttach_SoftFailures(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host"}, geom.Point{X: 0, Y: 0})
	a := r.Spawn(model.CardSpec{Name: "a"}, geom.Point{X: 300, Y: 0})
	b := r.Spawn(model.CardSpec{Name: "b"}, geom.Point{X: 0, Y: 300})

	_, ok := r.Attach("ghost", 0, a.ID)
	assert.False(t, ok, "absent host")

	_, ok = r.Attach(host.ID, 0, "ghost")
	assert.False(t, ok, "absent card")

	_, ok = r.Attach(host.ID, model.SlotCount, a.ID)
	assert.False(t, ok, "out-of-range slot")

	_, ok = r.Attach(host.ID, -1, a.ID)
	assert.False(t, ok, "negative slot")

	_, ok = r.Attach(host.ID, 0, host.ID)
	assert.False(t, ok, "self-attach")

	_, ok = r.Attach(host.ID, 0, a.ID)
	require.True(t, ok)

	_, ok = r.Attach(host.ID, 0, b.ID)
	assert.False(t, ok, "occupied slot")
	assert.Equal(t, a.ID, host.Occupant(0))

	checkInvariants(t, r)
}

func TestAttach_SameSlotTwiceDoesNotCompound(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 0, Y: 0})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 300, Y: 0})

	first, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)

	second, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)

	assert.Equal(t, first.CardBonus, second.CardBonus)
	assert.Equal(t, first.CardBonus, card.CurrentBonus())
	assert.Equal(t, first.HostBonus, host.CurrentBonus())

	checkInvariants(t, r)
}

func TestAttach_BelowThresholdGrantsNoBonus(t *testing.T) {
	r := NewRegistry(Tuning{
		SnapDistance:     500,
		SlotDistance:     400, // far enough that the bounds are disjoint
		OverlapThreshold: 0.1,
		CardWidth:        100,
		CardHeight:       140,
	})

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 0, Y: 0})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 10, Y: 0})

	res, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)

	assert.False(t, res.BonusGranted)
	assert.Equal(t, 0.0, res.Overlap)
	assert.Equal(t, 0, card.CurrentBonus())
	assert.Equal(t, 0, host.CurrentBonus())
	assert.Empty(t, card.Ledger())

	// Occupancy is still established; only the bonus is withheld.
	assert.Equal(t, card.ID, host.Occupant(0))

	checkInvariants(t, r)
}

func TestUnregister_DetachesSelfAndOccupants(t *testing.T) {
	r := newRegistryForTest()

	outer := r.Spawn(model.CardSpec{Name: "outer", Effect: 2}, geom.Point{X: 1000, Y: 1000})
	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 0, Y: 0})
	p1 := r.Spawn(model.CardSpec{Name: "p1", Effect: 10}, geom.Point{X: 300, Y: 0})
	p2 := r.Spawn(model.CardSpec{Name: "p2", Effect: 6}, geom.Point{X: 0, Y: 300})

	_, ok := r.Attach(host.ID, 0, p1.ID)
	require.True(t, ok)
	_, ok = r.Attach(host.ID, 4, p2.ID)
	require.True(t, ok)
	_, ok = r.Attach(outer.ID, 2, host.ID)
	require.True(t, ok)

	r.Unregister(host.ID)

	assert.Nil(t, r.Card(host.ID))
	assert.False(t, p1.IsAttached())
	assert.False(t, p2.IsAttached())
	assert.Equal(t, 0, p1.CurrentBonus())
	assert.Equal(t, 0, p2.CurrentBonus())
	assert.Equal(t, 0, outer.CurrentBonus())
	assert.True(t, outer.IsSlotFree(2))
	assert.Empty(t, p1.Ledger())
	assert.Empty(t, outer.Ledger())

	// Idempotent.
	r.Unregister(host.ID)

	checkInvariants(t, r)
}

func TestRegister_Idempotent(t *testing.T) {
	r := newRegistryForTest()

	c := model.NewCard("c_ext", model.CardSpec{Name: "ext"}, geom.Point{}, 100, 140)
	r.Register(c)
	r.Register(c)
	r.Register(nil)

	assert.Len(t, r.CardIDs(), 1)
	assert.Equal(t, c, r.Card("c_ext"))
}

func TestOnDragEnd_AttachesToNearestSlot(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 500, Y: 500})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 0, Y: 0})

	res, ok := r.OnDragEnd(card.ID, host.SlotWorldPos(4, 60).Add(geom.Point{X: 5, Y: 0}))
	require.True(t, ok)

	assert.Equal(t, host.ID, res.Host)
	assert.Equal(t, 4, res.Slot)
	assert.Equal(t, host.ID, card.AttachedHost)

	checkInvariants(t, r)
}

func TestObserver_SeesAttachAndDetach(t *testing.T) {
	r := newRegistryForTest()

	var events []Event
	r.AddObserver(ObserverFunc(func(ev Event) {
		events = append(events, ev)
	}))

	host := r.Spawn(model.CardSpec{Name: "host", Effect: 4}, geom.Point{X: 0, Y: 0})
	card := r.Spawn(model.CardSpec{Name: "card", Effect: 10}, geom.Point{X: 300, Y: 0})

	_, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)
	_, ok = r.Detach(card.ID)
	require.True(t, ok)

	require.Len(t, events, 4)
	assert.Equal(t, EventCardRegistered, events[0].Type)
	assert.Equal(t, EventCardRegistered, events[1].Type)
	assert.Equal(t, EventCardAttached, events[2].Type)
	assert.Equal(t, EventCardDetached, events[3].Type)
	assert.Equal(t, card.ID, events[2].Card)
	assert.Equal(t, host.ID, events[2].Host)
}

func TestIsSlotFree_Accessor(t *testing.T) {
	r := newRegistryForTest()

	host := r.Spawn(model.CardSpec{Name: "host"}, geom.Point{X: 0, Y: 0})
	card := r.Spawn(model.CardSpec{Name: "card"}, geom.Point{X: 300, Y: 0})

	assert.True(t, r.IsSlotFree(host.ID, 0))
	assert.False(t, r.IsSlotFree("ghost", 0))
	assert.False(t, r.IsSlotFree(host.ID, 99))

	_, ok := r.Attach(host.ID, 0, card.ID)
	require.True(t, ok)
	assert.False(t, r.IsSlotFree(host.ID, 0))
}
