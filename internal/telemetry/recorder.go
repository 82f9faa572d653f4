package telemetry

import "github.com/xiheling1/mask/internal/table"

// TableRecorder translates registry state changes into telemetry events.
// It implements table.Observer.
type TableRecorder struct {
	repo Repository
}

// NewTableRecorder creates a recorder writing into repo.
func NewTableRecorder(repo Repository) *TableRecorder {
	return &TableRecorder{repo: repo}
}

// TableChanged records one event per registry change.
func (r *TableRecorder) TableChanged(ev table.Event) {
	meta := EventMetadata{"card": string(ev.Card)}
	if ev.Host != "" {
		meta["host"] = string(ev.Host)
	}

	switch ev.Type {
	case table.EventCardAttached:
		meta["slot"] = ev.Slot
		meta["overlap"] = ev.Overlap
		meta["bonus"] = ev.Bonus
		_ = r.repo.RecordEvent(EventCardAttached, meta)
	case table.EventCardDetached:
		meta["slot"] = ev.Slot
		meta["bonus"] = ev.Bonus
		_ = r.repo.RecordEvent(EventCardDetached, meta)
	case table.EventCardRegistered:
		_ = r.repo.RecordEvent(EventCardRegistered, meta)
	case table.EventCardUnregistered:
		_ = r.repo.RecordEvent(EventCardUnregistered, meta)
	case table.EventDragStarted:
		_ = r.repo.RecordEvent(EventDragStarted, meta)
	case table.EventDragEnded:
		_ = r.repo.RecordEvent(EventDragEnded, meta)
	case table.EventDragCancelled:
		_ = r.repo.RecordEvent(EventDragCancelled, meta)
	}
}
