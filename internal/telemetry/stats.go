package telemetry

import (
	"encoding/json"
	"time"
)

type Stats struct {
	Period           string            `json:"period"`
	EventCounts      map[EventType]int `json:"event_counts"`
	CardsRegistered  int               `json:"cards_registered"`
	Attaches         int               `json:"attaches"`
	Detaches         int               `json:"detaches"`
	DragsStarted     int               `json:"drags_started"`
	DragsEnded       int               `json:"drags_ended"`
	AttachesPerDrag  float64           `json:"attaches_per_drag"`
	BonusTotal       int               `json:"bonus_total"`
	MeanAttachBonus  float64           `json:"mean_attach_bonus"`
	MeanOverlap      float64           `json:"mean_overlap"`
	BonuslessAttachs int               `json:"bonusless_attaches"`
}

// CalculateStats computes attachment activity stats from events
func CalculateStats(events []Event, since time.Time) (Stats, error) {
	stats := Stats{
		Period:      since.Format("2006-01-02"),
		EventCounts: make(map[EventType]int),
	}

	overlapSum := 0.0

	for _, event := range events {
		stats.EventCounts[event.Type]++

		var metadata EventMetadata
		if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
			continue
		}

		switch event.Type {
		case EventCardRegistered:
			stats.CardsRegistered++
		case EventCardAttached:
			stats.Attaches++
			if bonus, ok := metadata["bonus"].(float64); ok {
				stats.BonusTotal += int(bonus)
				if bonus == 0 {
					stats.BonuslessAttachs++
				}
			}
			if overlap, ok := metadata["overlap"].(float64); ok {
				overlapSum += overlap
			}
		case EventCardDetached:
			stats.Detaches++
		case EventDragStarted:
			stats.DragsStarted++
		case EventDragEnded:
			stats.DragsEnded++
		}
	}

	if stats.Attaches > 0 {
		stats.MeanAttachBonus = float64(stats.BonusTotal) / float64(stats.Attaches)
		stats.MeanOverlap = overlapSum / float64(stats.Attaches)
	}
	if stats.DragsEnded > 0 {
		stats.AttachesPerDrag = float64(stats.Attaches) / float64(stats.DragsEnded)
	}

	return stats, nil
}
