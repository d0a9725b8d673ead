package scheduler

import "time"

// Slot is a concrete span of planned work owned by one user.
type Slot struct {
	ID     string
	UserID string
	Start  time.Time
	End    time.Time
}

// Conflict names the existing slot a candidate overlaps with.
type Conflict struct {
	WithSlotID string
	UserID     string
	Start      time.Time
	End        time.Time
}

// DetectConflicts returns the slots in existing that belong to the
// candidate's user and overlap it in time. Spans are half-open, so a slot
// ending exactly when another starts is not a conflict. The candidate itself
// (same id and start) is skipped when present in existing.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if slot.UserID != candidate.UserID {
			continue
		}
		if slot.ID == candidate.ID && slot.Start.Equal(candidate.Start) {
			continue
		}
		if !overlaps(slot, candidate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithSlotID: slot.ID,
			UserID:     slot.UserID,
			Start:      slot.Start,
			End:        slot.End,
		})
	}
	return conflicts
}

func overlaps(a, b Slot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
