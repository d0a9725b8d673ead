package recurrence

import (
	"testing"
	"time"
)

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(nil)
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 3, 0)

	shifts := make([]Shift, 0, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		shifts = append(shifts, Shift{
			ID:       "shift-" + day.String(),
			UserID:   "user-1",
			Weekday:  day,
			Start:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			Duration: 8 * time.Hour,
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.Expand(shifts, from, to)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
