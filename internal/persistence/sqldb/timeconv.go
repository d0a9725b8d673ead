package sqldb

import (
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically in both
// dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts stored values and zone-less legacy values, which are
// read as UTC.
func parseTime(column, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse %s %q", column, value)
}

func durationSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func secondsDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
