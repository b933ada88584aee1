package habitday

import (
	"time"

	"github.com/podpulse/podpulse/pkg/logger"
)

// DayKey identifies one timezone-local calendar date, formatted
// "2006-01-02". It is the unit of streak accounting: two instants share
// a DayKey iff they fall in the same local calendar day.
type DayKey string

const layout = "2006-01-02"

// HabitDay maps an instant plus an IANA timezone name to its DayKey.
// An invalid timezone falls back to UTC; the fallback is logged so the
// wrong bucket is never produced silently.
func HabitDay(at time.Time, timezone string) DayKey {
	return DayKey(at.In(location(timezone)).Format(layout))
}

// DayBounds returns the UTC instants that open and close the local
// calendar day containing at. The returned window is [start, end).
func DayBounds(at time.Time, timezone string) (time.Time, time.Time) {
	loc := location(timezone)
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// Prev returns the calendar day before k.
func (k DayKey) Prev() DayKey {
	t, err := time.Parse(layout, string(k))
	if err != nil {
		// Only reachable with a key that did not come from HabitDay.
		return k
	}
	return DayKey(t.AddDate(0, 0, -1).Format(layout))
}

// Set buckets a list of instants into the deduplicated DayKey set for
// the given timezone.
func Set(instants []time.Time, timezone string) map[DayKey]struct{} {
	days := make(map[DayKey]struct{}, len(instants))
	for _, at := range instants {
		days[HabitDay(at, timezone)] = struct{}{}
	}
	return days
}

func location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Log.WithField("timezone", timezone).Warn("Unknown timezone, falling back to UTC")
		return time.UTC
	}
	return loc
}
