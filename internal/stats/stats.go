// Package stats derives streak and frequency figures from a user's
// history of session timestamps.
package stats

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Consecutiveness is the calendar-day relationship between two
// timestamps. It is day-boundary aware, not a 24h-modulo comparison:
// two timestamps 2 hours apart straddling midnight are consecutive
// days, and two 30 hours apart can be too.
type Consecutiveness int

const (
	SameDay Consecutiveness = iota
	ConsecutiveDays
	NonConsecutiveDays
)

func (c Consecutiveness) String() string {
	switch c {
	case SameDay:
		return "same-day"
	case ConsecutiveDays:
		return "consecutive-days"
	case NonConsecutiveDays:
		return "non-consecutive-days"
	default:
		return "unknown"
	}
}

// Classify determines the consecutiveness of two timestamps in the
// given evaluation timezone.
func Classify(a, b time.Time, loc *time.Location) Consecutiveness {
	switch d := daysApart(a, b, loc); d {
	case 0:
		return SameDay
	case 1:
		return ConsecutiveDays
	default:
		return NonConsecutiveDays
	}
}

// daysApart counts whole calendar days between the two timestamps' days.
func daysApart(a, b time.Time, loc *time.Location) int {
	da := dateOf(a, loc)
	db := dateOf(b, loc)
	if db.After(da) {
		da, db = db, da
	}
	// Rounding absorbs the odd hour a DST transition adds or removes.
	return int(math.Round(da.Sub(db).Hours() / 24))
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// LongestStreak walks the history in ascending order and returns the
// longest run of consecutive-day transitions ever achieved. A same-day
// pair neither extends nor breaks the run; a gap resets it. An empty
// history yields 0.
func LongestStreak(timestamps []time.Time, loc *time.Location) int {
	if len(timestamps) == 0 {
		return 0
	}

	sorted := sortedAscending(timestamps)

	longest, running := 0, 0
	for i := 1; i < len(sorted); i++ {
		switch Classify(sorted[i-1], sorted[i], loc) {
		case ConsecutiveDays:
			running++
			if running > longest {
				longest = running
			}
		case NonConsecutiveDays:
			running = 0
		case SameDay:
			// Holds steady.
		}
	}
	return longest
}

// CurrentStreak counts the streak still alive at now: 0 when the most
// recent session is more than one day old, otherwise the run of
// consecutive days walking backward from the most recent session.
func CurrentStreak(timestamps []time.Time, now time.Time, loc *time.Location) int {
	if len(timestamps) == 0 {
		return 0
	}

	sorted := sortedAscending(timestamps)

	latest := sorted[len(sorted)-1]
	if Classify(latest, now, loc) == NonConsecutiveDays {
		return 0
	}

	streak := 1
	for i := len(sorted) - 1; i > 0; i-- {
		switch Classify(sorted[i-1], sorted[i], loc) {
		case ConsecutiveDays:
			streak++
		case NonConsecutiveDays:
			return streak
		case SameDay:
			// Same day, keep walking.
		}
	}
	return streak
}

// AveragePerWeek renders the session frequency over the span from the
// oldest timestamp to now. Histories shorter than one week report the
// raw count instead of a per-week rate. The result keeps at most two
// decimal digits and drops the decimal part entirely when whole.
func AveragePerWeek(timestamps []time.Time, now time.Time) string {
	count := len(timestamps)
	if count == 0 {
		return "0"
	}

	oldest := timestamps[0]
	for _, t := range timestamps[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}

	spanDays := now.Sub(oldest).Hours() / 24
	if spanDays < 7 {
		return strconv.Itoa(count)
	}

	avg := float64(count) / (spanDays / 7)
	rounded := math.Round(avg*100) / 100
	if rounded == math.Trunc(rounded) {
		return strconv.Itoa(int(rounded))
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func sortedAscending(timestamps []time.Time) []time.Time {
	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted
}
