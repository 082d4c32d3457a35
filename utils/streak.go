package utils

import "time"

// CurrentStreak counts consecutive calendar days with at least one completion,
// ending today or yesterday. completions may be in any order and may contain
// several entries per day. A most-recent completion older than yesterday means
// the streak is broken and the count is 0.
func CurrentStreak(completions []time.Time, now time.Time) int {
	if len(completions) == 0 {
		return 0
	}

	days := make(map[time.Time]bool, len(completions))
	var latest time.Time
	for _, c := range completions {
		day := truncateToDay(c)
		days[day] = true
		if day.After(latest) {
			latest = day
		}
	}

	today := truncateToDay(now)
	yesterday := today.AddDate(0, 0, -1)
	if !latest.Equal(today) && !latest.Equal(yesterday) {
		return 0
	}

	streak := 0
	for day := latest; days[day]; day = day.AddDate(0, 0, -1) {
		streak++
	}

	return streak
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
