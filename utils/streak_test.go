package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCurrentStreakConsecutiveDays(t *testing.T) {
	now := day("2024-01-03").Add(15 * time.Hour)
	completions := []time.Time{
		day("2024-01-03").Add(9 * time.Hour),
		day("2024-01-02").Add(20 * time.Hour),
		day("2024-01-01").Add(11 * time.Hour),
	}

	assert.Equal(t, 3, CurrentStreak(completions, now))
}

func TestCurrentStreakGapBreaksRun(t *testing.T) {
	now := day("2024-01-03").Add(15 * time.Hour)
	completions := []time.Time{
		day("2024-01-03"),
		day("2024-01-01"),
	}

	assert.Equal(t, 1, CurrentStreak(completions, now))
}

func TestCurrentStreakLatestYesterdayStillCounts(t *testing.T) {
	now := day("2024-01-04").Add(8 * time.Hour)
	completions := []time.Time{
		day("2024-01-03"),
		day("2024-01-02"),
	}

	assert.Equal(t, 2, CurrentStreak(completions, now))
}

func TestCurrentStreakStaleCompletionsYieldZero(t *testing.T) {
	now := day("2024-01-10")
	completions := []time.Time{
		day("2024-01-03"),
		day("2024-01-02"),
		day("2024-01-01"),
	}

	assert.Equal(t, 0, CurrentStreak(completions, now))
}

func TestCurrentStreakNoCompletions(t *testing.T) {
	assert.Equal(t, 0, CurrentStreak(nil, day("2024-01-03")))
}

func TestCurrentStreakMultipleCompletionsSameDay(t *testing.T) {
	now := day("2024-01-02").Add(23 * time.Hour)
	completions := []time.Time{
		day("2024-01-02").Add(10 * time.Hour),
		day("2024-01-02").Add(12 * time.Hour),
		day("2024-01-01"),
	}

	assert.Equal(t, 2, CurrentStreak(completions, now))
}
