package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPointsFor(t *testing.T) {
	assert.Equal(t, 5, PointsFor(DifficultyEasy))
	assert.Equal(t, 10, PointsFor(DifficultyMedium))
	assert.Equal(t, 15, PointsFor(DifficultyHard))
}

func TestPointsForUnknownDifficultyFallsBackToEasy(t *testing.T) {
	assert.Equal(t, 5, PointsFor(Difficulty("legendary")))
}

func TestDurationFor(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DurationFor(DifficultyEasy))
	assert.Equal(t, 3*24*time.Hour, DurationFor(DifficultyMedium))
	assert.Equal(t, 7*24*time.Hour, DurationFor(DifficultyHard))
}
