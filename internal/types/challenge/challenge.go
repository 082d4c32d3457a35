package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientAccepted  RecipientStatus = "accepted"
	RecipientDeclined  RecipientStatus = "declined"
	RecipientCompleted RecipientStatus = "completed"
)

// PointsFor returns the point value for a difficulty tier. Points are always
// derived from difficulty, never caller-supplied.
func PointsFor(d Difficulty) int {
	switch d {
	case DifficultyMedium:
		return 10
	case DifficultyHard:
		return 15
	default:
		return 5
	}
}

// DurationFor returns the deadline window for a difficulty tier.
func DurationFor(d Difficulty) time.Duration {
	switch d {
	case DifficultyMedium:
		return 3 * 24 * time.Hour
	case DifficultyHard:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type Challenge struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	UserID        uuid.UUID   `json:"user_id" db:"user_id"`
	Title         string      `json:"title" db:"title"`
	Description   string      `json:"description" db:"description"`
	Difficulty    Difficulty  `json:"difficulty" db:"difficulty"`
	Points        int         `json:"points" db:"points"`
	Completed     bool        `json:"completed" db:"completed"`
	CompletedAt   *time.Time  `json:"completed_at" db:"completed_at"`
	PointsAwarded bool        `json:"points_awarded" db:"points_awarded"`
	Deadline      time.Time   `json:"deadline" db:"deadline"`
	Tags          []string    `json:"tags" db:"tags"`
	Recipients    []Recipient `json:"recipients,omitempty"`
	Feedback      *Aggregates `json:"feedback,omitempty"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

type Recipient struct {
	ChallengeID uuid.UUID       `json:"challenge_id" db:"challenge_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Username    string          `json:"username,omitempty"`
	Status      RecipientStatus `json:"status" db:"status"`
	SharedAt    time.Time       `json:"shared_at" db:"shared_at"`
	RespondedAt *time.Time      `json:"responded_at" db:"responded_at"`
}

// Proposal is a generated challenge that has not been persisted. It only
// becomes a Challenge on explicit accept.
type Proposal struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	Points      int        `json:"points"`
	Deadline    time.Time  `json:"deadline"`
	Tags        []string   `json:"tags"`
}

type FeedbackRequest struct {
	Rating            int    `json:"rating"`
	EnjoymentLevel    int    `json:"enjoyment_level"`
	ProductivityScore int    `json:"productivity_score"`
	TimeSpentMinutes  int    `json:"time_spent_minutes"`
	Feedback          string `json:"feedback"`
}

// Aggregates are recomputed from all feedback entries on every submission.
type Aggregates struct {
	AverageRating    float64 `json:"average_rating"`
	AverageTimeSpent float64 `json:"average_time_spent"`
	TotalAttempts    int     `json:"total_attempts"`
}
