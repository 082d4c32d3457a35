package profile

import (
	"time"

	"github.com/google/uuid"

	"boldlyAPI/internal/types/user"
)

type Profile struct {
	User                *user.User   `json:"user"`
	Points              int          `json:"points"`
	CompletedChallenges int          `json:"completed_challenges"`
	CurrentStreak       int          `json:"current_streak"`
	Friends             []*user.User `json:"friends"`
	FriendRequests      []*user.User `json:"friend_requests"`
	RecentActivity      []Activity   `json:"recent_activity"`
}

// Activity is one entry of the merged recent-activity timeline, either a
// completed challenge or a feed post.
type Activity struct {
	Kind      string    `json:"kind"`
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

type LeaderboardEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	ImageURL string    `json:"image_url"`
	Points   int       `json:"points"`
	Rank     int       `json:"rank"`
}
