package post

import (
	"time"

	"github.com/google/uuid"
)

// Post snapshots the creator's username and the challenge title at creation
// time. The snapshots are never re-synced if the source records change.
type Post struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	UserID         uuid.UUID   `json:"user_id" db:"user_id"`
	Username       string      `json:"username" db:"username"`
	Content        string      `json:"content" db:"content"`
	ImageURL       string      `json:"image_url" db:"image_url"`
	ChallengeID    uuid.UUID   `json:"challenge_id" db:"challenge_id"`
	ChallengeTitle string      `json:"challenge_title" db:"challenge_title"`
	IsProgress     bool        `json:"is_progress" db:"is_progress"`
	Likes          []uuid.UUID `json:"likes"`
	Comments       []Comment   `json:"comments"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PostID    uuid.UUID `json:"post_id" db:"post_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreatePostRequest struct {
	Content     string `json:"content"`
	ImageURL    string `json:"image_url"`
	ChallengeID string `json:"challenge_id"`
	IsProgress  bool   `json:"is_progress"`
}

type FeedPage struct {
	Posts   []*Post `json:"posts"`
	HasMore bool    `json:"has_more"`
	Total   int     `json:"total"`
}
