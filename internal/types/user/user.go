package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	ClerkID                string    `json:"clerk_id" db:"clerk_id"`
	Username               string    `json:"username" db:"username"`
	ImageURL               string    `json:"image_url" db:"image_url"`
	Points                 int       `json:"points" db:"points"`
	QuestionnaireCompleted bool      `json:"questionnaire_completed" db:"questionnaire_completed"`
	Ratings                Ratings   `json:"ratings"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// Ratings is the fixed-shape personalization profile collected by the
// onboarding questionnaire. Values are 1-5.
type Ratings struct {
	Adventure  int `json:"adventure" db:"rating_adventure"`
	Creativity int `json:"creativity" db:"rating_creativity"`
	Social     int `json:"social" db:"rating_social"`
	Fitness    int `json:"fitness" db:"rating_fitness"`
	Learning   int `json:"learning" db:"rating_learning"`
}

type CreateUserRequest struct {
	ClerkID  string `json:"clerk_id"`
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
}

type QuestionnaireRequest struct {
	Adventure  int `json:"adventure"`
	Creativity int `json:"creativity"`
	Social     int `json:"social"`
	Fitness    int `json:"fitness"`
	Learning   int `json:"learning"`
}

// SearchResult is one hit of the user search, annotated with the caller's
// relationship to the found user.
type SearchResult struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	ImageURL    string    `json:"image_url"`
	IsFriend    bool      `json:"is_friend"`
	RequestSent bool      `json:"request_sent"`
}
