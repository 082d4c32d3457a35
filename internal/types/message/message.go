package message

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeText           Type = "text"
	TypeChallengeShare Type = "challenge_share"
)

type Message struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	SenderID    uuid.UUID  `json:"sender_id" db:"sender_id"`
	ReceiverID  uuid.UUID  `json:"receiver_id" db:"receiver_id"`
	Content     string     `json:"content" db:"content"`
	Type        Type       `json:"type" db:"type"`
	ChallengeID *uuid.UUID `json:"challenge_id,omitempty" db:"challenge_id"`
	// Status is computed per read for challenge_share messages from the
	// referenced challenge's recipient entries. Never persisted.
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}
