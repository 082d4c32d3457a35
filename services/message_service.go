package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/message"
)

type MessageService struct {
	db       *pgxpool.Pool
	notifier *Notifier
}

func NewMessageService(db *pgxpool.Pool, notifier *Notifier) *MessageService {
	return &MessageService{
		db:       db,
		notifier: notifier,
	}
}

// ListMessages returns the full thread between the caller and another user,
// oldest first. For challenge_share messages a transient status is projected
// from the referenced challenge's recipient entries: the caller's own entry
// when the caller is a recipient, otherwise the counterpart's. It is never
// stored on the message.
func (s *MessageService) ListMessages(ctx context.Context, clerkID string, otherUserID uuid.UUID) ([]*message.Message, error) {
	callerID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT m.id, m.sender_id, m.receiver_id, m.content, m.type, m.challenge_id, m.created_at,
		COALESCE(cr_self.status, cr_other.status, '') AS status
	FROM messages m
	LEFT JOIN challenge_recipients cr_self
		ON cr_self.challenge_id = m.challenge_id AND cr_self.user_id = $1
	LEFT JOIN challenge_recipients cr_other
		ON cr_other.challenge_id = m.challenge_id AND cr_other.user_id = $2
	WHERE (m.sender_id = $1 AND m.receiver_id = $2)
	   OR (m.sender_id = $2 AND m.receiver_id = $1)
	ORDER BY m.created_at
	`

	rows, err := s.db.Query(ctx, query, callerID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer rows.Close()

	messages := []*message.Message{}
	for rows.Next() {
		m := &message.Message{}
		err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Content,
			&m.Type,
			&m.ChallengeID,
			&m.CreatedAt,
			&m.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if m.Type != message.TypeChallengeShare {
			m.Status = ""
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// Send persists a text message and pushes it to the recipient's live
// connection if there is one. The message is returned regardless of delivery.
func (s *MessageService) Send(ctx context.Context, clerkID string, req *message.SendMessageRequest) (*message.Message, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("content is required: %w", apperr.ErrValidation)
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("invalid receiver id: %w", apperr.ErrValidation)
	}

	senderID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	var senderName string
	err = s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, senderID).Scan(&senderName)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, receiverID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check receiver: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", receiverID, apperr.ErrNotFound)
	}

	m := &message.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    req.Content,
		Type:       message.TypeText,
	}

	err = s.db.QueryRow(ctx, `
	INSERT INTO messages (id, sender_id, receiver_id, content, type, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	RETURNING created_at
	`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.Type).Scan(&m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.notifier.Notify(receiverID, "message", m, "New message", fmt.Sprintf("%s sent you a message", senderName))

	return m, nil
}

// PushChallengeUpdate re-pushes every message that references the challenge to
// both ends of its thread with the refreshed recipient status attached, so a
// live chat view updates without a refetch.
func (s *MessageService) PushChallengeUpdate(ctx context.Context, challengeID uuid.UUID, status string) {
	rows, err := s.db.Query(ctx, `
	SELECT id, sender_id, receiver_id, content, type, challenge_id, created_at
	FROM messages
	WHERE challenge_id = $1
	`, challengeID)
	if err != nil {
		log.Printf("PushChallengeUpdate: failed to load messages for challenge %s: %v", challengeID, err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		m := &message.Message{Status: status}
		err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Type, &m.ChallengeID, &m.CreatedAt)
		if err != nil {
			log.Printf("PushChallengeUpdate: failed to scan message: %v", err)
			continue
		}

		s.notifier.Notify(m.SenderID, "message", m, "", "")
		s.notifier.Notify(m.ReceiverID, "message", m, "", "")
	}
}
