package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/user"
)

type FriendService struct {
	db          *pgxpool.Pool
	userService *UserService
}

func NewFriendService(db *pgxpool.Pool, userService *UserService) *FriendService {
	return &FriendService{
		db:          db,
		userService: userService,
	}
}

func (s *FriendService) ListFriends(ctx context.Context, clerkID string) ([]*user.User, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.userService.listFriends(ctx, userID)
}

func (s *FriendService) ListIncomingRequests(ctx context.Context, clerkID string) ([]*user.User, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.userService.listIncomingRequests(ctx, userID)
}

// SearchUsers matches the query as an exact user id when it parses as a UUID,
// otherwise as a case-insensitive username substring. The caller is excluded
// and every hit carries the caller's relationship to it.
func (s *FriendService) SearchUsers(ctx context.Context, clerkID string, query string) ([]*user.SearchResult, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if targetID, parseErr := uuid.Parse(query); parseErr == nil {
		rows, err = s.db.Query(ctx, searchSQL+` WHERE u.id = $2 AND u.id != $1`, userID, targetID)
	} else {
		rows, err = s.db.Query(ctx, searchSQL+` WHERE u.username ILIKE $2 AND u.id != $1 ORDER BY u.username LIMIT 50`,
			userID, "%"+query+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	results := []*user.SearchResult{}
	for rows.Next() {
		res := &user.SearchResult{}
		err := rows.Scan(&res.ID, &res.Username, &res.ImageURL, &res.IsFriend, &res.RequestSent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

const searchSQL = `
	SELECT
		u.id,
		u.username,
		u.image_url,
		EXISTS(
			SELECT 1 FROM friendships f
			WHERE (f.user_id = $1 AND f.friend_id = u.id)
			   OR (f.friend_id = $1 AND f.user_id = u.id)
		) AS is_friend,
		EXISTS(
			SELECT 1 FROM friend_requests fr
			WHERE fr.sender_id = $1 AND fr.receiver_id = u.id
		) AS request_sent
	FROM users u`

// SendFriendRequest is idempotent: resending an existing request is a no-op.
// Requests to users who are already friends are not blocked, matching the
// observed behavior.
func (s *FriendService) SendFriendRequest(ctx context.Context, clerkID string, receiverID uuid.UUID) error {
	senderID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	if senderID == receiverID {
		return fmt.Errorf("cannot send a friend request to yourself: %w", apperr.ErrValidation)
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, receiverID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check receiver: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", receiverID, apperr.ErrNotFound)
	}

	query := `
	INSERT INTO friend_requests (sender_id, receiver_id, created_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (sender_id, receiver_id) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, senderID, receiverID); err != nil {
		return fmt.Errorf("failed to send friend request: %w", err)
	}

	log.Printf("SendFriendRequest: %s -> %s", senderID, receiverID)
	return nil
}

// AcceptFriendRequest makes the friendship mutual and clears the pending
// request rows in both directions, all inside one transaction.
func (s *FriendService) AcceptFriendRequest(ctx context.Context, clerkID string, requesterID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	if _, err := s.userService.GetUserByID(ctx, requesterID); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`DELETE FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`,
		requesterID, userID)
	if err != nil {
		return fmt.Errorf("failed to clear friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friend request: %w", apperr.ErrNotFound)
	}

	// A crossed request in the opposite direction collapses into the same
	// friendship.
	_, err = tx.Exec(ctx,
		`DELETE FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`,
		userID, requesterID)
	if err != nil {
		return fmt.Errorf("failed to clear reverse request: %w", err)
	}

	_, err = tx.Exec(ctx, `
	INSERT INTO friendships (user_id, friend_id, created_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (user_id, friend_id) DO NOTHING
	`, requesterID, userID)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit friendship: %w", err)
	}

	log.Printf("AcceptFriendRequest: %s accepted %s", userID, requesterID)
	return nil
}

func (s *FriendService) RejectFriendRequest(ctx context.Context, clerkID string, requesterID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`,
		requesterID, userID)
	if err != nil {
		return fmt.Errorf("failed to reject friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friend request: %w", apperr.ErrNotFound)
	}

	return nil
}
