package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/profile"
	"boldlyAPI/internal/types/user"
	"boldlyAPI/utils"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, clerk_id, username, image_url, points, questionnaire_completed,
	rating_adventure, rating_creativity, rating_social, rating_fitness, rating_learning,
	created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Username,
		&u.ImageURL,
		&u.Points,
		&u.QuestionnaireCompleted,
		&u.Ratings.Adventure,
		&u.Ratings.Creativity,
		&u.Ratings.Social,
		&u.Ratings.Fitness,
		&u.Ratings.Learning,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// resolveUserID maps the external identity reference to the internal user id.
func resolveUserID(ctx context.Context, db *pgxpool.Pool, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user %s: %w", clerkID, apperr.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

// Login looks up or creates the user bound to a verified external identity.
// The user record is created on first successful login.
func (s *UserService) Login(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE clerk_id = $1`, userColumns)

	u, err := scanUser(s.db.QueryRow(ctx, query, req.ClerkID))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	username := req.Username
	if username == "" {
		username = "boldly-" + req.ClerkID[len(req.ClerkID)-6:]
	}

	insert := fmt.Sprintf(`
	INSERT INTO users (id, clerk_id, username, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), NOW())
	RETURNING %s
	`, userColumns)

	u, err = scanUser(s.db.QueryRow(ctx, insert, uuid.New(), req.ClerkID, username, req.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("Login: created user %s for clerk id %s", u.ID, req.ClerkID)
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE clerk_id = $1`, userColumns)

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// SubmitQuestionnaire stores the five personalization ratings and marks the
// questionnaire complete, unlocking challenge generation.
func (s *UserService) SubmitQuestionnaire(ctx context.Context, clerkID string, req *user.QuestionnaireRequest) (*user.User, error) {
	for _, r := range []int{req.Adventure, req.Creativity, req.Social, req.Fitness, req.Learning} {
		if r < 1 || r > 5 {
			return nil, fmt.Errorf("ratings must be between 1 and 5: %w", apperr.ErrValidation)
		}
	}

	query := fmt.Sprintf(`
	UPDATE users
	SET rating_adventure = $2,
		rating_creativity = $3,
		rating_social = $4,
		rating_fitness = $5,
		rating_learning = $6,
		questionnaire_completed = TRUE,
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING %s
	`, userColumns)

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID,
		req.Adventure, req.Creativity, req.Social, req.Fitness, req.Learning))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to save questionnaire: %w", err)
	}

	return u, nil
}

// GetProfile aggregates points, completed-challenge count, the daily streak,
// the social lists and a short merged activity timeline.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var completedCount int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM challenges WHERE user_id = $1 AND completed = TRUE`,
		userID).Scan(&completedCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed challenges: %w", err)
	}

	streak, err := s.currentStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	friends, err := s.listFriends(ctx, userID)
	if err != nil {
		return nil, err
	}

	requests, err := s.listIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	activity, err := s.recentActivity(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &profile.Profile{
		User:                u,
		Points:              u.Points,
		CompletedChallenges: completedCount,
		CurrentStreak:       streak,
		Friends:             friends,
		FriendRequests:      requests,
		RecentActivity:      activity,
	}, nil
}

func (s *UserService) currentStreak(ctx context.Context, userID uuid.UUID) (int, error) {
	rows, err := s.db.Query(ctx, `
	SELECT completed_at
	FROM challenges
	WHERE user_id = $1 AND completed = TRUE AND completed_at IS NOT NULL
	ORDER BY completed_at DESC
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch completions: %w", err)
	}
	defer rows.Close()

	var completions []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return 0, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, t)
	}
	if err = rows.Err(); err != nil {
		return 0, err
	}

	return utils.CurrentStreak(completions, time.Now()), nil
}

func (s *UserService) listFriends(ctx context.Context, userID uuid.UUID) ([]*user.User, error) {
	query := fmt.Sprintf(`
	SELECT %s FROM users u
	INNER JOIN friendships f ON (
		(f.user_id = $1 AND f.friend_id = u.id)
		OR
		(f.friend_id = $1 AND f.user_id = u.id)
	)
	ORDER BY u.username
	`, prefixedUserColumns("u"))

	return s.queryUsers(ctx, query, userID)
}

func (s *UserService) listIncomingRequests(ctx context.Context, userID uuid.UUID) ([]*user.User, error) {
	query := fmt.Sprintf(`
	SELECT %s FROM users u
	INNER JOIN friend_requests fr ON fr.sender_id = u.id
	WHERE fr.receiver_id = $1
	ORDER BY fr.created_at DESC
	`, prefixedUserColumns("u"))

	return s.queryUsers(ctx, query, userID)
}

func (s *UserService) queryUsers(ctx context.Context, query string, args ...any) ([]*user.User, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func prefixedUserColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.clerk_id, %[1]s.username, %[1]s.image_url, %[1]s.points,
	%[1]s.questionnaire_completed, %[1]s.rating_adventure, %[1]s.rating_creativity,
	%[1]s.rating_social, %[1]s.rating_fitness, %[1]s.rating_learning,
	%[1]s.created_at, %[1]s.updated_at`, alias)
}

// recentActivity merges the 5 most recent completed challenges and the 5 most
// recent posts, newest first, truncated to 5 total.
func (s *UserService) recentActivity(ctx context.Context, userID uuid.UUID) ([]profile.Activity, error) {
	activity := []profile.Activity{}

	rows, err := s.db.Query(ctx, `
	SELECT id, title, completed_at
	FROM challenges
	WHERE user_id = $1 AND completed = TRUE AND completed_at IS NOT NULL
	ORDER BY completed_at DESC
	LIMIT 5
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent challenges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a := profile.Activity{Kind: "challenge_completed"}
		if err := rows.Scan(&a.ID, &a.Title, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activity = append(activity, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	postRows, err := s.db.Query(ctx, `
	SELECT id, content, created_at
	FROM posts
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT 5
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent posts: %w", err)
	}
	defer postRows.Close()

	for postRows.Next() {
		a := profile.Activity{Kind: "post"}
		if err := postRows.Scan(&a.ID, &a.Title, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activity = append(activity, a)
	}
	if err = postRows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].Timestamp.After(activity[j].Timestamp)
	})
	if len(activity) > 5 {
		activity = activity[:5]
	}

	return activity, nil
}

// GetLeaderboard returns the top 100 users by points.
func (s *UserService) GetLeaderboard(ctx context.Context) ([]*profile.LeaderboardEntry, error) {
	query := `
	SELECT id, username, image_url, points,
		RANK() OVER (ORDER BY points DESC) AS rank
	FROM users
	ORDER BY points DESC, username
	LIMIT 100
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []*profile.LeaderboardEntry{}
	for rows.Next() {
		entry := &profile.LeaderboardEntry{}
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.ImageURL,
			&entry.Points,
			&entry.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// RegisterDevice stores an FCM device token for push fallback delivery.
func (s *UserService) RegisterDevice(ctx context.Context, clerkID, token, platform string) error {
	if token == "" {
		return fmt.Errorf("token is required: %w", apperr.ErrValidation)
	}

	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = $1, platform = $3
	`

	if _, err := s.db.Exec(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	return nil
}
