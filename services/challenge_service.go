package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/challenge"
	"boldlyAPI/internal/types/message"
	"boldlyAPI/internal/types/user"
)

type ChallengeService struct {
	db             *pgxpool.Pool
	generator      ChallengeGenerator
	messageService *MessageService
	notifier       *Notifier
}

func NewChallengeService(db *pgxpool.Pool, generator ChallengeGenerator, messageService *MessageService, notifier *Notifier) *ChallengeService {
	return &ChallengeService{
		db:             db,
		generator:      generator,
		messageService: messageService,
		notifier:       notifier,
	}
}

var difficultyTiers = []challenge.Difficulty{
	challenge.DifficultyEasy,
	challenge.DifficultyMedium,
	challenge.DifficultyHard,
}

// Generate produces a challenge proposal without persisting it. It requires a
// completed questionnaire; the client redirects to onboarding otherwise.
func (s *ChallengeService) Generate(ctx context.Context, clerkID string) (*challenge.Proposal, error) {
	u := struct {
		completed bool
		ratings   [5]int
	}{}

	err := s.db.QueryRow(ctx, `
	SELECT questionnaire_completed, rating_adventure, rating_creativity, rating_social, rating_fitness, rating_learning
	FROM users WHERE clerk_id = $1
	`, clerkID).Scan(&u.completed, &u.ratings[0], &u.ratings[1], &u.ratings[2], &u.ratings[3], &u.ratings[4])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !u.completed {
		return nil, fmt.Errorf("questionnaire not completed: %w", apperr.ErrPrecondition)
	}

	difficulty := difficultyTiers[rand.Intn(len(difficultyTiers))]

	title, description, tags, err := s.generator.GenerateChallenge(ctx, difficulty, ratingsFromArray(u.ratings))
	if err != nil {
		return nil, fmt.Errorf("challenge generation failed: %w", err)
	}

	return &challenge.Proposal{
		Title:       title,
		Description: description,
		Difficulty:  difficulty,
		Points:      challenge.PointsFor(difficulty),
		Deadline:    time.Now().Add(challenge.DurationFor(difficulty)),
		Tags:        tags,
	}, nil
}

func ratingsFromArray(a [5]int) (r user.Ratings) {
	r.Adventure, r.Creativity, r.Social, r.Fitness, r.Learning = a[0], a[1], a[2], a[3], a[4]
	return r
}

// Accept persists a proposal as a new owned challenge. Points and deadline are
// recomputed from the difficulty tier; any caller-supplied points are ignored.
func (s *ChallengeService) Accept(ctx context.Context, clerkID string, proposal *challenge.Proposal) (*challenge.Challenge, error) {
	if proposal.Title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrValidation)
	}
	switch proposal.Difficulty {
	case challenge.DifficultyEasy, challenge.DifficultyMedium, challenge.DifficultyHard:
	default:
		return nil, fmt.Errorf("unknown difficulty %q: %w", proposal.Difficulty, apperr.ErrValidation)
	}

	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	deadline := proposal.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(challenge.DurationFor(proposal.Difficulty))
	}
	tags := proposal.Tags
	if tags == nil {
		tags = []string{}
	}

	c := &challenge.Challenge{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       proposal.Title,
		Description: proposal.Description,
		Difficulty:  proposal.Difficulty,
		Points:      challenge.PointsFor(proposal.Difficulty),
		Deadline:    deadline,
		Tags:        tags,
	}

	err = s.db.QueryRow(ctx, `
	INSERT INTO challenges (id, user_id, title, description, difficulty, points, deadline, tags, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	RETURNING created_at
	`, c.ID, c.UserID, c.Title, c.Description, c.Difficulty, c.Points, c.Deadline, c.Tags).Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to accept challenge: %w", err)
	}

	log.Printf("Accept: user %s accepted challenge %s (%s)", userID, c.ID, c.Difficulty)
	return c, nil
}

const challengeColumns = `id, user_id, title, description, difficulty, points, completed,
	completed_at, points_awarded, deadline, tags, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.Description,
		&c.Difficulty,
		&c.Points,
		&c.Completed,
		&c.CompletedAt,
		&c.PointsAwarded,
		&c.Deadline,
		&c.Tags,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the caller's own challenges, newest first.
func (s *ChallengeService) List(ctx context.Context, clerkID string) ([]*challenge.Challenge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM challenges WHERE user_id = $1 ORDER BY created_at DESC`, challengeColumns)
	return s.queryChallenges(ctx, query, userID)
}

// ListShared returns challenges shared with the caller that they have not
// declined.
func (s *ChallengeService) ListShared(ctx context.Context, clerkID string) ([]*challenge.Challenge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	SELECT %s FROM challenges c
	INNER JOIN challenge_recipients cr ON cr.challenge_id = c.id
	WHERE cr.user_id = $1 AND cr.status != 'declined'
	ORDER BY cr.shared_at DESC
	`, prefixedChallengeColumns("c"))

	return s.queryChallenges(ctx, query, userID)
}

func prefixedChallengeColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.user_id, %[1]s.title, %[1]s.description, %[1]s.difficulty,
	%[1]s.points, %[1]s.completed, %[1]s.completed_at, %[1]s.points_awarded,
	%[1]s.deadline, %[1]s.tags, %[1]s.created_at`, alias)
}

func (s *ChallengeService) queryChallenges(ctx context.Context, query string, args ...any) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return challenges, nil
}

// Get loads a single challenge with recipients and feedback aggregates. The
// caller must be the creator or one of the recipients.
func (s *ChallengeService) Get(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.Challenge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	SELECT %s FROM challenges c
	WHERE c.id = $1 AND (
		c.user_id = $2
		OR EXISTS(SELECT 1 FROM challenge_recipients cr WHERE cr.challenge_id = c.id AND cr.user_id = $2)
	)
	`, prefixedChallengeColumns("c"))

	c, err := scanChallenge(s.db.QueryRow(ctx, query, challengeID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	if err := s.attachRecipients(ctx, c); err != nil {
		return nil, err
	}

	agg, err := s.feedbackAggregates(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Feedback = agg

	return c, nil
}

func (s *ChallengeService) attachRecipients(ctx context.Context, c *challenge.Challenge) error {
	rows, err := s.db.Query(ctx, `
	SELECT cr.challenge_id, cr.user_id, u.username, cr.status, cr.shared_at, cr.responded_at
	FROM challenge_recipients cr
	INNER JOIN users u ON u.id = cr.user_id
	WHERE cr.challenge_id = $1
	ORDER BY cr.shared_at
	`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch recipients: %w", err)
	}
	defer rows.Close()

	c.Recipients = []challenge.Recipient{}
	for rows.Next() {
		var r challenge.Recipient
		if err := rows.Scan(&r.ChallengeID, &r.UserID, &r.Username, &r.Status, &r.SharedAt, &r.RespondedAt); err != nil {
			return fmt.Errorf("failed to scan recipient: %w", err)
		}
		c.Recipients = append(c.Recipients, r)
	}
	return rows.Err()
}

func (s *ChallengeService) feedbackAggregates(ctx context.Context, challengeID uuid.UUID) (*challenge.Aggregates, error) {
	agg := &challenge.Aggregates{}
	err := s.db.QueryRow(ctx, `
	SELECT COALESCE(AVG(rating), 0), COALESCE(AVG(time_spent_minutes), 0), COUNT(*)
	FROM challenge_feedback WHERE challenge_id = $1
	`, challengeID).Scan(&agg.AverageRating, &agg.AverageTimeSpent, &agg.TotalAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	return agg, nil
}

// Complete marks an owned challenge done. Points are not credited here; that
// happens when the completion post is created and the client calls AwardPoints.
func (s *ChallengeService) Complete(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.Challenge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	UPDATE challenges
	SET completed = TRUE, completed_at = NOW(), points_awarded = FALSE
	WHERE id = $1 AND user_id = $2
	RETURNING %s
	`, challengeColumns)

	c, err := scanChallenge(s.db.QueryRow(ctx, query, challengeID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to complete challenge: %w", err)
	}

	return c, nil
}

// AwardPoints credits the challenge's points to its owner exactly once. The
// lookup predicate requires points_awarded = FALSE, so a second call finds no
// row and fails with NotFound. Flag flip and credit commit together.
func (s *ChallengeService) AwardPoints(ctx context.Context, clerkID string, challengeID uuid.UUID) (int, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var points int
	err = tx.QueryRow(ctx, `
	UPDATE challenges
	SET points_awarded = TRUE
	WHERE id = $1 AND user_id = $2 AND completed = TRUE AND points_awarded = FALSE
	RETURNING points
	`, challengeID, userID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("challenge %s not eligible for award: %w", challengeID, apperr.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to mark points awarded: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2`,
		points, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to credit points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit award: %w", err)
	}

	log.Printf("AwardPoints: credited %d points to %s for challenge %s", points, userID, challengeID)
	return points, nil
}

// SubmitFeedback appends a feedback entry and returns the recomputed
// aggregates over all entries.
func (s *ChallengeService) SubmitFeedback(ctx context.Context, clerkID string, challengeID uuid.UUID, req *challenge.FeedbackRequest) (*challenge.Aggregates, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	var ownerID uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT user_id FROM challenges WHERE id = $1`, challengeID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up challenge: %w", err)
	}
	if ownerID != userID {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO challenge_feedback (id, challenge_id, user_id, rating, enjoyment_level, productivity_score, time_spent_minutes, feedback_text, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, uuid.New(), challengeID, userID, req.Rating, req.EnjoymentLevel, req.ProductivityScore, req.TimeSpentMinutes, req.Feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	return s.feedbackAggregates(ctx, challengeID)
}

// Share forwards a challenge to other users. Only the creator can share. Each
// id not already a recipient gets a pending entry plus a challenge_share
// message, inserted in one transaction; notifications go out after commit.
func (s *ChallengeService) Share(ctx context.Context, clerkID string, challengeID uuid.UUID, recipientIDs []uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	var title string
	var ownerID uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT user_id, title FROM challenges WHERE id = $1`, challengeID).Scan(&ownerID, &title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to look up challenge: %w", err)
	}
	if ownerID != userID {
		return fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
	}

	var senderName string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&senderName); err != nil {
		return fmt.Errorf("failed to load sender: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	shared := []*message.Message{}
	for _, recipientID := range recipientIDs {
		if recipientID == userID {
			continue
		}

		result, err := tx.Exec(ctx, `
		INSERT INTO challenge_recipients (challenge_id, user_id, status, shared_at)
		SELECT $1, $2, 'pending', NOW()
		WHERE EXISTS(SELECT 1 FROM users WHERE id = $2)
		ON CONFLICT (challenge_id, user_id) DO NOTHING
		`, challengeID, recipientID)
		if err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", recipientID, err)
		}
		if result.RowsAffected() == 0 {
			// Already a recipient, or no such user.
			continue
		}

		m := &message.Message{
			ID:          uuid.New(),
			SenderID:    userID,
			ReceiverID:  recipientID,
			Content:     fmt.Sprintf("%s challenged you: %s", senderName, title),
			Type:        message.TypeChallengeShare,
			ChallengeID: &challengeID,
			Status:      string(challenge.RecipientPending),
		}

		err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, type, challenge_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
		`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.Type, m.ChallengeID).Scan(&m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create share message: %w", err)
		}

		shared = append(shared, m)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit share: %w", err)
	}

	for _, m := range shared {
		s.notifier.Notify(m.ReceiverID, "challenge_shared", m,
			"New challenge", fmt.Sprintf("%s challenged you: %s", senderName, title))
	}

	log.Printf("Share: user %s shared challenge %s with %d recipients", userID, challengeID, len(shared))
	return nil
}

// UpdateRecipientStatus records the caller's response to a shared challenge
// and re-pushes the referencing messages to both sides.
func (s *ChallengeService) UpdateRecipientStatus(ctx context.Context, clerkID string, challengeID uuid.UUID, status challenge.RecipientStatus) error {
	switch status {
	case challenge.RecipientAccepted, challenge.RecipientDeclined, challenge.RecipientCompleted:
	default:
		return fmt.Errorf("invalid recipient status %q: %w", status, apperr.ErrValidation)
	}

	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
	UPDATE challenge_recipients
	SET status = $3, responded_at = NOW()
	WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID, status)
	if err != nil {
		return fmt.Errorf("failed to update recipient status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
	}

	s.messageService.PushChallengeUpdate(ctx, challengeID, string(status))

	return nil
}

// AcceptShared clones the shared challenge's content into a brand-new
// challenge owned by the caller and marks their recipient entry accepted.
// The clone is fully independent; the original's ownership never changes.
func (s *ChallengeService) AcceptShared(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.Challenge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	orig, err := scanChallenge(s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM challenges WHERE id = $1`, challengeColumns), challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
	UPDATE challenge_recipients
	SET status = 'accepted', responded_at = NOW()
	WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept share: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
	}

	clone := &challenge.Challenge{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       orig.Title,
		Description: orig.Description,
		Difficulty:  orig.Difficulty,
		Points:      challenge.PointsFor(orig.Difficulty),
		Deadline:    time.Now().Add(challenge.DurationFor(orig.Difficulty)),
		Tags:        orig.Tags,
	}
	if clone.Tags == nil {
		clone.Tags = []string{}
	}

	err = tx.QueryRow(ctx, `
	INSERT INTO challenges (id, user_id, title, description, difficulty, points, deadline, tags, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	RETURNING created_at
	`, clone.ID, clone.UserID, clone.Title, clone.Description, clone.Difficulty, clone.Points, clone.Deadline, clone.Tags).Scan(&clone.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to clone challenge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit shared accept: %w", err)
	}

	s.messageService.PushChallengeUpdate(ctx, challengeID, string(challenge.RecipientAccepted))

	log.Printf("AcceptShared: user %s cloned challenge %s as %s", userID, challengeID, clone.ID)
	return clone, nil
}

// DeclineShared marks the caller's recipient entry declined. No challenge is
// created.
func (s *ChallengeService) DeclineShared(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	return s.UpdateRecipientStatus(ctx, clerkID, challengeID, challenge.RecipientDeclined)
}

// DeleteAllForUser removes every challenge the user created, plus their
// recipient entries on other users' challenges. Administrative surface.
func (s *ChallengeService) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM challenges WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete challenges: %w", err)
	}
	deleted := result.RowsAffected()

	if _, err := s.db.Exec(ctx, `DELETE FROM challenge_recipients WHERE user_id = $1`, userID); err != nil {
		return deleted, fmt.Errorf("failed to delete recipient entries: %w", err)
	}

	return deleted, nil
}

// ResetUser deletes the user's challenges and zeroes their point total.
func (s *ChallengeService) ResetUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE users SET points = 0, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("failed to reset points: %w", err)
	}

	return nil
}

// Cleanup deletes every challenge in the store. Administrative surface.
func (s *ChallengeService) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM challenges`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup challenges: %w", err)
	}
	return result.RowsAffected(), nil
}
