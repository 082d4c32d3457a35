package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/realtime"
	"boldlyAPI/internal/types/challenge"
	"boldlyAPI/internal/types/user"
	"boldlyAPI/services"
	"boldlyAPI/tests/helpers"
)

// stubGenerator keeps the Gemini collaborator out of integration tests.
type stubGenerator struct{}

func (stubGenerator) GenerateChallenge(ctx context.Context, difficulty challenge.Difficulty, ratings user.Ratings) (string, string, []string, error) {
	return "Talk to a stranger", "Start a conversation with someone you have never met.", []string{"social"}, nil
}

func newChallengeStack(pool *pgxpool.Pool) (*services.ChallengeService, *services.MessageService, *realtime.Registry) {
	registry := realtime.NewRegistry()
	notifier := services.NewNotifier(registry, nil)
	messageService := services.NewMessageService(pool, notifier)
	challengeService := services.NewChallengeService(pool, stubGenerator{}, messageService, notifier)
	return challengeService, messageService, registry
}

func testClerkID(prefix string) string {
	return fmt.Sprintf("user_test_%s_%d", prefix, time.Now().UnixNano())
}

func TestChallengeLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("lifecycle")
	userID := helpers.CreateTestUser(t, pool, clerkID, "lifecycle-user")

	challengeService, _, _ := newChallengeStack(pool)
	ctx := context.Background()

	proposal, err := challengeService.Generate(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, challenge.PointsFor(proposal.Difficulty), proposal.Points)
	assert.NotEmpty(t, proposal.Title)

	c, err := challengeService.Accept(ctx, clerkID, proposal)
	require.NoError(t, err)
	assert.Equal(t, userID, c.UserID)
	assert.False(t, c.Completed)

	// Points come from difficulty even if the payload lies.
	forged := *proposal
	forged.Points = 9999
	c2, err := challengeService.Accept(ctx, clerkID, &forged)
	require.NoError(t, err)
	assert.Equal(t, challenge.PointsFor(forged.Difficulty), c2.Points)

	completed, err := challengeService.Complete(ctx, clerkID, c.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.NotNil(t, completed.CompletedAt)
	assert.False(t, completed.PointsAwarded)

	points, err := challengeService.AwardPoints(ctx, clerkID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Points, points)

	var userPoints int
	require.NoError(t, pool.QueryRow(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&userPoints))
	assert.Equal(t, c.Points, userPoints)

	// Second award finds no eligible row.
	_, err = challengeService.AwardPoints(ctx, clerkID, c.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, pool.QueryRow(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&userPoints))
	assert.Equal(t, c.Points, userPoints, "double award must not credit twice")
}

func TestGenerateRequiresQuestionnaire(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("noq")
	userID := helpers.CreateTestUser(t, pool, clerkID, "noq-user")

	ctx := context.Background()
	_, err := pool.Exec(ctx, `UPDATE users SET questionnaire_completed = FALSE WHERE id = $1`, userID)
	require.NoError(t, err)

	challengeService, _, _ := newChallengeStack(pool)

	_, err = challengeService.Generate(ctx, clerkID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPrecondition))
}

func TestAcceptSharedCreatesIndependentClone(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creatorClerk := testClerkID("creator")
	recipientClerk := testClerkID("recipient")
	creatorID := helpers.CreateTestUser(t, pool, creatorClerk, "share-creator")
	recipientID := helpers.CreateTestUser(t, pool, recipientClerk, "share-recipient")

	challengeService, _, _ := newChallengeStack(pool)
	ctx := context.Background()

	original, err := challengeService.Accept(ctx, creatorClerk, &challenge.Proposal{
		Title:       "Cold shower",
		Description: "Take a cold shower first thing in the morning.",
		Difficulty:  challenge.DifficultyMedium,
	})
	require.NoError(t, err)

	require.NoError(t, challengeService.Share(ctx, creatorClerk, original.ID, []uuid.UUID{recipientID}))

	shared, err := challengeService.ListShared(ctx, recipientClerk)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, original.ID, shared[0].ID)

	clone, err := challengeService.AcceptShared(ctx, recipientClerk, original.ID)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, clone.ID)
	assert.Equal(t, recipientID, clone.UserID)
	assert.Equal(t, original.Title, clone.Title)

	// Completing the clone leaves the original untouched.
	_, err = challengeService.Complete(ctx, recipientClerk, clone.ID)
	require.NoError(t, err)

	reloaded, err := challengeService.Get(ctx, creatorClerk, original.ID)
	require.NoError(t, err)
	assert.Equal(t, creatorID, reloaded.UserID)
	assert.False(t, reloaded.Completed)

	require.Len(t, reloaded.Recipients, 1)
	assert.Equal(t, challenge.RecipientAccepted, reloaded.Recipients[0].Status)
}

func TestDeclineSharedHidesChallenge(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creatorClerk := testClerkID("dcreator")
	recipientClerk := testClerkID("drecipient")
	helpers.CreateTestUser(t, pool, creatorClerk, "decline-creator")
	recipientID := helpers.CreateTestUser(t, pool, recipientClerk, "decline-recipient")

	challengeService, _, _ := newChallengeStack(pool)
	ctx := context.Background()

	original, err := challengeService.Accept(ctx, creatorClerk, &challenge.Proposal{
		Title:      "Learn a magic trick",
		Difficulty: challenge.DifficultyEasy,
	})
	require.NoError(t, err)

	require.NoError(t, challengeService.Share(ctx, creatorClerk, original.ID, []uuid.UUID{recipientID}))
	require.NoError(t, challengeService.DeclineShared(ctx, recipientClerk, original.ID))

	shared, err := challengeService.ListShared(ctx, recipientClerk)
	require.NoError(t, err)
	assert.Empty(t, shared)
}
