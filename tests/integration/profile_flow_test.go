package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boldlyAPI/internal/types/challenge"
	"boldlyAPI/internal/types/user"
	"boldlyAPI/services"
	"boldlyAPI/tests/helpers"
)

func TestProfileAggregation(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("profile")
	userID := helpers.CreateTestUser(t, pool, clerkID, "profile-user")

	userService := services.NewUserService(pool)
	challengeService, _, _ := newChallengeStack(pool)
	ctx := context.Background()

	c, err := challengeService.Accept(ctx, clerkID, &challenge.Proposal{
		Title:      "Wake up at six",
		Difficulty: challenge.DifficultyMedium,
	})
	require.NoError(t, err)

	_, err = challengeService.Complete(ctx, clerkID, c.ID)
	require.NoError(t, err)
	_, err = challengeService.AwardPoints(ctx, clerkID, c.ID)
	require.NoError(t, err)

	p, err := userService.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Points)
	assert.Equal(t, 1, p.CompletedChallenges)
	assert.Equal(t, 1, p.CurrentStreak, "completion today starts a streak of 1")
	assert.NotEmpty(t, p.RecentActivity)
}

func TestQuestionnaireStoresRatings(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("quest")
	userID := helpers.CreateTestUser(t, pool, clerkID, "quest-user")

	ctx := context.Background()
	_, err := pool.Exec(ctx, `UPDATE users SET questionnaire_completed = FALSE WHERE id = $1`, userID)
	require.NoError(t, err)

	userService := services.NewUserService(pool)

	u, err := userService.SubmitQuestionnaire(ctx, clerkID, &user.QuestionnaireRequest{
		Adventure:  5,
		Creativity: 2,
		Social:     4,
		Fitness:    1,
		Learning:   3,
	})
	require.NoError(t, err)
	assert.True(t, u.QuestionnaireCompleted)
	assert.Equal(t, 5, u.Ratings.Adventure)
	assert.Equal(t, 3, u.Ratings.Learning)

	_, err = userService.SubmitQuestionnaire(ctx, clerkID, &user.QuestionnaireRequest{
		Adventure: 7,
	})
	require.Error(t, err, "ratings outside 1-5 are rejected")
}

func TestLeaderboardOrdersByPoints(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	topClerk := testClerkID("lead_top")
	lowClerk := testClerkID("lead_low")
	topID := helpers.CreateTestUser(t, pool, topClerk, "lead-top")
	lowID := helpers.CreateTestUser(t, pool, lowClerk, "lead-low")

	ctx := context.Background()
	_, err := pool.Exec(ctx, `UPDATE users SET points = 500 WHERE id = $1`, topID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE users SET points = 100 WHERE id = $1`, lowID)
	require.NoError(t, err)

	userService := services.NewUserService(pool)
	entries, err := userService.GetLeaderboard(ctx)
	require.NoError(t, err)

	var topRank, lowRank int
	for _, e := range entries {
		switch e.UserID {
		case topID:
			topRank = e.Rank
		case lowID:
			lowRank = e.Rank
		}
	}
	require.NotZero(t, topRank)
	require.NotZero(t, lowRank)
	assert.Less(t, topRank, lowRank)
}
