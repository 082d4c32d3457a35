package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/challenge"
	"boldlyAPI/internal/types/post"
	"boldlyAPI/services"
	"boldlyAPI/tests/helpers"
)

func TestFeedPagination(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("feed")
	helpers.CreateTestUser(t, pool, clerkID, "feed-user")

	challengeService, _, _ := newChallengeStack(pool)
	postService := services.NewPostService(pool)
	ctx := context.Background()

	c, err := challengeService.Accept(ctx, clerkID, &challenge.Proposal{
		Title:      "Post twelve times",
		Difficulty: challenge.DifficultyEasy,
	})
	require.NoError(t, err)

	// Clear anything other tests left in the shared feed so the totals are
	// deterministic.
	_, err = pool.Exec(ctx, `DELETE FROM posts`)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := postService.CreatePost(ctx, clerkID, &post.CreatePostRequest{
			Content:     fmt.Sprintf("update %d", i),
			ChallengeID: c.ID.String(),
		})
		require.NoError(t, err)
	}

	page, err := postService.ListPosts(ctx, 5, 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 5)
	assert.Equal(t, 12, page.Total)
	assert.True(t, page.HasMore)

	page, err = postService.ListPosts(ctx, 5, 10)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
	assert.False(t, page.HasMore)
}

func TestCreatePostRequiresOwnedChallenge(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ownerClerk := testClerkID("owner")
	otherClerk := testClerkID("other")
	helpers.CreateTestUser(t, pool, ownerClerk, "post-owner")
	helpers.CreateTestUser(t, pool, otherClerk, "post-other")

	challengeService, _, _ := newChallengeStack(pool)
	postService := services.NewPostService(pool)
	ctx := context.Background()

	c, err := challengeService.Accept(ctx, ownerClerk, &challenge.Proposal{
		Title:      "Owned challenge",
		Difficulty: challenge.DifficultyEasy,
	})
	require.NoError(t, err)

	_, err = postService.CreatePost(ctx, otherClerk, &post.CreatePostRequest{
		Content:     "not mine",
		ChallengeID: c.ID.String(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = postService.CreatePost(ctx, ownerClerk, &post.CreatePostRequest{
		ChallengeID: c.ID.String(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestLikesAreAppendedWithoutDeduplication(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("likes")
	userID := helpers.CreateTestUser(t, pool, clerkID, "likes-user")

	challengeService, _, _ := newChallengeStack(pool)
	postService := services.NewPostService(pool)
	ctx := context.Background()

	c, err := challengeService.Accept(ctx, clerkID, &challenge.Proposal{
		Title:      "Like this",
		Difficulty: challenge.DifficultyEasy,
	})
	require.NoError(t, err)

	p, err := postService.CreatePost(ctx, clerkID, &post.CreatePostRequest{
		Content:     "done",
		ChallengeID: c.ID.String(),
	})
	require.NoError(t, err)

	likes, err := postService.Like(ctx, clerkID, p.ID)
	require.NoError(t, err)
	assert.Len(t, likes, 1)

	likes, err = postService.Like(ctx, clerkID, p.ID)
	require.NoError(t, err)
	require.Len(t, likes, 2, "repeated likes accumulate")
	assert.Equal(t, userID, likes[0])
	assert.Equal(t, userID, likes[1])
}

func TestCommentsReturnFullList(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clerkID := testClerkID("comments")
	helpers.CreateTestUser(t, pool, clerkID, "comments-user")

	challengeService, _, _ := newChallengeStack(pool)
	postService := services.NewPostService(pool)
	ctx := context.Background()

	c, err := challengeService.Accept(ctx, clerkID, &challenge.Proposal{
		Title:      "Comment on this",
		Difficulty: challenge.DifficultyEasy,
	})
	require.NoError(t, err)

	p, err := postService.CreatePost(ctx, clerkID, &post.CreatePostRequest{
		Content:     "done",
		ChallengeID: c.ID.String(),
	})
	require.NoError(t, err)

	_, err = postService.Comment(ctx, clerkID, p.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	comments, err := postService.Comment(ctx, clerkID, p.ID, "nice one")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice one", comments[0].Content)

	comments, err = postService.Comment(ctx, clerkID, p.ID, "second")
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}
