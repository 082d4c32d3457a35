package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/services"
	"boldlyAPI/tests/helpers"
)

func TestFriendAcceptanceIsMutual(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("friend_a")
	bClerk := testClerkID("friend_b")
	aID := helpers.CreateTestUser(t, pool, aClerk, "friend-a")
	bID := helpers.CreateTestUser(t, pool, bClerk, "friend-b")

	userService := services.NewUserService(pool)
	friendService := services.NewFriendService(pool, userService)
	ctx := context.Background()

	require.NoError(t, friendService.SendFriendRequest(ctx, aClerk, bID))

	incoming, err := friendService.ListIncomingRequests(ctx, bClerk)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, aID, incoming[0].ID)

	require.NoError(t, friendService.AcceptFriendRequest(ctx, bClerk, aID))

	aFriends, err := friendService.ListFriends(ctx, aClerk)
	require.NoError(t, err)
	require.Len(t, aFriends, 1)
	assert.Equal(t, bID, aFriends[0].ID)

	bFriends, err := friendService.ListFriends(ctx, bClerk)
	require.NoError(t, err)
	require.Len(t, bFriends, 1)
	assert.Equal(t, aID, bFriends[0].ID)

	incoming, err = friendService.ListIncomingRequests(ctx, bClerk)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestSendFriendRequestIsIdempotent(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("idem_a")
	bClerk := testClerkID("idem_b")
	helpers.CreateTestUser(t, pool, aClerk, "idem-a")
	bID := helpers.CreateTestUser(t, pool, bClerk, "idem-b")

	userService := services.NewUserService(pool)
	friendService := services.NewFriendService(pool, userService)
	ctx := context.Background()

	require.NoError(t, friendService.SendFriendRequest(ctx, aClerk, bID))
	require.NoError(t, friendService.SendFriendRequest(ctx, aClerk, bID))

	incoming, err := friendService.ListIncomingRequests(ctx, bClerk)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)
}

func TestSendFriendRequestToSelfRejected(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("self")
	aID := helpers.CreateTestUser(t, pool, aClerk, "self-user")

	userService := services.NewUserService(pool)
	friendService := services.NewFriendService(pool, userService)

	err := friendService.SendFriendRequest(context.Background(), aClerk, aID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRejectFriendRequestLeavesNoFriendship(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("rej_a")
	bClerk := testClerkID("rej_b")
	aID := helpers.CreateTestUser(t, pool, aClerk, "rej-a")
	bID := helpers.CreateTestUser(t, pool, bClerk, "rej-b")

	userService := services.NewUserService(pool)
	friendService := services.NewFriendService(pool, userService)
	ctx := context.Background()

	require.NoError(t, friendService.SendFriendRequest(ctx, aClerk, bID))
	require.NoError(t, friendService.RejectFriendRequest(ctx, bClerk, aID))

	friends, err := friendService.ListFriends(ctx, bClerk)
	require.NoError(t, err)
	assert.Empty(t, friends)

	incoming, err := friendService.ListIncomingRequests(ctx, bClerk)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestSearchUsersAnnotatesRelationship(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("search_a")
	bClerk := testClerkID("search_b")
	helpers.CreateTestUser(t, pool, aClerk, "searchable-target")
	bID := helpers.CreateTestUser(t, pool, bClerk, "searchable-target-two")

	userService := services.NewUserService(pool)
	friendService := services.NewFriendService(pool, userService)
	ctx := context.Background()

	require.NoError(t, friendService.SendFriendRequest(ctx, aClerk, bID))

	results, err := friendService.SearchUsers(ctx, aClerk, "searchable-target")
	require.NoError(t, err)
	require.Len(t, results, 1, "caller is excluded from search results")
	assert.Equal(t, bID, results[0].ID)
	assert.False(t, results[0].IsFriend)
	assert.True(t, results[0].RequestSent)

	// Exact id lookup.
	byID, err := friendService.SearchUsers(ctx, aClerk, bID.String())
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, bID, byID[0].ID)

	// An unknown id parses but matches nothing.
	none, err := friendService.SearchUsers(ctx, aClerk, uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, none)
}
