package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boldlyAPI/internal/realtime"
	"boldlyAPI/internal/types/challenge"
	"boldlyAPI/internal/types/message"
	"boldlyAPI/services"
	"boldlyAPI/tests/helpers"
)

func TestDirectMessageThread(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("msg_a")
	bClerk := testClerkID("msg_b")
	aID := helpers.CreateTestUser(t, pool, aClerk, "msg-a")
	bID := helpers.CreateTestUser(t, pool, bClerk, "msg-b")

	registry := realtime.NewRegistry()
	notifier := services.NewNotifier(registry, nil)
	messageService := services.NewMessageService(pool, notifier)
	ctx := context.Background()

	first, err := messageService.Send(ctx, aClerk, &message.SendMessageRequest{
		ReceiverID: bID.String(),
		Content:    "hey",
	})
	require.NoError(t, err)
	assert.Equal(t, message.TypeText, first.Type)

	_, err = messageService.Send(ctx, bClerk, &message.SendMessageRequest{
		ReceiverID: aID.String(),
		Content:    "hey back",
	})
	require.NoError(t, err)

	// Both sides see the same thread, oldest first.
	aView, err := messageService.ListMessages(ctx, aClerk, bID)
	require.NoError(t, err)
	require.Len(t, aView, 2)
	assert.Equal(t, "hey", aView[0].Content)
	assert.Equal(t, "hey back", aView[1].Content)

	bView, err := messageService.ListMessages(ctx, bClerk, aID)
	require.NoError(t, err)
	require.Len(t, bView, 2)
	assert.Equal(t, aView[0].ID, bView[0].ID)
}

func TestSendValidation(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	aClerk := testClerkID("msgv")
	helpers.CreateTestUser(t, pool, aClerk, "msgv-user")

	registry := realtime.NewRegistry()
	notifier := services.NewNotifier(registry, nil)
	messageService := services.NewMessageService(pool, notifier)
	ctx := context.Background()

	_, err := messageService.Send(ctx, aClerk, &message.SendMessageRequest{
		ReceiverID: uuid.New().String(),
	})
	require.Error(t, err, "empty content is rejected")

	_, err = messageService.Send(ctx, aClerk, &message.SendMessageRequest{
		ReceiverID: "not-a-uuid",
		Content:    "hello",
	})
	require.Error(t, err, "malformed receiver id is rejected")

	_, err = messageService.Send(ctx, aClerk, &message.SendMessageRequest{
		ReceiverID: uuid.New().String(),
		Content:    "hello",
	})
	require.Error(t, err, "unknown receiver is rejected")
}

func TestChallengeMessageStatusVisibleToBothSides(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creatorClerk := testClerkID("cmsg_a")
	recipientClerk := testClerkID("cmsg_b")
	creatorID := helpers.CreateTestUser(t, pool, creatorClerk, "cmsg-creator")
	recipientID := helpers.CreateTestUser(t, pool, recipientClerk, "cmsg-recipient")

	challengeService, messageService, _ := newChallengeStack(pool)
	ctx := context.Background()

	c, err := challengeService.Accept(ctx, creatorClerk, &challenge.Proposal{
		Title:      "Run a mile",
		Difficulty: challenge.DifficultyEasy,
	})
	require.NoError(t, err)

	require.NoError(t, challengeService.Share(ctx, creatorClerk, c.ID, []uuid.UUID{recipientID}))

	// The share itself produced a pending challenge message.
	creatorView, err := messageService.ListMessages(ctx, creatorClerk, recipientID)
	require.NoError(t, err)
	require.Len(t, creatorView, 1)
	assert.Equal(t, message.TypeChallengeShare, creatorView[0].Type)
	assert.Equal(t, string(challenge.RecipientPending), creatorView[0].Status)

	require.NoError(t, challengeService.UpdateRecipientStatus(ctx, recipientClerk, c.ID, challenge.RecipientAccepted))

	// After the recipient accepts, both views project the same status.
	creatorView, err = messageService.ListMessages(ctx, creatorClerk, recipientID)
	require.NoError(t, err)
	require.Len(t, creatorView, 1)
	assert.Equal(t, string(challenge.RecipientAccepted), creatorView[0].Status)

	recipientView, err := messageService.ListMessages(ctx, recipientClerk, creatorID)
	require.NoError(t, err)
	require.Len(t, recipientView, 1)
	assert.Equal(t, string(challenge.RecipientAccepted), recipientView[0].Status)
}
