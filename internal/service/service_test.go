package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/becayis/chatcore/internal/model"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []model.Frame
	to     [][]string
}

func (b *recordingBroadcaster) Broadcast(userIDs []string, frame model.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, frame)
	b.to = append(b.to, userIDs)
}

type fixture struct {
	users         *UserService
	conversations *ConversationService
	notifications *NotificationService
	invitations   *InvitationService
	messages      *MessageService
	hub           *recordingBroadcaster
}

func newFixture() *fixture {
	f := &fixture{hub: &recordingBroadcaster{}}
	f.users = NewUserService()
	f.notifications = NewNotificationService()
	f.conversations = NewConversationService(f.users, nil)
	f.invitations = NewInvitationService(f.conversations, f.notifications)
	f.messages = NewMessageService(f.conversations, f.users, f.notifications, f.hub, nil)

	ctx := context.Background()
	f.users.Add(ctx, model.Participant{UserID: "ayse", DisplayName: "Ayşe"})
	f.users.Add(ctx, model.Participant{UserID: "mehmet", DisplayName: "Mehmet"})
	f.users.Add(ctx, model.Participant{UserID: "zeynep", DisplayName: "Zeynep"})
	return f
}

func (f *fixture) acceptedConversation(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	inv, err := f.invitations.Create(ctx, "ayse", "mehmet", "listing-1")
	require.NoError(t, err)
	resp, err := f.invitations.Respond(ctx, "mehmet", model.RespondInvitationRequest{InvitationID: inv.ID, Action: model.ActionAccept})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ConversationID)
	return resp.ConversationID
}

func TestInvitation_AcceptOpensConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	convID := f.acceptedConversation(t)

	list := f.invitations.List(ctx, "mehmet")
	require.Len(t, list.Received, 1)
	assert.Equal(t, model.InvitationAccepted, list.Received[0].Status)
	assert.Empty(t, list.Sent)

	convs := f.conversations.List(ctx, "ayse")
	require.Len(t, convs, 1)
	assert.Equal(t, convID, convs[0].ID)
	require.NotNil(t, convs[0].OtherUser)
	assert.Equal(t, "Mehmet", convs[0].OtherUser.DisplayName)

	var types []string
	for _, n := range f.notifications.List(ctx, "ayse") {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, model.NotificationInvitationAccepted)
}

func TestInvitation_RespondErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv, err := f.invitations.Create(ctx, "ayse", "mehmet", "listing-1")
	require.NoError(t, err)

	_, err = f.invitations.Create(ctx, "ayse", "mehmet", "listing-1")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.invitations.Respond(ctx, "mehmet", model.RespondInvitationRequest{InvitationID: inv.ID, Action: "maybe"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.invitations.Respond(ctx, "ayse", model.RespondInvitationRequest{InvitationID: inv.ID, Action: model.ActionAccept})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.invitations.Respond(ctx, "mehmet", model.RespondInvitationRequest{InvitationID: "missing", Action: model.ActionAccept})
	assert.ErrorIs(t, err, ErrNotFound)

	resp, err := f.invitations.Respond(ctx, "mehmet", model.RespondInvitationRequest{InvitationID: inv.ID, Action: model.ActionReject})
	require.NoError(t, err)
	assert.Empty(t, resp.ConversationID)

	_, err = f.invitations.Respond(ctx, "mehmet", model.RespondInvitationRequest{InvitationID: inv.ID, Action: model.ActionAccept})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "Bu davet zaten yanıtlanmış", Detail(err, ""))
}

func TestMessage_SendNotifiesAndBroadcasts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	convID := f.acceptedConversation(t)

	msg, err := f.messages.Send(ctx, "ayse", model.SendMessageRequest{ConversationID: convID, Content: "Merhaba"}, "rest")
	require.NoError(t, err)
	assert.Equal(t, "ayse", msg.SenderID)
	assert.False(t, msg.Read)

	history, err := f.messages.History(ctx, "mehmet", convID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Len(t, history.Participants, 2)

	notifs := f.notifications.List(ctx, "mehmet")
	require.NotEmpty(t, notifs)
	assert.Equal(t, model.NotificationMessage, notifs[0].Type)

	require.Len(t, f.hub.frames, 1)
	assert.Equal(t, model.FrameNewMessage, f.hub.frames[0].Type)
	assert.ElementsMatch(t, []string{"ayse", "mehmet"}, f.hub.to[0])
	pushed, err := f.hub.frames[0].ChatMessage()
	require.NoError(t, err)
	assert.Equal(t, msg.ID, pushed.ID)

	convs := f.conversations.List(ctx, "mehmet")
	require.Len(t, convs, 1)
	assert.True(t, convs[0].HasUnreadFrom("mehmet"))
}

func TestMessage_MarkRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	convID := f.acceptedConversation(t)
	_, err := f.messages.Send(ctx, "ayse", model.SendMessageRequest{ConversationID: convID, Content: "1"}, "rest")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "mehmet", model.SendMessageRequest{ConversationID: convID, Content: "2"}, "ws")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "ayse", model.SendMessageRequest{ConversationID: convID, Content: "3"}, "rest")
	require.NoError(t, err)

	n, err := f.messages.MarkRead(ctx, "mehmet", convID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	convs := f.conversations.List(ctx, "mehmet")
	assert.False(t, convs[0].HasUnreadFrom("mehmet"))
}

func TestMessage_AccessControl(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	convID := f.acceptedConversation(t)

	_, err := f.messages.Send(ctx, "zeynep", model.SendMessageRequest{ConversationID: convID, Content: "x"}, "rest")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.messages.History(ctx, "ayse", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.users.Block(ctx, "mehmet", "ayse"))
	_, err = f.messages.Send(ctx, "ayse", model.SendMessageRequest{ConversationID: convID, Content: "x"}, "rest")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Bu kullanıcıya mesaj gönderemezsiniz", Detail(err, ""))

	// the blocker can still write
	_, err = f.messages.Send(ctx, "mehmet", model.SendMessageRequest{ConversationID: convID, Content: "x"}, "rest")
	assert.NoError(t, err)
}

func TestMessage_SendIsTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	f := newFixture()
	ctx := context.Background()
	convID := f.acceptedConversation(t)

	_, err := f.messages.Send(ctx, "ayse", model.SendMessageRequest{ConversationID: convID, Content: "Merhaba"}, "ws")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "zeynep", model.SendMessageRequest{ConversationID: convID, Content: "x"}, "rest")
	require.ErrorIs(t, err, ErrForbidden)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "MessageService.Send", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("conversation_id", convID))
	assert.Contains(t, spans[0].Attributes(), attribute.String("via", "ws"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestNotification_MarkReadOwnOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	n := f.notifications.Create(ctx, "ayse", "t", "m", model.NotificationInvitation)

	f.notifications.MarkRead(ctx, "mehmet", n.ID)
	assert.False(t, f.notifications.List(ctx, "ayse")[0].Read)

	f.notifications.MarkRead(ctx, "ayse", n.ID)
	assert.True(t, f.notifications.List(ctx, "ayse")[0].Read)
}
