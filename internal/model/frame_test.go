package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_NewMessage(t *testing.T) {
	data := []byte(`{"type":"new_message","conversation_id":"c1","message":{"id":"m3","conversation_id":"c1","sender_id":"u2","content":"merhaba","read":false,"created_at":"2026-01-02T10:00:00Z"}}`)

	f, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, FrameNewMessage, f.Type)

	msg, err := f.ChatMessage()
	require.NoError(t, err)
	assert.Equal(t, "m3", msg.ID)
	assert.Equal(t, "u2", msg.SenderID)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), msg.CreatedAt.UTC())
}

func TestFrame_ChatMessageInheritsConversation(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"new_message","conversation_id":"c9","message":{"id":"m1","content":"x"}}`))
	require.NoError(t, err)

	msg, err := f.ChatMessage()
	require.NoError(t, err)
	assert.Equal(t, "c9", msg.ConversationID)
}

func TestFrame_ErrorText(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"error","message":"blocked"}`))
	require.NoError(t, err)
	assert.Equal(t, "blocked", f.ErrorText())
	assert.Equal(t, "rate limited", ErrorFrame("rate limited").ErrorText())
}

func TestDecodeFrame_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `hello`},
		{name: "missing type", data: `{"conversation_id":"c1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestFrame_ChatMessageOnWrongType(t *testing.T) {
	_, err := TypingFrame("c1").ChatMessage()
	assert.Error(t, err)
}

func TestConversation_HasUnreadFrom(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		want bool
	}{
		{name: "no last message", conv: Conversation{}, want: false},
		{name: "unread incoming", conv: Conversation{LastMessage: &Message{SenderID: "u2"}}, want: true},
		{name: "unread own", conv: Conversation{LastMessage: &Message{SenderID: "u1"}}, want: false},
		{name: "read incoming", conv: Conversation{LastMessage: &Message{SenderID: "u2", Read: true}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conv.HasUnreadFrom("u1"))
		})
	}
}
