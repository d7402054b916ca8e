package model

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates live channel envelopes.
type FrameType string

const (
	// FrameNewMessage pushes a message created in a conversation.
	FrameNewMessage FrameType = "new_message"
	// FrameTyping signals that a participant is composing.
	FrameTyping FrameType = "typing"
	// FrameRead acknowledges that incoming messages were displayed.
	FrameRead FrameType = "read"
	// FrameMessage carries an outgoing message on the live path.
	FrameMessage FrameType = "message"
	// FrameError reports a server-side problem to the user.
	FrameError FrameType = "error"
)

// Frame is one JSON envelope on the live channel. Message holds a Message
// object for new_message frames and a string for error frames.
type Frame struct {
	Type           FrameType       `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Content        string          `json:"content,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
}

// NewMessageFrame builds a new_message frame.
func NewMessageFrame(msg Message) (Frame, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	return Frame{Type: FrameNewMessage, ConversationID: msg.ConversationID, Message: raw}, nil
}

// TypingFrame builds a typing frame.
func TypingFrame(conversationID string) Frame {
	return Frame{Type: FrameTyping, ConversationID: conversationID}
}

// ReadFrame builds a read frame.
func ReadFrame(conversationID string) Frame {
	return Frame{Type: FrameRead, ConversationID: conversationID}
}

// OutgoingMessageFrame builds a message frame for the live send path.
func OutgoingMessageFrame(conversationID, content string) Frame {
	return Frame{Type: FrameMessage, ConversationID: conversationID, Content: content}
}

// ErrorFrame builds an error frame.
func ErrorFrame(text string) Frame {
	raw, _ := json.Marshal(text)
	return Frame{Type: FrameError, Message: raw}
}

// ChatMessage decodes the message payload of a new_message frame.
func (f Frame) ChatMessage() (*Message, error) {
	if f.Type != FrameNewMessage {
		return nil, fmt.Errorf("frame %q carries no chat message", f.Type)
	}
	if len(f.Message) == 0 {
		return nil, fmt.Errorf("new_message frame without message")
	}
	var msg Message
	if err := json.Unmarshal(f.Message, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if msg.ConversationID == "" {
		msg.ConversationID = f.ConversationID
	}
	return &msg, nil
}

// ErrorText returns the text of an error frame.
func (f Frame) ErrorText() string {
	var text string
	if err := json.Unmarshal(f.Message, &text); err != nil {
		return string(f.Message)
	}
	return text
}

// DecodeFrame parses one envelope. A missing type is an error.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("frame without type")
	}
	return f, nil
}
