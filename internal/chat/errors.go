// Package chat holds the per-conversation core: message store, typing
// tracker, delivery router and the view that owns them.
package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every *FetchError.
	ErrFetch = errors.New("failed to load conversation history")
	// ErrSend matches every *SendError.
	ErrSend = errors.New("failed to send message")
	// ErrEmptyMessage is returned for empty or whitespace-only content.
	ErrEmptyMessage = errors.New("message is empty")
)

// FetchError reports a failed history load.
type FetchError struct {
	ConversationID string
	Err            error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load conversation %s: %v", e.ConversationID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// SendError reports an outgoing message that was not accepted.
type SendError struct {
	Path Path
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send message via %s: %v", e.Path, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func (e *SendError) Is(target error) bool { return target == ErrSend }
