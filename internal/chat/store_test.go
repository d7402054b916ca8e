package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/transport"
)

func msg(id, conv string) model.Message {
	return model.Message{ID: id, ConversationID: conv, SenderID: "u2", Content: "içerik " + id}
}

func TestStore_LoadHistoryReplaces(t *testing.T) {
	api := newFakeAPI()
	api.history["c1"] = []model.Message{msg("m1", "c1"), msg("m2", "c1")}
	store := NewStore("c1", api, nil, nil)

	require.True(t, store.Append(msg("local", "c1")))

	got, err := store.LoadHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"m1", "m2"}, ids(store.Messages()))
	assert.Len(t, store.Participants(), 2)
}

func TestStore_AppendDedupesAndFilters(t *testing.T) {
	store := NewStore("c1", newFakeAPI(), nil, nil)

	changes := 0
	store.OnChange(func() { changes++ })

	assert.True(t, store.Append(msg("m1", "c1")))
	assert.False(t, store.Append(msg("m1", "c1")))
	assert.False(t, store.Append(msg("m2", "c2")))
	assert.True(t, store.Append(msg("m3", "c1")))

	assert.Equal(t, []string{"m1", "m3"}, ids(store.Messages()))
	assert.Equal(t, 2, changes)
}

func TestStore_LoadFailureKeepsSequence(t *testing.T) {
	api := newFakeAPI()
	api.history["c1"] = []model.Message{msg("m1", "c1")}
	store := NewStore("c1", api, nil, nil)
	_, err := store.LoadHistory(context.Background(), "c1")
	require.NoError(t, err)

	cause := errors.New("boom")
	api.historyErr = cause
	_, err = store.LoadHistory(context.Background(), "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, cause)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "c1", fetchErr.ConversationID)
	assert.Equal(t, 1, store.Len())
}

func TestStore_AppendDuringLoadSurvivesReplace(t *testing.T) {
	api := newFakeAPI()
	api.history["c1"] = []model.Message{msg("m1", "c1")}
	api.release = make(chan struct{})
	api.started = make(chan struct{}, 1)
	store := NewStore("c1", api, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := store.LoadHistory(context.Background(), "c1")
		done <- err
	}()
	<-api.started

	// arrives live while the snapshot is being fetched
	store.Append(msg("m2", "c1"))
	// already part of the snapshot
	store.Append(msg("m1", "c1"))
	close(api.release)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"m1", "m2"}, ids(store.Messages()))
}

func TestStore_SwitchConversationResets(t *testing.T) {
	api := newFakeAPI()
	api.history["c2"] = []model.Message{msg("x1", "c2")}
	store := NewStore("c1", api, nil, nil)
	store.Append(msg("m1", "c1"))

	_, err := store.LoadHistory(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", store.ConversationID())
	assert.Equal(t, []string{"x1"}, ids(store.Messages()))
	assert.False(t, store.Append(msg("m5", "c1")))
}

func TestStore_MarkRead(t *testing.T) {
	link := &fakeLink{state: transport.StateDisconnected}
	store := NewStore("c1", newFakeAPI(), link, nil)

	store.MarkRead(context.Background())
	assert.Empty(t, link.frames())

	link.state = transport.StateConnected
	store.MarkRead(context.Background())
	frames := link.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, model.ReadFrame("c1"), frames[0])
	assert.Equal(t, 0, store.Len())
}

func ids(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
