package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medassist-ai/internal/kvstore"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

type failingStore struct {
	kvstore.Store
	failSet    bool
	failDelete map[string]bool
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	if f.failDelete[key] {
		return errors.New("permission denied")
	}
	return f.Store.Delete(ctx, key)
}

func TestAdapter_AuthRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(kvstore.NewMemoryStore(), logging.Discard())

	token, err := a.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, a.SaveAuth(ctx, "tok-1", "alice"))

	token, err = a.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	name, err := a.Username(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	require.Error(t, a.SaveAuth(ctx, "", "bob"))
}

func TestAdapter_ConversationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(kvstore.NewMemoryStore(), logging.Discard())

	list, err := a.Conversations(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	conv := medical.Conversation{ID: "1700000000000", Title: "Chat at x"}
	conv.Messages = []medical.Message{
		medical.UserMessage("chest pain"),
		medical.PendingMessage(),
	}
	require.NoError(t, a.SaveConversations(ctx, []medical.Conversation{conv}))

	loaded, err := a.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, conv, loaded[0])
	assert.True(t, loaded[0].AwaitingReport())
}

func TestAdapter_CorruptSnapshotDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyConversations, "{oops"))

	a := New(store, logging.Discard())
	list, err := a.Conversations(ctx)
	require.ErrorIs(t, err, ErrCorruptSnapshot)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAdapter_NullSnapshotIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyConversations, "null"))

	list, err := New(store, logging.Discard()).Conversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []medical.Conversation{}, list)
}

func TestAdapter_ClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	a := New(store, logging.Discard())

	require.NoError(t, a.SaveAuth(ctx, "tok", "alice"))
	require.NoError(t, a.SaveConversations(ctx, nil))
	require.NoError(t, a.Clear(ctx))
	assert.Empty(t, store.Keys())
}

func TestAdapter_ClearAttemptsAllKeys(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemoryStore()
	store := &failingStore{Store: mem, failDelete: map[string]bool{KeyToken: true}}
	a := New(store, logging.Discard())

	require.NoError(t, mem.Set(ctx, KeyToken, "tok"))
	require.NoError(t, mem.Set(ctx, KeyUsername, "alice"))

	err := a.Clear(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete token")
	assert.Equal(t, []string{KeyToken}, mem.Keys())
}

func TestAdapter_SaveErrorsAreWrapped(t *testing.T) {
	a := New(&failingStore{Store: kvstore.NewMemoryStore(), failSet: true}, logging.Discard())
	err := a.SaveConversations(context.Background(), []medical.Conversation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistence: save conversations")
}
