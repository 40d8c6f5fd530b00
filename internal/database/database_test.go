package database

import (
	"context"
	"path/filepath"
	"testing"

	"chat-client/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "state.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSlotStores(t *testing.T) {
	stores := map[string]func(t *testing.T) SlotStore{
		"memory": func(t *testing.T) SlotStore { return NewMemoryStore() },
		"bolt":   func(t *testing.T) SlotStore { return newBoltStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			checkSlotStore(t, open(t))
		})
	}
}

// checkSlotStore runs the behaviour every backend shares against store,
// which must start empty.
func checkSlotStore(t *testing.T, store SlotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, SlotToken)
	assert.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, store.Set(ctx, SlotToken, "t1"))
	require.NoError(t, store.Set(ctx, SlotToken, "t2"))
	value, err := store.Get(ctx, SlotToken)
	require.NoError(t, err)
	assert.Equal(t, "t2", value)

	require.NoError(t, store.Delete(ctx, SlotToken, "never-set"))
	_, err = store.Get(ctx, SlotToken)
	assert.ErrorIs(t, err, ErrSlotEmpty)

	creds := NewCredentials(store)
	require.NoError(t, creds.SaveToken(ctx, "tok"))
	require.NoError(t, creds.SaveAvatar(ctx, "/me.png"))
	require.NoError(t, creds.Clear(ctx))
	_, err = store.Get(ctx, SlotToken)
	assert.ErrorIs(t, err, ErrSlotEmpty)
	_, err = store.Get(ctx, SlotAvatar)
	assert.ErrorIs(t, err, ErrSlotEmpty)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := NewBoltStore(path, "alice")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, SlotAvatar, "/a.png"))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path, "alice")
	require.NoError(t, err)
	defer store.Close()

	value, err := store.Get(ctx, SlotAvatar)
	require.NoError(t, err)
	assert.Equal(t, "/a.png", value)
}

func TestCredentialsClearRemovesBothSlots(t *testing.T) {
	ctx := context.Background()
	creds := NewCredentials(NewMemoryStore())

	require.NoError(t, creds.SaveToken(ctx, "tok"))
	require.NoError(t, creds.SaveAvatar(ctx, "/me.png"))

	avatar, err := creds.Avatar(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/me.png", avatar)

	require.NoError(t, creds.Clear(ctx))

	_, err = creds.Token(ctx)
	assert.ErrorIs(t, err, ErrSlotEmpty)
	avatar, err = creds.Avatar(ctx)
	require.NoError(t, err)
	assert.Empty(t, avatar)
}

func TestOpen(t *testing.T) {
	store, err := Open(context.Background(), config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(context.Background(), config.StorageConfig{
		Driver:  "bolt",
		Path:    filepath.Join(t.TempDir(), "s.db"),
		Profile: "p",
	})
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(context.Background(), config.StorageConfig{Driver: "sqlite"})
	assert.Error(t, err)
}
