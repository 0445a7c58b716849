package assets

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets.json")
	store, err := OpenJSONStore(path)
	require.NoError(t, err)
	return store, path
}

func TestResolveSlotAllocatesLowestFree(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	r, err := NewRegistry(ctx, store, 1, 10)
	require.NoError(t, err)

	a, err := r.ResolveSlot(ctx, "uid-display", "Main Display", "display")
	require.NoError(t, err)
	b, err := r.ResolveSlot(ctx, "uid-codec", "Room Codec", "codec")
	require.NoError(t, err)

	assert.Equal(t, 1, a.Slot)
	assert.Equal(t, 2, b.Slot)
	assert.NotEmpty(t, a.InstanceID)
	assert.NotEqual(t, a.InstanceID, b.InstanceID)
}

func TestResolveSlotIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	r, err := NewRegistry(ctx, store, 1, 10)
	require.NoError(t, err)

	first, err := r.ResolveSlot(ctx, "uid-display", "Main Display", "display")
	require.NoError(t, err)
	again, err := r.ResolveSlot(ctx, "uid-display", "Main Display", "display")
	require.NoError(t, err)

	assert.Equal(t, first, again, "same identity must resolve to the same binding")

	persisted, err := store.LoadBindings(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, 1, "re-resolving must not append a second row")
}

func TestBindingsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)
	r, err := NewRegistry(ctx, store, 1, 10)
	require.NoError(t, err)

	before, err := r.ResolveSlot(ctx, "uid-display", "Main Display", "display")
	require.NoError(t, err)

	reopened, err := OpenJSONStore(path)
	require.NoError(t, err)
	r2, err := NewRegistry(ctx, reopened, 1, 10)
	require.NoError(t, err)

	after, err := r2.ResolveSlot(ctx, "uid-display", "Main Display", "display")
	require.NoError(t, err)
	assert.Equal(t, before, after, "binding must be reused verbatim after restart")
	assert.Equal(t, before.InstanceID, after.InstanceID)
}

func TestPoolExhaustion(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	r, err := NewRegistry(ctx, store, 1, 3)
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, id := range []string{"uid-a", "uid-b", "uid-c"} {
		b, err := r.ResolveSlot(ctx, id, id, "display")
		require.NoError(t, err)
		assert.False(t, seen[b.Slot], "slots must be distinct")
		seen[b.Slot] = true
	}

	_, err = r.ResolveSlot(ctx, "uid-d", "uid-d", "display")
	assert.ErrorIs(t, err, ErrPoolExhausted)

	// Existing identities still resolve after exhaustion.
	b, err := r.ResolveSlot(ctx, "uid-a", "uid-a", "display")
	require.NoError(t, err)
	assert.True(t, seen[b.Slot])
}

func TestCorruptTableRejectedAtLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")
	corrupt := []Binding{
		{Identity: "uid-a", Slot: 2, Name: "A", Type: "display", InstanceID: "i-a"},
		{Identity: "uid-b", Slot: 2, Name: "B", Type: "codec", InstanceID: "i-b"},
	}
	data, err := json.Marshal(corrupt)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	store, err := OpenJSONStore(path)
	require.NoError(t, err)

	_, err = NewRegistry(context.Background(), store, 1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset table corrupt")
}
