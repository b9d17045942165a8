package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
)

func storeSession(id string) *model.ConversationSession {
	return &model.ConversationSession{
		ID:          id,
		Description: "ceramic brake pad set",
		Status:      model.StatusClarifying,
		Answers:     map[string]string{},
		UpdatedAt:   time.Now(),
	}
}

func TestMemorySessionStore_Lifecycle(t *testing.T) {
	store := NewMemorySessionStore()
	defer store.Close()
	ctx := context.Background()

	session := storeSession("sess-1")
	require.NoError(t, store.Create(ctx, session))

	// Creating the same id again fails.
	err := store.Create(ctx, storeSession("sess-1"))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.Description, got.Description)

	got.Status = model.StatusCompleted
	require.NoError(t, store.Update(ctx, got))

	updated, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)

	// Delete is idempotent.
	assert.NoError(t, store.Delete(ctx, "sess-1"))
}

func TestMemorySessionStore_Update_NotFound(t *testing.T) {
	store := NewMemorySessionStore()
	defer store.Close()

	err := store.Update(context.Background(), storeSession("sess-ghost"))
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestMemorySessionStore_CloneIsolation(t *testing.T) {
	store := NewMemorySessionStore()
	defer store.Close()
	ctx := context.Background()

	session := storeSession("sess-clone")
	require.NoError(t, store.Create(ctx, session))

	// Mutating the caller's copy must not touch the stored state.
	session.Answers["material"] = "cotton"

	got, err := store.Get(ctx, "sess-clone")
	require.NoError(t, err)
	assert.Empty(t, got.Answers)

	// Mutating a returned copy must not either.
	got.Answers["material"] = "wool"
	again, err := store.Get(ctx, "sess-clone")
	require.NoError(t, err)
	assert.Empty(t, again.Answers)
}

func TestMemorySessionStore_RemoveStale(t *testing.T) {
	store := NewMemorySessionStore()
	defer store.Close()
	ctx := context.Background()

	stale := storeSession("sess-stale")
	stale.UpdatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Create(ctx, stale))

	fresh := storeSession("sess-fresh")
	require.NoError(t, store.Create(ctx, fresh))

	store.removeStale()

	_, err := store.Get(ctx, "sess-stale")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
	_, err = store.Get(ctx, "sess-fresh")
	assert.NoError(t, err)
}
