package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-counselor/internal/model"
	"career-counselor/internal/repository"
	"career-counselor/internal/testutil"
)

func TestSessionRepositoryListOrdersByUpdatedAtDesc(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "ada@example.com")
	other := testutil.SeedUser(t, db, "bob@example.com")
	repo := repository.NewSessionRepository(db)
	clock := testutil.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var ids []uint
	for _, title := range []string{"first", "second", "third"} {
		now := clock.Now()
		s := &model.Session{UserID: user.ID, Title: title, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repo.Create(ctx, s))
		ids = append(ids, s.ID)
	}
	now := clock.Now()
	require.NoError(t, repo.Create(ctx, &model.Session{UserID: other.ID, Title: "foreign", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, repo.Touch(ctx, ids[0], clock.Now()))

	sessions, err := repo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, []uint{ids[0], ids[2], ids[1]}, []uint{sessions[0].ID, sessions[1].ID, sessions[2].ID})
}

func TestSessionRepositoryRename(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "ada@example.com")
	repo := repository.NewSessionRepository(db)
	clock := testutil.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	now := clock.Now()
	session := &model.Session{UserID: user.ID, Title: "old", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, session))

	renamedAt := clock.Now()
	renamed, err := repo.Rename(ctx, session.ID, "new", renamedAt)
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, "new", renamed.Title)
	assert.True(t, renamed.UpdatedAt.Equal(renamedAt))

	missing, err := repo.Rename(ctx, session.ID+100, "ghost", clock.Now())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepositorySetTitleKeepsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "ada@example.com")
	repo := repository.NewSessionRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	session := &model.Session{UserID: user.ID, Title: "placeholder", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, session))
	require.NoError(t, repo.SetTitle(ctx, session.ID, "Career Switch Talk"))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Career Switch Talk", got.Title)
	assert.True(t, got.UpdatedAt.Equal(now))
}

func TestSessionRepositoryDeleteCascade(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "ada@example.com")
	sessions := repository.NewSessionRepository(db)
	messages := repository.NewMessageRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	doomed := &model.Session{UserID: user.ID, Title: "doomed", CreatedAt: now, UpdatedAt: now}
	kept := &model.Session{UserID: user.ID, Title: "kept", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, sessions.Create(ctx, doomed))
	require.NoError(t, sessions.Create(ctx, kept))
	for _, sid := range []uint{doomed.ID, doomed.ID, kept.ID} {
		require.NoError(t, messages.Create(ctx, &model.Message{SessionID: sid, Role: model.RoleUser, Content: "hi", CreatedAt: now}))
	}

	deleted, err := sessions.DeleteCascade(ctx, doomed.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	left, err := messages.ListBySessionID(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	keptCount, err := messages.CountBySessionID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), keptCount)

	again, err := sessions.DeleteCascade(ctx, doomed.ID)
	require.NoError(t, err)
	assert.False(t, again)
}
