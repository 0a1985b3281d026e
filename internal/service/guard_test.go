package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/domain"
	"tasktracker/internal/repo"
	"tasktracker/internal/service"
	"tasktracker/internal/testutil"
)

func TestRequireOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	guard := service.NewAccessGuard(repo.NewUserRepo(db), repo.NewTaskRepo(db))

	alice := testutil.CreateUser(t, db, "alice", "")
	testutil.CreateUser(t, db, "bob", "")
	tk := testutil.CreateTask(t, db, alice, "mine", domain.StatusPending, domain.PriorityLow, nil)

	got, err := guard.RequireOwnership(ctx, "alice", tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
	assert.True(t, guard.CanAccess(ctx, "alice", tk.ID))

	_, err = guard.RequireOwnership(ctx, "bob", tk.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	// 别人的任务和不存在的任务看起来一样
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.False(t, guard.CanAccess(ctx, "bob", tk.ID))

	_, err = guard.RequireOwnership(ctx, "alice", "no-such-task")
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.False(t, errors.Is(err, service.ErrForbidden))

	_, err = guard.RequireOwnership(ctx, "mallory", tk.ID)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}
