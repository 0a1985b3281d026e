package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/repo"
	"tasktracker/internal/service"
	"tasktracker/internal/testutil"
)

func TestCategoryLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := service.NewCategoryService(repo.NewCategoryRepo(db), nil, 0)

	_, err := svc.Create(ctx, "  ", "")
	assert.ErrorIs(t, err, service.ErrValidation)

	home, err := svc.Create(ctx, " Home ", "chores")
	require.NoError(t, err)
	assert.Equal(t, "Home", home.Name)

	ok, err := svc.ExistsByName(ctx, "home")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Exists(ctx, home.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	upd, err := svc.Update(ctx, home.ID, "House", "")
	require.NoError(t, err)
	assert.Equal(t, "House", upd.Name)
	_, err = svc.Update(ctx, "missing", "x", "")
	assert.ErrorIs(t, err, service.ErrCategoryNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "House", all[0].Name)

	require.NoError(t, svc.Delete(ctx, home.ID))
	assert.ErrorIs(t, svc.Delete(ctx, home.ID), service.ErrCategoryNotFound)
	_, err = svc.Get(ctx, home.ID)
	assert.ErrorIs(t, err, service.ErrCategoryNotFound)
}
