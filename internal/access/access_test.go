package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlenko/lagerdb/internal/db"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

func seedOverview(t *testing.T, database store.Querier, slug string, active bool, order int) *model.Overview {
	t.Helper()
	overview, err := store.CreateOverview(context.Background(), database, &model.Overview{
		Name:     slug,
		Slug:     slug,
		Order:    order,
		IsActive: active,
	})
	require.NoError(t, err)
	return overview
}

func TestVisibleOverviews(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	lab := seedOverview(t, database, "lab", true, 2)
	office := seedOverview(t, database, "office", true, 1)
	seedOverview(t, database, "archive", false, 3)

	admin, err := store.CreateUser(ctx, database, "admin", "x", model.RoleAdmin)
	require.NoError(t, err)
	limited, err := store.CreateUser(ctx, database, "limited", "x", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SetAllowedOverviews(ctx, database, limited.ID, []int64{lab.ID}))
	nobody, err := store.CreateUser(ctx, database, "nobody", "x", model.RoleUser)
	require.NoError(t, err)

	// Admins see every active overview, in display order.
	visible, err := VisibleOverviews(ctx, database, admin)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	require.Equal(t, office.ID, visible[0].ID)
	require.Equal(t, lab.ID, visible[1].ID)

	// Regular users see only their allow-list.
	visible, err = VisibleOverviews(ctx, database, limited)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, lab.ID, visible[0].ID)

	// No allow-list means no access, not an error.
	visible, err = VisibleOverviews(ctx, database, nobody)
	require.NoError(t, err)
	require.Empty(t, visible)

	// Unauthenticated callers see nothing.
	visible, err = VisibleOverviews(ctx, database, nil)
	require.NoError(t, err)
	require.Empty(t, visible)
}

func TestCanSee(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	lab := seedOverview(t, database, "lab", true, 1)
	archive := seedOverview(t, database, "archive", false, 2)

	admin, err := store.CreateUser(ctx, database, "admin", "x", model.RoleAdmin)
	require.NoError(t, err)
	limited, err := store.CreateUser(ctx, database, "limited", "x", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SetAllowedOverviews(ctx, database, limited.ID, []int64{lab.ID, archive.ID}))

	ok, err := CanSee(ctx, database, admin, lab.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = CanSee(ctx, database, limited, lab.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Inactive overviews are invisible to everyone, admins included.
	ok, err = CanSee(ctx, database, admin, archive.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = CanSee(ctx, database, limited, archive.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// Unknown overview ids resolve to no access.
	ok, err = CanSee(ctx, database, admin, 999)
	require.NoError(t, err)
	require.False(t, ok)
}
