// Package access resolves which overviews a user may see. Absence of
// access is a valid, silent terminal state: the resolver never errors on
// "not found", only on storage failures.
package access

import (
	"context"

	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// VisibleOverviews returns the overviews visible to the user, ordered by
// (order, name). Unauthenticated users (nil) see nothing; admins see all
// active overviews; everyone else sees only their explicit allow-list
// filtered to active overviews. No allow-list means no access.
func VisibleOverviews(ctx context.Context, q store.Querier, user *model.User) ([]model.Overview, error) {
	if user == nil {
		return nil, nil
	}

	active, err := store.ListOverviews(ctx, q, true)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return active, nil
	}

	allowedIDs, err := store.GetAllowedOverviewIDs(ctx, q, user.ID)
	if err != nil {
		return nil, err
	}
	if len(allowedIDs) == 0 {
		return nil, nil
	}

	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}

	var visible []model.Overview
	for _, o := range active {
		if allowed[o.ID] {
			visible = append(visible, o)
		}
	}
	return visible, nil
}

// CanSee reports whether the user may access the given overview. Inactive
// overviews are invisible to everyone, including admins.
func CanSee(ctx context.Context, q store.Querier, user *model.User, overviewID int64) (bool, error) {
	if user == nil {
		return false, nil
	}

	overview, err := store.GetOverview(ctx, q, overviewID)
	if err != nil {
		return false, err
	}
	if overview == nil || !overview.IsActive {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}

	allowedIDs, err := store.GetAllowedOverviewIDs(ctx, q, user.ID)
	if err != nil {
		return false, err
	}
	for _, id := range allowedIDs {
		if id == overviewID {
			return true, nil
		}
	}
	return false, nil
}
