package inventory

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlenko/lagerdb/internal/db"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/query"
	"github.com/mlenko/lagerdb/internal/store"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	return NewService(database, nil, nil, nil), database
}

func seedAdmin(t *testing.T, database *sql.DB) *model.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), database, "admin", "x", model.RoleAdmin)
	require.NoError(t, err)
	return user
}

func seedUser(t *testing.T, database *sql.DB, username string, overviewIDs ...int64) *model.User {
	t.Helper()
	ctx := context.Background()
	user, err := store.CreateUser(ctx, database, username, "x", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SetAllowedOverviews(ctx, database, user.ID, overviewIDs))
	return user
}

func seedOverview(t *testing.T, database *sql.DB, slug string, features model.Features) *model.Overview {
	t.Helper()
	overview, err := store.CreateOverview(context.Background(), database, &model.Overview{
		Name:     slug,
		Slug:     slug,
		IsActive: true,
		Features: features,
	})
	require.NoError(t, err)
	return overview
}

func itemHistory(t *testing.T, database *sql.DB, itemID int64) []model.HistoryEntry {
	t.Helper()
	entries, err := store.ListItemHistory(context.Background(), database, itemID)
	require.NoError(t, err)
	return entries
}

func TestCreateItemRecordsCreation(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "consumables", model.Features{IsConsumableMode: true})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Solder wire", Quantity: 3})
	require.NoError(t, err)
	require.NotEmpty(t, item.Barcode)
	require.NotEmpty(t, item.NFCToken)
	require.Equal(t, model.ItemTypeConsumable, item.ItemType)
	require.True(t, item.IsActive)

	entries := itemHistory(t, database, item.ID)
	require.Len(t, entries, 1)
	require.Equal(t, model.ActionCreated, entries[0].Action)
	require.Nil(t, entries[0].DataBefore)
	require.NotNil(t, entries[0].DataAfter)
	require.Equal(t, 3, entries[0].DataAfter.Quantity)
}

func TestCreateItemRejectsInvisibleOverview(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	overview := seedOverview(t, database, "lab", model.Features{})
	outsider := seedUser(t, database, "outsider")

	_, err := svc.CreateItem(ctx, outsider, overview.ID, ItemInput{Name: "Probe"})
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestUpdateItemSplitsMovementFromOtherChanges(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{
		Name: "Multimeter", Quantity: 5, LocationLetter: "A",
	})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{
		Name: "Multimeter Pro", Quantity: 5, LocationLetter: "B",
	})
	require.NoError(t, err)

	// Newest first: the update entry, then the movement, then creation.
	entries := itemHistory(t, database, item.ID)
	require.Len(t, entries, 3)
	require.Equal(t, model.ActionUpdated, entries[0].Action)
	require.Equal(t, model.ActionMovement, entries[1].Action)
	require.Equal(t, model.ActionCreated, entries[2].Action)

	// The movement entry carries only the location facet.
	require.Len(t, entries[1].Changes, 1)
	require.Equal(t, "location_letter", entries[1].Changes[0].Field)
	require.Equal(t, "A", entries[1].Changes[0].Before)
	require.Equal(t, "B", entries[1].Changes[0].After)

	require.Len(t, entries[0].Changes, 1)
	require.Equal(t, "name", entries[0].Changes[0].Field)

	// Both carry the full snapshots of the same edit.
	require.Equal(t, entries[1].DataBefore, entries[0].DataBefore)
	require.Equal(t, entries[1].DataAfter, entries[0].DataAfter)
}

func TestUpdateItemQuantityOnlyClassifiesAsAdjustment(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Cable", Quantity: 5})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{Name: "Cable", Quantity: 2})
	require.NoError(t, err)

	entries := itemHistory(t, database, item.ID)
	require.Len(t, entries, 2)
	require.Equal(t, model.ActionQuantityAdjusted, entries[0].Action)
	require.NotNil(t, entries[0].Changes[0].Delta)
	require.Equal(t, -3, *entries[0].Changes[0].Delta)
}

func TestUpdateItemWithoutChangesRecordsNothing(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Cable", Quantity: 5})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{Name: "Cable", Quantity: 5})
	require.NoError(t, err)

	require.Len(t, itemHistory(t, database, item.ID), 1)
}

func TestAdjustQuantityFlooredAtZero(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "consumables", model.Features{EnableQuickAdjust: true})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Flux", Quantity: 1})
	require.NoError(t, err)

	item, err = svc.AdjustQuantity(ctx, admin, item.ID, -1)
	require.NoError(t, err)
	require.Equal(t, 0, item.Quantity)

	// Applying the decrement at zero changes nothing and records nothing.
	item, err = svc.AdjustQuantity(ctx, admin, item.ID, -1)
	require.NoError(t, err)
	require.Equal(t, 0, item.Quantity)

	entries := itemHistory(t, database, item.ID)
	require.Len(t, entries, 2)
	require.Equal(t, model.ActionQuantityAdjusted, entries[0].Action)
	require.Equal(t, "quick_adjust", entries[0].Meta["source"])
}

func TestAdjustQuantityRequiresFeatureFlag(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Probe", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(ctx, admin, item.ID, 1)
	require.ErrorIs(t, err, ErrQuickAdjustDisabled)
}

func TestBorrowAndReturnConserveQuantity(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{EnableBorrow: true})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Multimeter", Quantity: 10})
	require.NoError(t, err)

	record, err := svc.Borrow(ctx, admin, item.ID, BorrowInput{Borrower: "ana", Quantity: 3})
	require.NoError(t, err)
	require.False(t, record.Returned)

	got, err := store.GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.Quantity)

	_, err = svc.Return(ctx, admin, record.ID)
	require.NoError(t, err)

	got, err = store.GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.Quantity)

	// A second return must not double-credit.
	_, err = svc.Return(ctx, admin, record.ID)
	require.ErrorIs(t, err, ErrAlreadyReturned)

	got, err = store.GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.Quantity)

	entries := itemHistory(t, database, item.ID)
	require.Len(t, entries, 3)
	require.Equal(t, model.ActionReturned, entries[0].Action)
	require.Equal(t, model.ActionBorrowed, entries[1].Action)
	require.Equal(t, "ana", entries[1].Meta["borrower"])
}

func TestBorrowRejectsBadQuantities(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{EnableBorrow: true})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Scope", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, admin, item.ID, BorrowInput{Borrower: "bo", Quantity: 3})
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.Borrow(ctx, admin, item.ID, BorrowInput{Borrower: "bo", Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	// Neither attempt touched the stock or the history.
	got, err := store.GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Quantity)
	require.Len(t, itemHistory(t, database, item.ID), 1)
}

func TestMoveItemRequiresVisibleTarget(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	source := seedOverview(t, database, "lab", model.Features{})
	target := seedOverview(t, database, "office", model.Features{})
	limited := seedUser(t, database, "limited", source.ID)

	item, err := svc.CreateItem(ctx, admin, source.ID, ItemInput{Name: "Chair", Quantity: 1})
	require.NoError(t, err)

	_, err = svc.MoveItem(ctx, limited, item.ID, target.ID)
	require.ErrorIs(t, err, ErrNotAllowed)

	moved, err := svc.MoveItem(ctx, admin, item.ID, target.ID)
	require.NoError(t, err)
	require.Equal(t, target.ID, *moved.OverviewID)

	entries := itemHistory(t, database, item.ID)
	require.Equal(t, model.ActionUpdated, entries[0].Action)
	require.Equal(t, "move", entries[0].Meta["source"])
	require.Equal(t, "lab", entries[0].Changes[0].Before)
	require.Equal(t, "office", entries[0].Changes[0].After)
}

func TestRollbackRestoresFieldsAndTags(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})

	fragile, err := store.CreateTag(ctx, database, "fragile", nil)
	require.NoError(t, err)
	loaner, err := store.CreateTag(ctx, database, "loaner", nil)
	require.NoError(t, err)

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{
		Name: "Multimeter", Quantity: 5, LocationLetter: "A", TagIDs: []int64{fragile.ID},
	})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{
		Name: "Renamed", Quantity: 2, LocationLetter: "C", TagIDs: []int64{loaner.ID},
	})
	require.NoError(t, err)

	entries := itemHistory(t, database, item.ID)
	updateEntry := entries[0]
	require.Equal(t, model.ActionUpdated, updateEntry.Action)

	restored, err := svc.Rollback(ctx, admin, updateEntry.ID)
	require.NoError(t, err)
	require.Equal(t, "Multimeter", restored.Name)
	require.Equal(t, 5, restored.Quantity)
	require.Equal(t, "A", restored.LocationLetter)

	tagIDs, err := store.GetItemTagIDs(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{fragile.ID}, tagIDs)

	// The rollback is recorded as a fresh entry pointing at its source;
	// the original entry stays untouched.
	entries = itemHistory(t, database, item.ID)
	require.Equal(t, model.ActionRollback, entries[0].Action)
	require.EqualValues(t, updateEntry.ID, entries[0].Meta["source_history_id"])
	require.NotNil(t, entries[0].DataBefore)
	require.NotNil(t, entries[0].DataAfter)

	var kept bool
	for _, e := range entries[1:] {
		if e.ID == updateEntry.ID && e.Action == model.ActionUpdated {
			kept = true
		}
	}
	require.True(t, kept)
}

func TestRollbackWithoutPriorStateFails(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Probe", Quantity: 1})
	require.NoError(t, err)

	created := itemHistory(t, database, item.ID)[0]
	_, err = svc.Rollback(ctx, admin, created.ID)
	require.ErrorIs(t, err, ErrNoPriorState)
}

func TestRollbackRequiresAdmin(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab", model.Features{})
	regular := seedUser(t, database, "regular", overview.ID)

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{Name: "Probe", Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{Name: "Probe X", Quantity: 1})
	require.NoError(t, err)

	entry := itemHistory(t, database, item.ID)[0]
	_, err = svc.Rollback(ctx, regular, entry.ID)
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestLowStockEditLeavesLowFilter(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab-equipment", model.Features{
		ShowQuantity: true, HasMinStock: true,
	})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{
		Name: "Multimeter", Quantity: 2, LowQuantity: 3,
	})
	require.NoError(t, err)

	low, err := query.List(ctx, database, overview, query.Params{OnlyLow: "1"})
	require.NoError(t, err)
	require.Len(t, low.Items, 1)
	require.Equal(t, item.ID, low.Items[0].ID)

	_, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{
		Name: "Multimeter", Quantity: 5, LowQuantity: 3,
	})
	require.NoError(t, err)

	low, err = query.List(ctx, database, overview, query.Params{OnlyLow: "1"})
	require.NoError(t, err)
	require.Empty(t, low.Items)

	entry := itemHistory(t, database, item.ID)[0]
	require.Equal(t, model.ActionQuantityAdjusted, entry.Action)
	require.Len(t, entry.Changes, 1)
	change := entry.Changes[0]
	require.Equal(t, "quantity", change.Field)
	require.Equal(t, "2", change.Before)
	require.Equal(t, "5", change.After)
	require.NotNil(t, change.Delta)
	require.Equal(t, 3, *change.Delta)
}

// The full lifecycle: create, stock adjustments, a move across shelves,
// a borrow cycle, and a rollback, with the audit trail keeping pace.
func TestItemLifecycle(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	admin := seedAdmin(t, database)
	overview := seedOverview(t, database, "lab-equipment", model.Features{
		ShowQuantity: true, HasLocations: true, EnableBorrow: true, EnableQuickAdjust: true,
	})

	item, err := svc.CreateItem(ctx, admin, overview.ID, ItemInput{
		Name: "Multimeter", Quantity: 5, LocationLetter: "A", LocationNumber: "3",
	})
	require.NoError(t, err)

	item, err = svc.AdjustQuantity(ctx, admin, item.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 6, item.Quantity)

	item, err = svc.UpdateItem(ctx, admin, item.ID, ItemInput{
		Name: "Multimeter", Quantity: 6, LocationLetter: "B", LocationNumber: "1",
	})
	require.NoError(t, err)

	record, err := svc.Borrow(ctx, admin, item.ID, BorrowInput{Borrower: "ana", Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Return(ctx, admin, record.ID)
	require.NoError(t, err)

	entries := itemHistory(t, database, item.ID)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	require.Equal(t, []string{
		model.ActionReturned,
		model.ActionBorrowed,
		model.ActionMovement,
		model.ActionQuantityAdjusted,
		model.ActionCreated,
	}, actions)

	// Roll the movement back: the item returns to shelf A3.
	movement := entries[2]
	restored, err := svc.Rollback(ctx, admin, movement.ID)
	require.NoError(t, err)
	require.Equal(t, "A", restored.LocationLetter)
	require.Equal(t, "3", restored.LocationNumber)
	require.Equal(t, 6, restored.Quantity)
}
