package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlenko/lagerdb/internal/db"
	"github.com/mlenko/lagerdb/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, err := CreateCategory(ctx, database, "Electronics")
	require.NoError(t, err)

	item, err := CreateItem(ctx, database, &model.Item{
		Name:       "Multimeter",
		Quantity:   5,
		ItemType:   model.ItemTypeEquipment,
		CategoryID: &category.ID,
		Barcode:    "BC-1",
		NFCToken:   "NFC-1",
		IsActive:   true,
	})
	require.NoError(t, err)
	require.NotZero(t, item.ID)
	require.Equal(t, "Electronics", item.CategoryName)
	require.False(t, item.CreatedAt.IsZero())

	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, "Multimeter", got.Name)

	missing, err := GetItem(ctx, database, 999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGetItemByBarcode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateItem(ctx, database, &model.Item{
		Name: "Scope", Quantity: 1, ItemType: model.ItemTypeEquipment,
		Barcode: "SCAN-ME", NFCToken: "NFC-2", IsActive: true,
	})
	require.NoError(t, err)

	got, err := GetItemByBarcode(ctx, database, "SCAN-ME")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Scope", got.Name)

	missing, err := GetItemByBarcode(ctx, database, "UNKNOWN")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSetItemTagsReplacesSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, &model.Item{
		Name: "Scope", Quantity: 1, ItemType: model.ItemTypeEquipment,
		Barcode: "BC-3", NFCToken: "NFC-3", IsActive: true,
	})
	require.NoError(t, err)

	a, err := CreateTag(ctx, database, "fragile", nil)
	require.NoError(t, err)
	b, err := CreateTag(ctx, database, "loaner", nil)
	require.NoError(t, err)

	require.NoError(t, SetItemTags(ctx, database, item.ID, []int64{b.ID, a.ID}))
	ids, err := GetItemTagIDs(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID, b.ID}, ids)

	require.NoError(t, SetItemTags(ctx, database, item.ID, []int64{b.ID}))
	ids, err = GetItemTagIDs(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, ids)

	require.NoError(t, SetItemTags(ctx, database, item.ID, nil))
	ids, err = GetItemTagIDs(ctx, database, item.ID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestBorrowedOpenSumsUnreturned(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, &model.Item{
		Name: "Scope", Quantity: 10, ItemType: model.ItemTypeEquipment,
		Barcode: "BC-4", NFCToken: "NFC-4", IsActive: true,
	})
	require.NoError(t, err)

	open, err := BorrowedOpen(ctx, database, item.ID)
	require.NoError(t, err)
	require.Zero(t, open)

	first, err := CreateBorrow(ctx, database, &model.BorrowRecord{ItemID: item.ID, Borrower: "ana", Quantity: 2})
	require.NoError(t, err)
	_, err = CreateBorrow(ctx, database, &model.BorrowRecord{ItemID: item.ID, Borrower: "bo", Quantity: 3})
	require.NoError(t, err)

	open, err = BorrowedOpen(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, 5, open)

	require.NoError(t, MarkReturned(ctx, database, first.ID))
	open, err = BorrowedOpen(ctx, database, item.ID)
	require.NoError(t, err)
	require.Equal(t, 3, open)

	// MarkReturned only flips once.
	got, err := GetBorrow(ctx, database, first.ID)
	require.NoError(t, err)
	require.True(t, got.Returned)
	require.NotNil(t, got.ReturnedAt)
}

func TestStorageLocationFullPath(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	root, err := CreateStorageLocation(ctx, database, "Warehouse", nil)
	require.NoError(t, err)
	cabinet, err := CreateStorageLocation(ctx, database, "Cabinet 1", &root.ID)
	require.NoError(t, err)
	shelf, err := CreateStorageLocation(ctx, database, "Shelf A", &cabinet.ID)
	require.NoError(t, err)

	all, err := ListStorageLocations(ctx, database)
	require.NoError(t, err)
	require.Len(t, all, 3)

	byID, err := ListStorageLocationsByIDs(ctx, database, []int64{shelf.ID})
	require.NoError(t, err)
	require.Equal(t, "Warehouse > Cabinet 1 > Shelf A", byID[shelf.ID].FullPath)
}
