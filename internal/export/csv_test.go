package export

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlenko/lagerdb/internal/db"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/query"
	"github.com/mlenko/lagerdb/internal/store"
)

func TestItemsWritesFilteredSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	overview, err := store.CreateOverview(ctx, database, &model.Overview{
		Name: "Lab", Slug: "lab", IsActive: true,
	})
	require.NoError(t, err)

	category, err := store.CreateCategory(ctx, database, "Electronics")
	require.NoError(t, err)

	_, err = store.CreateItem(ctx, database, &model.Item{
		Name: "Multimeter", Quantity: 5, LowQuantity: 2,
		ItemType: model.ItemTypeEquipment, CategoryID: &category.ID,
		OverviewID: &overview.ID, LocationLetter: "A", LocationNumber: "3",
		Barcode: "BC-1", NFCToken: "NFC-1", IsActive: true,
	})
	require.NoError(t, err)
	_, err = store.CreateItem(ctx, database, &model.Item{
		Name: "Oscilloscope", Quantity: 1, ItemType: model.ItemTypeEquipment,
		OverviewID: &overview.ID, Barcode: "BC-2", NFCToken: "NFC-2", IsActive: true,
	})
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, Items(ctx, database, &buf, overview, query.Params{Q: "multi"}))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2) // header + one matching item

	require.Equal(t, header, records[0])
	require.Equal(t, []string{
		"Multimeter", "equipment", "5", "2", "Electronics", "", "A-3", "0", "BC-1",
	}, records[1])
}

func TestItemsIgnoresPagination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	overview, err := store.CreateOverview(ctx, database, &model.Overview{
		Name: "Lab", Slug: "lab", IsActive: true,
	})
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		_, err := store.CreateItem(ctx, database, &model.Item{
			Name: name, Quantity: 1, ItemType: model.ItemTypeEquipment,
			OverviewID: &overview.ID, Barcode: "BC-" + name, NFCToken: "NFC-" + name, IsActive: true,
		})
		require.NoError(t, err)
	}

	var buf strings.Builder
	require.NoError(t, Items(ctx, database, &buf, overview, query.Params{PageSize: "5", Page: "1"}))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8) // header + all seven items
}
