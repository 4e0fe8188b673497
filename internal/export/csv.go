// Package export renders dashboard views as CSV. Exports reuse the query
// engine's filters and sort but ignore pagination, so the file always
// covers the full filtered set.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/query"
	"github.com/mlenko/lagerdb/internal/store"
)

var header = []string{
	"name", "type", "quantity", "low_quantity", "category",
	"storage_location", "location", "borrowed_open", "barcode",
}

// Items writes the full filtered item set of an overview as CSV.
func Items(ctx context.Context, q store.Querier, w io.Writer, overview *model.Overview, params query.Params) error {
	items, err := query.ListAll(ctx, q, overview, params)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i := range items {
		if err := cw.Write(row(&items[i])); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(item *model.Item) []string {
	return []string{
		item.Name,
		item.ItemType,
		strconv.Itoa(item.Quantity),
		strconv.Itoa(item.LowQuantity),
		item.CategoryName,
		item.StorageLocationName,
		coordinates(item),
		strconv.Itoa(item.BorrowedOpen),
		item.Barcode,
	}
}

// coordinates joins the flat location fields into one readable cell.
func coordinates(item *model.Item) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{item.LocationLetter, item.LocationNumber, item.LocationShelf} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}
