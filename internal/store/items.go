package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mlenko/lagerdb/internal/model"
)

// CreateItem inserts a new item and returns it.
func CreateItem(ctx context.Context, q Querier, item *model.Item) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO items (name, description, quantity, item_type, category_id, overview_id,
		                    storage_location_id, location_letter, location_number, location_shelf,
		                    low_quantity, order_link, maintenance_date, barcode, nfc_token, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Description, item.Quantity, item.ItemType, item.CategoryID, item.OverviewID,
		item.StorageLocationID, item.LocationLetter, item.LocationNumber, item.LocationShelf,
		item.LowQuantity, item.OrderLink, item.MaintenanceDate, item.Barcode, item.NFCToken, item.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

const itemColumns = `i.id, i.name, i.description, i.quantity, i.item_type, i.category_id,
	i.overview_id, i.storage_location_id, i.location_letter, i.location_number, i.location_shelf,
	i.low_quantity, i.order_link, i.maintenance_date, i.barcode, i.nfc_token, i.is_active,
	i.created_at, c.name AS category_name, sl.name AS storage_location_name`

const itemJoins = ` LEFT JOIN categories c ON c.id = i.category_id
	 LEFT JOIN storage_locations sl ON sl.id = i.storage_location_id`

// GetItem returns an item by ID with category and storage location names
// joined in.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i`+itemJoins+` WHERE i.id = ?`, id)

	item, err := ScanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemByBarcode returns an item by its barcode identifier.
func GetItemByBarcode(ctx context.Context, q Querier, barcode string) (*model.Item, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i`+itemJoins+` WHERE i.barcode = ?`, barcode)

	item, err := ScanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by barcode: %w", err)
	}
	return item, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ScanItem scans one item row in itemColumns order.
func ScanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var categoryName, locationName sql.NullString
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Quantity, &item.ItemType, &item.CategoryID,
		&item.OverviewID, &item.StorageLocationID, &item.LocationLetter, &item.LocationNumber,
		&item.LocationShelf, &item.LowQuantity, &item.OrderLink, &item.MaintenanceDate,
		&item.Barcode, &item.NFCToken, &item.IsActive, &item.CreatedAt,
		&categoryName, &locationName,
	)
	if err != nil {
		return nil, err
	}
	item.CategoryName = categoryName.String
	item.StorageLocationName = locationName.String
	return item, nil
}

// UpdateItem writes all mutable item fields.
func UpdateItem(ctx context.Context, q Querier, item *model.Item) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, quantity = ?, item_type = ?, category_id = ?,
		        overview_id = ?, storage_location_id = ?, location_letter = ?, location_number = ?,
		        location_shelf = ?, low_quantity = ?, order_link = ?, maintenance_date = ?,
		        barcode = ?, nfc_token = ?, is_active = ?
		 WHERE id = ?`,
		item.Name, item.Description, item.Quantity, item.ItemType, item.CategoryID,
		item.OverviewID, item.StorageLocationID, item.LocationLetter, item.LocationNumber,
		item.LocationShelf, item.LowQuantity, item.OrderLink, item.MaintenanceDate,
		item.Barcode, item.NFCToken, item.IsActive, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemTags replaces the item's tag set.
func SetItemTags(ctx context.Context, q Querier, itemID int64, tagIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("clearing item tags: %w", err)
	}
	for _, tagID := range tagIDs {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`, itemID, tagID)
		if err != nil {
			return fmt.Errorf("setting item tag: %w", err)
		}
	}
	return nil
}

// GetItemTagIDs returns the item's tag ids, sorted for stable comparison.
func GetItemTagIDs(ctx context.Context, q Querier, itemID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT tag_id FROM item_tags WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting item tags: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning item tag: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// GetItemTagNames returns the item's tag names, alphabetically sorted.
func GetItemTagNames(ctx context.Context, q Querier, itemID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.name FROM item_tags it JOIN tags t ON t.id = it.tag_id
		 WHERE it.item_id = ? ORDER BY t.name`, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting item tag names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// BorrowedOpen returns the quantity of an item currently lent out.
func BorrowedOpen(ctx context.Context, q Querier, itemID int64) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM borrow_records
		 WHERE item_id = ? AND returned = 0`, itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing open borrows: %w", err)
	}
	return total, nil
}
