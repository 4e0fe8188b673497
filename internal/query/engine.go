// Package query implements the overview dashboard query engine: tenant-
// scoped filtering, sorting, and pagination over the items of a single
// overview. Input is never rejected: malformed or unknown parameters fall
// back to safe defaults. Authorization is the caller's job; the engine
// assumes it already passed.
package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// Params carries the raw request parameters. All fields are optional
// strings as they arrive from the query string.
type Params struct {
	Q               string
	Category        string // id or "all"
	Tag             string // name or "all"
	StorageLocation string // id
	LocationLetter  string
	LocationNumber  string
	OnlyLow         string // "1" = true
	Sort            string
	Order           string // "asc" | "desc"
	Page            string
	PageSize        string
}

// Result is one dashboard page plus the derived UI state.
type Result struct {
	Items     []model.Item `json:"items"`
	Total     int          `json:"total"`
	Page      int          `json:"page"`
	PageSize  int          `json:"page_size"`
	PageCount int          `json:"page_count"`

	Sort    string `json:"sort"`
	Order   string `json:"order"`
	OnlyLow bool   `json:"only_low"`

	// NextOrder maps each sortable column to the direction the next click
	// on it should request. Derived, not stored.
	NextOrder map[string]string `json:"next_order"`

	Categories       []model.Category        `json:"categories"`
	Tags             []model.Tag             `json:"tags"`
	StorageLocations []model.StorageLocation `json:"storage_locations"`
}

// Sentinel value meaning "no filter" for category and tag.
const filterAll = "all"

const (
	defaultPageSize = 25
	minPageSize     = 5
	maxPageSize     = 200
	defaultSort     = "name"
)

// sortColumns is the closed map from sort keys to orderable expressions.
var sortColumns = map[string]string{
	"name":     "i.name",
	"category": "c.name",
	"location": "sl.name",
	"quantity": "i.quantity",
	"min":      "i.low_quantity",
	"borrowed": "borrowed_open",
}

// sortKeys in UI order, for the next-order map.
var sortKeys = []string{"name", "category", "location", "quantity", "min", "borrowed"}

// List runs the query engine for one overview.
func List(ctx context.Context, q store.Querier, overview *model.Overview, params Params) (*Result, error) {
	where, args := buildFilters(overview, params)

	total, err := countItems(ctx, q, where, args)
	if err != nil {
		return nil, err
	}

	sortKey, order := normalizeSort(params)
	pageSize := parsePageSize(params.PageSize)
	page, pageCount := clampPage(params.Page, total, pageSize)

	items, err := fetchPage(ctx, q, where, args, sortKey, order, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if err := attachTagNames(ctx, q, items); err != nil {
		return nil, err
	}

	categories, tags, locations, err := choiceLists(ctx, q, overview)
	if err != nil {
		return nil, err
	}

	return &Result{
		Items:            items,
		Total:            total,
		Page:             page,
		PageSize:         pageSize,
		PageCount:        pageCount,
		Sort:             sortKey,
		Order:            order,
		OnlyLow:          onlyLowActive(overview, params),
		NextOrder:        nextOrders(sortKey, order),
		Categories:       categories,
		Tags:             tags,
		StorageLocations: locations,
	}, nil
}

// ListAll runs the same filters and sort without pagination, for exports.
func ListAll(ctx context.Context, q store.Querier, overview *model.Overview, params Params) ([]model.Item, error) {
	where, args := buildFilters(overview, params)
	sortKey, order := normalizeSort(params)

	items, err := fetchPage(ctx, q, where, args, sortKey, order, -1, 0)
	if err != nil {
		return nil, err
	}
	if err := attachTagNames(ctx, q, items); err != nil {
		return nil, err
	}
	return items, nil
}

// buildFilters assembles the WHERE clause. The overview id is the hard
// tenancy boundary; every optional filter that does not apply is skipped.
func buildFilters(overview *model.Overview, params Params) (string, []any) {
	where := ` WHERE i.overview_id = ? AND i.is_active = 1`
	args := []any{overview.ID}

	if q := strings.TrimSpace(params.Q); q != "" {
		where += ` AND (i.name LIKE ? OR i.barcode LIKE ? OR i.location_letter LIKE ? OR i.location_number LIKE ?)`
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if c := strings.TrimSpace(params.Category); c != "" && c != filterAll {
		if id, err := strconv.ParseInt(c, 10, 64); err == nil {
			where += ` AND i.category_id = ?`
			args = append(args, id)
		}
	}

	if tag := strings.TrimSpace(params.Tag); tag != "" && tag != filterAll {
		// EXISTS keeps the result set free of join fanout for multi-tagged
		// items, so no dedup pass is needed.
		where += ` AND EXISTS (SELECT 1 FROM item_tags it JOIN tags t ON t.id = it.tag_id
		           WHERE it.item_id = i.id AND t.name = ?)`
		args = append(args, tag)
	}

	if sl := strings.TrimSpace(params.StorageLocation); sl != "" {
		if id, err := strconv.ParseInt(sl, 10, 64); err == nil {
			where += ` AND i.storage_location_id = ?`
			args = append(args, id)
		}
	}

	if letter := strings.TrimSpace(params.LocationLetter); letter != "" {
		where += ` AND LOWER(i.location_letter) = LOWER(?)`
		args = append(args, letter)
	}
	if number := strings.TrimSpace(params.LocationNumber); number != "" {
		where += ` AND LOWER(i.location_number) = LOWER(?)`
		args = append(args, number)
	}

	if onlyLowActive(overview, params) {
		where += ` AND i.quantity < i.low_quantity`
	}

	return where, args
}

// onlyLowActive honors the filter only when the overview supports minimum
// stock; otherwise the request is silently ignored.
func onlyLowActive(overview *model.Overview, params Params) bool {
	return params.OnlyLow == "1" && overview.Features.HasMinStock
}

const listJoins = ` FROM items i
	 LEFT JOIN categories c ON c.id = i.category_id
	 LEFT JOIN storage_locations sl ON sl.id = i.storage_location_id
	 LEFT JOIN (SELECT item_id, SUM(quantity) AS open
	            FROM borrow_records WHERE returned = 0
	            GROUP BY item_id) bo ON bo.item_id = i.id`

func countItems(ctx context.Context, q store.Querier, where string, args []any) (int, error) {
	var total int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items i`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return total, nil
}

// fetchPage runs the filtered, sorted page query. limit < 0 means all rows.
func fetchPage(ctx context.Context, q store.Querier, where string, args []any, sortKey, order string, limit, offset int) ([]model.Item, error) {
	dir := "ASC"
	if order == "desc" {
		dir = "DESC"
	}
	// The id tiebreak follows the main direction so that toggling the
	// direction yields the exact reverse order.
	orderBy := fmt.Sprintf(` ORDER BY %s %s, i.id %s`, sortColumns[sortKey], dir, dir)

	query := `SELECT i.id, i.name, i.description, i.quantity, i.item_type, i.category_id,
		i.overview_id, i.storage_location_id, i.location_letter, i.location_number, i.location_shelf,
		i.low_quantity, i.order_link, i.maintenance_date, i.barcode, i.nfc_token, i.is_active,
		i.created_at, COALESCE(c.name, ''), COALESCE(sl.name, ''), COALESCE(bo.open, 0) AS borrowed_open` +
		listJoins + where + orderBy

	queryArgs := args
	if limit >= 0 {
		query += ` LIMIT ? OFFSET ?`
		queryArgs = append(append([]any{}, args...), limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.Quantity, &item.ItemType, &item.CategoryID,
			&item.OverviewID, &item.StorageLocationID, &item.LocationLetter, &item.LocationNumber,
			&item.LocationShelf, &item.LowQuantity, &item.OrderLink, &item.MaintenanceDate,
			&item.Barcode, &item.NFCToken, &item.IsActive, &item.CreatedAt,
			&item.CategoryName, &item.StorageLocationName, &item.BorrowedOpen,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// attachTagNames loads tag names for a page of items in one query.
func attachTagNames(ctx context.Context, q store.Querier, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT it.item_id, t.name FROM item_tags it JOIN tags t ON t.id = it.tag_id
		 WHERE it.item_id IN (`+placeholders+`) ORDER BY t.name`, args...)
	if err != nil {
		return fmt.Errorf("loading item tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var name string
		if err := rows.Scan(&itemID, &name); err != nil {
			return fmt.Errorf("scanning item tag: %w", err)
		}
		if i, ok := index[itemID]; ok {
			items[i].TagNames = append(items[i].TagNames, name)
		}
	}
	return rows.Err()
}

// normalizeSort collapses unknown sort keys to the default and anything
// but "desc" to ascending.
func normalizeSort(params Params) (string, string) {
	sortKey := params.Sort
	if _, ok := sortColumns[sortKey]; !ok {
		sortKey = defaultSort
	}
	order := "asc"
	if params.Order == "desc" {
		order = "desc"
	}
	return sortKey, order
}

// parsePageSize clamps the requested page size to [minPageSize,
// maxPageSize]; malformed input falls back to the default.
func parsePageSize(raw string) int {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultPageSize
	}
	if size < minPageSize {
		return minPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// clampPage resolves the requested page against the total: malformed input
// goes to page 1, overflow goes to the last valid page.
func clampPage(raw string, total, pageSize int) (page, pageCount int) {
	pageCount = (total + pageSize - 1) / pageSize
	if pageCount < 1 {
		pageCount = 1
	}

	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}
	return page, pageCount
}

// nextOrders derives the direction each column's next click should
// request: the active ascending column toggles to descending, everything
// else starts ascending.
func nextOrders(sortKey, order string) map[string]string {
	next := make(map[string]string, len(sortKeys))
	for _, key := range sortKeys {
		if key == sortKey && order == "asc" {
			next[key] = "desc"
		} else {
			next[key] = "asc"
		}
	}
	return next
}

// choiceLists assembles the filter dropdown contents: the overview's
// category subset (or all categories), the tag taxonomy matching the
// overview mode (or all tags), and the storage locations its items use.
func choiceLists(ctx context.Context, q store.Querier, overview *model.Overview) ([]model.Category, []model.Tag, []model.StorageLocation, error) {
	var categories []model.Category
	if len(overview.CategoryIDs) > 0 {
		byID, err := store.ListCategoriesByIDs(ctx, q, overview.CategoryIDs)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, c := range byID {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	} else {
		all, err := store.ListCategories(ctx, q)
		if err != nil {
			return nil, nil, nil, err
		}
		categories = all
	}

	taxonomy := model.TagTypeEquipment
	if overview.Features.IsConsumableMode {
		taxonomy = model.TagTypeConsumables
	}
	tagType, err := store.GetTagTypeByName(ctx, q, taxonomy)
	if err != nil {
		return nil, nil, nil, err
	}
	var tags []model.Tag
	if tagType != nil {
		tags, err = store.ListTags(ctx, q, &tagType.ID)
	} else {
		tags, err = store.ListTags(ctx, q, nil)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	locations, err := store.ListStorageLocationsForOverview(ctx, q, overview.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	return categories, tags, locations, nil
}
