package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlenko/lagerdb/internal/model"
)

// CreateOverview inserts a new overview with its feature flags.
func CreateOverview(ctx context.Context, q Querier, o *model.Overview) (*model.Overview, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO overviews (name, slug, description, icon, ord, is_active,
		        show_quantity, has_locations, has_min_stock, enable_borrow,
		        is_consumable_mode, require_qr, enable_quick_adjust)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Name, o.Slug, o.Description, o.Icon, o.Order, o.IsActive,
		o.Features.ShowQuantity, o.Features.HasLocations, o.Features.HasMinStock,
		o.Features.EnableBorrow, o.Features.IsConsumableMode, o.Features.RequireQR,
		o.Features.EnableQuickAdjust,
	)
	if err != nil {
		return nil, fmt.Errorf("creating overview: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting overview id: %w", err)
	}

	if len(o.CategoryIDs) > 0 {
		if err := SetOverviewCategories(ctx, q, id, o.CategoryIDs); err != nil {
			return nil, err
		}
	}

	return GetOverview(ctx, q, id)
}

const overviewColumns = `id, name, slug, description, icon, ord, is_active,
	show_quantity, has_locations, has_min_stock, enable_borrow,
	is_consumable_mode, require_qr, enable_quick_adjust`

func scanOverview(row rowScanner) (*model.Overview, error) {
	o := &model.Overview{}
	err := row.Scan(
		&o.ID, &o.Name, &o.Slug, &o.Description, &o.Icon, &o.Order, &o.IsActive,
		&o.Features.ShowQuantity, &o.Features.HasLocations, &o.Features.HasMinStock,
		&o.Features.EnableBorrow, &o.Features.IsConsumableMode, &o.Features.RequireQR,
		&o.Features.EnableQuickAdjust,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetOverview returns an overview by ID, including its category subset.
func GetOverview(ctx context.Context, q Querier, id int64) (*model.Overview, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+overviewColumns+` FROM overviews WHERE id = ?`, id)
	o, err := scanOverview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting overview: %w", err)
	}
	if o.CategoryIDs, err = GetOverviewCategoryIDs(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOverviewBySlug returns an overview by slug.
func GetOverviewBySlug(ctx context.Context, q Querier, slug string) (*model.Overview, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+overviewColumns+` FROM overviews WHERE slug = ?`, slug)
	o, err := scanOverview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting overview by slug: %w", err)
	}
	if o.CategoryIDs, err = GetOverviewCategoryIDs(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOverviews returns overviews ordered by (order, name), optionally
// restricted to active ones.
func ListOverviews(ctx context.Context, q Querier, activeOnly bool) ([]model.Overview, error) {
	query := `SELECT ` + overviewColumns + ` FROM overviews`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY ord, name`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing overviews: %w", err)
	}
	defer rows.Close()

	var overviews []model.Overview
	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning overview: %w", err)
		}
		overviews = append(overviews, *o)
	}
	return overviews, rows.Err()
}

// ListOverviewsByIDs batch-loads overviews for display resolution.
func ListOverviewsByIDs(ctx context.Context, q Querier, ids []int64) (map[int64]model.Overview, error) {
	result := make(map[int64]model.Overview)
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+overviewColumns+` FROM overviews WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("loading overviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning overview: %w", err)
		}
		result[o.ID] = *o
	}
	return result, rows.Err()
}

// UpdateOverview writes the overview's fields and flags.
func UpdateOverview(ctx context.Context, q Querier, o *model.Overview) error {
	_, err := q.ExecContext(ctx,
		`UPDATE overviews SET name = ?, slug = ?, description = ?, icon = ?, ord = ?, is_active = ?,
		        show_quantity = ?, has_locations = ?, has_min_stock = ?, enable_borrow = ?,
		        is_consumable_mode = ?, require_qr = ?, enable_quick_adjust = ?
		 WHERE id = ?`,
		o.Name, o.Slug, o.Description, o.Icon, o.Order, o.IsActive,
		o.Features.ShowQuantity, o.Features.HasLocations, o.Features.HasMinStock,
		o.Features.EnableBorrow, o.Features.IsConsumableMode, o.Features.RequireQR,
		o.Features.EnableQuickAdjust, o.ID,
	)
	if err != nil {
		return fmt.Errorf("updating overview: %w", err)
	}
	return SetOverviewCategories(ctx, q, o.ID, o.CategoryIDs)
}

// SetOverviewCategories replaces the overview's category subset.
func SetOverviewCategories(ctx context.Context, q Querier, overviewID int64, categoryIDs []int64) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM overview_categories WHERE overview_id = ?`, overviewID); err != nil {
		return fmt.Errorf("clearing overview categories: %w", err)
	}
	for _, catID := range categoryIDs {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO overview_categories (overview_id, category_id) VALUES (?, ?)`,
			overviewID, catID)
		if err != nil {
			return fmt.Errorf("setting overview category: %w", err)
		}
	}
	return nil
}

// GetOverviewCategoryIDs returns the overview's configured category subset.
func GetOverviewCategoryIDs(ctx context.Context, q Querier, overviewID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT category_id FROM overview_categories WHERE overview_id = ? ORDER BY category_id`,
		overviewID)
	if err != nil {
		return nil, fmt.Errorf("getting overview categories: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning overview category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
