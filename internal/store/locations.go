package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/mlenko/lagerdb/internal/model"
)

// CreateStorageLocation inserts a storage location node.
func CreateStorageLocation(ctx context.Context, q Querier, name string, parentID *int64) (*model.StorageLocation, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO storage_locations (name, parent_id) VALUES (?, ?)`, name, parentID)
	if err != nil {
		return nil, fmt.Errorf("creating storage location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting storage location id: %w", err)
	}
	return &model.StorageLocation{ID: id, Name: name, ParentID: parentID}, nil
}

// GetStorageLocation returns a storage location by ID.
func GetStorageLocation(ctx context.Context, q Querier, id int64) (*model.StorageLocation, error) {
	loc := &model.StorageLocation{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, parent_id FROM storage_locations WHERE id = ?`, id,
	).Scan(&loc.ID, &loc.Name, &loc.ParentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting storage location: %w", err)
	}
	return loc, nil
}

// ListStorageLocations returns all storage locations with their full tree
// paths populated, sorted by path (case-insensitive).
func ListStorageLocations(ctx context.Context, q Querier) ([]model.StorageLocation, error) {
	all, err := loadAllLocations(ctx, q)
	if err != nil {
		return nil, err
	}

	locations := make([]model.StorageLocation, 0, len(all))
	for _, loc := range all {
		loc.FullPath = fullPath(all, loc.ID)
		locations = append(locations, *loc)
	}
	sortByPath(locations)
	return locations, nil
}

// ListStorageLocationsForOverview returns the storage locations referenced
// by the overview's items, sorted by full tree path.
func ListStorageLocationsForOverview(ctx context.Context, q Querier, overviewID int64) ([]model.StorageLocation, error) {
	all, err := loadAllLocations(ctx, q)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT storage_location_id FROM items
		 WHERE overview_id = ? AND storage_location_id IS NOT NULL`, overviewID)
	if err != nil {
		return nil, fmt.Errorf("listing overview storage locations: %w", err)
	}
	defer rows.Close()

	var locations []model.StorageLocation
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning storage location id: %w", err)
		}
		loc, ok := all[id]
		if !ok {
			continue
		}
		withPath := *loc
		withPath.FullPath = fullPath(all, id)
		locations = append(locations, withPath)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortByPath(locations)
	return locations, nil
}

// ListStorageLocationsByIDs batch-loads locations with full paths for
// display resolution.
func ListStorageLocationsByIDs(ctx context.Context, q Querier, ids []int64) (map[int64]model.StorageLocation, error) {
	result := make(map[int64]model.StorageLocation)
	if len(ids) == 0 {
		return result, nil
	}

	all, err := loadAllLocations(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		loc, ok := all[id]
		if !ok {
			continue
		}
		withPath := *loc
		withPath.FullPath = fullPath(all, id)
		result[id] = withPath
	}
	return result, nil
}

// UpdateStorageLocation renames a node and reattaches it in the tree.
func UpdateStorageLocation(ctx context.Context, q Querier, id int64, name string, parentID *int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE storage_locations SET name = ?, parent_id = ? WHERE id = ?`, name, parentID, id)
	if err != nil {
		return fmt.Errorf("updating storage location: %w", err)
	}
	return nil
}

// DeleteStorageLocation removes a node and its subtree.
func DeleteStorageLocation(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM storage_locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting storage location: %w", err)
	}
	return nil
}

func loadAllLocations(ctx context.Context, q Querier) (map[int64]*model.StorageLocation, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, parent_id FROM storage_locations`)
	if err != nil {
		return nil, fmt.Errorf("loading storage locations: %w", err)
	}
	defer rows.Close()

	all := make(map[int64]*model.StorageLocation)
	for rows.Next() {
		loc := &model.StorageLocation{}
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.ParentID); err != nil {
			return nil, fmt.Errorf("scanning storage location: %w", err)
		}
		all[loc.ID] = loc
	}
	return all, rows.Err()
}

// fullPath walks parent links to build "Root > Child > Node". Cycles
// (malformed data) are cut off at the tree size.
func fullPath(all map[int64]*model.StorageLocation, id int64) string {
	var parts []string
	cur, ok := all[id]
	for steps := 0; ok && steps <= len(all); steps++ {
		parts = append([]string{cur.Name}, parts...)
		if cur.ParentID == nil {
			break
		}
		cur, ok = all[*cur.ParentID]
	}
	return strings.Join(parts, " > ")
}

func sortByPath(locations []model.StorageLocation) {
	sort.Slice(locations, func(i, j int) bool {
		return strings.ToLower(locations[i].FullPath) < strings.ToLower(locations[j].FullPath)
	})
}
