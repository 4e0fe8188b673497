package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlenko/lagerdb/internal/model"
)

// CreateTagType inserts a tag taxonomy.
func CreateTagType(ctx context.Context, q Querier, name string) (*model.TagType, error) {
	result, err := q.ExecContext(ctx, `INSERT INTO tag_types (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("creating tag type: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting tag type id: %w", err)
	}
	return &model.TagType{ID: id, Name: name}, nil
}

// GetTagTypeByName returns a tag taxonomy by name, or nil when absent.
func GetTagTypeByName(ctx context.Context, q Querier, name string) (*model.TagType, error) {
	tt := &model.TagType{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name FROM tag_types WHERE name = ?`, name).Scan(&tt.ID, &tt.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag type: %w", err)
	}
	return tt, nil
}

// ListTagTypes returns all tag taxonomies ordered by name.
func ListTagTypes(ctx context.Context, q Querier) ([]model.TagType, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM tag_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tag types: %w", err)
	}
	defer rows.Close()

	var types []model.TagType
	for rows.Next() {
		var tt model.TagType
		if err := rows.Scan(&tt.ID, &tt.Name); err != nil {
			return nil, fmt.Errorf("scanning tag type: %w", err)
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}

// CreateTag inserts a tag, optionally attached to a taxonomy.
func CreateTag(ctx context.Context, q Querier, name string, typeID *int64) (*model.Tag, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO tags (name, type_id) VALUES (?, ?)`, name, typeID)
	if err != nil {
		return nil, fmt.Errorf("creating tag: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting tag id: %w", err)
	}
	return &model.Tag{ID: id, Name: name, TypeID: typeID}, nil
}

// ListTags returns all tags ordered by name, optionally restricted to one
// taxonomy.
func ListTags(ctx context.Context, q Querier, typeID *int64) ([]model.Tag, error) {
	query := `SELECT t.id, t.name, t.type_id, COALESCE(tt.name, '')
	          FROM tags t LEFT JOIN tag_types tt ON tt.id = t.type_id`
	var args []any
	if typeID != nil {
		query += ` WHERE t.type_id = ?`
		args = append(args, *typeID)
	}
	query += ` ORDER BY t.name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.TypeID, &t.TypeName); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListTagsByIDs batch-loads tags for display resolution.
func ListTagsByIDs(ctx context.Context, q Querier, ids []int64) (map[int64]model.Tag, error) {
	result := make(map[int64]model.Tag)
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, type_id FROM tags WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.TypeID); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		result[t.ID] = t
	}
	return result, rows.Err()
}

// UpdateTag renames a tag and moves it between taxonomies.
func UpdateTag(ctx context.Context, q Querier, id int64, name string, typeID *int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE tags SET name = ?, type_id = ? WHERE id = ?`, name, typeID, id)
	if err != nil {
		return fmt.Errorf("updating tag: %w", err)
	}
	return nil
}

// DeleteTag removes a tag and its item assignments.
func DeleteTag(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	return nil
}
