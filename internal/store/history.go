package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mlenko/lagerdb/internal/model"
)

// InsertHistory persists an append-only history entry. It is meant to be
// called on the same transaction as the item mutation it documents.
func InsertHistory(ctx context.Context, q Querier, e *model.HistoryEntry) (*model.HistoryEntry, error) {
	changes := e.Changes
	if changes == nil {
		changes = []model.Change{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encoding changes: %w", err)
	}

	meta := e.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding meta: %w", err)
	}

	var before, after any
	if e.DataBefore != nil {
		b, err := json.Marshal(e.DataBefore)
		if err != nil {
			return nil, fmt.Errorf("encoding data_before: %w", err)
		}
		before = string(b)
	}
	if e.DataAfter != nil {
		b, err := json.Marshal(e.DataAfter)
		if err != nil {
			return nil, fmt.Errorf("encoding data_after: %w", err)
		}
		after = string(b)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO history (item_id, user_id, action, changes, data_before, data_after, meta)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ItemID, e.UserID, e.Action, string(changesJSON), before, after, string(metaJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting history id: %w", err)
	}

	return GetHistoryEntry(ctx, q, id)
}

const historyColumns = `h.id, h.item_id, h.user_id, h.action, h.changes,
	h.data_before, h.data_after, h.meta, h.created_at,
	i.name AS item_name, COALESCE(u.username, '') AS username`

const historyJoins = ` FROM history h
	 JOIN items i ON i.id = h.item_id
	 LEFT JOIN users u ON u.id = h.user_id`

func scanHistory(row rowScanner) (*model.HistoryEntry, error) {
	e := &model.HistoryEntry{}
	var changesJSON, metaJSON string
	var beforeJSON, afterJSON sql.NullString
	err := row.Scan(&e.ID, &e.ItemID, &e.UserID, &e.Action, &changesJSON,
		&beforeJSON, &afterJSON, &metaJSON, &e.CreatedAt, &e.ItemName, &e.Username)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(changesJSON), &e.Changes); err != nil {
		return nil, fmt.Errorf("decoding changes: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
		return nil, fmt.Errorf("decoding meta: %w", err)
	}
	if beforeJSON.Valid {
		e.DataBefore = &model.Snapshot{}
		if err := json.Unmarshal([]byte(beforeJSON.String), e.DataBefore); err != nil {
			return nil, fmt.Errorf("decoding data_before: %w", err)
		}
	}
	if afterJSON.Valid {
		e.DataAfter = &model.Snapshot{}
		if err := json.Unmarshal([]byte(afterJSON.String), e.DataAfter); err != nil {
			return nil, fmt.Errorf("decoding data_after: %w", err)
		}
	}
	return e, nil
}

// GetHistoryEntry returns a history entry by ID.
func GetHistoryEntry(ctx context.Context, q Querier, id int64) (*model.HistoryEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+historyColumns+historyJoins+` WHERE h.id = ?`, id)
	e, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting history entry: %w", err)
	}
	return e, nil
}

// ListItemHistory returns an item's history newest first. Entries created
// in the same transaction share a timestamp, so the id breaks the tie.
func ListItemHistory(ctx context.Context, q Querier, itemID int64) ([]model.HistoryEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+historyColumns+historyJoins+
			` WHERE h.item_id = ? ORDER BY h.created_at DESC, h.id DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing item history: %w", err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

// HistoryFilter narrows the admin history listing.
type HistoryFilter struct {
	Action string
	UserID int64
	Query  string // substring match on the item name
	Limit  int
}

// ListHistory returns history entries newest first, filtered and capped.
func ListHistory(ctx context.Context, q Querier, filter HistoryFilter) ([]model.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + historyJoins + ` WHERE 1=1`
	var args []any

	if filter.Action != "" {
		query += ` AND h.action = ?`
		args = append(args, filter.Action)
	}
	if filter.UserID > 0 {
		query += ` AND h.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Query != "" {
		query += ` AND i.name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+filter.Query+"%")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	query += ` ORDER BY h.created_at DESC, h.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

func collectHistory(rows *sql.Rows) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
