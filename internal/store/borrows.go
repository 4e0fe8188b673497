package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlenko/lagerdb/internal/model"
)

// CreateBorrow inserts an open borrow record. The caller is responsible
// for adjusting the item's quantity in the same transaction.
func CreateBorrow(ctx context.Context, q Querier, b *model.BorrowRecord) (*model.BorrowRecord, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO borrow_records (item_id, borrower, quantity, return_date, comment)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ItemID, b.Borrower, b.Quantity, b.ReturnDate, b.Comment,
	)
	if err != nil {
		return nil, fmt.Errorf("creating borrow record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting borrow record id: %w", err)
	}

	return GetBorrow(ctx, q, id)
}

const borrowColumns = `b.id, b.item_id, b.borrower, b.quantity, b.returned,
	b.borrowed_at, b.returned_at, b.return_date, b.comment, i.name AS item_name`

func scanBorrow(row rowScanner) (*model.BorrowRecord, error) {
	b := &model.BorrowRecord{}
	err := row.Scan(&b.ID, &b.ItemID, &b.Borrower, &b.Quantity, &b.Returned,
		&b.BorrowedAt, &b.ReturnedAt, &b.ReturnDate, &b.Comment, &b.ItemName)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBorrow returns a borrow record by ID.
func GetBorrow(ctx context.Context, q Querier, id int64) (*model.BorrowRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+borrowColumns+` FROM borrow_records b
		 JOIN items i ON i.id = b.item_id WHERE b.id = ?`, id)
	b, err := scanBorrow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting borrow record: %w", err)
	}
	return b, nil
}

// MarkReturned closes a borrow record and stamps the return time.
func MarkReturned(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE borrow_records SET returned = 1, returned_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND returned = 0`, id)
	if err != nil {
		return fmt.Errorf("marking borrow returned: %w", err)
	}
	return nil
}

// ListBorrows returns borrow records newest first, optionally filtered by
// item and open state.
func ListBorrows(ctx context.Context, q Querier, itemID int64, openOnly bool) ([]model.BorrowRecord, error) {
	query := `SELECT ` + borrowColumns + ` FROM borrow_records b
	          JOIN items i ON i.id = b.item_id WHERE 1=1`
	var args []any
	if itemID > 0 {
		query += ` AND b.item_id = ?`
		args = append(args, itemID)
	}
	if openOnly {
		query += ` AND b.returned = 0`
	}
	query += ` ORDER BY b.borrowed_at DESC, b.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing borrow records: %w", err)
	}
	defer rows.Close()

	var records []model.BorrowRecord
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning borrow record: %w", err)
		}
		records = append(records, *b)
	}
	return records, rows.Err()
}
