package inventory

import (
	"context"
	"database/sql"

	"github.com/mlenko/lagerdb/internal/history"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// BorrowInput describes a borrow request.
type BorrowInput struct {
	Borrower   string `json:"borrower"`
	Quantity   int    `json:"quantity"`
	ReturnDate string `json:"return_date"` // planned, ISO date, optional
	Comment    string `json:"comment"`
}

// Borrow takes quantity out of stock and opens a borrow record. The
// borrowed quantity must be positive and not exceed current stock.
func (s *Service) Borrow(ctx context.Context, user *model.User, itemID int64, in BorrowInput) (*model.BorrowRecord, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var (
		record *model.BorrowRecord
		item   *model.Item
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = s.visibleItem(ctx, tx, user, itemID)
		if err != nil {
			return err
		}
		if in.Quantity > item.Quantity {
			return ErrInsufficientStock
		}

		tagIDs, err := store.GetItemTagIDs(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		before := history.TakeSnapshot(item, tagIDs)

		item.Quantity -= in.Quantity
		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}

		record, err = store.CreateBorrow(ctx, tx, &model.BorrowRecord{
			ItemID:     item.ID,
			Borrower:   in.Borrower,
			Quantity:   in.Quantity,
			ReturnDate: in.ReturnDate,
			Comment:    in.Comment,
		})
		if err != nil {
			return err
		}

		after := history.TakeSnapshot(item, tagIDs)
		changes, err := history.BuildChanges(ctx, tx, before, after)
		if err != nil {
			return err
		}
		_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
			ItemID:     item.ID,
			UserID:     userID(user),
			Action:     model.ActionBorrowed,
			Changes:    changes,
			DataBefore: before,
			DataAfter:  after,
			Meta: map[string]any{
				"borrower": in.Borrower,
				"quantity": in.Quantity,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionBorrowed, item, user, false)
	return record, nil
}

// Return closes a borrow record and credits the quantity back to stock.
// Returning an already-returned record fails with ErrAlreadyReturned and
// never credits stock twice.
func (s *Service) Return(ctx context.Context, user *model.User, borrowID int64) (*model.BorrowRecord, error) {
	var (
		record *model.BorrowRecord
		item   *model.Item
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		record, err = store.GetBorrow(ctx, tx, borrowID)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrNotFound
		}
		if record.Returned {
			return ErrAlreadyReturned
		}

		item, err = s.visibleItem(ctx, tx, user, record.ItemID)
		if err != nil {
			return err
		}

		tagIDs, err := store.GetItemTagIDs(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		before := history.TakeSnapshot(item, tagIDs)

		item.Quantity += record.Quantity
		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if err := store.MarkReturned(ctx, tx, record.ID); err != nil {
			return err
		}
		record.Returned = true

		after := history.TakeSnapshot(item, tagIDs)
		changes, err := history.BuildChanges(ctx, tx, before, after)
		if err != nil {
			return err
		}
		_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
			ItemID:     item.ID,
			UserID:     userID(user),
			Action:     model.ActionReturned,
			Changes:    changes,
			DataBefore: before,
			DataAfter:  after,
			Meta: map[string]any{
				"borrower": record.Borrower,
				"quantity": record.Quantity,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionReturned, item, user, false)
	return record, nil
}
