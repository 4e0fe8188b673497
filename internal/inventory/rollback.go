package inventory

import (
	"context"
	"database/sql"

	"github.com/mlenko/lagerdb/internal/history"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// Rollback restores an item to the state captured in the given history
// entry's before snapshot. The original entry is left untouched; the
// restoration is recorded as a new rollback entry referencing it, so a
// rollback can itself be rolled back. Admin only.
func (s *Service) Rollback(ctx context.Context, user *model.User, entryID int64) (*model.Item, error) {
	if !user.IsAdmin() {
		return nil, ErrNotAllowed
	}

	var item *model.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entry, err := store.GetHistoryEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotFound
		}
		if entry.DataBefore == nil {
			return ErrNoPriorState
		}

		item, err = store.GetItem(ctx, tx, entry.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}

		currentTags, err := store.GetItemTagIDs(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		current := history.TakeSnapshot(item, currentTags)

		history.ApplySnapshot(item, entry.DataBefore)
		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if err := store.SetItemTags(ctx, tx, item.ID, entry.DataBefore.Tags); err != nil {
			return err
		}

		restored := history.TakeSnapshot(item, entry.DataBefore.Tags)
		changes, err := history.BuildChanges(ctx, tx, current, restored)
		if err != nil {
			return err
		}
		_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
			ItemID:     item.ID,
			UserID:     userID(user),
			Action:     model.ActionRollback,
			Changes:    changes,
			DataBefore: current,
			DataAfter:  restored,
			Meta:       map[string]any{"source_history_id": entry.ID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionRollback, item, user, true)
	return item, nil
}
