package inventory

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/mlenko/lagerdb/internal/access"
	"github.com/mlenko/lagerdb/internal/history"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// ItemInput carries the editable item fields for create and update.
type ItemInput struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Quantity          int     `json:"quantity"`
	ItemType          string  `json:"item_type"`
	CategoryID        *int64  `json:"category_id"`
	StorageLocationID *int64  `json:"storage_location_id"`
	LocationLetter    string  `json:"location_letter"`
	LocationNumber    string  `json:"location_number"`
	LocationShelf     string  `json:"location_shelf"`
	LowQuantity       int     `json:"low_quantity"`
	OrderLink         string  `json:"order_link"`
	MaintenanceDate   string  `json:"maintenance_date"`
	TagIDs            []int64 `json:"tag_ids"`
}

// newBarcode returns a fresh unique barcode identifier.
func newBarcode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}

// newNFCToken returns a fresh unique NFC token.
func newNFCToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// CreateItem creates an item in the given overview and records a created
// history entry. The item type follows the overview's default unless the
// input names one explicitly.
func (s *Service) CreateItem(ctx context.Context, user *model.User, overviewID int64, in ItemInput) (*model.Item, error) {
	var item *model.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		overview, err := store.GetOverview(ctx, tx, overviewID)
		if err != nil {
			return err
		}
		if overview == nil || !overview.IsActive {
			return ErrNotFound
		}
		ok, err := access.CanSee(ctx, tx, user, overviewID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAllowed
		}

		itemType := in.ItemType
		if itemType != model.ItemTypeEquipment && itemType != model.ItemTypeConsumable {
			itemType = overview.DefaultItemType()
		}

		item = &model.Item{
			Name:              in.Name,
			Description:       in.Description,
			Quantity:          max(0, in.Quantity),
			ItemType:          itemType,
			CategoryID:        in.CategoryID,
			OverviewID:        &overview.ID,
			StorageLocationID: in.StorageLocationID,
			LocationLetter:    in.LocationLetter,
			LocationNumber:    in.LocationNumber,
			LocationShelf:     in.LocationShelf,
			LowQuantity:       in.LowQuantity,
			OrderLink:         in.OrderLink,
			MaintenanceDate:   in.MaintenanceDate,
			Barcode:           newBarcode(),
			NFCToken:          newNFCToken(),
			IsActive:          true,
		}
		item, err = store.CreateItem(ctx, tx, item)
		if err != nil {
			return err
		}
		if err := store.SetItemTags(ctx, tx, item.ID, in.TagIDs); err != nil {
			return err
		}

		after := history.TakeSnapshot(item, in.TagIDs)
		_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
			ItemID:    item.ID,
			UserID:    userID(user),
			Action:    model.ActionCreated,
			DataAfter: after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionCreated, item, user, false)
	return item, nil
}

// UpdateItem applies an edit and records the resulting history. Location
// field changes become a movement entry inserted first; all other changes
// follow as a second entry classified as updated or quantity_adjusted.
// An edit that changes nothing records nothing.
func (s *Service) UpdateItem(ctx context.Context, user *model.User, itemID int64, in ItemInput) (*model.Item, error) {
	var (
		item  *model.Item
		moved bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = s.visibleItem(ctx, tx, user, itemID)
		if err != nil {
			return err
		}

		beforeTags, err := store.GetItemTagIDs(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		before := history.TakeSnapshot(item, beforeTags)

		item.Name = in.Name
		item.Description = in.Description
		item.Quantity = max(0, in.Quantity)
		if in.ItemType == model.ItemTypeEquipment || in.ItemType == model.ItemTypeConsumable {
			item.ItemType = in.ItemType
		}
		item.CategoryID = in.CategoryID
		item.StorageLocationID = in.StorageLocationID
		item.LocationLetter = in.LocationLetter
		item.LocationNumber = in.LocationNumber
		item.LocationShelf = in.LocationShelf
		item.LowQuantity = in.LowQuantity
		item.OrderLink = in.OrderLink
		item.MaintenanceDate = in.MaintenanceDate

		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if err := store.SetItemTags(ctx, tx, item.ID, in.TagIDs); err != nil {
			return err
		}

		after := history.TakeSnapshot(item, in.TagIDs)
		changes, err := history.BuildChanges(ctx, tx, before, after)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		movement, other := history.SplitMovement(changes)
		meta := map[string]any{"source": "edit"}
		moved = len(movement) > 0

		if moved {
			_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
				ItemID:     item.ID,
				UserID:     userID(user),
				Action:     model.ActionMovement,
				Changes:    movement,
				DataBefore: before,
				DataAfter:  after,
				Meta:       meta,
			})
			if err != nil {
				return err
			}
		}
		if len(other) > 0 {
			_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
				ItemID:     item.ID,
				UserID:     userID(user),
				Action:     history.ClassifyOther(other),
				Changes:    other,
				DataBefore: before,
				DataAfter:  after,
				Meta:       meta,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionUpdated, item, user, moved)
	return item, nil
}

// AdjustQuantity applies a quick quantity delta. The overview must have
// quick adjust enabled. The result is floored at zero; an adjustment that
// changes nothing records nothing.
func (s *Service) AdjustQuantity(ctx context.Context, user *model.User, itemID int64, delta int) (*model.Item, error) {
	var item *model.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = s.visibleItem(ctx, tx, user, itemID)
		if err != nil {
			return err
		}
		if item.OverviewID == nil {
			return ErrQuickAdjustDisabled
		}
		overview, err := store.GetOverview(ctx, tx, *item.OverviewID)
		if err != nil {
			return err
		}
		if overview == nil || !overview.Features.EnableQuickAdjust {
			return ErrQuickAdjustDisabled
		}

		next := max(0, item.Quantity+delta)
		if next == item.Quantity {
			return nil
		}

		tagIDs, err := store.GetItemTagIDs(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		before := history.TakeSnapshot(item, tagIDs)

		item.Quantity = next
		if err := store.UpdateItem(ctx, tx, item); err != nil {
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
			Action:     model.ActionQuantityAdjusted,
			Changes:    changes,
			DataBefore: before,
			DataAfter:  after,
			Meta:       map[string]any{"source": "quick_adjust", "delta": delta},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionQuantityAdjusted, item, user, false)
	return item, nil
}

// MoveItem reassigns an item to another overview. The target must be
// active and visible to the caller.
func (s *Service) MoveItem(ctx context.Context, user *model.User, itemID, targetOverviewID int64) (*model.Item, error) {
	var item *model.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = s.visibleItem(ctx, tx, user, itemID)
		if err != nil {
			return err
		}

		target, err := store.GetOverview(ctx, tx, targetOverviewID)
		if err != nil {
			return err
		}
		if target == nil || !target.IsActive {
			return ErrNotFound
		}
		ok, err := access.CanSee(ctx, tx, user, target.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAllowed
		}

		tagIDs, err := store.GetItemTagIDs(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		before := history.TakeSnapshot(item, tagIDs)

		item.OverviewID = &target.ID
		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}

		after := history.TakeSnapshot(item, tagIDs)
		changes, err := history.BuildChanges(ctx, tx, before, after)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		_, err = store.InsertHistory(ctx, tx, &model.HistoryEntry{
			ItemID:     item.ID,
			UserID:     userID(user),
			Action:     model.ActionUpdated,
			Changes:    changes,
			DataBefore: before,
			DataAfter:  after,
			Meta:       map[string]any{"source": "move"},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(model.ActionUpdated, item, user, false)
	return item, nil
}

// visibleItem loads an item and verifies the caller may see its overview.
func (s *Service) visibleItem(ctx context.Context, tx *sql.Tx, user *model.User, itemID int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.IsActive {
		return nil, ErrNotFound
	}
	if item.OverviewID != nil {
		ok, err := access.CanSee(ctx, tx, user, *item.OverviewID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAllowed
		}
	} else if !user.IsAdmin() {
		// Orphaned items are only reachable by admins.
		return nil, ErrNotAllowed
	}
	return item, nil
}
