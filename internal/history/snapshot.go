// Package history implements the audit trail core: item snapshots,
// structured diffs with display-formatted values, action classification,
// and snapshot application for rollback. Persistence happens through the
// store on the caller's transaction so an item mutation and its history
// record commit atomically.
package history

import (
	"sort"

	"github.com/mlenko/lagerdb/internal/model"
)

// TakeSnapshot captures the tracked field set of an item. The tag id list
// is copied and sorted so snapshots compare stably.
func TakeSnapshot(item *model.Item, tagIDs []int64) *model.Snapshot {
	tags := make([]int64, len(tagIDs))
	copy(tags, tagIDs)
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	return &model.Snapshot{
		Name:              item.Name,
		Description:       item.Description,
		Quantity:          item.Quantity,
		CategoryID:        copyID(item.CategoryID),
		StorageLocationID: copyID(item.StorageLocationID),
		LocationLetter:    item.LocationLetter,
		LocationNumber:    item.LocationNumber,
		LocationShelf:     item.LocationShelf,
		LowQuantity:       item.LowQuantity,
		OrderLink:         item.OrderLink,
		MaintenanceDate:   item.MaintenanceDate,
		OverviewID:        copyID(item.OverviewID),
		ItemType:          item.ItemType,
		IsActive:          item.IsActive,
		Tags:              tags,
	}
}

// ApplySnapshot restores the tracked fields of a snapshot onto the live
// item. The tag set is not applied here; the caller rewrites the
// many-to-many rows from snap.Tags.
func ApplySnapshot(item *model.Item, snap *model.Snapshot) {
	item.Name = snap.Name
	item.Description = snap.Description
	item.Quantity = snap.Quantity
	item.CategoryID = copyID(snap.CategoryID)
	item.StorageLocationID = copyID(snap.StorageLocationID)
	item.LocationLetter = snap.LocationLetter
	item.LocationNumber = snap.LocationNumber
	item.LocationShelf = snap.LocationShelf
	item.LowQuantity = snap.LowQuantity
	item.OrderLink = snap.OrderLink
	item.MaintenanceDate = snap.MaintenanceDate
	item.OverviewID = copyID(snap.OverviewID)
	if snap.ItemType != "" {
		item.ItemType = snap.ItemType
	}
	item.IsActive = snap.IsActive
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
