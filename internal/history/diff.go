package history

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// placeholder stands in for absent values in change displays.
const placeholder = "–"

// Tracked field keys.
const (
	FieldName            = "name"
	FieldDescription     = "description"
	FieldQuantity        = "quantity"
	FieldCategory        = "category"
	FieldStorageLocation = "storage_location"
	FieldLocationLetter  = "location_letter"
	FieldLocationNumber  = "location_number"
	FieldLocationShelf   = "location_shelf"
	FieldLowQuantity     = "low_quantity"
	FieldOrderLink       = "order_link"
	FieldMaintenanceDate = "maintenance_date"
	FieldOverview        = "overview"
	FieldItemType        = "item_type"
	FieldIsActive        = "is_active"
	FieldTags            = "tags"
)

// movementFields are the physical location facets. Changes limited to
// them classify as a movement rather than an update.
var movementFields = map[string]bool{
	FieldStorageLocation: true,
	FieldLocationLetter:  true,
	FieldLocationNumber:  true,
	FieldLocationShelf:   true,
}

type fieldDef struct {
	key     string
	label   string
	equal   func(a, b *model.Snapshot) bool
	display func(r *Resolver, s *model.Snapshot) string
}

// trackedFields drives diffing in a stable order.
var trackedFields = []fieldDef{
	{FieldName, "Name",
		func(a, b *model.Snapshot) bool { return a.Name == b.Name },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.Name) }},
	{FieldDescription, "Description",
		func(a, b *model.Snapshot) bool { return a.Description == b.Description },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.Description) }},
	{FieldQuantity, "Quantity",
		func(a, b *model.Snapshot) bool { return a.Quantity == b.Quantity },
		func(_ *Resolver, s *model.Snapshot) string { return strconv.Itoa(s.Quantity) }},
	{FieldCategory, "Category",
		func(a, b *model.Snapshot) bool { return idEqual(a.CategoryID, b.CategoryID) },
		func(r *Resolver, s *model.Snapshot) string { return r.categoryName(s.CategoryID) }},
	{FieldStorageLocation, "Storage location",
		func(a, b *model.Snapshot) bool { return idEqual(a.StorageLocationID, b.StorageLocationID) },
		func(r *Resolver, s *model.Snapshot) string { return r.locationName(s.StorageLocationID) }},
	{FieldLocationLetter, "Location letter",
		func(a, b *model.Snapshot) bool { return a.LocationLetter == b.LocationLetter },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.LocationLetter) }},
	{FieldLocationNumber, "Location number",
		func(a, b *model.Snapshot) bool { return a.LocationNumber == b.LocationNumber },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.LocationNumber) }},
	{FieldLocationShelf, "Shelf",
		func(a, b *model.Snapshot) bool { return a.LocationShelf == b.LocationShelf },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.LocationShelf) }},
	{FieldLowQuantity, "Minimum stock",
		func(a, b *model.Snapshot) bool { return a.LowQuantity == b.LowQuantity },
		func(_ *Resolver, s *model.Snapshot) string { return strconv.Itoa(s.LowQuantity) }},
	{FieldOrderLink, "Order link",
		func(a, b *model.Snapshot) bool { return a.OrderLink == b.OrderLink },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.OrderLink) }},
	{FieldMaintenanceDate, "Maintenance date",
		func(a, b *model.Snapshot) bool { return a.MaintenanceDate == b.MaintenanceDate },
		func(_ *Resolver, s *model.Snapshot) string { return dateText(s.MaintenanceDate) }},
	{FieldOverview, "Dashboard",
		func(a, b *model.Snapshot) bool { return idEqual(a.OverviewID, b.OverviewID) },
		func(r *Resolver, s *model.Snapshot) string { return r.overviewName(s.OverviewID) }},
	{FieldItemType, "Item type",
		func(a, b *model.Snapshot) bool { return a.ItemType == b.ItemType },
		func(_ *Resolver, s *model.Snapshot) string { return text(s.ItemType) }},
	{FieldIsActive, "Active",
		func(a, b *model.Snapshot) bool { return a.IsActive == b.IsActive },
		func(_ *Resolver, s *model.Snapshot) string { return yesNo(s.IsActive) }},
	{FieldTags, "Tags",
		func(a, b *model.Snapshot) bool { return slices.Equal(a.Tags, b.Tags) },
		func(r *Resolver, s *model.Snapshot) string { return r.tagList(s.Tags) }},
}

// BuildChanges computes the structured diff between two snapshots. Only
// differing fields produce a Change; equal snapshots produce an empty
// list. Foreign keys are resolved to display names through one batch load
// per referenced table across both snapshots.
func BuildChanges(ctx context.Context, q store.Querier, before, after *model.Snapshot) ([]model.Change, error) {
	resolver, err := newResolver(ctx, q, before, after)
	if err != nil {
		return nil, err
	}

	var changes []model.Change
	for _, f := range trackedFields {
		if f.equal(before, after) {
			continue
		}
		change := model.Change{
			Field:  f.key,
			Label:  f.label,
			Before: f.display(resolver, before),
			After:  f.display(resolver, after),
		}
		if f.key == FieldQuantity {
			delta := after.Quantity - before.Quantity
			change.Delta = &delta
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// SplitMovement partitions changes into the movement facet and the rest.
func SplitMovement(changes []model.Change) (movement, other []model.Change) {
	for _, c := range changes {
		if movementFields[c.Field] {
			movement = append(movement, c)
		} else {
			other = append(other, c)
		}
	}
	return movement, other
}

// ClassifyOther picks the action for the non-movement change set:
// quantity_adjusted when quantity is the only changed field, updated
// otherwise.
func ClassifyOther(other []model.Change) string {
	if len(other) == 1 && other[0].Field == FieldQuantity {
		return model.ActionQuantityAdjusted
	}
	return model.ActionUpdated
}

// Resolver maps snapshot foreign keys to display names, batch-loaded once
// per diff.
type Resolver struct {
	categories map[int64]model.Category
	locations  map[int64]model.StorageLocation
	overviews  map[int64]model.Overview
	tags       map[int64]model.Tag
}

func newResolver(ctx context.Context, q store.Querier, snaps ...*model.Snapshot) (*Resolver, error) {
	var categoryIDs, locationIDs, overviewIDs, tagIDs []int64
	for _, s := range snaps {
		if s == nil {
			continue
		}
		if s.CategoryID != nil {
			categoryIDs = append(categoryIDs, *s.CategoryID)
		}
		if s.StorageLocationID != nil {
			locationIDs = append(locationIDs, *s.StorageLocationID)
		}
		if s.OverviewID != nil {
			overviewIDs = append(overviewIDs, *s.OverviewID)
		}
		tagIDs = append(tagIDs, s.Tags...)
	}

	categories, err := store.ListCategoriesByIDs(ctx, q, categoryIDs)
	if err != nil {
		return nil, err
	}
	locations, err := store.ListStorageLocationsByIDs(ctx, q, locationIDs)
	if err != nil {
		return nil, err
	}
	overviews, err := store.ListOverviewsByIDs(ctx, q, overviewIDs)
	if err != nil {
		return nil, err
	}
	tags, err := store.ListTagsByIDs(ctx, q, tagIDs)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		categories: categories,
		locations:  locations,
		overviews:  overviews,
		tags:       tags,
	}, nil
}

func (r *Resolver) categoryName(id *int64) string {
	if id == nil {
		return placeholder
	}
	if c, ok := r.categories[*id]; ok {
		return c.Name
	}
	return fmt.Sprintf("#%d", *id)
}

func (r *Resolver) locationName(id *int64) string {
	if id == nil {
		return placeholder
	}
	if loc, ok := r.locations[*id]; ok {
		return loc.FullPath
	}
	return fmt.Sprintf("#%d", *id)
}

func (r *Resolver) overviewName(id *int64) string {
	if id == nil {
		return placeholder
	}
	if o, ok := r.overviews[*id]; ok {
		return o.Name
	}
	return fmt.Sprintf("#%d", *id)
}

// tagList renders the tag set as a comma-joined, alphabetically sorted
// list of names.
func (r *Resolver) tagList(ids []int64) string {
	if len(ids) == 0 {
		return placeholder
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.tags[id]; ok {
			names = append(names, t.Name)
		} else {
			names = append(names, fmt.Sprintf("#%d", id))
		}
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func text(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// dateText shows only the date portion of a stored date value.
func dateText(s string) string {
	if s == "" {
		return placeholder
	}
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func idEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
