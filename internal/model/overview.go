package model

// Overview is a named, configured dashboard scoping a subset of items.
type Overview struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Order       int    `json:"order"`
	IsActive    bool   `json:"is_active"`

	Features Features `json:"features"`

	// Optional category subset restricting the choices offered for items
	// in this overview. Empty = all categories.
	CategoryIDs []int64 `json:"category_ids,omitempty"`
}

// Features are the overview's feature flags. They are advisory to the UI
// and the query engine, not hard data constraints: an item keeps its
// quantity even when ShowQuantity is off, and filters that depend on a
// disabled flag degrade to no-ops instead of erroring.
type Features struct {
	ShowQuantity      bool `json:"show_quantity"`
	HasLocations      bool `json:"has_locations"`
	HasMinStock       bool `json:"has_min_stock"`
	EnableBorrow      bool `json:"enable_borrow"`
	IsConsumableMode  bool `json:"is_consumable_mode"`
	RequireQR         bool `json:"require_qr"`
	EnableQuickAdjust bool `json:"enable_quick_adjust"`
}

// DefaultItemType returns the item type new items inherit from the overview.
func (o *Overview) DefaultItemType() string {
	if o.Features.IsConsumableMode {
		return ItemTypeConsumable
	}
	return ItemTypeEquipment
}
