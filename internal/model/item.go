package model

import "time"

// Item represents a tracked inventory unit assigned to exactly one overview.
// Items from before the overview migration may have no overview; those
// orphans are excluded from every dashboard view.
type Item struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Quantity          int    `json:"quantity"`
	ItemType          string `json:"item_type"`
	CategoryID        *int64 `json:"category_id,omitempty"`
	OverviewID        *int64 `json:"overview_id,omitempty"`
	StorageLocationID *int64 `json:"storage_location_id,omitempty"`

	// Legacy flat coordinates, kept alongside the storage location tree.
	// Either facet can change independently.
	LocationLetter string `json:"location_letter,omitempty"`
	LocationNumber string `json:"location_number,omitempty"`
	LocationShelf  string `json:"location_shelf,omitempty"`

	LowQuantity     int    `json:"low_quantity"`
	OrderLink       string `json:"order_link,omitempty"`
	MaintenanceDate string `json:"maintenance_date,omitempty"` // ISO date (2006-01-02)

	Barcode  string `json:"barcode"`
	NFCToken string `json:"nfc_token,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	CategoryName        string   `json:"category_name,omitempty"`
	StorageLocationName string   `json:"storage_location_name,omitempty"`
	TagNames            []string `json:"tag_names,omitempty"`
	BorrowedOpen        int      `json:"borrowed_open"`
}

// Item types.
const (
	ItemTypeEquipment  = "equipment"
	ItemTypeConsumable = "consumable"
)
