package model

import "time"

// History actions. The enumeration is closed: every mutation the service
// performs maps to exactly one of these.
const (
	ActionCreated          = "created"
	ActionUpdated          = "updated"
	ActionMovement         = "movement"
	ActionQuantityAdjusted = "quantity_adjusted"
	ActionBorrowed         = "borrowed"
	ActionReturned         = "returned"
	ActionRollback         = "rollback"
)

// Snapshot is the serialized value of all tracked item fields at one
// instant. Dates are ISO date strings and the tag set is a sorted id list
// so snapshots compare stably after a JSON round-trip.
type Snapshot struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Quantity          int     `json:"quantity"`
	CategoryID        *int64  `json:"category_id"`
	StorageLocationID *int64  `json:"storage_location_id"`
	LocationLetter    string  `json:"location_letter"`
	LocationNumber    string  `json:"location_number"`
	LocationShelf     string  `json:"location_shelf"`
	LowQuantity       int     `json:"low_quantity"`
	OrderLink         string  `json:"order_link"`
	MaintenanceDate   string  `json:"maintenance_date"`
	OverviewID        *int64  `json:"overview_id"`
	ItemType          string  `json:"item_type"`
	IsActive          bool    `json:"is_active"`
	Tags              []int64 `json:"tags"`
}

// Change is one field-level difference between two snapshots, with
// display-formatted before/after values. Delta is set only for quantity.
type Change struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Before string `json:"before"`
	After  string `json:"after"`
	Delta  *int   `json:"delta,omitempty"`
}

// HistoryEntry is an immutable audit record for one item mutation.
// A non-empty DataBefore means the entry can be rolled back.
type HistoryEntry struct {
	ID         int64          `json:"id"`
	ItemID     int64          `json:"item_id"`
	UserID     *int64         `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	Changes    []Change       `json:"changes"`
	DataBefore *Snapshot      `json:"data_before,omitempty"`
	DataAfter  *Snapshot      `json:"data_after,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
	Username string `json:"username,omitempty"`
}
