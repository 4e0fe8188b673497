package model

// Category groups items for filtering.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagType is a tag taxonomy (one per overview mode).
type TagType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag taxonomies matching the overview modes.
const (
	TagTypeEquipment   = "Equipment"
	TagTypeConsumables = "Consumables"
)

// Tag is an application tag attached to items (many-to-many).
type Tag struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	TypeID *int64 `json:"type_id,omitempty"`

	// Joined field (not always populated).
	TypeName string `json:"type_name,omitempty"`
}

// StorageLocation is a node in the tree-structured location hierarchy.
type StorageLocation struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`

	// FullPath is the root-to-node path ("Cellar > Shelf A > Box 3"),
	// populated by the store.
	FullPath string `json:"full_path,omitempty"`
}
