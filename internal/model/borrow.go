package model

import "time"

// BorrowRecord tracks one borrow/return cycle against an item. The item's
// quantity already reflects stock minus what is out; returning adds the
// borrowed quantity back exactly once.
type BorrowRecord struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	Borrower   string     `json:"borrower"`
	Quantity   int        `json:"quantity"`
	Returned   bool       `json:"returned"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	ReturnDate string     `json:"return_date,omitempty"` // planned, ISO date
	Comment    string     `json:"comment,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}
