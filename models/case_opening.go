package models

import (
	"time"
)

// CaseOpening is the immutable record of one draw
type CaseOpening struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	CaseID    int64     `db:"case_id"`
	ItemID    int64     `db:"item_id"`
	WinAmount int64     `db:"win_amount"`
	PricePaid int64     `db:"price_paid"`
	IsTest    bool      `db:"is_test"`
	CreatedAt time.Time `db:"created_at"`
}

// OpeningResult is returned to the caller of an opening.
// NewBalance is nil for test openings.
type OpeningResult struct {
	OpeningID  int64
	Item       *CaseItem
	WinAmount  int64
	NewBalance *int64
	IsTest     bool
}

// Placeholders rendered when an opening references a deleted row
const (
	PlaceholderUsername = "Anonymous"
	PlaceholderCaseName = "Case"
	PlaceholderItemName = "Item"
)

// RecentOpening is a public feed row
type RecentOpening struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	CaseName  string    `db:"case_name"`
	ItemName  string    `db:"item_name"`
	WinAmount int64     `db:"win_amount"`
	CreatedAt time.Time `db:"created_at"`
}
