package models

import (
	"time"
)

// Case is a purchasable pool of weighted items
type Case struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       int64     `db:"price"`
	ImageURL    string    `db:"image_url"`
	IsActive    bool      `db:"is_active"`
	SortOrder   int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`

	// Aggregates filled by listing queries
	ItemsCount       int     `db:"items_count"`
	TotalProbability float64 `db:"total_probability"`
}

// CaseItem belongs to exactly one case. Probability is a relative weight.
type CaseItem struct {
	ID          int64     `db:"id"`
	CaseID      int64     `db:"case_id"`
	Name        string    `db:"name"`
	ImageURL    string    `db:"image_url"`
	Value       int64     `db:"value"`
	Probability float64   `db:"probability"`
	CreatedAt   time.Time `db:"created_at"`
}

// CaseUpdate carries the optional fields an admin can change on a case
type CaseUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	ImageURL    *string
	IsActive    *bool
	SortOrder   *int
}

// IsEmpty reports whether the update changes nothing
func (u CaseUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil &&
		u.ImageURL == nil && u.IsActive == nil && u.SortOrder == nil
}

// TotalWeight sums the probability weights of items
func TotalWeight(items []*CaseItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Probability
	}
	return total
}
