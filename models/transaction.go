package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeAdmin    TransactionType = "admin"
	TransactionTypeCaseOpen TransactionType = "case_open"
	TransactionTypeInitial  TransactionType = "initial"
)

// Valid reports whether t is a known ledger entry type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeAdmin, TransactionTypeCaseOpen, TransactionTypeInitial:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry. Amount is signed.
type Transaction struct {
	ID            int64           `db:"id"`
	UserID        int64           `db:"user_id"`
	Amount        int64           `db:"amount"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	Type          TransactionType `db:"type"`
	Metadata      map[string]any  `db:"metadata"`
	RelatedID     *int64          `db:"related_id"`
	CreatedAt     time.Time       `db:"created_at"`
}
