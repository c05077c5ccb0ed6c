package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"casebox/database"
	"casebox/models"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new ledger repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new ledger repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends a ledger entry
func (r *TransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions
		(user_id, amount, balance_before, balance_after, type, metadata, related_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.BalanceBefore,
		tx.BalanceAfter,
		string(tx.Type),
		metadataJSON,
		tx.RelatedID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction for user %d: %w", tx.UserID, err)
	}
	return nil
}

// GetByUser returns one page of a user's ledger, newest first
func (r *TransactionRepository) GetByUser(ctx context.Context, userID int64, beforeID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, balance_before, balance_after, type, metadata, related_id, created_at
		FROM transactions
		WHERE user_id = $1 AND ($2::BIGINT <= 0 OR id < $2)
		ORDER BY id DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, userID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var metadataJSON []byte
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Amount,
			&tx.BalanceBefore,
			&tx.BalanceAfter,
			&tx.Type,
			&metadataJSON,
			&tx.RelatedID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for transaction %d: %w", tx.ID, err)
			}
		}
		entries = append(entries, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return entries, nil
}

// SumByUser returns the ledger sum for a user
func (r *TransactionRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE user_id = $1`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %d: %w", userID, err)
	}
	return sum, nil
}
