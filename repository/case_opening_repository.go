package repository

import (
	"context"
	"fmt"

	"casebox/database"
	"casebox/models"
)

// CaseOpeningRepository implements the CaseOpeningRepository interface
type CaseOpeningRepository struct {
	q queryable
}

// NewCaseOpeningRepository creates a new case opening repository
func NewCaseOpeningRepository(db *database.DB) *CaseOpeningRepository {
	return &CaseOpeningRepository{q: db.Pool}
}

func newCaseOpeningRepositoryWithTx(tx queryable) *CaseOpeningRepository {
	return &CaseOpeningRepository{q: tx}
}

// Create records an opening
func (r *CaseOpeningRepository) Create(ctx context.Context, opening *models.CaseOpening) error {
	query := `
		INSERT INTO case_openings (user_id, case_id, item_id, win_amount, price_paid, is_test)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		opening.UserID,
		opening.CaseID,
		opening.ItemID,
		opening.WinAmount,
		opening.PricePaid,
		opening.IsTest,
	).Scan(&opening.ID, &opening.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create opening for user %d: %w", opening.UserID, err)
	}
	return nil
}

// GetRecent returns real openings newest first. Deleted users, cases and
// items render as placeholders.
func (r *CaseOpeningRepository) GetRecent(ctx context.Context, limit int) ([]*models.RecentOpening, error) {
	query := `
		SELECT o.id,
		       COALESCE(u.username, $2),
		       COALESCE(c.name, $3),
		       COALESCE(i.name, $4),
		       o.win_amount,
		       o.created_at
		FROM case_openings o
		LEFT JOIN users u ON u.id = o.user_id
		LEFT JOIN cases c ON c.id = o.case_id
		LEFT JOIN case_items i ON i.id = o.item_id
		WHERE NOT o.is_test
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit,
		models.PlaceholderUsername,
		models.PlaceholderCaseName,
		models.PlaceholderItemName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent openings: %w", err)
	}
	defer rows.Close()

	var openings []*models.RecentOpening
	for rows.Next() {
		var o models.RecentOpening
		if err := rows.Scan(&o.ID, &o.Username, &o.CaseName, &o.ItemName, &o.WinAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent opening: %w", err)
		}
		openings = append(openings, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent openings: %w", err)
	}

	return openings, nil
}

// GetStatsByCase aggregates real openings of a case
func (r *CaseOpeningRepository) GetStatsByCase(ctx context.Context, caseID int64) (*models.CaseStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(price_paid), 0), COALESCE(SUM(win_amount), 0)
		FROM case_openings
		WHERE case_id = $1 AND NOT is_test
	`

	stats := &models.CaseStats{CaseID: caseID}
	err := r.q.QueryRow(ctx, query, caseID).Scan(&stats.OpeningCount, &stats.TotalPaid, &stats.TotalWon)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for case %d: %w", caseID, err)
	}
	return stats, nil
}
