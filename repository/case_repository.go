package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"casebox/database"
	"casebox/models"

	"github.com/jackc/pgx/v5"
)

const caseColumns = `c.id, c.name, c.description, c.price, c.image_url, c.is_active, c.sort_order, c.created_at`

// CaseRepository implements the CaseRepository interface
type CaseRepository struct {
	q queryable
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *database.DB) *CaseRepository {
	return &CaseRepository{q: db.Pool}
}

func newCaseRepositoryWithTx(tx queryable) *CaseRepository {
	return &CaseRepository{q: tx}
}

func (r *CaseRepository) listCases(ctx context.Context, where string) ([]*models.Case, error) {
	query := `
		SELECT ` + caseColumns + `,
		       COUNT(i.id) AS items_count,
		       COALESCE(SUM(i.probability), 0) AS total_probability
		FROM cases c
		LEFT JOIN case_items i ON i.case_id = c.id
		` + where + `
		GROUP BY c.id
		ORDER BY c.sort_order ASC, c.id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		var c models.Case
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.Price,
			&c.ImageURL,
			&c.IsActive,
			&c.SortOrder,
			&c.CreatedAt,
			&c.ItemsCount,
			&c.TotalProbability,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}

	return cases, nil
}

// GetActive returns active cases in display order
func (r *CaseRepository) GetActive(ctx context.Context) ([]*models.Case, error) {
	return r.listCases(ctx, "WHERE c.is_active")
}

// GetAll returns every case including inactive ones
func (r *CaseRepository) GetAll(ctx context.Context) ([]*models.Case, error) {
	return r.listCases(ctx, "")
}

// GetByID retrieves a single case
func (r *CaseRepository) GetByID(ctx context.Context, id int64) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases c WHERE c.id = $1`

	var c models.Case
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Price,
		&c.ImageURL,
		&c.IsActive,
		&c.SortOrder,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case %d: %w", id, err)
	}
	return &c, nil
}

// GetItems returns a case's items in insertion order
func (r *CaseRepository) GetItems(ctx context.Context, caseID int64) ([]*models.CaseItem, error) {
	query := `
		SELECT id, case_id, name, image_url, value, probability, created_at
		FROM case_items
		WHERE case_id = $1
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for case %d: %w", caseID, err)
	}
	defer rows.Close()

	var items []*models.CaseItem
	for rows.Next() {
		var item models.CaseItem
		err := rows.Scan(
			&item.ID,
			&item.CaseID,
			&item.Name,
			&item.ImageURL,
			&item.Value,
			&item.Probability,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case items: %w", err)
	}

	return items, nil
}

// Create inserts a case
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	query := `
		INSERT INTO cases (name, description, price, image_url, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		c.Name,
		c.Description,
		c.Price,
		c.ImageURL,
		c.IsActive,
		c.SortOrder,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case %q: %w", c.Name, err)
	}
	return nil
}

// Update applies the non-nil fields of update
func (r *CaseRepository) Update(ctx context.Context, id int64, update models.CaseUpdate) (*models.Case, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.ImageURL != nil {
		add("image_url", *update.ImageURL)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	if update.SortOrder != nil {
		add("sort_order", *update.SortOrder)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE cases c SET %s
		WHERE c.id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), caseColumns)

	var c models.Case
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Price,
		&c.ImageURL,
		&c.IsActive,
		&c.SortOrder,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update case %d: %w", id, err)
	}
	return &c, nil
}

// Delete removes a case; its items go with it
func (r *CaseRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete case %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// AddItem inserts an item into its case
func (r *CaseRepository) AddItem(ctx context.Context, item *models.CaseItem) error {
	query := `
		INSERT INTO case_items (case_id, name, image_url, value, probability)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		item.CaseID,
		item.Name,
		item.ImageURL,
		item.Value,
		item.Probability,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add item to case %d: %w", item.CaseID, err)
	}
	return nil
}

// DeleteItem removes a single item
func (r *CaseRepository) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM case_items WHERE id = $1`, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to delete item %d: %w", itemID, err)
	}
	return result.RowsAffected() > 0, nil
}
