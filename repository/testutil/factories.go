package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"casebox/database"
	"casebox/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(id int64, username string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Username:  username,
		Balance:   1000,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(id int64, username string, balance int64) *models.User {
	user := CreateTestUser(id, username)
	user.Balance = balance
	return user
}

// CreateTestCase creates an active test case
func CreateTestCase(id int64, name string, price int64) *models.Case {
	return &models.Case{
		ID:          id,
		Name:        name,
		Description: "test case",
		Price:       price,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
}

// CreateTestItem creates a test item for a case
func CreateTestItem(id, caseID int64, value int64, probability float64) *models.CaseItem {
	return &models.CaseItem{
		ID:          id,
		CaseID:      caseID,
		Name:        fmt.Sprintf("item-%d", id),
		Value:       value,
		Probability: probability,
		CreatedAt:   time.Now(),
	}
}

// ItemSpec describes an item to seed
type ItemSpec struct {
	Name        string
	Value       int64
	Probability float64
}

// SeedUser inserts a user with balance and a matching initial ledger entry
func SeedUser(t *testing.T, db *database.DB, username string, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Username: username, Balance: balance}
	err := db.WithTransaction(ctx, database.RepeatableRead, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (username, balance) VALUES ($1, $2) RETURNING id, created_at`,
			username, balance,
		).Scan(&user.ID, &user.CreatedAt); err != nil {
			return err
		}
		if balance == 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO transactions (user_id, amount, balance_before, balance_after, type) VALUES ($1, $2, 0, $2, 'initial')`,
			user.ID, balance,
		)
		return err
	})
	require.NoError(t, err)
	return user
}

// SeedCase inserts a case and its items in one transaction
func SeedCase(t *testing.T, db *database.DB, name string, price int64, active bool, items ...ItemSpec) (*models.Case, []*models.CaseItem) {
	t.Helper()
	ctx := context.Background()

	c := &models.Case{Name: name, Price: price, IsActive: active}
	var seeded []*models.CaseItem
	err := db.WithTransaction(ctx, database.RepeatableRead, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO cases (name, price, is_active) VALUES ($1, $2, $3) RETURNING id, created_at`,
			name, price, active,
		).Scan(&c.ID, &c.CreatedAt); err != nil {
			return err
		}
		for _, spec := range items {
			item := &models.CaseItem{CaseID: c.ID, Name: spec.Name, Value: spec.Value, Probability: spec.Probability}
			if err := tx.QueryRow(ctx,
				`INSERT INTO case_items (case_id, name, value, probability) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
				c.ID, spec.Name, spec.Value, spec.Probability,
			).Scan(&item.ID, &item.CreatedAt); err != nil {
				return err
			}
			seeded = append(seeded, item)
		}
		return nil
	})
	require.NoError(t, err)
	c.ItemsCount = len(seeded)
	return c, seeded
}
