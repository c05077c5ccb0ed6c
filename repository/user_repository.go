package repository

import (
	"context"
	"errors"
	"fmt"

	"casebox/database"
	"casebox/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, balance, total_games, total_wins, is_premium, is_admin, is_banned, last_seen, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.TotalGames,
		&user.TotalWins,
		&user.IsPremium,
		&user.IsAdmin,
		&user.IsBanned,
		&user.LastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user and holds a row lock until the transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username %q: %w", username, err)
	}
	return user, nil
}

// CreateIfNotExists inserts a user unless the username is already taken.
// Concurrent callers with the same username all receive the same row.
func (r *UserRepository) CreateIfNotExists(ctx context.Context, username string, initialBalance int64) (*models.User, bool, error) {
	query := `
		INSERT INTO users (username, balance)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, username, initialBalance))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	existing, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("user %q vanished after insert conflict", username)
	}
	return existing, false, nil
}

// UpdateBalance sets a user's balance
func (r *UserRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	query := `
		UPDATE users
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// ApplyOpening sets the balance and counts one game and one win
func (r *UserRepository) ApplyOpening(ctx context.Context, id int64, newBalance int64) error {
	query := `
		UPDATE users
		SET balance = $1,
		    total_games = total_games + 1,
		    total_wins = total_wins + 1,
		    updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to apply opening for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// SetBanned updates the ban flag
func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	result, err := r.q.Exec(ctx, `UPDATE users SET is_banned = $1, updated_at = NOW() WHERE id = $2`, banned, id)
	if err != nil {
		return false, fmt.Errorf("failed to set banned for user %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// Touch updates last_seen
func (r *UserRepository) Touch(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `UPDATE users SET last_seen = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to touch user %d: %w", id, err)
	}
	return nil
}

// GetLeaderboard returns non-banned users ordered by balance then games played
func (r *UserRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT id, username, balance, total_games, total_wins
		FROM users
		WHERE NOT is_banned
		ORDER BY balance DESC, total_games DESC, id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.Balance, &entry.TotalGames, &entry.TotalWins); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}
