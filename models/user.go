package models

import (
	"time"
)

// User represents a player with a credit balance
type User struct {
	ID         int64     `db:"id"`
	Username   string    `db:"username"`
	Balance    int64     `db:"balance"`
	TotalGames int64     `db:"total_games"`
	TotalWins  int64     `db:"total_wins"`
	IsPremium  bool      `db:"is_premium"`
	IsAdmin    bool      `db:"is_admin"`
	IsBanned   bool      `db:"is_banned"`
	LastSeen   time.Time `db:"last_seen"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// CanAfford reports whether the balance covers price
func (u *User) CanAfford(price int64) bool {
	return u.Balance >= price
}
