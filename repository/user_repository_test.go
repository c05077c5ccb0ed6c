package repository

import (
	"context"
	"testing"

	"casebox/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateIfNotExists(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("creates new user", func(t *testing.T) {
		user, created, err := repo.CreateIfNotExists(ctx, "alice", 100)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotZero(t, user.ID)
		assert.Equal(t, int64(100), user.Balance)
		assert.False(t, user.IsBanned)
	})

	t.Run("returns existing user", func(t *testing.T) {
		user, created, err := repo.CreateIfNotExists(ctx, "alice", 999)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(100), user.Balance)
	})

	t.Run("missing user returns nil", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 424242)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestUserRepository_BalanceNeverNegative(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.SeedUser(t, testDB.DB, "bob", 10)

	err := repo.UpdateBalance(ctx, user.ID, -1)
	require.Error(t, err, "CHECK constraint must reject a negative balance")

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Balance)
}

func TestUserRepository_ApplyOpeningCountsGames(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.SeedUser(t, testDB.DB, "carol", 100)

	require.NoError(t, repo.ApplyOpening(ctx, user.ID, 50))
	require.NoError(t, repo.ApplyOpening(ctx, user.ID, 150))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), stored.Balance)
	assert.Equal(t, int64(2), stored.TotalGames)
	assert.Equal(t, int64(2), stored.TotalWins)
}

func TestUserRepository_LeaderboardExcludesBanned(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	rich := testutil.SeedUser(t, testDB.DB, "rich", 1000)
	mid := testutil.SeedUser(t, testDB.DB, "mid", 500)
	banned := testutil.SeedUser(t, testDB.DB, "cheater", 5000)

	found, err := repo.SetBanned(ctx, banned.ID, true)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.SetBanned(ctx, 999999, true)
	require.NoError(t, err)
	assert.False(t, found)

	board, err := repo.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, rich.ID, board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, mid.ID, board[1].UserID)
	assert.Equal(t, 2, board[1].Rank)
}
