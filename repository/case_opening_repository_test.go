package repository

import (
	"context"
	"testing"

	"casebox/models"
	"casebox/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseOpeningRepository_GetRecent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewCaseOpeningRepository(testDB.DB)
	cases := NewCaseRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.SeedUser(t, testDB.DB, "alice", 0)
	c, items := testutil.SeedCase(t, testDB.DB, "Starter", 10, true,
		testutil.ItemSpec{Name: "Sticker", Value: 5, Probability: 1},
	)

	live := &models.CaseOpening{UserID: user.ID, CaseID: c.ID, ItemID: items[0].ID, WinAmount: 5, PricePaid: 10}
	dryRun := &models.CaseOpening{UserID: user.ID, CaseID: c.ID, ItemID: items[0].ID, WinAmount: 5, IsTest: true}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, dryRun))

	t.Run("excludes test openings", func(t *testing.T) {
		recent, err := repo.GetRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, live.ID, recent[0].ID)
		assert.Equal(t, "alice", recent[0].Username)
		assert.Equal(t, "Starter", recent[0].CaseName)
		assert.Equal(t, "Sticker", recent[0].ItemName)
	})

	t.Run("deleted case renders placeholders", func(t *testing.T) {
		deleted, err := cases.Delete(ctx, c.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		recent, err := repo.GetRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, models.PlaceholderCaseName, recent[0].CaseName)
		assert.Equal(t, models.PlaceholderItemName, recent[0].ItemName)
		assert.Equal(t, int64(5), recent[0].WinAmount)
	})

	t.Run("stats ignore test openings", func(t *testing.T) {
		stats, err := repo.GetStatsByCase(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.OpeningCount)
		assert.Equal(t, int64(10), stats.TotalPaid)
		assert.Equal(t, int64(5), stats.TotalWon)
	})
}

func TestCaseOpeningRepository_GetRecentNewestFirst(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewCaseOpeningRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.SeedUser(t, testDB.DB, "bob", 0)
	c, items := testutil.SeedCase(t, testDB.DB, "Feed", 1, true,
		testutil.ItemSpec{Name: "x", Value: 1, Probability: 1},
	)

	var ids []int64
	for range 3 {
		o := &models.CaseOpening{UserID: user.ID, CaseID: c.ID, ItemID: items[0].ID, WinAmount: 1, PricePaid: 1}
		require.NoError(t, repo.Create(ctx, o))
		ids = append(ids, o.ID)
	}

	recent, err := repo.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)
}
