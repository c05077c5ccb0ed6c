package service

import (
	"context"
	"regexp"
	"testing"

	"casebox/config"
	"casebox/events"
	"casebox/models"
	"casebox/repository/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func withStartingBalance(t *testing.T, balance int64) {
	t.Helper()
	cfg := config.NewTestConfig()
	cfg.StartingBalance = balance
	config.SetTestConfig(cfg)
	t.Cleanup(config.ResetConfig)
}

func TestUserService_GetOrCreate_ExistingUser(t *testing.T) {
	withStartingBalance(t, 0)

	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)
	existing := testutil.CreateTestUserWithBalance(4, "alice", 70)
	m.userRepo.On("CreateIfNotExists", mock.Anything, "alice", int64(0)).Return(existing, false, nil)
	m.userRepo.On("Touch", mock.Anything, int64(4)).Return(nil)

	user, err := NewUserService(m.factory, testPolicy).GetOrCreate(context.Background(), " alice ")

	require.NoError(t, err)
	assert.Equal(t, existing, user)
	m.txRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	assert.Empty(t, m.uow.Publisher().Events)
	m.assertExpectations(t)
}

func TestUserService_GetOrCreate_NewUserWithStartingBalance(t *testing.T) {
	withStartingBalance(t, 500)

	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)
	created := testutil.CreateTestUserWithBalance(9, "bob", 500)
	m.userRepo.On("CreateIfNotExists", mock.Anything, "bob", int64(500)).Return(created, true, nil)
	m.txRepo.On("Record", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == 9 &&
			tx.Amount == 500 &&
			tx.BalanceBefore == 0 &&
			tx.BalanceAfter == 500 &&
			tx.Type == models.TransactionTypeInitial
	})).Return(nil)

	user, err := NewUserService(m.factory, testPolicy).GetOrCreate(context.Background(), "bob")

	require.NoError(t, err)
	assert.Equal(t, int64(500), user.Balance)

	createdEvents := m.uow.Publisher().OfType(events.EventTypeUserCreated)
	require.Len(t, createdEvents, 1)
	assert.Equal(t, int64(500), createdEvents[0].(events.UserCreatedEvent).InitialBalance)
	m.userRepo.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestUserService_GetOrCreate_NewUserZeroBalanceHasNoLedgerEntry(t *testing.T) {
	withStartingBalance(t, 0)

	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)
	m.userRepo.On("CreateIfNotExists", mock.Anything, "carol", int64(0)).Return(&models.User{ID: 2, Username: "carol"}, true, nil)

	_, err := NewUserService(m.factory, testPolicy).GetOrCreate(context.Background(), "carol")

	require.NoError(t, err)
	m.txRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	assert.Len(t, m.uow.Publisher().OfType(events.EventTypeUserCreated), 1)
}

func TestUserService_GetOrCreate_GeneratesUsername(t *testing.T) {
	withStartingBalance(t, 0)

	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)
	pattern := regexp.MustCompile(`^user_[1-9]\d{3}$`)
	m.userRepo.On("CreateIfNotExists", mock.Anything, mock.MatchedBy(pattern.MatchString), int64(0)).
		Return(&models.User{ID: 2, Username: "user_1234"}, true, nil)

	user, err := NewUserService(m.factory, testPolicy).GetOrCreate(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "user_1234", user.Username)
	m.assertExpectations(t)
}

func TestUserService_GetOrCreate_RetriesConcurrentInsert(t *testing.T) {
	withStartingBalance(t, 0)

	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)
	m.userRepo.On("CreateIfNotExists", mock.Anything, "dave", int64(0)).
		Return(nil, false, &pgconn.PgError{Code: "40001"}).Once()
	m.userRepo.On("CreateIfNotExists", mock.Anything, "dave", int64(0)).
		Return(testutil.CreateTestUser(5, "dave"), false, nil).Once()
	m.userRepo.On("Touch", mock.Anything, int64(5)).Return(nil)

	user, err := NewUserService(m.factory, testPolicy).GetOrCreate(context.Background(), "dave")

	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	m.factory.AssertNumberOfCalls(t, "Create", 2)
}

func TestUserService_SetBanned(t *testing.T) {
	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)
	m.userRepo.On("SetBanned", mock.Anything, int64(1), true).Return(true, nil)
	m.userRepo.On("SetBanned", mock.Anything, int64(2), true).Return(false, nil)

	svc := NewUserService(m.factory, testPolicy)
	assert.NoError(t, svc.SetBanned(context.Background(), 1, true))
	assert.ErrorIs(t, svc.SetBanned(context.Background(), 2, true), ErrUserNotFound)
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByID", mock.Anything, int64(404)).Return(nil, nil)

	_, err := NewUserService(m.factory, testPolicy).GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
