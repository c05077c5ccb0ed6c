package service

import (
	"context"
	"math"
	"testing"

	"casebox/events"
	"casebox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_GrantBalance(t *testing.T) {
	ctx := context.Background()
	m := newOpeningMocks()
	m.uow.On("Commit").Return(nil)

	m.userRepo.On("GetByIDForUpdate", mock.Anything, int64(3)).Return(&models.User{ID: 3, Balance: 50}, nil)
	m.userRepo.On("UpdateBalance", mock.Anything, int64(3), int64(250)).Return(nil)
	m.txRepo.On("Record", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == 3 &&
			tx.Amount == 200 &&
			tx.BalanceBefore == 50 &&
			tx.BalanceAfter == 250 &&
			tx.Type == models.TransactionTypeAdmin &&
			tx.RelatedID == nil
	})).Return(nil)

	svc := NewLedgerService(m.factory, testPolicy)
	newBalance, err := svc.GrantBalance(ctx, 3, 200)

	require.NoError(t, err)
	assert.Equal(t, int64(250), newBalance)
	require.Len(t, m.uow.Publisher().OfType(events.EventTypeBalanceChange), 1)
	m.assertExpectations(t)
}

func TestLedgerService_Record_NegativeBelowZero(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByIDForUpdate", mock.Anything, int64(3)).Return(&models.User{ID: 3, Balance: 50}, nil)

	svc := NewLedgerService(m.factory, testPolicy)
	_, err := svc.Record(context.Background(), 3, -51, models.TransactionTypeAdmin, nil)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	m.userRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	m.txRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_Record_Validation(t *testing.T) {
	m := newOpeningMocks()
	svc := NewLedgerService(m.factory, testPolicy)

	_, err := svc.Record(context.Background(), 3, 0, models.TransactionTypeAdmin, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Record(context.Background(), 3, 10, models.TransactionType("bonus"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	m.factory.AssertNotCalled(t, "Create")
}

func TestLedgerService_Record_UserNotFound(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByIDForUpdate", mock.Anything, int64(404)).Return(nil, nil)

	svc := NewLedgerService(m.factory, testPolicy)
	_, err := svc.GrantBalance(context.Background(), 404, 10)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func ledgerPage(fromID, count int64) []*models.Transaction {
	page := make([]*models.Transaction, 0, count)
	for id := fromID; id > fromID-count; id-- {
		page = append(page, &models.Transaction{ID: id, UserID: 3, Amount: 10, Type: models.TransactionTypeAdmin})
	}
	return page
}

func TestLedgerService_History_PagesByID(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByID", mock.Anything, int64(3)).Return(&models.User{ID: 3}, nil).Once()
	m.txRepo.On("GetByUser", mock.Anything, int64(3), int64(0), 2).Return(ledgerPage(5, 2), nil).Once()
	m.txRepo.On("GetByUser", mock.Anything, int64(3), int64(4), 2).Return(ledgerPage(3, 2), nil).Once()
	m.txRepo.On("GetByUser", mock.Anything, int64(3), int64(2), 2).Return(ledgerPage(1, 1), nil).Once()

	svc := NewLedgerService(m.factory, testPolicy)

	var ids []int64
	for entry, err := range svc.History(context.Background(), 3, 2) {
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids)
	m.assertExpectations(t)
}

func TestLedgerService_History_StopsEarly(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByID", mock.Anything, int64(3)).Return(&models.User{ID: 3}, nil)
	m.txRepo.On("GetByUser", mock.Anything, int64(3), int64(0), 2).Return(ledgerPage(5, 2), nil).Once()

	svc := NewLedgerService(m.factory, testPolicy)

	var ids []int64
	for entry, err := range svc.History(context.Background(), 3, 2) {
		require.NoError(t, err)
		ids = append(ids, entry.ID)
		if len(ids) == 1 {
			break
		}
	}

	assert.Equal(t, []int64{5}, ids)
	m.txRepo.AssertNumberOfCalls(t, "GetByUser", 1)
}

func TestLedgerService_History_UserNotFound(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByID", mock.Anything, int64(9)).Return(nil, nil)

	svc := NewLedgerService(m.factory, testPolicy)

	var gotErr error
	count := 0
	for _, err := range svc.History(context.Background(), 9, 10) {
		count++
		gotErr = err
	}

	assert.Equal(t, 1, count)
	assert.ErrorIs(t, gotErr, ErrUserNotFound)
}

func TestLedgerService_Reconcile(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByID", mock.Anything, int64(3)).Return(&models.User{ID: 3, Balance: 250}, nil)
	m.txRepo.On("SumByUser", mock.Anything, int64(3)).Return(int64(250), nil)

	svc := NewLedgerService(m.factory, testPolicy)
	balance, sum, err := svc.Reconcile(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)
	assert.Equal(t, int64(250), sum)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestRecordBalanceChange_ZeroAmountOnlyForOpenings(t *testing.T) {
	ctx := context.Background()

	t.Run("admin zero rejected", func(t *testing.T) {
		m := newOpeningMocks()
		err := RecordBalanceChange(ctx, m.uow, &models.Transaction{
			UserID: 3, Amount: 0, BalanceBefore: 10, BalanceAfter: 10, Type: models.TransactionTypeAdmin,
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		m.txRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("case open zero recorded", func(t *testing.T) {
		m := newOpeningMocks()
		m.txRepo.On("Record", mock.Anything, mock.Anything).Return(nil).Once()
		err := RecordBalanceChange(ctx, m.uow, &models.Transaction{
			UserID: 3, Amount: 0, BalanceBefore: 10, BalanceAfter: 10, Type: models.TransactionTypeCaseOpen,
		})
		require.NoError(t, err)
		m.txRepo.AssertNumberOfCalls(t, "Record", 1)
	})
}

func TestLedgerService_GrantBalance_Overflow(t *testing.T) {
	m := newOpeningMocks()
	m.userRepo.On("GetByIDForUpdate", mock.Anything, int64(3)).Return(&models.User{ID: 3, Balance: 10}, nil)

	svc := NewLedgerService(m.factory, testPolicy)
	_, err := svc.GrantBalance(context.Background(), 3, math.MaxInt64)

	assert.ErrorIs(t, err, ErrInvalidAmount)
	m.userRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	m.txRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}
