package service

import (
	"context"
	"fmt"
	"math"

	"casebox/events"
	"casebox/models"
)

// RecordBalanceChange appends a ledger entry and queues the matching event.
// Every balance mutation in the system goes through here. Only case openings
// may record a zero amount.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, entry *models.Transaction) error {
	if entry.Amount == 0 && entry.Type != models.TransactionTypeCaseOpen {
		return ErrInvalidAmount
	}
	if entry.BalanceAfter != entry.BalanceBefore+entry.Amount {
		return fmt.Errorf("ledger entry for user %d does not balance: %d + %d != %d",
			entry.UserID, entry.BalanceBefore, entry.Amount, entry.BalanceAfter)
	}

	if err := uow.TransactionRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	// Emitted after the unit of work commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          entry.UserID,
		TransactionID:   entry.ID,
		OldBalance:      entry.BalanceBefore,
		NewBalance:      entry.BalanceAfter,
		TransactionType: entry.Type,
		ChangeAmount:    entry.Amount,
	})

	return nil
}

// applyBalanceDelta locks the user, writes the new balance and records the entry
func applyBalanceDelta(ctx context.Context, uow UnitOfWork, userID, amount int64, txType models.TransactionType, metadata map[string]any) (*models.Transaction, error) {
	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if amount > 0 && user.Balance > math.MaxInt64-amount {
		return nil, fmt.Errorf("%w: change %d overflows balance %d", ErrInvalidAmount, amount, user.Balance)
	}

	newBalance := user.Balance + amount
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: have %d, change %d", ErrInsufficientBalance, user.Balance, amount)
	}

	if err := uow.UserRepository().UpdateBalance(ctx, userID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	entry := &models.Transaction{
		UserID:        userID,
		Amount:        amount,
		BalanceBefore: user.Balance,
		BalanceAfter:  newBalance,
		Type:          txType,
		Metadata:      metadata,
	}
	if err := RecordBalanceChange(ctx, uow, entry); err != nil {
		return nil, err
	}

	return entry, nil
}
