package service

import (
	"context"
	"fmt"
	"iter"

	"casebox/models"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 500
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	policy     RetryPolicy
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, policy RetryPolicy) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

func (s *ledgerService) Record(ctx context.Context, userID int64, amount int64, txType models.TransactionType, metadata map[string]any) (int64, error) {
	entry, err := s.record(ctx, userID, amount, txType, metadata)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (s *ledgerService) GrantBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	entry, err := s.record(ctx, userID, amount, models.TransactionTypeAdmin, map[string]any{"source": "admin_grant"})
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"amount":     amount,
		"newBalance": entry.BalanceAfter,
	}).Info("Admin balance grant applied")

	return entry.BalanceAfter, nil
}

func (s *ledgerService) record(ctx context.Context, userID int64, amount int64, txType models.TransactionType, metadata map[string]any) (*models.Transaction, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !txType.Valid() {
		return nil, invalidInput(fmt.Sprintf("unknown transaction type %q", txType))
	}

	var entry *models.Transaction
	err := withRetry(ctx, s.policy, "record transaction", func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		entry, err = applyBalanceDelta(ctx, uow, userID, amount, txType, metadata)
		if err != nil {
			return err
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History pages through the ledger by id so rows inserted while iterating
// never shift the window.
func (s *ledgerService) History(ctx context.Context, userID int64, pageSize int) iter.Seq2[*models.Transaction, error] {
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}
	pageSize = min(pageSize, maxHistoryPageSize)

	return func(yield func(*models.Transaction, error) bool) {
		var beforeID int64
		first := true
		for {
			page, err := s.historyPage(ctx, userID, beforeID, pageSize, first)
			if err != nil {
				yield(nil, err)
				return
			}
			first = false

			for _, entry := range page {
				if !yield(entry, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			beforeID = page[len(page)-1].ID
		}
	}
}

func (s *ledgerService) historyPage(ctx context.Context, userID, beforeID int64, limit int, checkUser bool) ([]*models.Transaction, error) {
	var page []*models.Transaction
	err := withRetry(ctx, s.policy, "read ledger history", func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		if checkUser {
			user, err := uow.UserRepository().GetByID(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}
			if user == nil {
				return ErrUserNotFound
			}
		}

		var err error
		page, err = uow.TransactionRepository().GetByUser(ctx, userID, beforeID, limit)
		if err != nil {
			return fmt.Errorf("failed to get transactions: %w", err)
		}
		return nil
	})
	return page, err
}

func (s *ledgerService) Reconcile(ctx context.Context, userID int64) (int64, int64, error) {
	var balance, sum int64
	err := withRetry(ctx, s.policy, "reconcile ledger", func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		user, err := uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		sum, err = uow.TransactionRepository().SumByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger: %w", err)
		}
		balance = user.Balance
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	if balance != sum {
		log.WithFields(log.Fields{
			"userID":    userID,
			"balance":   balance,
			"ledgerSum": sum,
		}).Warn("Balance does not match ledger")
	}

	return balance, sum, nil
}
