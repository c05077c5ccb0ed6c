package service

import (
	"context"
	"fmt"

	"casebox/events"
	"casebox/models"

	log "github.com/sirupsen/logrus"
)

type openingService struct {
	uowFactory UnitOfWorkFactory
	rng        RandomSource
	policy     RetryPolicy
}

// NewOpeningService creates the case opening engine
func NewOpeningService(uowFactory UnitOfWorkFactory, rng RandomSource, policy RetryPolicy) OpeningService {
	if rng == nil {
		rng = NewRandomSource()
	}
	return &openingService{
		uowFactory: uowFactory,
		rng:        rng,
		policy:     policy,
	}
}

func (s *openingService) OpenCase(ctx context.Context, userID, caseID int64, isTest bool) (*models.OpeningResult, error) {
	var result *models.OpeningResult

	err := withRetry(ctx, s.policy, "open case", func(ctx context.Context) error {
		var err error
		result, err = s.openOnce(ctx, userID, caseID, isTest)
		return err
	})
	if err != nil {
		logFields := log.Fields{
			"userID": userID,
			"caseID": caseID,
			"isTest": isTest,
			"code":   CodeOf(err),
		}
		if KindOf(err) == KindInternal || KindOf(err) == KindUnavailable || KindOf(err) == KindConflict {
			log.WithFields(logFields).WithError(err).Error("Case opening failed")
		} else {
			log.WithFields(logFields).Debug("Case opening rejected")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"caseID":    caseID,
		"itemID":    result.Item.ID,
		"winAmount": result.WinAmount,
		"isTest":    isTest,
	}).Info("Case opened")

	return result, nil
}

// openOnce performs a single attempt inside its own unit of work
func (s *openingService) openOnce(ctx context.Context, userID, caseID int64, isTest bool) (*models.OpeningResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Lock the user row first so concurrent openings by the same user serialize
	var (
		user *models.User
		err  error
	)
	if isTest {
		user, err = uow.UserRepository().GetByID(ctx, userID)
	} else {
		user, err = uow.UserRepository().GetByIDForUpdate(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBanned {
		return nil, ErrUserBanned
	}

	// Same snapshot as the balance check
	c, err := uow.CaseRepository().GetByID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if !c.IsActive && !isTest {
		return nil, ErrCaseInactive
	}

	items, err := uow.CaseRepository().GetItems(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case items: %w", err)
	}
	if len(items) == 0 || models.TotalWeight(items) <= 0 {
		return nil, ErrCaseEmpty
	}

	if !isTest && !user.CanAfford(c.Price) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, user.Balance, c.Price)
	}

	item, err := Draw(items, s.rng)
	if err != nil {
		return nil, err
	}

	opening := &models.CaseOpening{
		UserID:    userID,
		CaseID:    caseID,
		ItemID:    item.ID,
		WinAmount: item.Value,
		IsTest:    isTest,
	}
	if !isTest {
		opening.PricePaid = c.Price
	}
	if err := uow.CaseOpeningRepository().Create(ctx, opening); err != nil {
		return nil, fmt.Errorf("failed to record opening: %w", err)
	}

	result := &models.OpeningResult{
		OpeningID: opening.ID,
		Item:      item,
		WinAmount: item.Value,
		IsTest:    isTest,
	}

	if !isTest {
		delta := item.Value - c.Price
		newBalance := user.Balance + delta

		if err := uow.UserRepository().ApplyOpening(ctx, userID, newBalance); err != nil {
			return nil, fmt.Errorf("failed to apply opening: %w", err)
		}

		// Break-even draws are recorded too, with a zero amount
		entry := &models.Transaction{
			UserID:        userID,
			Amount:        delta,
			BalanceBefore: user.Balance,
			BalanceAfter:  newBalance,
			Type:          models.TransactionTypeCaseOpen,
			Metadata: map[string]any{
				"case_id":    caseID,
				"item_id":    item.ID,
				"price":      c.Price,
				"win_amount": item.Value,
			},
			RelatedID: &opening.ID,
		}
		if err := RecordBalanceChange(ctx, uow, entry); err != nil {
			return nil, err
		}

		result.NewBalance = &newBalance
	}

	uow.EventBus().Publish(events.CaseOpenedEvent{
		OpeningID: opening.ID,
		UserID:    userID,
		CaseID:    caseID,
		ItemID:    item.ID,
		PricePaid: opening.PricePaid,
		WinAmount: item.Value,
		IsTest:    isTest,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}
