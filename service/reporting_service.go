package service

import (
	"context"

	"casebox/models"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

type reportingService struct {
	uowFactory UnitOfWorkFactory
	policy     RetryPolicy
}

// NewReportingService creates a new reporting service
func NewReportingService(uowFactory UnitOfWorkFactory, policy RetryPolicy) ReportingService {
	return &reportingService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

// ClampLimit applies the feed defaults: non-positive means the default
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return min(limit, MaxRecentLimit)
}

func (s *reportingService) RecentOpenings(ctx context.Context, limit int) ([]*models.RecentOpening, error) {
	var openings []*models.RecentOpening
	err := readOnly(ctx, s.uowFactory, s.policy, "recent openings", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		openings, err = uow.CaseOpeningRepository().GetRecent(ctx, ClampLimit(limit))
		return err
	})
	return openings, err
}

func (s *reportingService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := readOnly(ctx, s.uowFactory, s.policy, "leaderboard", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		entries, err = uow.UserRepository().GetLeaderboard(ctx, ClampLimit(limit))
		return err
	})
	return entries, err
}

func (s *reportingService) CaseProbabilities(ctx context.Context, caseID int64) (*models.CaseProbabilities, error) {
	var (
		c     *models.Case
		items []*models.CaseItem
	)
	err := readOnly(ctx, s.uowFactory, s.policy, "case probabilities", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		c, err = uow.CaseRepository().GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCaseNotFound
		}
		items, err = uow.CaseRepository().GetItems(ctx, caseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return BuildProbabilities(c, items), nil
}

// BuildProbabilities normalizes item weights and computes the expected payout
func BuildProbabilities(c *models.Case, items []*models.CaseItem) *models.CaseProbabilities {
	total := models.TotalWeight(items)

	result := &models.CaseProbabilities{
		CaseID:      c.ID,
		CaseName:    c.Name,
		Price:       c.Price,
		IsActive:    c.IsActive,
		TotalWeight: total,
		Items:       make([]models.ItemProbability, 0, len(items)),
	}

	for _, item := range items {
		var p float64
		if total > 0 && item.Probability > 0 {
			p = item.Probability / total
		}
		result.Items = append(result.Items, models.ItemProbability{
			ItemID:      item.ID,
			Name:        item.Name,
			Value:       item.Value,
			Weight:      item.Probability,
			Probability: p,
		})
		result.ExpectedValue += p * float64(item.Value)
	}

	return result
}

func (s *reportingService) CaseStats(ctx context.Context, caseID int64) (*models.CaseStats, error) {
	var stats *models.CaseStats
	err := readOnly(ctx, s.uowFactory, s.policy, "case stats", func(ctx context.Context, uow UnitOfWork) error {
		c, err := uow.CaseRepository().GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCaseNotFound
		}
		stats, err = uow.CaseOpeningRepository().GetStatsByCase(ctx, caseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
