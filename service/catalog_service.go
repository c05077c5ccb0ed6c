package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"casebox/models"

	log "github.com/sirupsen/logrus"
)

type catalogService struct {
	uowFactory UnitOfWorkFactory
	policy     RetryPolicy
}

// NewCatalogService creates a new catalog service
func NewCatalogService(uowFactory UnitOfWorkFactory, policy RetryPolicy) CatalogService {
	return &catalogService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

func (s *catalogService) GetActiveCases(ctx context.Context) ([]*models.Case, error) {
	var cases []*models.Case
	err := readOnly(ctx, s.uowFactory, s.policy, "get active cases", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		cases, err = uow.CaseRepository().GetActive(ctx)
		return err
	})
	return cases, err
}

func (s *catalogService) GetAllCases(ctx context.Context) ([]*models.Case, error) {
	var cases []*models.Case
	err := readOnly(ctx, s.uowFactory, s.policy, "get all cases", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		cases, err = uow.CaseRepository().GetAll(ctx)
		return err
	})
	return cases, err
}

func (s *catalogService) GetCase(ctx context.Context, caseID int64) (*models.Case, error) {
	var c *models.Case
	err := readOnly(ctx, s.uowFactory, s.policy, "get case", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		c, err = uow.CaseRepository().GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCaseNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *catalogService) GetItems(ctx context.Context, caseID int64) ([]*models.CaseItem, error) {
	var items []*models.CaseItem
	err := readOnly(ctx, s.uowFactory, s.policy, "get case items", func(ctx context.Context, uow UnitOfWork) error {
		c, err := uow.CaseRepository().GetByID(ctx, caseID)
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
	return items, nil
}

func validateCaseFields(name *string, price *int64) error {
	if name != nil && strings.TrimSpace(*name) == "" {
		return invalidInput("case name is required")
	}
	if price != nil && *price < 0 {
		return invalidInput("case price cannot be negative")
	}
	return nil
}

func (s *catalogService) CreateCase(ctx context.Context, c *models.Case) (*models.Case, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := validateCaseFields(&c.Name, &c.Price); err != nil {
		return nil, err
	}

	err := readWrite(ctx, s.uowFactory, s.policy, "create case", func(ctx context.Context, uow UnitOfWork) error {
		if err := uow.CaseRepository().Create(ctx, c); err != nil {
			if hasSQLState(err, sqlStateUniqueViolation) {
				return fmt.Errorf("%w: case %q", ErrDuplicateName, c.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"caseID": c.ID,
		"name":   c.Name,
		"price":  c.Price,
	}).Info("Case created")
	return c, nil
}

func (s *catalogService) UpdateCase(ctx context.Context, caseID int64, update models.CaseUpdate) (*models.Case, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if err := validateCaseFields(update.Name, update.Price); err != nil {
		return nil, err
	}

	var updated *models.Case
	err := readWrite(ctx, s.uowFactory, s.policy, "update case", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		updated, err = uow.CaseRepository().Update(ctx, caseID, update)
		if err != nil {
			if hasSQLState(err, sqlStateUniqueViolation) {
				return ErrDuplicateName
			}
			return err
		}
		if updated == nil {
			return ErrCaseNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithField("caseID", caseID).Info("Case updated")
	return updated, nil
}

func (s *catalogService) DeleteCase(ctx context.Context, caseID int64) error {
	err := readWrite(ctx, s.uowFactory, s.policy, "delete case", func(ctx context.Context, uow UnitOfWork) error {
		deleted, err := uow.CaseRepository().Delete(ctx, caseID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrCaseNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("caseID", caseID).Info("Case deleted")
	return nil
}

func (s *catalogService) AddItem(ctx context.Context, item *models.CaseItem) (*models.CaseItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.Name == "":
		return nil, invalidInput("item name is required")
	case item.Value < 0:
		return nil, invalidInput("item value cannot be negative")
	case item.Probability < 0 || math.IsNaN(item.Probability) || math.IsInf(item.Probability, 0):
		return nil, invalidInput("item probability must be a non-negative number")
	}

	err := readWrite(ctx, s.uowFactory, s.policy, "add item", func(ctx context.Context, uow UnitOfWork) error {
		c, err := uow.CaseRepository().GetByID(ctx, item.CaseID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCaseNotFound
		}
		return uow.CaseRepository().AddItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"caseID":      item.CaseID,
		"itemID":      item.ID,
		"value":       item.Value,
		"probability": item.Probability,
	}).Info("Item added")
	return item, nil
}

func (s *catalogService) DeleteItem(ctx context.Context, itemID int64) error {
	return readWrite(ctx, s.uowFactory, s.policy, "delete item", func(ctx context.Context, uow UnitOfWork) error {
		deleted, err := uow.CaseRepository().DeleteItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrItemNotFound
		}
		return nil
	})
}
