package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"casebox/config"
	"casebox/events"
	"casebox/models"

	log "github.com/sirupsen/logrus"
)

const maxUsernameLength = 255

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
	policy     RetryPolicy
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, policy RetryPolicy) UserService {
	return &userService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

// generateUsername returns a placeholder name for anonymous visitors
func generateUsername() string {
	return fmt.Sprintf("user_%d", 1000+rand.IntN(9000))
}

// GetOrCreate retrieves an existing user or creates a new one with the starting balance
func (s *userService) GetOrCreate(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = generateUsername()
	}
	if len(username) > maxUsernameLength {
		return nil, invalidInput("username is too long")
	}

	startingBalance := config.Get().StartingBalance

	var (
		user    *models.User
		created bool
	)
	err := readWrite(ctx, s.uowFactory, s.policy, "get or create user", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		// Database unique constraint on username arbitrates concurrent creates
		user, created, err = uow.UserRepository().CreateIfNotExists(ctx, username, startingBalance)
		if err != nil {
			return fmt.Errorf("failed to get or create user: %w", err)
		}

		if !created {
			return uow.UserRepository().Touch(ctx, user.ID)
		}

		if startingBalance != 0 {
			entry := &models.Transaction{
				UserID:        user.ID,
				Amount:        startingBalance,
				BalanceBefore: 0,
				BalanceAfter:  startingBalance,
				Type:          models.TransactionTypeInitial,
				Metadata:      map[string]any{"username": username},
			}
			if err := RecordBalanceChange(ctx, uow, entry); err != nil {
				return fmt.Errorf("failed to record initial balance: %w", err)
			}
		}

		uow.EventBus().Publish(events.UserCreatedEvent{
			UserID:         user.ID,
			Username:       user.Username,
			InitialBalance: startingBalance,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.WithFields(log.Fields{
			"userID":   user.ID,
			"username": user.Username,
			"balance":  user.Balance,
		}).Info("User created")
	}

	return user, nil
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user *models.User
	err := readOnly(ctx, s.uowFactory, s.policy, "get user", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		user, err = uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) SetBanned(ctx context.Context, userID int64, banned bool) error {
	err := readWrite(ctx, s.uowFactory, s.policy, "set banned", func(ctx context.Context, uow UnitOfWork) error {
		found, err := uow.UserRepository().SetBanned(ctx, userID, banned)
		if err != nil {
			return err
		}
		if !found {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userID": userID,
		"banned": banned,
	}).Info("User ban flag updated")
	return nil
}
