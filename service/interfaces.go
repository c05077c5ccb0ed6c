package service

import (
	"context"
	"iter"

	"casebox/events"
	"casebox/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user without locking
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// CreateIfNotExists inserts a user unless the username is taken.
	// created reports whether this call inserted the row.
	CreateIfNotExists(ctx context.Context, username string, initialBalance int64) (user *models.User, created bool, err error)

	// UpdateBalance sets a user's balance
	UpdateBalance(ctx context.Context, id int64, newBalance int64) error

	// ApplyOpening sets the balance and increments the game counters
	ApplyOpening(ctx context.Context, id int64, newBalance int64) error

	// SetBanned updates the ban flag, returning false if the user does not exist
	SetBanned(ctx context.Context, id int64, banned bool) (bool, error)

	// Touch updates last_seen
	Touch(ctx context.Context, id int64) error

	// GetLeaderboard returns non-banned users ordered by balance then games played
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// CaseRepository defines the interface for catalog data access
type CaseRepository interface {
	// GetActive returns active cases ordered by sort_order then id, with item counts
	GetActive(ctx context.Context) ([]*models.Case, error)

	// GetAll returns every case with item counts and total weight
	GetAll(ctx context.Context) ([]*models.Case, error)

	// GetByID retrieves a single case
	GetByID(ctx context.Context, id int64) (*models.Case, error)

	// GetItems returns a case's items in insertion order
	GetItems(ctx context.Context, caseID int64) ([]*models.CaseItem, error)

	// Create inserts a case and fills in its ID and CreatedAt
	Create(ctx context.Context, c *models.Case) error

	// Update applies the non-nil fields and returns the updated case, nil if missing
	Update(ctx context.Context, id int64, update models.CaseUpdate) (*models.Case, error)

	// Delete removes a case and, by cascade, its items
	Delete(ctx context.Context, id int64) (bool, error)

	// AddItem inserts an item and fills in its ID and CreatedAt
	AddItem(ctx context.Context, item *models.CaseItem) error

	// DeleteItem removes a single item
	DeleteItem(ctx context.Context, itemID int64) (bool, error)
}

// CaseOpeningRepository defines the interface for opening records
type CaseOpeningRepository interface {
	// Create inserts an opening and fills in its ID and CreatedAt
	Create(ctx context.Context, opening *models.CaseOpening) error

	// GetRecent returns real openings newest first with display names resolved
	GetRecent(ctx context.Context, limit int) ([]*models.RecentOpening, error)

	// GetStatsByCase aggregates real openings of a case
	GetStatsByCase(ctx context.Context, caseID int64) (*models.CaseStats, error)
}

// TransactionRepository defines the interface for the balance ledger
type TransactionRepository interface {
	// Record appends a ledger entry and fills in its ID and CreatedAt
	Record(ctx context.Context, tx *models.Transaction) error

	// GetByUser returns up to limit entries with id < beforeID, newest first.
	// beforeID <= 0 starts from the newest entry.
	GetByUser(ctx context.Context, userID int64, beforeID int64, limit int) ([]*models.Transaction, error)

	// SumByUser returns the sum of all entry amounts for a user
	SumByUser(ctx context.Context, userID int64) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new repeatable-read transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	CaseRepository() CaseRepository
	CaseOpeningRepository() CaseOpeningRepository
	TransactionRepository() TransactionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// CatalogService defines case and item management
type CatalogService interface {
	GetActiveCases(ctx context.Context) ([]*models.Case, error)
	GetAllCases(ctx context.Context) ([]*models.Case, error)
	GetCase(ctx context.Context, caseID int64) (*models.Case, error)
	GetItems(ctx context.Context, caseID int64) ([]*models.CaseItem, error)
	CreateCase(ctx context.Context, c *models.Case) (*models.Case, error)
	UpdateCase(ctx context.Context, caseID int64, update models.CaseUpdate) (*models.Case, error)
	DeleteCase(ctx context.Context, caseID int64) error
	AddItem(ctx context.Context, item *models.CaseItem) (*models.CaseItem, error)
	DeleteItem(ctx context.Context, itemID int64) error
}

// OpeningService runs case openings
type OpeningService interface {
	// OpenCase draws an item for the user. Test openings never touch the balance.
	OpenCase(ctx context.Context, userID, caseID int64, isTest bool) (*models.OpeningResult, error)
}

// LedgerService records and reads balance changes
type LedgerService interface {
	// Record applies a signed delta to the user's balance and appends a ledger entry
	Record(ctx context.Context, userID int64, amount int64, txType models.TransactionType, metadata map[string]any) (int64, error)

	// GrantBalance records an admin adjustment and returns the new balance
	GrantBalance(ctx context.Context, userID int64, amount int64) (int64, error)

	// History lazily yields a user's ledger entries newest first
	History(ctx context.Context, userID int64, pageSize int) iter.Seq2[*models.Transaction, error]

	// Reconcile returns the stored balance and the ledger sum for a user
	Reconcile(ctx context.Context, userID int64) (balance int64, ledgerSum int64, err error)
}

// ReportingService serves read-only aggregate views
type ReportingService interface {
	RecentOpenings(ctx context.Context, limit int) ([]*models.RecentOpening, error)
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	CaseProbabilities(ctx context.Context, caseID int64) (*models.CaseProbabilities, error)
	CaseStats(ctx context.Context, caseID int64) (*models.CaseStats, error)
}

// UserService defines user lifecycle operations
type UserService interface {
	// GetOrCreate returns the user with username, creating it with the starting balance
	GetOrCreate(ctx context.Context, username string) (*models.User, error)

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// SetBanned updates the ban flag
	SetBanned(ctx context.Context, userID int64, banned bool) error
}
