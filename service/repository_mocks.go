package service

import (
	"context"
	"iter"
	"sync"

	"casebox/events"
	"casebox/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) CreateIfNotExists(ctx context.Context, username string, initialBalance int64) (*models.User, bool, error) {
	args := m.Called(ctx, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	args := m.Called(ctx, id, newBalance)
	return args.Error(0)
}

func (m *MockUserRepository) ApplyOpening(ctx context.Context, id int64, newBalance int64) error {
	args := m.Called(ctx, id, newBalance)
	return args.Error(0)
}

func (m *MockUserRepository) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	args := m.Called(ctx, id, banned)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Touch(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

// MockCaseRepository is a mock implementation of CaseRepository
type MockCaseRepository struct {
	mock.Mock
}

func (m *MockCaseRepository) GetActive(ctx context.Context) ([]*models.Case, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Case), args.Error(1)
}

func (m *MockCaseRepository) GetAll(ctx context.Context) ([]*models.Case, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Case), args.Error(1)
}

func (m *MockCaseRepository) GetByID(ctx context.Context, id int64) (*models.Case, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseRepository) GetItems(ctx context.Context, caseID int64) ([]*models.CaseItem, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CaseItem), args.Error(1)
}

func (m *MockCaseRepository) Create(ctx context.Context, c *models.Case) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCaseRepository) Update(ctx context.Context, id int64, update models.CaseUpdate) (*models.Case, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCaseRepository) AddItem(ctx context.Context, item *models.CaseItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCaseRepository) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

// MockCaseOpeningRepository is a mock implementation of CaseOpeningRepository
type MockCaseOpeningRepository struct {
	mock.Mock
}

func (m *MockCaseOpeningRepository) Create(ctx context.Context, opening *models.CaseOpening) error {
	args := m.Called(ctx, opening)
	return args.Error(0)
}

func (m *MockCaseOpeningRepository) GetRecent(ctx context.Context, limit int) ([]*models.RecentOpening, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecentOpening), args.Error(1)
}

func (m *MockCaseOpeningRepository) GetStatsByCase(ctx context.Context, caseID int64) (*models.CaseStats, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseStats), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID int64, beforeID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, beforeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// RecordingEventPublisher collects published events
type RecordingEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// OfType returns the recorded events of one type
func (p *RecordingEventPublisher) OfType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.Events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	userRepo        UserRepository
	caseRepo        CaseRepository
	openingRepo     CaseOpeningRepository
	transactionRepo TransactionRepository
	publisher       *RecordingEventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, caseRepo CaseRepository, openingRepo CaseOpeningRepository, transactionRepo TransactionRepository) {
	m.userRepo = userRepo
	m.caseRepo = caseRepo
	m.openingRepo = openingRepo
	m.transactionRepo = transactionRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository               { return m.userRepo }
func (m *MockUnitOfWork) CaseRepository() CaseRepository               { return m.caseRepo }
func (m *MockUnitOfWork) CaseOpeningRepository() CaseOpeningRepository { return m.openingRepo }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository { return m.transactionRepo }

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Publisher()
}

// Publisher returns the recorder behind EventBus
func (m *MockUnitOfWork) Publisher() *RecordingEventPublisher {
	if m.publisher == nil {
		m.publisher = &RecordingEventPublisher{}
	}
	return m.publisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockOpeningService is a mock implementation of OpeningService
type MockOpeningService struct {
	mock.Mock
}

func (m *MockOpeningService) OpenCase(ctx context.Context, userID, caseID int64, isTest bool) (*models.OpeningResult, error) {
	args := m.Called(ctx, userID, caseID, isTest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OpeningResult), args.Error(1)
}

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetActiveCases(ctx context.Context) ([]*models.Case, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Case), args.Error(1)
}

func (m *MockCatalogService) GetAllCases(ctx context.Context) ([]*models.Case, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Case), args.Error(1)
}

func (m *MockCatalogService) GetCase(ctx context.Context, caseID int64) (*models.Case, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCatalogService) GetItems(ctx context.Context, caseID int64) ([]*models.CaseItem, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CaseItem), args.Error(1)
}

func (m *MockCatalogService) CreateCase(ctx context.Context, c *models.Case) (*models.Case, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCatalogService) UpdateCase(ctx context.Context, caseID int64, update models.CaseUpdate) (*models.Case, error) {
	args := m.Called(ctx, caseID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCatalogService) DeleteCase(ctx context.Context, caseID int64) error {
	args := m.Called(ctx, caseID)
	return args.Error(0)
}

func (m *MockCatalogService) AddItem(ctx context.Context, item *models.CaseItem) (*models.CaseItem, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseItem), args.Error(1)
}

func (m *MockCatalogService) DeleteItem(ctx context.Context, itemID int64) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Record(ctx context.Context, userID int64, amount int64, txType models.TransactionType, metadata map[string]any) (int64, error) {
	args := m.Called(ctx, userID, amount, txType, metadata)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GrantBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

// History replays the entries and error configured with On("History", ...)
func (m *MockLedgerService) History(ctx context.Context, userID int64, pageSize int) iter.Seq2[*models.Transaction, error] {
	args := m.Called(ctx, userID, pageSize)
	entries, _ := args.Get(0).([]*models.Transaction)
	err := args.Error(1)
	return func(yield func(*models.Transaction, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func (m *MockLedgerService) Reconcile(ctx context.Context, userID int64) (int64, int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockReportingService is a mock implementation of ReportingService
type MockReportingService struct {
	mock.Mock
}

func (m *MockReportingService) RecentOpenings(ctx context.Context, limit int) ([]*models.RecentOpening, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecentOpening), args.Error(1)
}

func (m *MockReportingService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *MockReportingService) CaseProbabilities(ctx context.Context, caseID int64) (*models.CaseProbabilities, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseProbabilities), args.Error(1)
}

func (m *MockReportingService) CaseStats(ctx context.Context, caseID int64) (*models.CaseStats, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseStats), args.Error(1)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetOrCreate(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SetBanned(ctx context.Context, userID int64, banned bool) error {
	args := m.Called(ctx, userID, banned)
	return args.Error(0)
}
