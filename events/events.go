package events

import (
	"context"
	"sync"

	"casebox/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange EventType = "balance_change"
	EventTypeUserCreated   EventType = "user_created"
	EventTypeCaseOpened    EventType = "case_opened"
)

// AllEventTypes lists every type emitted by the service
var AllEventTypes = []EventType{EventTypeBalanceChange, EventTypeUserCreated, EventTypeCaseOpened}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64                  `json:"user_id"`
	TransactionID   int64                  `json:"transaction_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	InitialBalance int64  `json:"initial_balance"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// CaseOpenedEvent represents a completed draw
type CaseOpenedEvent struct {
	OpeningID int64 `json:"opening_id"`
	UserID    int64 `json:"user_id"`
	CaseID    int64 `json:"case_id"`
	ItemID    int64 `json:"item_id"`
	PricePaid int64 `json:"price_paid"`
	WinAmount int64 `json:"win_amount"`
	IsTest    bool  `json:"is_test"`
}

func (e CaseOpenedEvent) Type() EventType {
	return EventTypeCaseOpened
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started by Emit has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the number of buffered events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits buffered events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	if b.real == nil {
		b.pending = nil
		return
	}

	// Handlers outlive the request, so they get a fresh context
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops buffered events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
