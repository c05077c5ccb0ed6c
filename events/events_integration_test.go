package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"casebox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		UserID:          12,
		TransactionID:   99,
		OldBalance:      100,
		NewBalance:      50,
		TransactionType: models.TransactionTypeCaseOpen,
		ChangeAmount:    -50,
	}

	transactionalBus.Publish(testEvent)
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush(context.Background())
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	userIDs := make(map[int64]bool)
	mainBus.Subscribe(EventTypeCaseOpened, func(ctx context.Context, event Event) {
		opened := event.(CaseOpenedEvent)
		mu.Lock()
		userIDs[opened.UserID] = true
		mu.Unlock()
	})

	for id := int64(1); id <= 3; id++ {
		transactionalBus.Publish(CaseOpenedEvent{OpeningID: id * 10, UserID: id, CaseID: 1, ItemID: 2})
	}

	transactionalBus.Flush(context.Background())
	mainBus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, userIDs, 3)
	assert.True(t, userIDs[1])
	assert.True(t, userIDs[2])
	assert.True(t, userIDs[3])
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(BalanceChangeEvent{UserID: 1, OldBalance: 0, NewBalance: 10, ChangeAmount: 10})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()

	delivered := make(chan struct{}, 1)
	bus.Subscribe(EventTypeUserCreated, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeUserCreated, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	bus.Emit(context.Background(), UserCreatedEvent{UserID: 1, Username: "user_1234"})
	bus.Wait()

	require.Len(t, delivered, 1)
}

func TestTransactionalBus_FlushContextSurvivesCancel(t *testing.T) {
	bus := NewBus()
	tb := NewTransactionalBus(bus)

	ctxErr := make(chan error, 1)
	bus.Subscribe(EventTypeCaseOpened, func(ctx context.Context, event Event) {
		ctxErr <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	tb.Publish(CaseOpenedEvent{OpeningID: 1})
	cancel()
	tb.Flush(ctx)
	bus.Wait()

	assert.NoError(t, <-ctxErr)
}
