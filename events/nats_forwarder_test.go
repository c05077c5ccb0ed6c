package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"casebox/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{subject: subject, data: data})
	return nil
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "casebox.case_opened", SubjectFor(EventTypeCaseOpened))
	assert.Equal(t, "casebox.balance_change", SubjectFor(EventTypeBalanceChange))
	assert.Equal(t, "casebox.user_created", SubjectFor(EventTypeUserCreated))
}

func TestNATSForwarder_Forward(t *testing.T) {
	pub := &recordingPublisher{}
	forwarder := NewNATSForwarder(pub, "casebox-test")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	forwarder.now = func() time.Time { return fixed }

	event := BalanceChangeEvent{
		UserID:          7,
		TransactionID:   3,
		OldBalance:      50,
		NewBalance:      250,
		TransactionType: models.TransactionTypeAdmin,
		ChangeAmount:    200,
	}
	require.NoError(t, forwarder.Forward(event))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "casebox.balance_change", msg.subject)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.data, &envelope))
	assert.Equal(t, EventTypeBalanceChange, envelope.EventType)
	assert.Equal(t, "casebox-test", envelope.Source)
	assert.True(t, envelope.Timestamp.Equal(fixed))
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var payload BalanceChangeEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)
}

func TestNATSForwarder_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("connection closed")}
	forwarder := NewNATSForwarder(pub, "casebox")

	err := forwarder.Forward(UserCreatedEvent{UserID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "casebox.user_created")
}

func TestNATSForwarder_AttachForwardsFlushedEvents(t *testing.T) {
	bus := NewBus()
	pub := &recordingPublisher{}
	NewNATSForwarder(pub, "casebox").Attach(bus)

	tb := NewTransactionalBus(bus)
	tb.Publish(CaseOpenedEvent{OpeningID: 1, UserID: 2, CaseID: 3, ItemID: 4, PricePaid: 100, WinAmount: 50})
	tb.Publish(BalanceChangeEvent{UserID: 2, OldBalance: 100, NewBalance: 50, ChangeAmount: -50})
	tb.Flush(context.Background())
	bus.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	subjects := make([]string, 0, len(pub.messages))
	for _, m := range pub.messages {
		subjects = append(subjects, m.subject)
	}
	assert.ElementsMatch(t, []string{"casebox.case_opened", "casebox.balance_change"}, subjects)
}
