package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix namespaces every forwarded subject
const SubjectPrefix = "casebox"

// Envelope wraps a forwarded event
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

// MessagePublisher is the subset of *nats.Conn the forwarder needs
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// SubjectFor returns the NATS subject an event type is forwarded to
func SubjectFor(eventType EventType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
}

// NATSForwarder republishes bus events to NATS
type NATSForwarder struct {
	publisher MessagePublisher
	source    string
	now       func() time.Time
}

// NewNATSForwarder creates a forwarder that stamps envelopes with source
func NewNATSForwarder(publisher MessagePublisher, source string) *NATSForwarder {
	return &NATSForwarder{
		publisher: publisher,
		source:    source,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Attach subscribes the forwarder to every event type on bus
func (f *NATSForwarder) Attach(bus *Bus) {
	for _, eventType := range AllEventTypes {
		bus.Subscribe(eventType, f.Handle)
	}
}

// Handle forwards one event. Failures are logged; the bus has no error path.
func (f *NATSForwarder) Handle(ctx context.Context, event Event) {
	if err := f.Forward(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event to NATS")
	}
}

// Forward marshals event into an envelope and publishes it
func (f *NATSForwarder) Forward(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		EventID:   uuid.New().String(),
		EventType: event.Type(),
		Timestamp: f.now(),
		Source:    f.source,
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectFor(event.Type())
	if err := f.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"eventId": envelope.EventID,
	}).Debug("Forwarded event to NATS")
	return nil
}

// ConnectNATS dials the server with reconnect handling
func ConnectNATS(ctx context.Context, url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			fields := log.Fields{"error": err}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			log.WithFields(fields).Error("NATS async error")
		}),
	}

	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("url", url).Info("Connected to NATS")
	return nc, nil
}
