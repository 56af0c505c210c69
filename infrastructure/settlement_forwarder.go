package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"casino/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SettlementSubjectPrefix is the root of every settlement subject
const SettlementSubjectPrefix = "casino.settled"

// SettlementEnvelope wraps a settled round for consumers on the bus
type SettlementEnvelope struct {
	EventID       string                  `json:"event_id"`
	EventType     events.EventType        `json:"event_type"`
	Timestamp     time.Time               `json:"timestamp"`
	SourceService string                  `json:"source_service"`
	Payload       events.GameSettledEvent `json:"payload"`
}

// SettlementForwarder republishes settled rounds to the message bus
type SettlementForwarder struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewSettlementForwarder creates a forwarder over publisher
func NewSettlementForwarder(publisher MessagePublisher) *SettlementForwarder {
	return &SettlementForwarder{publisher: publisher, now: time.Now}
}

// SubjectFor maps a settlement to its subject, e.g. casino.settled.roulette
func SubjectFor(event events.GameSettledEvent) string {
	return fmt.Sprintf("%s.%s", SettlementSubjectPrefix, strings.ToLower(string(event.Game)))
}

// Subscribe forwards every GameSettledEvent emitted on bus
func (f *SettlementForwarder) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeGameSettled, func(ctx context.Context, e events.Event) {
		settled, ok := e.(events.GameSettledEvent)
		if !ok {
			return
		}
		if err := f.Forward(ctx, settled); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"accountID":   settled.AccountID,
				"referenceID": settled.ReferenceID,
			}).Warn("Failed to forward settlement")
		}
	})
}

// Forward publishes a single settlement
func (f *SettlementForwarder) Forward(ctx context.Context, event events.GameSettledEvent) error {
	envelope := SettlementEnvelope{
		EventID:       uuid.New().String(),
		EventType:     event.Type(),
		Timestamp:     f.now().UTC(),
		SourceService: "casino",
		Payload:       event,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement envelope: %w", err)
	}

	subject := SubjectFor(event)
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish settlement: %w", err)
	}
	return nil
}
