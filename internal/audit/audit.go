// Package audit publishes attendance ledger events to kafka for downstream
// consumers (reporting, anomaly detection). Publishing is best-effort: the
// ledger append has already committed by the time an event goes out, and a
// broker outage must never fail a verification.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"bioentry/internal/ledger"
	"bioentry/internal/platform/kafka/producer"
)

// Topic carries attendance record events.
const Topic = "bioentry.attendance.records"

// Event is the wire shape of one attendance record event.
type Event struct {
	EventID          string    `json:"event_id"`
	EmittedAt        time.Time `json:"emitted_at"`
	RecordID         string    `json:"record_id"`
	SubjectID        string    `json:"subject_id"`
	Direction        string    `json:"direction"`
	Verified         bool      `json:"verified"`
	OutOfBounds      bool      `json:"out_of_bounds"`
	SourceTerminalID string    `json:"source_terminal_id,omitempty"`
	IsRemoteClient   bool      `json:"is_remote_client"`
	Timestamp        time.Time `json:"timestamp"`
}

// Sink is the producer surface the publisher needs.
type Sink interface {
	ProduceAsync(msg *producer.Message) error
}

// Publisher emits ledger events. Satisfies the verification auditor.
type Publisher struct {
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time
	eventID func() string
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithClock sets the clock, for tests.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithEventIDs sets the event id generator, for tests.
func WithEventIDs(gen func() string) PublisherOption {
	return func(p *Publisher) {
		if gen != nil {
			p.eventID = gen
		}
	}
}

// NewPublisher creates a Publisher over a kafka sink.
func NewPublisher(sink Sink, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:    sink,
		logger:  logger,
		now:     time.Now,
		eventID: newEventID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// RecordAppended publishes an event for a freshly appended ledger record.
// Failures are logged and swallowed.
func (p *Publisher) RecordAppended(ctx context.Context, record ledger.Record) {
	event := Event{
		EventID:          p.eventID(),
		EmittedAt:        p.now().UTC(),
		RecordID:         record.ID,
		SubjectID:        record.SubjectID,
		Direction:        string(record.Direction),
		Verified:         record.Verified,
		OutOfBounds:      record.OutOfBounds,
		SourceTerminalID: record.SourceTerminalID,
		IsRemoteClient:   record.IsRemoteClient,
		Timestamp:        record.Timestamp,
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode audit event", "record_id", record.ID, "error", err)
		return
	}

	msg := &producer.Message{
		Topic: Topic,
		Key:   []byte(record.SubjectID),
		Value: value,
		Headers: map[string]string{
			"content-type": "application/json",
			"event-id":     event.EventID,
		},
	}
	if err := p.sink.ProduceAsync(msg); err != nil {
		p.logger.ErrorContext(ctx, "publish audit event", "record_id", record.ID, "error", err)
	}
}

// NoopPublisher discards events, for deployments without kafka.
type NoopPublisher struct{}

func (NoopPublisher) RecordAppended(context.Context, ledger.Record) {}
