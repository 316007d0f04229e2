package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "fellowship/contexts/governance/election-engine/application"
	"fellowship/contexts/governance/election-engine/ports"
)

// OutboxEventSink turns broadcast events into outbox envelopes. The relay
// worker later forwards them to the configured publisher.
type OutboxEventSink struct {
	Outbox ports.OutboxWriter
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (s OutboxEventSink) Publish(ctx context.Context, event ports.ElectionEvent) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newElectionEnvelope(eventID, event)
	if err != nil {
		return err
	}
	if err := s.Outbox.AppendOutbox(ctx, envelope); err != nil {
		application.ResolveLogger(s.Logger).Error("election outbox append failed",
			"event", "election_outbox_append_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"event_type", event.Type,
			"election_id", event.ElectionID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func newElectionEnvelope(eventID string, event ports.ElectionEvent) (ports.EventEnvelope, error) {
	// Broadcast events are partitioned by election so one election's stream
	// stays ordered.
	payload, err := json.Marshal(event)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        event.Type,
		OccurredAt:       event.Timestamp.UTC(),
		SourceService:    "election-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "electionId",
		PartitionKey:     event.ElectionID,
		Data:             payload,
	}, nil
}

// publishEvent hands a committed change to the sink. A failed publish is
// logged and swallowed because the mutation itself already succeeded.
func publishEvent(ctx context.Context, sink ports.EventSink, logger *slog.Logger, event ports.ElectionEvent) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, event); err != nil {
		logger.Warn("election event publish failed",
			"event", "election_event_publish_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"event_type", event.Type,
			"election_id", event.ElectionID,
			"position_id", event.PositionID,
			"error", err.Error(),
		)
	}
}

func resolveNow(clock ports.Clock) time.Time {
	now := time.Now().UTC()
	if clock != nil {
		now = clock.Now().UTC()
	}
	return now
}
