package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "fellowship/contexts/governance/election-engine/application"
	"fellowship/contexts/governance/election-engine/ports"
)

// OutboxRelay forwards persisted election events to the broadcast publisher.
type OutboxRelay struct {
	Outbox       ports.OutboxRepository
	Publisher    ports.EventPublisher
	Clock        ports.Clock
	BatchSize    int
	PollInterval time.Duration
	Logger       *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after the publisher accepted it. It stops on the first
// failure so the next cycle retries the remaining rows in order.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("election outbox list failed",
			"event", "election_outbox_list_failed",
			"module", "governance/election-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("election outbox relay found no pending rows",
			"event", "election_outbox_relay_noop",
			"module", "governance/election-engine",
			"layer", "worker",
			"batch_size", limit,
		)
		return 0, nil
	}

	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("election outbox decode failed",
				"event", "election_outbox_decode_failed",
				"module", "governance/election-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("election outbox publish failed",
				"event", "election_outbox_publish_failed",
				"module", "governance/election-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, resolveNow(r.Clock)); err != nil {
			logger.Error("election outbox mark published failed",
				"event", "election_outbox_mark_published_failed",
				"module", "governance/election-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("election outbox relay cycle completed",
		"event", "election_outbox_relay_completed",
		"module", "governance/election-engine",
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}

// Run polls the outbox until ctx is cancelled. Cycle failures are logged by
// RunOnce and retried on the next tick.
func (r OutboxRelay) Run(ctx context.Context) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		_, _ = r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
