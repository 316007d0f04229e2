package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "fellowship/contexts/governance/election-engine/application"
	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

const (
	memberPresenceTopic = "member.presence_changed"
	defaultPresenceCG   = "election-engine-presence-cg"
)

type AttendanceRecorder interface {
	SetMemberAttendance(ctx context.Context, electionID string, memberID string, isPresent bool) (entities.AttendanceRecord, error)
}

// MemberPresenceConsumer applies check-in events from the member check-in
// service to the election's main roster.
type MemberPresenceConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Attendance    AttendanceRecorder
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c MemberPresenceConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("member presence consumer disabled by feature flag",
			"event", "election_presence_consumer_disabled",
			"module", "governance/election-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultPresenceCG
	}
	if err := c.Subscriber.Subscribe(ctx, memberPresenceTopic, group, c.Handle); err != nil {
		logger.Error("member presence consumer subscribe failed",
			"event", "election_presence_consumer_subscribe_failed",
			"module", "governance/election-engine",
			"layer", "worker",
			"topic", memberPresenceTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("member presence consumer subscription active",
		"event", "election_presence_consumer_started",
		"module", "governance/election-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle applies one presence event. Replays are skipped; events rejected by
// the election rules are acknowledged so they do not block the stream. Any
// other failure releases the reservation before returning.
func (c MemberPresenceConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), resolveNow(c.Clock).Add(c.dedupTTL()))
	if err != nil {
		logger.Error("member presence dedupe failed",
			"event", "election_presence_dedupe_failed",
			"module", "governance/election-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("member presence replay skipped",
			"event", "election_presence_replayed",
			"module", "governance/election-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		ElectionID string `json:"election_id"`
		MemberID   string `json:"member_id"`
		IsPresent  bool   `json:"is_present"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("member presence payload decode failed",
			"event", "election_presence_decode_failed",
			"module", "governance/election-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return c.release(ctx, logger, event.EventID, err)
	}
	if _, err := c.Attendance.SetMemberAttendance(ctx, payload.ElectionID, payload.MemberID, payload.IsPresent); err != nil {
		if domainerrors.KindOf(err) != domainerrors.KindInternal && !errors.Is(err, context.Canceled) {
			logger.Warn("member presence event rejected",
				"event", "election_presence_rejected",
				"module", "governance/election-engine",
				"layer", "worker",
				"event_id", event.EventID,
				"election_id", strings.TrimSpace(payload.ElectionID),
				"member_id", strings.TrimSpace(payload.MemberID),
				"error", err.Error(),
			)
			return nil
		}
		return c.release(ctx, logger, event.EventID, err)
	}
	logger.Info("member presence consumed",
		"event", "election_presence_consumed",
		"module", "governance/election-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"election_id", strings.TrimSpace(payload.ElectionID),
		"member_id", strings.TrimSpace(payload.MemberID),
		"is_present", payload.IsPresent,
	)
	return nil
}

// release frees the reservation of an event that was not applied and
// returns cause so the broker redelivers it.
func (c MemberPresenceConsumer) release(ctx context.Context, logger *slog.Logger, eventID string, cause error) error {
	if err := c.Dedup.ReleaseEvent(context.WithoutCancel(ctx), eventID); err != nil {
		logger.Error("member presence dedupe release failed",
			"event", "election_presence_dedupe_release_failed",
			"module", "governance/election-engine",
			"layer", "worker",
			"event_id", eventID,
			"error", err.Error(),
		)
		return errors.Join(cause, err)
	}
	return cause
}

func (c MemberPresenceConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
