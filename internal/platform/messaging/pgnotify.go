package messaging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fellowship/contexts/governance/election-engine/ports"

	"github.com/lib/pq"
)

// maxNotifyPayload is the Postgres NOTIFY payload limit.
const maxNotifyPayload = 8000

type notification struct {
	Topic string              `json:"topic"`
	Event ports.EventEnvelope `json:"event"`
}

// PGNotify broadcasts events across processes with Postgres LISTEN/NOTIFY on
// a single channel. The topic travels inside the payload.
type PGNotify struct {
	db      *sql.DB
	dsn     string
	channel string
	logger  *slog.Logger
}

func NewPGNotify(dsn string, channel string, logger *slog.Logger) (*PGNotify, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("notify channel is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open notify connection: %w", err)
	}
	return &PGNotify{
		db:      db,
		dsn:     dsn,
		channel: channel,
		logger:  logger,
	}, nil
}

func (p *PGNotify) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := encodeNotification(topic, event)
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", p.channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify %s: %w", p.channel, err)
	}
	if p.logger != nil {
		p.logger.Debug("event notified",
			"event", "pgnotify_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"channel", p.channel,
			"topic", topic,
			"event_id", event.EventID,
		)
	}
	return nil
}

// Subscribe opens a dedicated listener connection and dispatches matching
// notifications to handler until ctx is cancelled.
func (p *PGNotify) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil && p.logger != nil {
			p.logger.Warn("notify listener event",
				"event", "pgnotify_listener_problem",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"listener_event", int(ev),
				"error", err.Error(),
			)
		}
	})
	if err := listener.Listen(p.channel); err != nil {
		_ = listener.Close()
		return fmt.Errorf("listen %s: %w", p.channel, err)
	}

	go func() {
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// A nil notification follows a reconnect.
				if n == nil {
					continue
				}
				message, err := decodeNotification(n.Extra)
				if err != nil {
					logHandlerFailure(p.logger, topic, consumerGroup, ports.EventEnvelope{}, err)
					continue
				}
				if message.Topic != topic {
					continue
				}
				if err := handler(ctx, message.Event); err != nil {
					logHandlerFailure(p.logger, topic, consumerGroup, message.Event, err)
				}
			case <-time.After(90 * time.Second):
				go listener.Ping()
			}
		}
	}()
	return nil
}

func (p *PGNotify) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func encodeNotification(topic string, event ports.EventEnvelope) ([]byte, error) {
	payload, err := json.Marshal(notification{Topic: topic, Event: event})
	if err != nil {
		return nil, err
	}
	if len(payload) > maxNotifyPayload {
		return nil, fmt.Errorf("notification for event %s exceeds %d bytes", event.EventID, maxNotifyPayload)
	}
	return payload, nil
}

func decodeNotification(raw string) (notification, error) {
	var message notification
	if err := json.Unmarshal([]byte(raw), &message); err != nil {
		return notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return message, nil
}
