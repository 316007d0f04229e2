package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fellowship/contexts/governance/election-engine/ports"
)

func TestBusDeliversOnlyToTopicSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewBus(nil)

	votes := make(chan ports.EventEnvelope, 1)
	results := make(chan ports.EventEnvelope, 1)
	if err := bus.Subscribe(ctx, ports.EventTypeVote, "ui", func(_ context.Context, event ports.EventEnvelope) error {
		votes <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe votes: %v", err)
	}
	if err := bus.Subscribe(ctx, ports.EventTypeResult, "ui", func(_ context.Context, event ports.EventEnvelope) error {
		results <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe results: %v", err)
	}

	if err := bus.Publish(ctx, ports.EventTypeVote, ports.EventEnvelope{EventID: "evt-1", EventType: ports.EventTypeVote}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case event := <-votes:
		if event.EventID != "evt-1" {
			t.Fatalf("unexpected event %s", event.EventID)
		}
	case <-time.After(time.Second):
		t.Fatalf("vote subscriber did not receive event")
	}
	select {
	case event := <-results:
		t.Fatalf("result subscriber received %s", event.EventID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusKeepsDeliveringAfterHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewBus(nil)

	seen := make(chan string, 2)
	if err := bus.Subscribe(ctx, "member.presence_changed", "cg", func(_ context.Context, event ports.EventEnvelope) error {
		seen <- event.EventID
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := bus.Publish(ctx, "member.presence_changed", ports.EventEnvelope{EventID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	for _, want := range []string{"a", "b"} {
		select {
		case got := <-seen:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %s not delivered", want)
		}
	}
}

func TestBusRemovesSubscriberOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus(nil)
	if err := bus.Subscribe(ctx, "topic", "cg", func(context.Context, ports.EventEnvelope) error { return nil }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		bus.mu.RLock()
		remaining := len(bus.subscribers["topic"])
		bus.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscriber still registered after cancel")
}

func TestNotificationEncodingCarriesTopic(t *testing.T) {
	payload, err := encodeNotification(ports.EventTypeAttendance, ports.EventEnvelope{
		EventID:   "evt-9",
		EventType: ports.EventTypeAttendance,
		Data:      []byte(`{"electionId":"e1","memberId":"m1","present":true}`),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	message, err := decodeNotification(string(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if message.Topic != ports.EventTypeAttendance || message.Event.EventID != "evt-9" {
		t.Fatalf("unexpected notification %+v", message)
	}
}

func TestNotificationEncodingRejectsOversizedPayload(t *testing.T) {
	_, err := encodeNotification("topic", ports.EventEnvelope{
		EventID: "big",
		Data:    []byte(`"` + strings.Repeat("x", maxNotifyPayload) + `"`),
	})
	if err == nil {
		t.Fatalf("expected oversized payload error")
	}
}
