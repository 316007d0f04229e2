package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fellowship/contexts/governance/election-engine/adapters/memory"
	"fellowship/contexts/governance/election-engine/application/commands"
	"fellowship/contexts/governance/election-engine/domain/entities"
	"fellowship/contexts/governance/election-engine/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failAt > 0 && len(p.events)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type stubSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, ports.EventEnvelope) error{}
	}
	s.handlers[topic] = handler
	return nil
}

func seededStore(t *testing.T) (*memory.Store, string) {
	t.Helper()
	store := memory.NewStore([]entities.Position{{PositionID: "president", Name: "President"}})
	store.SetEligibleMembers("m1", "m2")
	lifecycle := commands.LifecycleUseCase{
		Elections: store,
		Positions: store,
		Members:   store,
		Clock:     store,
		IDGen:     store,
	}
	created, err := lifecycle.CreateElection(context.Background(), "Annual assembly")
	if err != nil {
		t.Fatalf("create election: %v", err)
	}
	return store, created.Election.ElectionID
}

func attendanceUseCase(store *memory.Store) commands.AttendanceUseCase {
	return commands.AttendanceUseCase{
		Elections:  store,
		Sequencer:  store,
		Attendance: store,
		Events:     commands.OutboxEventSink{Outbox: store, IDGen: store},
		Clock:      store,
	}
}

func TestOutboxRelayPublishesInOrderAndMarksRows(t *testing.T) {
	store, electionID := seededStore(t)
	attendance := attendanceUseCase(store)
	for _, member := range []string{"m1", "m2"} {
		if _, err := attendance.SetMemberAttendance(context.Background(), electionID, member, true); err != nil {
			t.Fatalf("set attendance: %v", err)
		}
	}

	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 10}
	published, err := relay.RunOnce(context.Background())
	if err != nil || published != 2 {
		t.Fatalf("expected 2 published, got %d %v", published, err)
	}
	for _, topic := range publisher.topics {
		if topic != ports.EventTypeAttendance {
			t.Fatalf("unexpected topic %s", topic)
		}
	}
	var first struct {
		MemberID string `json:"memberId"`
	}
	if err := json.Unmarshal(publisher.events[0].Data, &first); err != nil {
		t.Fatalf("decode event data: %v", err)
	}
	if first.MemberID != "m1" {
		t.Fatalf("expected outbox order preserved, got %s first", first.MemberID)
	}

	published, err = relay.RunOnce(context.Background())
	if err != nil || published != 0 {
		t.Fatalf("expected drained outbox, got %d %v", published, err)
	}
}

func TestOutboxRelayStopsOnPublishFailureAndRetries(t *testing.T) {
	store, electionID := seededStore(t)
	attendance := attendanceUseCase(store)
	for _, member := range []string{"m1", "m2"} {
		if _, err := attendance.SetMemberAttendance(context.Background(), electionID, member, true); err != nil {
			t.Fatalf("set attendance: %v", err)
		}
	}

	publisher := &recordingPublisher{failAt: 2}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	published, err := relay.RunOnce(context.Background())
	if err == nil || published != 1 {
		t.Fatalf("expected failure after 1 publish, got %d %v", published, err)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected 1 row left pending, got %d", len(pending))
	}

	publisher.failAt = 0
	published, err = relay.RunOnce(context.Background())
	if err != nil || published != 1 {
		t.Fatalf("expected retry to publish remaining row, got %d %v", published, err)
	}
}

func TestMemberPresenceConsumerAppliesAndDeduplicates(t *testing.T) {
	store, electionID := seededStore(t)
	sub := &stubSubscriber{}
	consumer := MemberPresenceConsumer{
		Subscriber: sub,
		Dedup:      store,
		Attendance: attendanceUseCase(store),
		Clock:      fixedClock{now: time.Now().UTC()},
		DedupTTL:   time.Hour,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	handler := sub.handlers[memberPresenceTopic]
	if handler == nil {
		t.Fatalf("expected %s handler registration", memberPresenceTopic)
	}

	payload, _ := json.Marshal(map[string]any{
		"election_id": electionID,
		"member_id":   "m1",
		"is_present":  true,
	})
	event := ports.EventEnvelope{EventID: "presence-1", EventType: memberPresenceTopic, Data: payload}
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("handle presence: %v", err)
	}
	present, _, _ := store.CountPresent(context.Background(), electionID)
	if present != 1 {
		t.Fatalf("expected 1 present, got %d", present)
	}

	// A replay must not re-apply, even after the roster changed.
	if _, err := attendanceUseCase(store).SetMemberAttendance(context.Background(), electionID, "m1", false); err != nil {
		t.Fatalf("mark absent: %v", err)
	}
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("replay presence: %v", err)
	}
	present, _, _ = store.CountPresent(context.Background(), electionID)
	if present != 0 {
		t.Fatalf("expected replay to be skipped, got %d present", present)
	}
}

func TestMemberPresenceConsumerAcknowledgesRejectedEvents(t *testing.T) {
	store, _ := seededStore(t)
	consumer := MemberPresenceConsumer{
		Subscriber: &stubSubscriber{},
		Dedup:      store,
		Attendance: attendanceUseCase(store),
	}
	payload, _ := json.Marshal(map[string]any{
		"election_id": "missing-election",
		"member_id":   "m1",
		"is_present":  true,
	})
	if err := consumer.Handle(context.Background(), ports.EventEnvelope{EventID: "presence-2", Data: payload}); err != nil {
		t.Fatalf("expected unknown election to be acknowledged, got %v", err)
	}
	if err := consumer.Handle(context.Background(), ports.EventEnvelope{EventID: "presence-3", Data: []byte("not json")}); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}

func TestMemberPresenceConsumerDisabled(t *testing.T) {
	sub := &stubSubscriber{}
	consumer := MemberPresenceConsumer{Subscriber: sub, Disabled: true}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start disabled consumer: %v", err)
	}
	if len(sub.handlers) != 0 {
		t.Fatalf("disabled consumer must not subscribe")
	}
}

type flakyRecorder struct {
	next  AttendanceRecorder
	fails int
	calls int
}

func (r *flakyRecorder) SetMemberAttendance(ctx context.Context, electionID string, memberID string, isPresent bool) (entities.AttendanceRecord, error) {
	r.calls++
	if r.calls <= r.fails {
		return entities.AttendanceRecord{}, errors.New("db connection reset")
	}
	return r.next.SetMemberAttendance(ctx, electionID, memberID, isPresent)
}

func TestMemberPresenceConsumerRedeliversAfterFailure(t *testing.T) {
	store, electionID := seededStore(t)
	recorder := &flakyRecorder{next: attendanceUseCase(store), fails: 1}
	consumer := MemberPresenceConsumer{
		Subscriber: &stubSubscriber{},
		Dedup:      store,
		Attendance: recorder,
	}
	payload, _ := json.Marshal(map[string]any{
		"election_id": electionID,
		"member_id":   "m2",
		"is_present":  true,
	})
	event := ports.EventEnvelope{EventID: "presence-4", Data: payload}

	if err := consumer.Handle(context.Background(), event); err == nil {
		t.Fatalf("expected first delivery to fail")
	}
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if recorder.calls != 2 {
		t.Fatalf("expected redelivery to reach attendance, got %d calls", recorder.calls)
	}
	present, _, _ := store.CountPresent(context.Background(), electionID)
	if present != 1 {
		t.Fatalf("expected redelivered event to mark m2 present, got %d", present)
	}

	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("replay after success: %v", err)
	}
	if recorder.calls != 2 {
		t.Fatalf("expected applied event to be deduplicated, got %d calls", recorder.calls)
	}
}

func TestMemberPresenceConsumerKeepsRejectingMalformedPayload(t *testing.T) {
	store, _ := seededStore(t)
	consumer := MemberPresenceConsumer{
		Subscriber: &stubSubscriber{},
		Dedup:      store,
		Attendance: attendanceUseCase(store),
	}
	event := ports.EventEnvelope{EventID: "presence-5", Data: []byte("{")}
	for attempt := 1; attempt <= 2; attempt++ {
		if err := consumer.Handle(context.Background(), event); err == nil {
			t.Fatalf("attempt %d: expected malformed payload to fail", attempt)
		}
	}
}
