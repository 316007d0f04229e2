package bootstrap

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	electionengine "fellowship/contexts/governance/election-engine"
	"fellowship/contexts/governance/election-engine/ports"
	"fellowship/internal/platform/config"
	"fellowship/internal/platform/httpserver"
)

func memoryConfig() config.Config {
	return config.Config{
		ServiceName:            "fellowship-test",
		StoreDriver:            config.StoreDriverMemory,
		BroadcastDriver:        config.BroadcastDriverMemory,
		OutboxBatchSize:        10,
		OutboxPollInterval:     10 * time.Millisecond,
		EventDedupTTL:          time.Hour,
		EnablePresenceConsumer: true,
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"9000":  ":9000",
		":7000": ":7000",
		" 81 ":  ":81",
	}
	for input, want := range cases {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestOpenRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"
	if _, err := openRuntime(context.Background(), cfg, slog.Default()); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestMemoryWorkerRelaysOutboxAndConsumesPresence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := memoryConfig()
	logger := slog.Default()

	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	module := electionengine.NewModule(rt.deps)
	worker, err := newWorkerApp(cfg, rt, module, logger)
	if err != nil {
		t.Fatalf("worker: %v", err)
	}
	defer worker.Close()

	created, err := module.Handler.Lifecycle.CreateElection(ctx, "Annual assembly")
	if err != nil {
		t.Fatalf("create election: %v", err)
	}
	electionID := created.Election.ElectionID

	received := make(chan ports.EventEnvelope, 4)
	if err := worker.broadcaster.Subscribe(ctx, ports.EventTypeAttendance, "test", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := module.Handler.Attendance.SetMemberAttendance(ctx, electionID, "m1", true); err != nil {
		t.Fatalf("set attendance: %v", err)
	}
	published, err := worker.outboxRelay.RunOnce(ctx)
	if err != nil || published != 1 {
		t.Fatalf("expected one relayed event, got %d %v", published, err)
	}
	select {
	case event := <-received:
		if event.EventType != ports.EventTypeAttendance || event.PartitionKey != electionID {
			t.Fatalf("unexpected broadcast: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for broadcast")
	}

	if err := worker.presence.Start(ctx); err != nil {
		t.Fatalf("start presence consumer: %v", err)
	}
	data, _ := json.Marshal(map[string]any{
		"election_id": electionID,
		"member_id":   "m2",
		"is_present":  true,
	})
	if err := worker.broadcaster.Publish(ctx, "member.presence_changed", ports.EventEnvelope{
		EventID:   "presence-1",
		EventType: "member.presence_changed",
		Data:      data,
	}); err != nil {
		t.Fatalf("publish presence: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		present, _, err := rt.deps.Attendance.CountPresent(ctx, electionID)
		if err != nil {
			t.Fatalf("count present: %v", err)
		}
		if present == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected presence event to mark m2 present, present=%d", present)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAPIAppRunReturnsOnCancellation(t *testing.T) {
	cfg := memoryConfig()
	logger := slog.Default()
	rt, err := openRuntime(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	module := electionengine.NewModule(rt.deps)
	embedded, err := newWorkerApp(cfg, rt, module, logger)
	if err != nil {
		t.Fatalf("worker: %v", err)
	}
	app := &APIApp{
		server:   httpserver.New(module, logger, "127.0.0.1:0"),
		embedded: embedded,
		logger:   logger,
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("api app kept running after cancellation")
	}
}
