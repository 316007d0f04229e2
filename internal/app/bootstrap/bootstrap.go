package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	electionengine "fellowship/contexts/governance/election-engine"
	"fellowship/contexts/governance/election-engine/adapters/memory"
	postgresadapter "fellowship/contexts/governance/election-engine/adapters/postgres"
	workerapp "fellowship/contexts/governance/election-engine/application/workers"
	"fellowship/contexts/governance/election-engine/ports"
	"fellowship/internal/platform/config"
	"fellowship/internal/platform/db"
	"fellowship/internal/platform/httpserver"
	"fellowship/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	embedded *WorkerApp
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres    *db.Postgres
	broadcaster broadcaster
	outboxRelay workerapp.OutboxRelay
	presence    workerapp.MemberPresenceConsumer
	logger      *slog.Logger
}

type broadcaster interface {
	ports.EventPublisher
	ports.EventSubscriber
}

// runtime is the storage side of the wiring shared by both processes.
type runtime struct {
	deps     electionengine.Dependencies
	outbox   ports.OutboxRepository
	dedup    ports.EventDedupStore
	postgres *db.Postgres
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	rt, err := openRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	module := electionengine.NewModule(rt.deps)
	app := &APIApp{
		server:   httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
		postgres: rt.postgres,
		logger:   logger,
	}

	// The memory store lives in this process, so nothing else can relay its
	// outbox or feed its roster.
	if cfg.StoreDriver == config.StoreDriverMemory {
		embedded, err := newWorkerApp(cfg, rt, module, logger)
		if err != nil {
			return nil, err
		}
		app.embedded = embedded
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	rt, err := openRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	module := electionengine.NewModule(rt.deps)
	worker, err := newWorkerApp(cfg, rt, module, logger)
	if err != nil {
		if rt.postgres != nil {
			_ = rt.postgres.Close()
		}
		return nil, err
	}
	worker.postgres = rt.postgres
	return worker, nil
}

func openRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (runtime, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore(nil)
		logger.Warn("using in-memory election store",
			"event", "bootstrap_memory_store_selected",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		return runtime{
			deps: electionengine.Dependencies{
				Elections:  store,
				Positions:  store,
				Sequencer:  store,
				Candidates: store,
				Ballots:    store,
				Attendance: store,
				Results:    store,
				Members:    store,
				Outbox:     store,
				Clock:      store,
				IDGen:      store,
				Logger:     logger,
			},
			outbox: store,
			dedup:  store,
		}, nil

	case config.StoreDriverPostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return runtime{}, err
		}
		if err := postgresadapter.EnsureSchema(ctx, pg.DB); err != nil {
			_ = pg.Close()
			return runtime{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		return runtime{
			deps: electionengine.Dependencies{
				Elections:  repo,
				Positions:  repo,
				Sequencer:  repo,
				Candidates: repo,
				Ballots:    repo,
				Attendance: repo,
				Results:    repo,
				Members:    repo,
				Outbox:     repo,
				Clock:      postgresadapter.SystemClock{},
				IDGen:      postgresadapter.UUIDGenerator{},
				Logger:     logger,
			},
			outbox:   repo,
			dedup:    repo,
			postgres: pg,
		}, nil

	default:
		return runtime{}, errors.New("unsupported STORE_DRIVER " + cfg.StoreDriver)
	}
}

func openBroadcaster(cfg config.Config, logger *slog.Logger) (broadcaster, error) {
	if cfg.BroadcastDriver == config.BroadcastDriverPGNotify {
		return messaging.NewPGNotify(cfg.PostgresDSN, cfg.BroadcastChannel, logger)
	}
	return messaging.NewBus(logger), nil
}

func newWorkerApp(cfg config.Config, rt runtime, module electionengine.Module, logger *slog.Logger) (*WorkerApp, error) {
	bus, err := openBroadcaster(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		broadcaster: bus,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:       rt.outbox,
			Publisher:    bus,
			Clock:        rt.deps.Clock,
			BatchSize:    cfg.OutboxBatchSize,
			PollInterval: cfg.OutboxPollInterval,
			Logger:       logger,
		},
		presence: workerapp.MemberPresenceConsumer{
			Subscriber:    bus,
			Dedup:         rt.dedup,
			Attendance:    module.Handler.Attendance,
			Clock:         rt.deps.Clock,
			ConsumerGroup: cfg.ServiceName + "-member-presence-cg",
			DedupTTL:      cfg.EventDedupTTL,
			Disabled:      !cfg.EnablePresenceConsumer,
			Logger:        logger,
		},
		logger: logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"embedded_worker", a.embedded != nil,
		)
	}
	if a.embedded != nil {
		go func() {
			if err := a.embedded.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("embedded worker stopped",
					"event", "bootstrap_embedded_worker_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}()
	}
	return a.server.Start(ctx)
}

func (a *APIApp) Close() error {
	var errs []error
	if a.embedded != nil {
		errs = append(errs, a.embedded.Close())
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.presence.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.outboxRelay.PollInterval.String(),
	)
	err := w.outboxRelay.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *WorkerApp) Close() error {
	var errs []error
	if closer, ok := w.broadcaster.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
