package electionengine

import (
	"log/slog"

	httpadapter "fellowship/contexts/governance/election-engine/adapters/http"
	"fellowship/contexts/governance/election-engine/adapters/memory"
	"fellowship/contexts/governance/election-engine/application/commands"
	"fellowship/contexts/governance/election-engine/application/queries"
	"fellowship/contexts/governance/election-engine/domain/entities"
	"fellowship/contexts/governance/election-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections  ports.ElectionRepository
	Positions  ports.PositionRepository
	Sequencer  ports.SequencerRepository
	Candidates ports.CandidateRepository
	Ballots    ports.BallotRepository
	Attendance ports.AttendanceRepository
	Results    ports.ResultsReader
	Members    ports.MemberDirectory
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	events := commands.OutboxEventSink{
		Outbox: deps.Outbox,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	lifecycle := commands.LifecycleUseCase{
		Elections: deps.Elections,
		Positions: deps.Positions,
		Members:   deps.Members,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	sequencer := commands.SequencerUseCase{
		Elections:  deps.Elections,
		Sequencer:  deps.Sequencer,
		Candidates: deps.Candidates,
		Ballots:    deps.Ballots,
		Attendance: deps.Attendance,
		Events:     events,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	ballots := commands.BallotUseCase{
		Elections:  deps.Elections,
		Sequencer:  deps.Sequencer,
		Candidates: deps.Candidates,
		Ballots:    deps.Ballots,
		Events:     events,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	attendance := commands.AttendanceUseCase{
		Elections:  deps.Elections,
		Sequencer:  deps.Sequencer,
		Attendance: deps.Attendance,
		Events:     events,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	candidates := commands.CandidateUseCase{
		Elections:  deps.Elections,
		Sequencer:  deps.Sequencer,
		Candidates: deps.Candidates,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	templates := commands.PositionTemplateUseCase{
		Positions: deps.Positions,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Lifecycle:  lifecycle,
			Sequencer:  sequencer,
			Ballots:    ballots,
			Attendance: attendance,
			Candidates: candidates,
			Templates:  templates,
			Results: queries.ResultsUseCase{
				Elections: deps.Elections,
				Results:   deps.Results,
			},
			Catalog: queries.CatalogUseCase{
				Positions:  deps.Positions,
				Sequencer:  deps.Sequencer,
				Candidates: deps.Candidates,
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule backs every port with one memory store seeded with the
// given position templates.
func NewInMemoryModule(seed []entities.Position, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
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
	})
	module.Store = store
	return module
}
