package ports

import (
	"context"
	"encoding/json"
	"time"

	"fellowship/contexts/governance/election-engine/domain/entities"
)

// NewElection is everything createElection persists in one unit.
type NewElection struct {
	Election  entities.Election
	Positions []entities.ElectionPosition
	Roster    []entities.AttendanceRecord
}

type ElectionRepository interface {
	CreateElection(ctx context.Context, input NewElection) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	GetLatestElection(ctx context.Context) (entities.Election, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
	// CloseElection marks the election inactive and force-completes every
	// non-completed position with the given reason. Returns the positions it
	// completed.
	CloseElection(ctx context.Context, electionID string, reason string, closedAt time.Time) ([]entities.ElectionPosition, error)
	// FinalizeElection fails with ErrInvalidTransition unless every position is
	// completed.
	FinalizeElection(ctx context.Context, electionID string, finalizedAt time.Time) (entities.Election, error)
}

type PositionRepository interface {
	CreatePosition(ctx context.Context, position entities.Position) error
	ListPositions(ctx context.Context) ([]entities.Position, error)
}

// SequencerRepository performs the position state transitions. Every method
// is atomic and rechecks its preconditions under the election lock, so two
// callers racing on the same election cannot both succeed.
type SequencerRepository interface {
	GetElectionPosition(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error)
	FindElectionPosition(ctx context.Context, electionID string, positionID string) (entities.ElectionPosition, error)
	ListElectionPositions(ctx context.Context, electionID string) ([]entities.ElectionPosition, error)
	// ActivateNextPending opens the lowest-order pending position. The bool is
	// false when nothing is left to open.
	ActivateNextPending(ctx context.Context, electionID string, openedAt time.Time) (entities.ElectionPosition, bool, error)
	ActivatePosition(ctx context.Context, electionPositionID string, openedAt time.Time) (entities.ElectionPosition, error)
	// AdvanceScrutiny moves an active position from fromScrutiny to the next
	// round. It fails with ErrConflict when the position moved meanwhile.
	AdvanceScrutiny(ctx context.Context, electionPositionID string, fromScrutiny int) (entities.ElectionPosition, error)
	CompletePosition(ctx context.Context, electionPositionID string, reason string, closedAt time.Time) (entities.ElectionPosition, error)
	// RecordWinnerAndComplete appends the WinnerRecord and completes the
	// position in one unit. A second winner fails with ErrWinnerAlreadyExists.
	RecordWinnerAndComplete(ctx context.Context, winner entities.WinnerRecord, closedAt time.Time) (entities.ElectionPosition, error)
	GetWinner(ctx context.Context, electionID string, positionID string) (entities.WinnerRecord, bool, error)
}

type CandidateRepository interface {
	// ReplaceCandidates swaps the nominee set while the position is pending or
	// has no ballots yet.
	ReplaceCandidates(ctx context.Context, electionID string, positionID string, candidates []entities.Candidate) error
	ListCandidates(ctx context.Context, electionID string, positionID string) ([]entities.Candidate, error)
}

type BallotRepository interface {
	// InsertVote stores the ballot if the position is active at vote.ScrutinyRound
	// and the voter has no ballot for that round yet.
	InsertVote(ctx context.Context, vote entities.Vote) error
	HasVoted(ctx context.Context, voterID string, positionID string, electionID string, scrutinyRound int) (bool, error)
	ListVotes(ctx context.Context, electionID string, positionID string, scrutinyRound int) ([]entities.Vote, error)
}

type AttendanceRepository interface {
	UpsertAttendance(ctx context.Context, record entities.AttendanceRecord) error
	// CreateSnapshot copies the main roster into rows tagged with the
	// position. It returns false when a snapshot already existed.
	CreateSnapshot(ctx context.Context, electionPositionID string, takenAt time.Time) (bool, error)
	// The count methods return the present count and the number of rows in
	// scope, so callers can tell an empty roster from an absent one.
	CountPresent(ctx context.Context, electionID string) (int, int, error)
	CountPresentForPosition(ctx context.Context, electionPositionID string) (int, int, error)
}

// ElectionAggregate is the batch-fetched picture used by the results view.
type ElectionAggregate struct {
	Election    entities.Election
	Positions   []entities.ElectionPosition
	Candidates  []entities.Candidate
	Votes       []entities.Vote
	Winners     []entities.WinnerRecord
	MainPresent int
	MainRows    int
	// Snapshots is keyed by election position id; positions without a
	// snapshot are absent.
	Snapshots map[string]SnapshotCount
}

type SnapshotCount struct {
	Rows    int
	Present int
}

type ResultsReader interface {
	LoadElectionAggregate(ctx context.Context, electionID string) (ElectionAggregate, error)
}

// MemberDirectory lists active, voting-eligible members.
type MemberDirectory interface {
	ListEligibleMemberIDs(ctx context.Context) ([]string, error)
}

const (
	EventTypeVote       = "election:vote"
	EventTypeResult     = "election:result"
	EventTypeAttendance = "election:attendance"
)

// ElectionEvent is the broadcast payload for vote, result and attendance
// changes. Only the fields relevant to Type are set.
type ElectionEvent struct {
	Type        string    `json:"-"`
	ElectionID  string    `json:"electionId"`
	PositionID  string    `json:"positionId,omitempty"`
	CandidateID string    `json:"candidateId,omitempty"`
	WinnerID    string    `json:"winnerId,omitempty"`
	MemberID    string    `json:"memberId,omitempty"`
	Present     *bool     `json:"present,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type EventSink interface {
	Publish(ctx context.Context, event ElectionEvent) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
	// ReleaseEvent drops a reservation whose event was not applied so a
	// redelivery is processed again.
	ReleaseEvent(ctx context.Context, eventID string) error
}
