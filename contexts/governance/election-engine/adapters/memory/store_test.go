package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

// seedElection stores an election with three positions, the first active at
// round 1 with candidate c1, and a roster of the given members all present.
func seedElection(t *testing.T, store *Store, members ...string) []entities.ElectionPosition {
	t.Helper()
	now := time.Now().UTC()
	positions := []entities.ElectionPosition{
		{ElectionPositionID: "ep-1", ElectionID: "e1", PositionID: "president", Status: entities.PositionStatusActive, CurrentScrutiny: 1, OrderIndex: 0, OpenedAt: &now},
		{ElectionPositionID: "ep-2", ElectionID: "e1", PositionID: "secretary", Status: entities.PositionStatusPending, CurrentScrutiny: 1, OrderIndex: 1},
		{ElectionPositionID: "ep-3", ElectionID: "e1", PositionID: "treasurer", Status: entities.PositionStatusPending, CurrentScrutiny: 1, OrderIndex: 2},
	}
	roster := make([]entities.AttendanceRecord, 0, len(members))
	for _, member := range members {
		roster = append(roster, entities.AttendanceRecord{ElectionID: "e1", MemberID: member, IsPresent: true, UpdatedAt: now})
	}
	if err := store.CreateElection(context.Background(), ports.NewElection{
		Election:  entities.Election{ElectionID: "e1", Name: "Annual assembly", IsActive: true, CreatedAt: now},
		Positions: positions,
		Roster:    roster,
	}); err != nil {
		t.Fatalf("create election: %v", err)
	}
	if err := store.ReplaceCandidates(context.Background(), "e1", "president", []entities.Candidate{
		{CandidateID: "c1", ElectionID: "e1", PositionID: "president", Name: "Alice"},
	}); err != nil {
		t.Fatalf("enter candidates: %v", err)
	}
	return positions
}

func TestStoreRejectsSecondBallotForSameRound(t *testing.T) {
	store := NewStore(nil)
	seedElection(t, store, "m1")
	vote := entities.Vote{VoteID: "v1", VoterID: "m1", ElectionID: "e1", PositionID: "president", CandidateID: "c1", ScrutinyRound: 1}
	if err := store.InsertVote(context.Background(), vote); err != nil {
		t.Fatalf("first ballot: %v", err)
	}
	vote.VoteID = "v2"
	if err := store.InsertVote(context.Background(), vote); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote, got %v", err)
	}
	vote.ScrutinyRound = 2
	if err := store.InsertVote(context.Background(), vote); !errors.Is(err, domainerrors.ErrRoundMismatch) {
		t.Fatalf("expected round mismatch, got %v", err)
	}
	vote.ScrutinyRound = 1
	vote.PositionID = "secretary"
	if err := store.InsertVote(context.Background(), vote); !errors.Is(err, domainerrors.ErrPositionNotActive) {
		t.Fatalf("expected position not active, got %v", err)
	}
	if store.VoteCount() != 1 {
		t.Fatalf("expected one stored ballot, got %d", store.VoteCount())
	}
}

func TestStoreRejectsBallotForWithdrawnCandidate(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedElection(t, store, "m1", "m2")
	if err := store.ReplaceCandidates(ctx, "e1", "president", []entities.Candidate{
		{CandidateID: "c2", ElectionID: "e1", PositionID: "president", Name: "Bob"},
	}); err != nil {
		t.Fatalf("replace candidates: %v", err)
	}
	vote := entities.Vote{VoteID: "v1", VoterID: "m1", ElectionID: "e1", PositionID: "president", CandidateID: "c1", ScrutinyRound: 1}
	if err := store.InsertVote(ctx, vote); !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected withdrawn candidate to be rejected, got %v", err)
	}
	vote.CandidateID = "c2"
	if err := store.InsertVote(ctx, vote); err != nil {
		t.Fatalf("ballot for current candidate: %v", err)
	}
	if store.VoteCount() != 1 {
		t.Fatalf("expected one stored ballot, got %d", store.VoteCount())
	}
}

func TestStoreActivationSnapshotsRoster(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedElection(t, store, "m1", "m2", "m3")

	if _, err := store.RecordWinnerAndComplete(ctx, entities.WinnerRecord{
		ElectionID: "e1", PositionID: "president", CandidateID: "c1", WonAtScrutiny: 1,
	}, time.Now()); err != nil {
		t.Fatalf("record winner: %v", err)
	}
	next, ok, err := store.ActivateNextPending(ctx, "e1", time.Now())
	if err != nil || !ok || next.ElectionPositionID != "ep-2" {
		t.Fatalf("expected ep-2 to open, got %+v %v %v", next, ok, err)
	}

	if err := store.UpsertAttendance(ctx, entities.AttendanceRecord{ElectionID: "e1", MemberID: "m1", IsPresent: false}); err != nil {
		t.Fatalf("upsert attendance: %v", err)
	}
	present, rows, _ := store.CountPresentForPosition(ctx, "ep-2")
	if present != 3 || rows != 3 {
		t.Fatalf("expected frozen snapshot 3/3, got %d/%d", present, rows)
	}
	mainPresent, _, _ := store.CountPresent(ctx, "e1")
	if mainPresent != 2 {
		t.Fatalf("expected main roster 2 present, got %d", mainPresent)
	}
	created, err := store.CreateSnapshot(ctx, "ep-2", time.Now())
	if err != nil || created {
		t.Fatalf("expected snapshot no-op, got %v %v", created, err)
	}
}

func TestStoreKeepsOneActivePositionAndForwardOrder(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedElection(t, store, "m1")

	if _, err := store.ActivatePosition(ctx, "ep-2", time.Now()); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected second active position to be rejected, got %v", err)
	}
	if _, err := store.CompletePosition(ctx, "ep-1", "withdrawn", time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := store.ActivatePosition(ctx, "ep-3", time.Now()); err != nil {
		t.Fatalf("skip ahead to ep-3: %v", err)
	}
	if _, err := store.CompletePosition(ctx, "ep-3", "withdrawn", time.Now()); err != nil {
		t.Fatalf("complete ep-3: %v", err)
	}
	if _, err := store.ActivatePosition(ctx, "ep-2", time.Now()); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected skipped position to stay closed, got %v", err)
	}
	if _, ok, err := store.ActivateNextPending(ctx, "e1", time.Now()); err != nil || ok {
		t.Fatalf("expected nothing left to open, got %v %v", ok, err)
	}
}

func TestStoreAdvanceScrutinyIsBounded(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedElection(t, store, "m1")
	for from := 1; from < entities.MaxScrutiny; from++ {
		position, err := store.AdvanceScrutiny(ctx, "ep-1", from)
		if err != nil || position.CurrentScrutiny != from+1 {
			t.Fatalf("advance from %d: %+v %v", from, position, err)
		}
	}
	if _, err := store.AdvanceScrutiny(ctx, "ep-1", entities.MaxScrutiny); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected advance past round 3 to fail, got %v", err)
	}
	if _, err := store.AdvanceScrutiny(ctx, "ep-1", 1); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected stale advance to fail, got %v", err)
	}
}

func TestStoreRecordWinnerTwiceFails(t *testing.T) {
	store := NewStore(nil)
	seedElection(t, store, "m1")
	winner := entities.WinnerRecord{ElectionID: "e1", PositionID: "president", CandidateID: "c1", WonAtScrutiny: 1}
	if _, err := store.RecordWinnerAndComplete(context.Background(), winner, time.Now()); err != nil {
		t.Fatalf("record winner: %v", err)
	}
	if _, err := store.RecordWinnerAndComplete(context.Background(), winner, time.Now()); !errors.Is(err, domainerrors.ErrWinnerAlreadyExists) {
		t.Fatalf("expected winner already exists, got %v", err)
	}
}

func TestStoreOutboxAndDedup(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	envelope := ports.EventEnvelope{EventID: "evt-1", EventType: ports.EventTypeVote, PartitionKey: "e1", Data: []byte(`{"electionId":"e1"}`)}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("replayed append should be a no-op: %v", err)
	}
	changed := envelope
	changed.Data = []byte(`{"electionId":"e2"}`)
	if err := store.AppendOutbox(ctx, changed); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflicting payload to fail, got %v", err)
	}
	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d", len(pending))
	}
	if err := store.MarkOutboxPublished(ctx, "evt-1", time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if pending, _ = store.ListPendingOutbox(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d", len(pending))
	}

	seen, err := store.ReserveEvent(ctx, "evt-9", "hash", time.Now().Add(time.Hour))
	if err != nil || seen {
		t.Fatalf("first reservation: %v %v", seen, err)
	}
	seen, err = store.ReserveEvent(ctx, "evt-9", "hash", time.Now().Add(time.Hour))
	if err != nil || !seen {
		t.Fatalf("expected replay detection, got %v %v", seen, err)
	}
	if _, err := store.ReserveEvent(ctx, "evt-9", "other", time.Now().Add(time.Hour)); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected hash mismatch conflict, got %v", err)
	}

	expired, err := store.ReserveEvent(ctx, "evt-10", "hash", time.Now().Add(-time.Minute))
	if err != nil || expired {
		t.Fatalf("reserve expired: %v %v", expired, err)
	}
	seen, err = store.ReserveEvent(ctx, "evt-10", "hash", time.Now().Add(time.Hour))
	if err != nil || seen {
		t.Fatalf("expected expired reservation to be replaced, got %v %v", seen, err)
	}
}

func TestStoreRejectsSnapshotOnFinalizedElection(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedElection(t, store, "m1")
	if _, err := store.CloseElection(ctx, "e1", "closed", time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.CreateSnapshot(ctx, "ep-2", time.Now()); !errors.Is(err, domainerrors.ErrElectionClosed) {
		t.Fatalf("expected closed election to reject snapshot, got %v", err)
	}
	if _, err := store.FinalizeElection(ctx, "e1", time.Now()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := store.CreateSnapshot(ctx, "ep-2", time.Now()); !errors.Is(err, domainerrors.ErrElectionFinalized) {
		t.Fatalf("expected finalized election to reject snapshot, got %v", err)
	}
	if _, rows, _ := store.CountPresentForPosition(ctx, "ep-2"); rows != 0 {
		t.Fatalf("expected no snapshot rows, got %d", rows)
	}
}

func TestStoreReleaseEventAllowsReprocessing(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.ReserveEvent(ctx, "evt-1", "hash", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.ReleaseEvent(ctx, "evt-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	seen, err := store.ReserveEvent(ctx, "evt-1", "hash", time.Now().Add(time.Hour))
	if err != nil || seen {
		t.Fatalf("expected released event to be reserved afresh, got %v %v", seen, err)
	}
}
