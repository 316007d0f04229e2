package postgresadapter

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("ELECTION_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("ELECTION_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db, nil)
}

// seedElection stores an election with two positions, the first one active
// at round 1, and a roster of the given members all present.
func seedElection(t *testing.T, repo *Repository, members ...string) (string, []entities.ElectionPosition) {
	t.Helper()
	now := time.Now().UTC()
	electionID := uuid.NewString()
	opened := now
	positions := []entities.ElectionPosition{
		{
			ElectionPositionID: uuid.NewString(),
			ElectionID:         electionID,
			PositionID:         "president-" + electionID,
			PositionName:       "President",
			Status:             entities.PositionStatusActive,
			CurrentScrutiny:    1,
			OrderIndex:         0,
			OpenedAt:           &opened,
		},
		{
			ElectionPositionID: uuid.NewString(),
			ElectionID:         electionID,
			PositionID:         "secretary-" + electionID,
			PositionName:       "Secretary",
			Status:             entities.PositionStatusPending,
			OrderIndex:         1,
		},
	}
	roster := make([]entities.AttendanceRecord, 0, len(members))
	for _, member := range members {
		roster = append(roster, entities.AttendanceRecord{
			ElectionID: electionID,
			MemberID:   member,
			IsPresent:  true,
			UpdatedAt:  now,
		})
	}
	err := repo.CreateElection(context.Background(), ports.NewElection{
		Election: entities.Election{
			ElectionID: electionID,
			Name:       "Annual assembly",
			IsActive:   true,
			CreatedAt:  now,
		},
		Positions: positions,
		Roster:    roster,
	})
	if err != nil {
		t.Fatalf("create election: %v", err)
	}
	return electionID, positions
}

func seedCandidate(t *testing.T, repo *Repository, electionID string, positionID string) string {
	t.Helper()
	candidateID := uuid.NewString()
	if err := repo.ReplaceCandidates(context.Background(), electionID, positionID, []entities.Candidate{{
		CandidateID: candidateID,
		ElectionID:  electionID,
		PositionID:  positionID,
		Name:        "Alice",
		CreatedAt:   time.Now().UTC(),
	}}); err != nil {
		t.Fatalf("enter candidate: %v", err)
	}
	return candidateID
}

func TestRepositoryRejectsBallotForWithdrawnCandidate(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	electionID, positions := seedElection(t, repo, "m1")
	withdrawn := seedCandidate(t, repo, electionID, positions[0].PositionID)
	current := seedCandidate(t, repo, electionID, positions[0].PositionID)

	vote := entities.Vote{
		VoteID:        uuid.NewString(),
		VoterID:       "m1",
		ElectionID:    electionID,
		PositionID:    positions[0].PositionID,
		CandidateID:   withdrawn,
		ScrutinyRound: 1,
		CastAt:        time.Now().UTC(),
	}
	if err := repo.InsertVote(ctx, vote); !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected withdrawn candidate to be rejected, got %v", err)
	}
	vote.CandidateID = current
	if err := repo.InsertVote(ctx, vote); err != nil {
		t.Fatalf("ballot for current candidate: %v", err)
	}
}

func TestRepositoryRejectsSecondBallotForSameRound(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	electionID, positions := seedElection(t, repo, "m1", "m2")
	candidateID := seedCandidate(t, repo, electionID, positions[0].PositionID)
	vote := entities.Vote{
		VoteID:        uuid.NewString(),
		VoterID:       "m1",
		ElectionID:    electionID,
		PositionID:    positions[0].PositionID,
		CandidateID:   candidateID,
		ScrutinyRound: 1,
		CastAt:        time.Now().UTC(),
	}
	if err := repo.InsertVote(ctx, vote); err != nil {
		t.Fatalf("first ballot: %v", err)
	}
	vote.VoteID = uuid.NewString()
	if err := repo.InsertVote(ctx, vote); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote, got %v", err)
	}
	voted, err := repo.HasVoted(ctx, "m1", positions[0].PositionID, electionID, 1)
	if err != nil || !voted {
		t.Fatalf("expected has voted, got %v %v", voted, err)
	}
}

func TestRepositoryConcurrentBallotsStoreExactlyOne(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	electionID, positions := seedElection(t, repo, "m1")
	candidateID := seedCandidate(t, repo, electionID, positions[0].PositionID)

	var (
		wg         sync.WaitGroup
		accepted   atomic.Int32
		duplicates atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.InsertVote(ctx, entities.Vote{
				VoteID:        uuid.NewString(),
				VoterID:       "m1",
				ElectionID:    electionID,
				PositionID:    positions[0].PositionID,
				CandidateID:   candidateID,
				ScrutinyRound: 1,
				CastAt:        time.Now().UTC(),
			})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domainerrors.ErrDuplicateVote):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if accepted.Load() != 1 || duplicates.Load() != 7 {
		t.Fatalf("expected 1 accepted and 7 duplicates, got %d and %d", accepted.Load(), duplicates.Load())
	}
}

func TestRepositoryActivationSnapshotsRoster(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	electionID, positions := seedElection(t, repo, "m1", "m2", "m3")

	if _, err := repo.RecordWinnerAndComplete(ctx, entities.WinnerRecord{
		ElectionID:    electionID,
		PositionID:    positions[0].PositionID,
		CandidateID:   "c1",
		WonAtScrutiny: 1,
		RecordedAt:    time.Now().UTC(),
	}, time.Now().UTC()); err != nil {
		t.Fatalf("record winner: %v", err)
	}
	next, ok, err := repo.ActivateNextPending(ctx, electionID, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("activate next: %v %v", ok, err)
	}
	if next.ElectionPositionID != positions[1].ElectionPositionID {
		t.Fatalf("expected secretary to open, got %s", next.PositionName)
	}

	if err := repo.UpsertAttendance(ctx, entities.AttendanceRecord{
		ElectionID: electionID,
		MemberID:   "m1",
		IsPresent:  false,
		UpdatedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("upsert attendance: %v", err)
	}
	present, rows, err := repo.CountPresentForPosition(ctx, next.ElectionPositionID)
	if err != nil {
		t.Fatalf("count snapshot: %v", err)
	}
	if present != 3 || rows != 3 {
		t.Fatalf("expected frozen snapshot 3/3, got %d/%d", present, rows)
	}
	mainPresent, _, err := repo.CountPresent(ctx, electionID)
	if err != nil || mainPresent != 2 {
		t.Fatalf("expected main roster present 2, got %d %v", mainPresent, err)
	}
	created, err := repo.CreateSnapshot(ctx, next.ElectionPositionID, time.Now().UTC())
	if err != nil || created {
		t.Fatalf("expected snapshot no-op, got %v %v", created, err)
	}
}

func TestRepositoryRecordWinnerTwiceFails(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	electionID, positions := seedElection(t, repo, "m1")
	winner := entities.WinnerRecord{
		ElectionID:    electionID,
		PositionID:    positions[0].PositionID,
		CandidateID:   "c1",
		WonAtScrutiny: 1,
		RecordedAt:    time.Now().UTC(),
	}
	if _, err := repo.RecordWinnerAndComplete(ctx, winner, time.Now().UTC()); err != nil {
		t.Fatalf("record winner: %v", err)
	}
	if _, err := repo.RecordWinnerAndComplete(ctx, winner, time.Now().UTC()); !errors.Is(err, domainerrors.ErrWinnerAlreadyExists) {
		t.Fatalf("expected winner already exists, got %v", err)
	}
}

func TestRepositoryOutboxRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	envelope := ports.EventEnvelope{
		EventID:      uuid.NewString(),
		EventType:    ports.EventTypeVote,
		OccurredAt:   time.Now().UTC(),
		PartitionKey: "e1",
		Data:         []byte(`{"electionId":"e1"}`),
	}
	if err := repo.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append outbox: %v", err)
	}
	if err := repo.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("replayed append should be a no-op: %v", err)
	}
	pending, err := repo.ListPendingOutbox(ctx, 1000)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	found := false
	for _, message := range pending {
		if message.OutboxID == envelope.EventID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected appended envelope in pending outbox")
	}
	if err := repo.MarkOutboxPublished(ctx, envelope.EventID, time.Now().UTC()); err != nil {
		t.Fatalf("mark published: %v", err)
	}

	reserved, err := repo.ReserveEvent(ctx, envelope.EventID, "hash", time.Now().Add(time.Hour))
	if err != nil || reserved {
		t.Fatalf("first reservation: %v %v", reserved, err)
	}
	reserved, err = repo.ReserveEvent(ctx, envelope.EventID, "hash", time.Now().Add(time.Hour))
	if err != nil || !reserved {
		t.Fatalf("expected replay detection, got %v %v", reserved, err)
	}
}
