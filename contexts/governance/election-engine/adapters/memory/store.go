package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"

	"github.com/google/uuid"
)

const winnerCompletionReason = "winner elected"

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  int
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type voteKey struct {
	voterID    string
	positionID string
	electionID string
	round      int
}

// Store keeps the whole election state behind one mutex, so every repository
// method is trivially atomic. It backs tests and single-process deployments.
type Store struct {
	mu sync.RWMutex

	elections         map[string]entities.Election
	electionOrder     []string
	templates         map[string]entities.Position
	electionPositions map[string]entities.ElectionPosition
	candidates        map[string][]entities.Candidate
	votes             []entities.Vote
	voteKeys          map[voteKey]struct{}
	roster            map[string]map[string]entities.AttendanceRecord
	snapshots         map[string]map[string]entities.AttendanceRecord
	winners           map[string]entities.WinnerRecord
	members           []string

	outbox         map[string]outboxRecord
	outboxSequence int
	eventDedup     map[string]dedupRecord
}

func NewStore(seed []entities.Position) *Store {
	templates := make(map[string]entities.Position, len(seed))
	for _, position := range seed {
		templates[strings.TrimSpace(position.PositionID)] = position
	}
	return &Store{
		elections:         make(map[string]entities.Election),
		templates:         templates,
		electionPositions: make(map[string]entities.ElectionPosition),
		candidates:        make(map[string][]entities.Candidate),
		voteKeys:          make(map[voteKey]struct{}),
		roster:            make(map[string]map[string]entities.AttendanceRecord),
		snapshots:         make(map[string]map[string]entities.AttendanceRecord),
		winners:           make(map[string]entities.WinnerRecord),
		outbox:            make(map[string]outboxRecord),
		eventDedup:        make(map[string]dedupRecord),
	}
}

// SetEligibleMembers replaces the member directory used to seed new rosters.
func (s *Store) SetEligibleMembers(memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append([]string(nil), memberIDs...)
}

func (s *Store) ListEligibleMemberIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.members...), nil
}

func (s *Store) CreatePosition(_ context.Context, position entities.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(position.PositionID)
	if _, exists := s.templates[key]; exists {
		return domainerrors.ErrConflict
	}
	s.templates[key] = position
	return nil
}

func (s *Store) ListPositions(_ context.Context) ([]entities.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Position, 0, len(s.templates))
	for _, position := range s.templates {
		items = append(items, position)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].OrderIndex == items[j].OrderIndex {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].OrderIndex < items[j].OrderIndex
	})
	return items, nil
}

func (s *Store) CreateElection(_ context.Context, input ports.NewElection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID := strings.TrimSpace(input.Election.ElectionID)
	if _, exists := s.elections[electionID]; exists {
		return domainerrors.ErrConflict
	}
	s.elections[electionID] = input.Election
	s.electionOrder = append(s.electionOrder, electionID)
	for _, position := range input.Positions {
		s.electionPositions[position.ElectionPositionID] = position
	}
	roster := make(map[string]entities.AttendanceRecord, len(input.Roster))
	for _, record := range input.Roster {
		roster[record.MemberID] = record
	}
	s.roster[electionID] = roster
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) GetLatestElection(_ context.Context) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.electionOrder) == 0 {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return s.elections[s.electionOrder[len(s.electionOrder)-1]], nil
}

func (s *Store) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0, len(s.electionOrder))
	for i := len(s.electionOrder) - 1; i >= 0; i-- {
		items = append(items, s.elections[s.electionOrder[i]])
	}
	return items, nil
}

func (s *Store) CloseElection(_ context.Context, electionID string, reason string, closedAt time.Time) ([]entities.ElectionPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, err := s.mutableElectionLocked(electionID)
	if err != nil {
		return nil, err
	}
	closed := closedAt.UTC()
	election.IsActive = false
	election.ClosedAt = &closed
	s.elections[election.ElectionID] = election

	var completed []entities.ElectionPosition
	for _, position := range s.positionsLocked(election.ElectionID) {
		if position.Status == entities.PositionStatusCompleted {
			continue
		}
		position.Status = entities.PositionStatusCompleted
		position.ClosedAt = &closed
		position.CompletionReason = reason
		s.electionPositions[position.ElectionPositionID] = position
		completed = append(completed, position)
	}
	return completed, nil
}

func (s *Store) FinalizeElection(_ context.Context, electionID string, finalizedAt time.Time) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	if election.IsFinalized() {
		return entities.Election{}, domainerrors.ErrElectionFinalized
	}
	for _, position := range s.positionsLocked(election.ElectionID) {
		if position.Status != entities.PositionStatusCompleted {
			return entities.Election{}, domainerrors.ErrInvalidTransition
		}
	}
	finalized := finalizedAt.UTC()
	election.IsActive = false
	election.FinalizedAt = &finalized
	s.elections[election.ElectionID] = election
	return election, nil
}

func (s *Store) GetElectionPosition(_ context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	position, ok := s.electionPositions[strings.TrimSpace(electionPositionID)]
	if !ok {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotFound
	}
	return position, nil
}

func (s *Store) FindElectionPosition(_ context.Context, electionID string, positionID string) (entities.ElectionPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(electionID, positionID)
}

func (s *Store) ListElectionPositions(_ context.Context, electionID string) ([]entities.ElectionPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.elections[strings.TrimSpace(electionID)]; !ok {
		return nil, domainerrors.ErrElectionNotFound
	}
	return s.positionsLocked(strings.TrimSpace(electionID)), nil
}

func (s *Store) ActivateNextPending(_ context.Context, electionID string, openedAt time.Time) (entities.ElectionPosition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, err := s.mutableElectionLocked(electionID)
	if err != nil {
		return entities.ElectionPosition{}, false, err
	}
	positions := s.positionsLocked(election.ElectionID)
	floor, err := openFloor(positions)
	if err != nil {
		return entities.ElectionPosition{}, false, err
	}
	for _, position := range positions {
		if position.Status != entities.PositionStatusPending || position.OrderIndex < floor {
			continue
		}
		return s.activateLocked(position, openedAt), true, nil
	}
	return entities.ElectionPosition{}, false, nil
}

func (s *Store) ActivatePosition(_ context.Context, electionPositionID string, openedAt time.Time) (entities.ElectionPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.electionPositions[strings.TrimSpace(electionPositionID)]
	if !ok {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotFound
	}
	if _, err := s.mutableElectionLocked(target.ElectionID); err != nil {
		return entities.ElectionPosition{}, err
	}
	if target.Status != entities.PositionStatusPending {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
	}
	floor, err := openFloor(s.positionsLocked(target.ElectionID))
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if target.OrderIndex < floor {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
	}
	return s.activateLocked(target, openedAt), nil
}

func (s *Store) AdvanceScrutiny(_ context.Context, electionPositionID string, fromScrutiny int) (entities.ElectionPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, ok := s.electionPositions[strings.TrimSpace(electionPositionID)]
	if !ok {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotFound
	}
	if !position.IsActive() {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotActive
	}
	if position.CurrentScrutiny != fromScrutiny || fromScrutiny >= entities.MaxScrutiny {
		return entities.ElectionPosition{}, domainerrors.ErrConflict
	}
	position.CurrentScrutiny++
	s.electionPositions[position.ElectionPositionID] = position
	return position, nil
}

func (s *Store) CompletePosition(_ context.Context, electionPositionID string, reason string, closedAt time.Time) (entities.ElectionPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, ok := s.electionPositions[strings.TrimSpace(electionPositionID)]
	if !ok {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotFound
	}
	if position.Status == entities.PositionStatusCompleted {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
	}
	return s.completeLocked(position, reason, closedAt), nil
}

func (s *Store) RecordWinnerAndComplete(_ context.Context, winner entities.WinnerRecord, closedAt time.Time) (entities.ElectionPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(winner.ElectionID, winner.PositionID)
	if _, exists := s.winners[key]; exists {
		return entities.ElectionPosition{}, domainerrors.ErrWinnerAlreadyExists
	}
	position, err := s.findLocked(winner.ElectionID, winner.PositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if !position.IsActive() {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotActive
	}
	if position.CurrentScrutiny != winner.WonAtScrutiny {
		return entities.ElectionPosition{}, domainerrors.ErrConflict
	}
	s.winners[key] = winner
	return s.completeLocked(position, winnerCompletionReason, closedAt), nil
}

func (s *Store) GetWinner(_ context.Context, electionID string, positionID string) (entities.WinnerRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	winner, ok := s.winners[pairKey(electionID, positionID)]
	return winner, ok, nil
}

func (s *Store) ReplaceCandidates(_ context.Context, electionID string, positionID string, candidates []entities.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, err := s.findLocked(electionID, positionID)
	if err != nil {
		return err
	}
	if position.Status == entities.PositionStatusCompleted {
		return domainerrors.ErrInvalidTransition
	}
	if position.IsActive() {
		for _, vote := range s.votes {
			if vote.ElectionID == position.ElectionID && vote.PositionID == position.PositionID {
				return domainerrors.ErrInvalidTransition
			}
		}
	}
	s.candidates[pairKey(electionID, positionID)] = append([]entities.Candidate(nil), candidates...)
	return nil
}

func (s *Store) ListCandidates(_ context.Context, electionID string, positionID string) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Candidate(nil), s.candidates[pairKey(electionID, positionID)]...), nil
}

func (s *Store) InsertVote(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.mutableElectionLocked(vote.ElectionID); err != nil {
		return err
	}
	position, err := s.findLocked(vote.ElectionID, vote.PositionID)
	if err != nil {
		return err
	}
	if !position.IsActive() {
		return domainerrors.ErrPositionNotActive
	}
	if position.CurrentScrutiny != vote.ScrutinyRound {
		return domainerrors.ErrRoundMismatch
	}
	if !s.hasCandidateLocked(vote.ElectionID, vote.PositionID, vote.CandidateID) {
		return domainerrors.ErrCandidateNotFound
	}
	key := voteKey{
		voterID:    strings.TrimSpace(vote.VoterID),
		positionID: strings.TrimSpace(vote.PositionID),
		electionID: strings.TrimSpace(vote.ElectionID),
		round:      vote.ScrutinyRound,
	}
	if _, exists := s.voteKeys[key]; exists {
		return domainerrors.ErrDuplicateVote
	}
	s.voteKeys[key] = struct{}{}
	s.votes = append(s.votes, vote)
	return nil
}

func (s *Store) hasCandidateLocked(electionID string, positionID string, candidateID string) bool {
	candidateID = strings.TrimSpace(candidateID)
	for _, candidate := range s.candidates[pairKey(electionID, positionID)] {
		if candidate.CandidateID == candidateID {
			return true
		}
	}
	return false
}

func (s *Store) HasVoted(_ context.Context, voterID string, positionID string, electionID string, scrutinyRound int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.voteKeys[voteKey{
		voterID:    strings.TrimSpace(voterID),
		positionID: strings.TrimSpace(positionID),
		electionID: strings.TrimSpace(electionID),
		round:      scrutinyRound,
	}]
	return exists, nil
}

func (s *Store) ListVotes(_ context.Context, electionID string, positionID string, scrutinyRound int) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.ElectionID == electionID && vote.PositionID == positionID && vote.ScrutinyRound == scrutinyRound {
			items = append(items, vote)
		}
	}
	return items, nil
}

// VoteCount is a test helper reporting every stored ballot.
func (s *Store) VoteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votes)
}

func (s *Store) UpsertAttendance(_ context.Context, record entities.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID := strings.TrimSpace(record.ElectionID)
	if _, ok := s.elections[electionID]; !ok {
		return domainerrors.ErrElectionNotFound
	}
	roster, ok := s.roster[electionID]
	if !ok {
		roster = make(map[string]entities.AttendanceRecord)
		s.roster[electionID] = roster
	}
	record.ElectionPositionID = ""
	roster[strings.TrimSpace(record.MemberID)] = record
	return nil
}

func (s *Store) CreateSnapshot(_ context.Context, electionPositionID string, takenAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, ok := s.electionPositions[strings.TrimSpace(electionPositionID)]
	if !ok {
		return false, domainerrors.ErrPositionNotFound
	}
	if _, err := s.mutableElectionLocked(position.ElectionID); err != nil {
		return false, err
	}
	return s.snapshotLocked(position, takenAt), nil
}

func (s *Store) CountPresent(_ context.Context, electionID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	present, rows := countPresent(s.roster[strings.TrimSpace(electionID)])
	return present, rows, nil
}

func (s *Store) CountPresentForPosition(_ context.Context, electionPositionID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	present, rows := countPresent(s.snapshots[strings.TrimSpace(electionPositionID)])
	return present, rows, nil
}

func (s *Store) LoadElectionAggregate(_ context.Context, electionID string) (ports.ElectionAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	election, ok := s.elections[electionID]
	if !ok {
		return ports.ElectionAggregate{}, domainerrors.ErrElectionNotFound
	}
	aggregate := ports.ElectionAggregate{
		Election:  election,
		Positions: s.positionsLocked(electionID),
		Snapshots: make(map[string]ports.SnapshotCount),
	}
	for _, position := range aggregate.Positions {
		aggregate.Candidates = append(aggregate.Candidates, s.candidates[pairKey(electionID, position.PositionID)]...)
		if winner, ok := s.winners[pairKey(electionID, position.PositionID)]; ok {
			aggregate.Winners = append(aggregate.Winners, winner)
		}
		if rows, ok := s.snapshots[position.ElectionPositionID]; ok && len(rows) > 0 {
			present, count := countPresent(rows)
			aggregate.Snapshots[position.ElectionPositionID] = ports.SnapshotCount{Rows: count, Present: present}
		}
	}
	for _, vote := range s.votes {
		if vote.ElectionID == electionID {
			aggregate.Votes = append(aggregate.Votes, vote)
		}
	}
	aggregate.MainPresent, aggregate.MainRows = countPresent(s.roster[electionID])
	return aggregate, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSequence++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
		sequence: s.outboxSequence,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].sequence < rows[j].sequence
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.eventDedup, strings.TrimSpace(eventID))
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) mutableElectionLocked(electionID string) (entities.Election, error) {
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	if election.IsFinalized() {
		return entities.Election{}, domainerrors.ErrElectionFinalized
	}
	if !election.IsActive {
		return entities.Election{}, domainerrors.ErrElectionClosed
	}
	return election, nil
}

func (s *Store) positionsLocked(electionID string) []entities.ElectionPosition {
	items := make([]entities.ElectionPosition, 0)
	for _, position := range s.electionPositions {
		if position.ElectionID == electionID {
			items = append(items, position)
		}
	}
	sortPositions(items)
	return items
}

func (s *Store) findLocked(electionID string, positionID string) (entities.ElectionPosition, error) {
	electionID = strings.TrimSpace(electionID)
	positionID = strings.TrimSpace(positionID)
	for _, position := range s.electionPositions {
		if position.ElectionID == electionID && position.PositionID == positionID {
			return position, nil
		}
	}
	return entities.ElectionPosition{}, domainerrors.ErrPositionNotFound
}

func (s *Store) activateLocked(position entities.ElectionPosition, openedAt time.Time) entities.ElectionPosition {
	opened := openedAt.UTC()
	position.Status = entities.PositionStatusActive
	position.CurrentScrutiny = 1
	position.OpenedAt = &opened
	s.electionPositions[position.ElectionPositionID] = position
	s.snapshotLocked(position, openedAt)
	return position
}

func (s *Store) completeLocked(position entities.ElectionPosition, reason string, closedAt time.Time) entities.ElectionPosition {
	closed := closedAt.UTC()
	position.Status = entities.PositionStatusCompleted
	position.ClosedAt = &closed
	position.CompletionReason = reason
	s.electionPositions[position.ElectionPositionID] = position
	return position
}

func (s *Store) snapshotLocked(position entities.ElectionPosition, takenAt time.Time) bool {
	if rows, exists := s.snapshots[position.ElectionPositionID]; exists && len(rows) > 0 {
		return false
	}
	roster := s.roster[position.ElectionID]
	snapshot := make(map[string]entities.AttendanceRecord, len(roster))
	for memberID, record := range roster {
		record.ElectionPositionID = position.ElectionPositionID
		record.UpdatedAt = takenAt.UTC()
		snapshot[memberID] = record
	}
	s.snapshots[position.ElectionPositionID] = snapshot
	return true
}

func openFloor(positions []entities.ElectionPosition) (int, error) {
	floor, ok := entities.OpenFloor(positions)
	if !ok {
		return 0, domainerrors.ErrInvalidTransition
	}
	return floor, nil
}

func countPresent(rows map[string]entities.AttendanceRecord) (int, int) {
	present := 0
	for _, record := range rows {
		if record.IsPresent {
			present++
		}
	}
	return present, len(rows)
}

func pairKey(electionID string, positionID string) string {
	return strings.TrimSpace(electionID) + "/" + strings.TrimSpace(positionID)
}

func sortPositions(items []entities.ElectionPosition) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].OrderIndex == items[j].OrderIndex {
			return items[i].ElectionPositionID < items[j].ElectionPositionID
		}
		return items[i].OrderIndex < items[j].OrderIndex
	})
}

var (
	_ ports.ElectionRepository   = (*Store)(nil)
	_ ports.PositionRepository   = (*Store)(nil)
	_ ports.SequencerRepository  = (*Store)(nil)
	_ ports.CandidateRepository  = (*Store)(nil)
	_ ports.BallotRepository     = (*Store)(nil)
	_ ports.AttendanceRepository = (*Store)(nil)
	_ ports.ResultsReader        = (*Store)(nil)
	_ ports.MemberDirectory      = (*Store)(nil)
	_ ports.OutboxWriter         = (*Store)(nil)
	_ ports.OutboxRepository     = (*Store)(nil)
	_ ports.EventDedupStore      = (*Store)(nil)
	_ ports.Clock                = (*Store)(nil)
	_ ports.IDGenerator          = (*Store)(nil)
)
