package commands

import (
	"context"
	"log/slog"
	"strings"

	application "fellowship/contexts/governance/election-engine/application"
	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

type CastVoteCommand struct {
	VoterID       string
	PositionID    string
	ElectionID    string
	CandidateID   string
	ScrutinyRound int
}

// BallotUseCase validates and records ballots. One ballot per voter, position
// and round; ballots are never edited.
type BallotUseCase struct {
	Elections  ports.ElectionRepository
	Sequencer  ports.SequencerRepository
	Candidates ports.CandidateRepository
	Ballots    ports.BallotRepository
	Events     ports.EventSink
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// CastVote records one ballot. The checks here produce precise errors for
// the common cases; the repository repeats the position and uniqueness checks
// atomically so concurrent submissions cannot slip past them.
func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.VoterID = strings.TrimSpace(cmd.VoterID)
	cmd.PositionID = strings.TrimSpace(cmd.PositionID)
	cmd.ElectionID = strings.TrimSpace(cmd.ElectionID)
	cmd.CandidateID = strings.TrimSpace(cmd.CandidateID)
	logger.Info("vote cast processing started",
		"event", "election_vote_cast_started",
		"module", "governance/election-engine",
		"layer", "application",
		"voter_id", cmd.VoterID,
		"election_id", cmd.ElectionID,
		"position_id", cmd.PositionID,
		"scrutiny_round", cmd.ScrutinyRound,
	)
	if cmd.VoterID == "" || cmd.PositionID == "" || cmd.ElectionID == "" || cmd.CandidateID == "" ||
		cmd.ScrutinyRound < 1 || cmd.ScrutinyRound > entities.MaxScrutiny {
		logger.Warn("vote cast validation failed",
			"event", "election_vote_cast_validation_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"voter_id", cmd.VoterID,
			"position_id", cmd.PositionID,
		)
		return entities.Vote{}, domainerrors.ErrInvalidInput
	}

	if _, err := requireMutableElection(ctx, uc.Elections, cmd.ElectionID); err != nil {
		return entities.Vote{}, err
	}
	position, err := uc.Sequencer.FindElectionPosition(ctx, cmd.ElectionID, cmd.PositionID)
	if err != nil {
		return entities.Vote{}, err
	}
	if !position.IsActive() {
		uc.logRejected(logger, cmd, domainerrors.ErrPositionNotActive)
		return entities.Vote{}, domainerrors.ErrPositionNotActive
	}
	if !position.AcceptsRound(cmd.ScrutinyRound) {
		uc.logRejected(logger, cmd, domainerrors.ErrRoundMismatch)
		return entities.Vote{}, domainerrors.ErrRoundMismatch
	}
	candidates, err := uc.Candidates.ListCandidates(ctx, cmd.ElectionID, cmd.PositionID)
	if err != nil {
		return entities.Vote{}, err
	}
	if !containsCandidate(candidates, cmd.CandidateID) {
		uc.logRejected(logger, cmd, domainerrors.ErrCandidateNotFound)
		return entities.Vote{}, domainerrors.ErrCandidateNotFound
	}
	voted, err := uc.Ballots.HasVoted(ctx, cmd.VoterID, cmd.PositionID, cmd.ElectionID, cmd.ScrutinyRound)
	if err != nil {
		return entities.Vote{}, err
	}
	if voted {
		uc.logRejected(logger, cmd, domainerrors.ErrDuplicateVote)
		return entities.Vote{}, domainerrors.ErrDuplicateVote
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	vote := entities.Vote{
		VoteID:        voteID,
		VoterID:       cmd.VoterID,
		PositionID:    cmd.PositionID,
		ElectionID:    cmd.ElectionID,
		CandidateID:   cmd.CandidateID,
		ScrutinyRound: cmd.ScrutinyRound,
		CastAt:        resolveNow(uc.Clock),
	}
	if err := uc.Ballots.InsertVote(ctx, vote); err != nil {
		uc.logRejected(logger, cmd, err)
		return entities.Vote{}, err
	}
	logger.Info("vote cast",
		"event", "election_vote_cast",
		"module", "governance/election-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"voter_id", vote.VoterID,
		"election_id", vote.ElectionID,
		"position_id", vote.PositionID,
		"scrutiny_round", vote.ScrutinyRound,
	)
	publishEvent(ctx, uc.Events, logger, ports.ElectionEvent{
		Type:        ports.EventTypeVote,
		ElectionID:  vote.ElectionID,
		PositionID:  vote.PositionID,
		CandidateID: vote.CandidateID,
		Timestamp:   vote.CastAt,
	})
	return vote, nil
}

func (uc BallotUseCase) HasVoted(ctx context.Context, voterID string, positionID string, electionID string, scrutinyRound int) (bool, error) {
	voterID = strings.TrimSpace(voterID)
	positionID = strings.TrimSpace(positionID)
	electionID = strings.TrimSpace(electionID)
	if voterID == "" || positionID == "" || electionID == "" || scrutinyRound < 1 || scrutinyRound > entities.MaxScrutiny {
		return false, domainerrors.ErrInvalidInput
	}
	return uc.Ballots.HasVoted(ctx, voterID, positionID, electionID, scrutinyRound)
}

func (uc BallotUseCase) logRejected(logger *slog.Logger, cmd CastVoteCommand, err error) {
	logger.Warn("vote cast rejected",
		"event", "election_vote_cast_rejected",
		"module", "governance/election-engine",
		"layer", "application",
		"voter_id", cmd.VoterID,
		"election_id", cmd.ElectionID,
		"position_id", cmd.PositionID,
		"scrutiny_round", cmd.ScrutinyRound,
		"reason", string(domainerrors.KindOf(err)),
	)
}

func containsCandidate(candidates []entities.Candidate, candidateID string) bool {
	for _, candidate := range candidates {
		if candidate.CandidateID == candidateID {
			return true
		}
	}
	return false
}
