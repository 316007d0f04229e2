package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "fellowship/contexts/governance/election-engine/application"
	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

type CloseRoundResult struct {
	Tally  entities.RoundTally
	Quorum entities.Quorum
	AdvanceResult
}

type TieCheck struct {
	IsTie      bool
	Candidates []entities.CandidateTally
}

// CloseRound tallies the current round of an active position against its
// quorum and applies the resulting outcome.
func (uc SequencerUseCase) CloseRound(ctx context.Context, electionPositionID string) (CloseRoundResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	position, err := uc.loadActivePosition(ctx, electionPositionID)
	if err != nil {
		return CloseRoundResult{}, err
	}
	tally, quorum, err := uc.currentTally(ctx, position, true)
	if err != nil {
		logger.Warn("round close rejected",
			"event", "election_round_close_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", position.ElectionPositionID,
			"error", err.Error(),
		)
		return CloseRoundResult{}, err
	}
	outcome := entities.Decide(tally)
	logger.Info("round tallied",
		"event", "election_round_tallied",
		"module", "governance/election-engine",
		"layer", "application",
		"election_position_id", position.ElectionPositionID,
		"scrutiny", tally.Scrutiny,
		"present_count", quorum.PresentCount,
		"quorum_scope", string(quorum.Scope),
		"threshold", tally.MajorityThreshold,
		"total_voters", tally.TotalVoters,
		"outcome", string(outcome.Kind),
	)
	advanced, err := uc.Advance(ctx, position.ElectionPositionID, outcome)
	if err != nil {
		return CloseRoundResult{}, err
	}
	return CloseRoundResult{Tally: tally, Quorum: quorum, AdvanceResult: advanced}, nil
}

// CheckThirdScrutinyTie reports the tied leaders of an active position in its
// third round. Any other position is reported as not tied.
func (uc SequencerUseCase) CheckThirdScrutinyTie(ctx context.Context, electionPositionID string) (TieCheck, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	if electionPositionID == "" {
		return TieCheck{}, domainerrors.ErrInvalidInput
	}
	position, err := uc.Sequencer.GetElectionPosition(ctx, electionPositionID)
	if err != nil {
		return TieCheck{}, err
	}
	if !position.IsActive() || position.CurrentScrutiny != entities.MaxScrutiny {
		return TieCheck{}, nil
	}
	tally, _, err := uc.currentTally(ctx, position, false)
	if err != nil {
		return TieCheck{}, err
	}
	outcome := entities.Decide(tally)
	if outcome.Kind != entities.OutcomeTie {
		return TieCheck{}, nil
	}
	return TieCheck{IsTie: true, Candidates: outcome.Tied}, nil
}

// ResolveThirdScrutinyTie records the administrator's pick among the tied
// leaders as the round-3 winner and moves the election on.
func (uc SequencerUseCase) ResolveThirdScrutinyTie(ctx context.Context, electionPositionID string, winnerID string) (AdvanceResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	winnerID = strings.TrimSpace(winnerID)
	if winnerID == "" {
		return AdvanceResult{}, domainerrors.ErrInvalidInput
	}
	check, err := uc.CheckThirdScrutinyTie(ctx, electionPositionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	if !check.IsTie {
		logger.Warn("tie resolution rejected",
			"event", "election_tie_resolution_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", strings.TrimSpace(electionPositionID),
		)
		return AdvanceResult{}, domainerrors.ErrNoTie
	}
	tied := false
	for _, candidate := range check.Candidates {
		if candidate.CandidateID == winnerID {
			tied = true
			break
		}
	}
	if !tied {
		return AdvanceResult{}, fmt.Errorf("%w: winner is not among the tied candidates", domainerrors.ErrInvalidInput)
	}
	result, err := uc.advance(ctx, electionPositionID, entities.WinnerOutcome(winnerID, entities.MaxScrutiny), true)
	if err != nil {
		return AdvanceResult{}, err
	}
	logger.Info("third scrutiny tie resolved",
		"event", "election_tie_resolved",
		"module", "governance/election-engine",
		"layer", "application",
		"election_position_id", result.Position.ElectionPositionID,
		"winner_id", winnerID,
	)
	return result, nil
}

// SetWinner writes the WinnerRecord for a position at its current round and
// completes it. A tied third round is left to ResolveThirdScrutinyTie.
// Opening the next position is left to the caller.
func (uc SequencerUseCase) SetWinner(ctx context.Context, electionID string, candidateID string, positionID string, scrutiny int) (entities.WinnerRecord, entities.ElectionPosition, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	positionID = strings.TrimSpace(positionID)
	if electionID == "" || positionID == "" || scrutiny < 1 || scrutiny > entities.MaxScrutiny {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, domainerrors.ErrInvalidInput
	}
	if _, err := requireMutableElection(ctx, uc.Elections, electionID); err != nil {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, err
	}
	position, err := uc.Sequencer.FindElectionPosition(ctx, electionID, positionID)
	if err != nil {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, err
	}
	if !position.IsActive() {
		if _, found, lookupErr := uc.Sequencer.GetWinner(ctx, electionID, positionID); lookupErr == nil && found {
			return entities.WinnerRecord{}, entities.ElectionPosition{}, domainerrors.ErrWinnerAlreadyExists
		}
		return entities.WinnerRecord{}, entities.ElectionPosition{}, domainerrors.ErrPositionNotActive
	}
	if position.CurrentScrutiny != scrutiny {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, domainerrors.ErrRoundMismatch
	}
	if err := uc.requireNoTie(ctx, logger, position); err != nil {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, err
	}
	return uc.recordWinner(ctx, logger, position, candidateID)
}

func (uc SequencerUseCase) recordWinner(
	ctx context.Context,
	logger *slog.Logger,
	position entities.ElectionPosition,
	candidateID string,
) (entities.WinnerRecord, entities.ElectionPosition, error) {
	candidateID = strings.TrimSpace(candidateID)
	candidates, err := uc.Candidates.ListCandidates(ctx, position.ElectionID, position.PositionID)
	if err != nil {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, err
	}
	if !containsCandidate(candidates, candidateID) {
		return entities.WinnerRecord{}, entities.ElectionPosition{}, domainerrors.ErrCandidateNotFound
	}
	now := resolveNow(uc.Clock)
	winner := entities.WinnerRecord{
		ElectionID:    position.ElectionID,
		PositionID:    position.PositionID,
		CandidateID:   candidateID,
		WonAtScrutiny: position.CurrentScrutiny,
		RecordedAt:    now,
	}
	completed, err := uc.Sequencer.RecordWinnerAndComplete(ctx, winner, now)
	if err != nil {
		logger.Warn("winner record rejected",
			"event", "election_winner_record_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", position.ElectionID,
			"position_id", position.PositionID,
			"candidate_id", candidateID,
			"error", err.Error(),
		)
		return entities.WinnerRecord{}, entities.ElectionPosition{}, err
	}
	logger.Info("winner recorded",
		"event", "election_winner_recorded",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", winner.ElectionID,
		"position_id", winner.PositionID,
		"candidate_id", winner.CandidateID,
		"won_at_scrutiny", winner.WonAtScrutiny,
	)
	publishEvent(ctx, uc.Events, logger, ports.ElectionEvent{
		Type:       ports.EventTypeResult,
		ElectionID: winner.ElectionID,
		PositionID: winner.PositionID,
		WinnerID:   winner.CandidateID,
		Timestamp:  now,
	})
	return winner, completed, nil
}

// currentTally counts the position's current round. With requireQuorum set a
// missing or empty roster fails with ErrQuorumUnavailable; otherwise the
// tally falls back to a zero present count, which still reveals ties.
func (uc SequencerUseCase) currentTally(
	ctx context.Context,
	position entities.ElectionPosition,
	requireQuorum bool,
) (entities.RoundTally, entities.Quorum, error) {
	candidates, err := uc.Candidates.ListCandidates(ctx, position.ElectionID, position.PositionID)
	if err != nil {
		return entities.RoundTally{}, entities.Quorum{}, err
	}
	if len(candidates) == 0 && requireQuorum {
		return entities.RoundTally{}, entities.Quorum{}, domainerrors.ErrNoCandidates
	}
	quorum, err := resolveQuorum(ctx, uc.Attendance, position)
	if err != nil {
		if requireQuorum || !errors.Is(err, domainerrors.ErrQuorumUnavailable) {
			return entities.RoundTally{}, entities.Quorum{}, err
		}
		quorum.PresentCount = 0
	}
	votes, err := uc.Ballots.ListVotes(ctx, position.ElectionID, position.PositionID, position.CurrentScrutiny)
	if err != nil {
		return entities.RoundTally{}, entities.Quorum{}, err
	}
	tally := entities.TallyRound(candidates, votes, position.CurrentScrutiny, quorum.PresentCount)
	tally.ElectionID = position.ElectionID
	tally.PositionID = position.PositionID
	return tally, quorum, nil
}
