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

const completedReason = "completed"

type ForceCompleteCommand struct {
	ElectionPositionID string
	Reason             string
	ShouldReopen       bool
}

// AdvanceResult describes what one transition did. Winner and NextPosition
// are set only when a winner was recorded; Exhausted marks a third round that
// ended without winner or tie.
type AdvanceResult struct {
	Position     entities.ElectionPosition
	Outcome      entities.RoundOutcome
	Winner       *entities.WinnerRecord
	NextPosition *entities.ElectionPosition
	Exhausted    bool
}

// SequencerUseCase is the position state machine together with the winner
// resolver that feeds it.
type SequencerUseCase struct {
	Elections  ports.ElectionRepository
	Sequencer  ports.SequencerRepository
	Candidates ports.CandidateRepository
	Ballots    ports.BallotRepository
	Attendance ports.AttendanceRepository
	Events     ports.EventSink
	Clock      ports.Clock
	Logger     *slog.Logger
}

// OpenNextPosition activates the lowest-order pending position and snapshots
// the roster for it. The bool is false once every position has been opened.
func (uc SequencerUseCase) OpenNextPosition(ctx context.Context, electionID string) (entities.ElectionPosition, bool, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := requireMutableElection(ctx, uc.Elections, electionID)
	if err != nil {
		return entities.ElectionPosition{}, false, err
	}
	position, opened, err := uc.Sequencer.ActivateNextPending(ctx, election.ElectionID, resolveNow(uc.Clock))
	if err != nil {
		logger.Warn("open next position rejected",
			"event", "election_position_open_next_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"error", err.Error(),
		)
		return entities.ElectionPosition{}, false, err
	}
	if !opened {
		logger.Info("election fully sequenced",
			"event", "election_positions_exhausted",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
		)
		return entities.ElectionPosition{}, false, nil
	}
	logger.Info("position opened",
		"event", "election_position_opened",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", position.ElectionID,
		"election_position_id", position.ElectionPositionID,
		"order_index", position.OrderIndex,
	)
	return position, true, nil
}

// OpenPosition explicitly activates a pending position at round 1. Earlier
// pending positions may be skipped but never reopened afterwards.
func (uc SequencerUseCase) OpenPosition(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	logger := application.ResolveLogger(uc.Logger)
	position, err := uc.loadPosition(ctx, electionPositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if position.Status != entities.PositionStatusPending {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
	}
	opened, err := uc.Sequencer.ActivatePosition(ctx, position.ElectionPositionID, resolveNow(uc.Clock))
	if err != nil {
		logger.Warn("open position rejected",
			"event", "election_position_open_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", position.ElectionPositionID,
			"error", err.Error(),
		)
		return entities.ElectionPosition{}, err
	}
	logger.Info("position opened",
		"event", "election_position_opened",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", opened.ElectionID,
		"election_position_id", opened.ElectionPositionID,
		"order_index", opened.OrderIndex,
	)
	return opened, nil
}

// AdvancePositionScrutiny moves an active position to its next round. At
// round 3 it returns the position unchanged.
func (uc SequencerUseCase) AdvancePositionScrutiny(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	logger := application.ResolveLogger(uc.Logger)
	position, err := uc.loadActivePosition(ctx, electionPositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if position.CurrentScrutiny >= entities.MaxScrutiny {
		logger.Debug("scrutiny already at final round",
			"event", "election_scrutiny_advance_noop",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", position.ElectionPositionID,
		)
		return position, nil
	}
	advanced, err := uc.Sequencer.AdvanceScrutiny(ctx, position.ElectionPositionID, position.CurrentScrutiny)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	logger.Info("scrutiny advanced",
		"event", "election_scrutiny_advanced",
		"module", "governance/election-engine",
		"layer", "application",
		"election_position_id", advanced.ElectionPositionID,
		"scrutiny", advanced.CurrentScrutiny,
	)
	return advanced, nil
}

// CompletePosition closes an active position. A third-round tie must be
// resolved first.
func (uc SequencerUseCase) CompletePosition(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	logger := application.ResolveLogger(uc.Logger)
	position, err := uc.loadPosition(ctx, electionPositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if !position.IsActive() {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
	}
	if err := uc.requireNoTie(ctx, logger, position); err != nil {
		return entities.ElectionPosition{}, err
	}
	completed, err := uc.Sequencer.CompletePosition(ctx, position.ElectionPositionID, completedReason, resolveNow(uc.Clock))
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	logger.Info("position completed",
		"event", "election_position_completed",
		"module", "governance/election-engine",
		"layer", "application",
		"election_position_id", completed.ElectionPositionID,
		"scrutiny", completed.CurrentScrutiny,
	)
	return completed, nil
}

// ForceCompletePosition completes a pending or active position outside the
// majority path and stores the reason. It is terminal: ShouldReopen is only
// recorded in the log.
func (uc SequencerUseCase) ForceCompletePosition(ctx context.Context, cmd ForceCompleteCommand) (entities.ElectionPosition, error) {
	logger := application.ResolveLogger(uc.Logger)
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidInput
	}
	position, err := uc.loadPosition(ctx, cmd.ElectionPositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if position.Status == entities.PositionStatusCompleted {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
	}
	completed, err := uc.Sequencer.CompletePosition(ctx, position.ElectionPositionID, reason, resolveNow(uc.Clock))
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	logger.Warn("position force completed",
		"event", "election_position_force_completed",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", completed.ElectionID,
		"election_position_id", completed.ElectionPositionID,
		"previous_status", string(position.Status),
		"reason", reason,
		"reopen_requested", cmd.ShouldReopen,
	)
	return completed, nil
}

// Advance is the single transition entry point for an end-of-round outcome.
//
// NoWinnerYet moves to the next round, or leaves a third round exhausted.
// Winner records the winner, completes the position and opens the next one.
// Tie is only legal in round 3 and leaves the position waiting for
// ResolveThirdScrutinyTie.
func (uc SequencerUseCase) Advance(ctx context.Context, electionPositionID string, outcome entities.RoundOutcome) (AdvanceResult, error) {
	return uc.advance(ctx, electionPositionID, outcome, false)
}

// advance applies outcome. tiePick marks a Winner chosen among tied leaders
// by ResolveThirdScrutinyTie; any other round-3 Winner is refused while the
// tally is tied.
func (uc SequencerUseCase) advance(ctx context.Context, electionPositionID string, outcome entities.RoundOutcome, tiePick bool) (AdvanceResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	position, err := uc.loadActivePosition(ctx, electionPositionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	if outcome.Scrutiny == 0 {
		outcome.Scrutiny = position.CurrentScrutiny
	}
	if outcome.Scrutiny != position.CurrentScrutiny {
		return AdvanceResult{}, domainerrors.ErrRoundMismatch
	}
	result := AdvanceResult{Position: position, Outcome: outcome}

	switch outcome.Kind {
	case entities.OutcomeNoWinnerYet:
		if position.CurrentScrutiny >= entities.MaxScrutiny {
			result.Exhausted = true
			logger.Warn("final scrutiny ended without winner",
				"event", "election_scrutiny_exhausted",
				"module", "governance/election-engine",
				"layer", "application",
				"election_position_id", position.ElectionPositionID,
			)
			return result, nil
		}
		advanced, err := uc.Sequencer.AdvanceScrutiny(ctx, position.ElectionPositionID, position.CurrentScrutiny)
		if err != nil {
			return AdvanceResult{}, err
		}
		result.Position = advanced
		logger.Info("scrutiny advanced",
			"event", "election_scrutiny_advanced",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", advanced.ElectionPositionID,
			"scrutiny", advanced.CurrentScrutiny,
		)
		return result, nil

	case entities.OutcomeWinner:
		if !tiePick {
			if err := uc.requireNoTie(ctx, logger, position); err != nil {
				return AdvanceResult{}, err
			}
		}
		winner, completed, err := uc.recordWinner(ctx, logger, position, outcome.CandidateID)
		if err != nil {
			return AdvanceResult{}, err
		}
		result.Position = completed
		result.Winner = &winner
		// The winner is committed; a failed open leaves the next position for
		// a later OpenNextPosition call.
		next, opened, err := uc.OpenNextPosition(ctx, completed.ElectionID)
		if err != nil {
			logger.Error("open next position after winner failed",
				"event", "election_position_open_next_after_winner_failed",
				"module", "governance/election-engine",
				"layer", "application",
				"election_id", completed.ElectionID,
				"election_position_id", completed.ElectionPositionID,
				"error", err.Error(),
			)
			return result, nil
		}
		if opened {
			result.NextPosition = &next
		}
		return result, nil

	case entities.OutcomeTie:
		if position.CurrentScrutiny < entities.MaxScrutiny {
			return AdvanceResult{}, domainerrors.ErrInvalidTransition
		}
		logger.Info("third scrutiny tie awaiting resolution",
			"event", "election_scrutiny_tie",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", position.ElectionPositionID,
			"tied_count", len(outcome.Tied),
		)
		return result, nil

	default:
		return AdvanceResult{}, domainerrors.ErrInvalidInput
	}
}

// loadPosition fetches a position of an election that still accepts changes.
func (uc SequencerUseCase) loadPosition(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	if electionPositionID == "" {
		return entities.ElectionPosition{}, domainerrors.ErrInvalidInput
	}
	position, err := uc.Sequencer.GetElectionPosition(ctx, electionPositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if _, err := requireMutableElection(ctx, uc.Elections, position.ElectionID); err != nil {
		return entities.ElectionPosition{}, err
	}
	return position, nil
}

func (uc SequencerUseCase) loadActivePosition(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	position, err := uc.loadPosition(ctx, electionPositionID)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if !position.IsActive() {
		return entities.ElectionPosition{}, domainerrors.ErrPositionNotActive
	}
	return position, nil
}

// requireNoTie fails with ErrUnresolvedTie while a third-round tally is tied.
func (uc SequencerUseCase) requireNoTie(ctx context.Context, logger *slog.Logger, position entities.ElectionPosition) error {
	if position.CurrentScrutiny < entities.MaxScrutiny {
		return nil
	}
	tally, _, err := uc.currentTally(ctx, position, false)
	if err != nil {
		return err
	}
	if entities.Decide(tally).Kind != entities.OutcomeTie {
		return nil
	}
	logger.Warn("transition blocked by unresolved tie",
		"event", "election_position_tie_blocked",
		"module", "governance/election-engine",
		"layer", "application",
		"election_position_id", position.ElectionPositionID,
	)
	return domainerrors.ErrUnresolvedTie
}
