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

type CandidateInput struct {
	Name     string
	Email    string
	MemberID string
}

type ReplaceCandidatesCommand struct {
	ElectionID string
	PositionID string
	Candidates []CandidateInput
}

// CandidateUseCase manages the nominee set of a position.
type CandidateUseCase struct {
	Elections  ports.ElectionRepository
	Sequencer  ports.SequencerRepository
	Candidates ports.CandidateRepository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// ReplaceCandidates clears and re-enters the nominees of one position. The
// set is frozen once the position completes or its first ballot is cast.
func (uc CandidateUseCase) ReplaceCandidates(ctx context.Context, cmd ReplaceCandidatesCommand) ([]entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := requireMutableElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return nil, err
	}
	position, err := uc.Sequencer.FindElectionPosition(ctx, election.ElectionID, strings.TrimSpace(cmd.PositionID))
	if err != nil {
		return nil, err
	}
	if position.Status == entities.PositionStatusCompleted {
		logger.Warn("candidate replace rejected for completed position",
			"event", "election_candidates_replace_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", position.ElectionID,
			"position_id", position.PositionID,
		)
		return nil, domainerrors.ErrInvalidTransition
	}

	now := resolveNow(uc.Clock)
	candidates := make([]entities.Candidate, 0, len(cmd.Candidates))
	for _, input := range cmd.Candidates {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return nil, domainerrors.ErrInvalidInput
		}
		candidateID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, entities.Candidate{
			CandidateID: candidateID,
			ElectionID:  position.ElectionID,
			PositionID:  position.PositionID,
			Name:        name,
			Email:       strings.ToLower(strings.TrimSpace(input.Email)),
			MemberID:    strings.TrimSpace(input.MemberID),
			CreatedAt:   now,
		})
	}
	if err := uc.Candidates.ReplaceCandidates(ctx, position.ElectionID, position.PositionID, candidates); err != nil {
		logger.Warn("candidate replace failed",
			"event", "election_candidates_replace_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", position.ElectionID,
			"position_id", position.PositionID,
			"error", err.Error(),
		)
		return nil, err
	}
	logger.Info("candidates replaced",
		"event", "election_candidates_replaced",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", position.ElectionID,
		"position_id", position.PositionID,
		"candidate_count", len(candidates),
	)
	return candidates, nil
}
