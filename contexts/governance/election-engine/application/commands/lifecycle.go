package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	application "fellowship/contexts/governance/election-engine/application"
	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

const closeElectionReason = "election closed"

type CreateElectionResult struct {
	Election  entities.Election
	Positions []entities.ElectionPosition
	RosterLen int
}

// LifecycleUseCase creates, closes and finalizes elections.
type LifecycleUseCase struct {
	Elections ports.ElectionRepository
	Positions ports.PositionRepository
	Members   ports.MemberDirectory
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// CreateElection seeds one ElectionPosition per template, activates the first
// one at round 1 and writes a main roster row per eligible member with nobody
// present yet.
func (uc LifecycleUseCase) CreateElection(ctx context.Context, name string) (CreateElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	name = strings.TrimSpace(name)
	if name == "" {
		logger.Warn("election create validation failed",
			"event", "election_create_validation_failed",
			"module", "governance/election-engine",
			"layer", "application",
		)
		return CreateElectionResult{}, domainerrors.ErrInvalidInput
	}

	templates, err := uc.Positions.ListPositions(ctx)
	if err != nil {
		return CreateElectionResult{}, err
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].OrderIndex < templates[j].OrderIndex
	})
	var memberIDs []string
	if uc.Members != nil {
		memberIDs, err = uc.Members.ListEligibleMemberIDs(ctx)
		if err != nil {
			logger.Error("eligible member lookup failed",
				"event", "election_member_directory_failed",
				"module", "governance/election-engine",
				"layer", "application",
				"error", err.Error(),
			)
			return CreateElectionResult{}, err
		}
	}

	now := resolveNow(uc.Clock)
	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateElectionResult{}, err
	}
	election := entities.Election{
		ElectionID: electionID,
		Name:       name,
		IsActive:   true,
		CreatedAt:  now,
	}

	positions := make([]entities.ElectionPosition, 0, len(templates))
	for i, template := range templates {
		id, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return CreateElectionResult{}, err
		}
		position := entities.ElectionPosition{
			ElectionPositionID: id,
			ElectionID:         electionID,
			PositionID:         template.PositionID,
			PositionName:       template.Name,
			Status:             entities.PositionStatusPending,
			CurrentScrutiny:    1,
			OrderIndex:         template.OrderIndex,
		}
		if i == 0 {
			openedAt := now
			position.Status = entities.PositionStatusActive
			position.OpenedAt = &openedAt
		}
		positions = append(positions, position)
	}

	seen := make(map[string]struct{}, len(memberIDs))
	roster := make([]entities.AttendanceRecord, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		memberID = strings.TrimSpace(memberID)
		if memberID == "" {
			continue
		}
		if _, dup := seen[memberID]; dup {
			continue
		}
		seen[memberID] = struct{}{}
		roster = append(roster, entities.AttendanceRecord{
			ElectionID: electionID,
			MemberID:   memberID,
			IsPresent:  false,
			UpdatedAt:  now,
		})
	}

	if err := uc.Elections.CreateElection(ctx, ports.NewElection{
		Election:  election,
		Positions: positions,
		Roster:    roster,
	}); err != nil {
		return CreateElectionResult{}, err
	}
	logger.Info("election created",
		"event", "election_created",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", electionID,
		"position_count", len(positions),
		"roster_size", len(roster),
	)
	return CreateElectionResult{Election: election, Positions: positions, RosterLen: len(roster)}, nil
}

// CloseElection ends an election abruptly, force-completing every position
// that has not completed yet.
func (uc LifecycleUseCase) CloseElection(ctx context.Context, electionID string) ([]entities.ElectionPosition, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := requireMutableElection(ctx, uc.Elections, electionID)
	if err != nil {
		logger.Warn("election close rejected",
			"event", "election_close_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", strings.TrimSpace(electionID),
			"error", err.Error(),
		)
		return nil, err
	}
	completed, err := uc.Elections.CloseElection(ctx, election.ElectionID, closeElectionReason, resolveNow(uc.Clock))
	if err != nil {
		return nil, err
	}
	logger.Info("election closed",
		"event", "election_closed",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"force_completed_count", len(completed),
	)
	return completed, nil
}

// FinalizeElection seals an election whose positions have all completed.
// Closed elections can still be finalized; finalized ones cannot change.
func (uc LifecycleUseCase) FinalizeElection(ctx context.Context, electionID string) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.Election{}, domainerrors.ErrInvalidInput
	}
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if election.IsFinalized() {
		return entities.Election{}, domainerrors.ErrElectionFinalized
	}
	finalized, err := uc.Elections.FinalizeElection(ctx, electionID, resolveNow(uc.Clock))
	if err != nil {
		logger.Warn("election finalize rejected",
			"event", "election_finalize_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return entities.Election{}, err
	}
	logger.Info("election finalized",
		"event", "election_finalized",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", electionID,
	)
	return finalized, nil
}

// requireMutableElection loads the election and rejects closed or finalized
// ones.
func requireMutableElection(ctx context.Context, elections ports.ElectionRepository, electionID string) (entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.Election{}, domainerrors.ErrInvalidInput
	}
	election, err := elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if election.IsFinalized() {
		return entities.Election{}, domainerrors.ErrElectionFinalized
	}
	if !election.IsActive {
		return entities.Election{}, domainerrors.ErrElectionClosed
	}
	return election, nil
}
