package queries

import (
	"context"
	"sort"
	"strings"

	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

type CatalogUseCase struct {
	Positions  ports.PositionRepository
	Sequencer  ports.SequencerRepository
	Candidates ports.CandidateRepository
}

func (uc CatalogUseCase) ListPositions(ctx context.Context) ([]entities.Position, error) {
	items, err := uc.Positions.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OrderIndex == items[j].OrderIndex {
			return items[i].Name < items[j].Name
		}
		return items[i].OrderIndex < items[j].OrderIndex
	})
	return items, nil
}

func (uc CatalogUseCase) ListCandidates(ctx context.Context, electionID string, positionID string) ([]entities.Candidate, error) {
	electionID = strings.TrimSpace(electionID)
	positionID = strings.TrimSpace(positionID)
	if electionID == "" || positionID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Sequencer.FindElectionPosition(ctx, electionID, positionID); err != nil {
		return nil, err
	}
	return uc.Candidates.ListCandidates(ctx, electionID, positionID)
}

func (uc CatalogUseCase) ListElectionPositions(ctx context.Context, electionID string) ([]entities.ElectionPosition, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	return uc.Sequencer.ListElectionPositions(ctx, electionID)
}
