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

// PositionTemplateUseCase maintains the office templates copied into every
// new election.
type PositionTemplateUseCase struct {
	Positions ports.PositionRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc PositionTemplateUseCase) CreatePosition(ctx context.Context, name string, orderIndex int) (entities.Position, error) {
	logger := application.ResolveLogger(uc.Logger)
	name = strings.TrimSpace(name)
	if name == "" || orderIndex < 0 {
		logger.Warn("position template validation failed",
			"event", "election_position_template_validation_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"order_index", orderIndex,
		)
		return entities.Position{}, domainerrors.ErrInvalidInput
	}
	positionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Position{}, err
	}
	position := entities.Position{
		PositionID: positionID,
		Name:       name,
		OrderIndex: orderIndex,
		CreatedAt:  resolveNow(uc.Clock),
	}
	if err := uc.Positions.CreatePosition(ctx, position); err != nil {
		return entities.Position{}, err
	}
	logger.Info("position template created",
		"event", "election_position_template_created",
		"module", "governance/election-engine",
		"layer", "application",
		"position_id", position.PositionID,
		"order_index", position.OrderIndex,
	)
	return position, nil
}
