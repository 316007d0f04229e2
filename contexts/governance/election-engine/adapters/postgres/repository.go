package postgresadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	winnerCompletionReason = "winner elected"

	lockUpdate = "UPDATE"
	lockShare  = "SHARE"
)

// Repository persists elections in Postgres. Transitions take a FOR UPDATE
// lock on the election row; ballots take FOR SHARE, so ballots run in
// parallel with each other but never interleave with a round change.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) ListEligibleMemberIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&memberModel{}).
		Where("is_active AND can_vote").
		Order("member_id ASC").
		Pluck("member_id", &ids).
		Error; err != nil {
		return nil, r.logError("election_repo_list_members_failed", err)
	}
	return ids, nil
}

func (r *Repository) CreatePosition(ctx context.Context, position entities.Position) error {
	row := positionModel{
		PositionID: strings.TrimSpace(position.PositionID),
		Name:       position.Name,
		OrderIndex: position.OrderIndex,
		CreatedAt:  position.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("election_repo_create_position_failed", err, "position_id", row.PositionID)
	}
	return nil
}

func (r *Repository) ListPositions(ctx context.Context) ([]entities.Position, error) {
	var rows []positionModel
	if err := r.db.WithContext(ctx).
		Order("order_index ASC").
		Order("created_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("election_repo_list_positions_failed", err)
	}
	items := make([]entities.Position, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateElection(ctx context.Context, input ports.NewElection) error {
	electionRow := electionModelFromEntity(input.Election)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&electionRow).Error; err != nil {
			return err
		}
		if len(input.Positions) > 0 {
			rows := make([]electionPositionModel, 0, len(input.Positions))
			for _, position := range input.Positions {
				rows = append(rows, electionPositionModelFromEntity(position))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(input.Roster) > 0 {
			rows := make([]attendanceModel, 0, len(input.Roster))
			for _, record := range input.Roster {
				rows = append(rows, attendanceModel{
					ElectionID: electionRow.ElectionID,
					MemberID:   strings.TrimSpace(record.MemberID),
					IsPresent:  record.IsPresent,
					UpdatedAt:  record.UpdatedAt.UTC(),
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("election_repo_create_election_failed", err, "election_id", electionRow.ElectionID)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("election_repo_get_election_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetLatestElection(ctx context.Context) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("election_id DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("election_repo_get_latest_election_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("election_id DESC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("election_repo_list_elections_failed", err)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CloseElection(ctx context.Context, electionID string, reason string, closedAt time.Time) ([]entities.ElectionPosition, error) {
	electionID = strings.TrimSpace(electionID)
	closed := closedAt.UTC()
	var completed []entities.ElectionPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := lockElection(tx, electionID, lockUpdate)
		if err != nil {
			return err
		}
		if err := requireMutable(election); err != nil {
			return err
		}
		if err := tx.Model(&electionModel{}).
			Where("election_id = ?", electionID).
			Updates(map[string]any{
				"is_active": false,
				"closed_at": closed,
			}).Error; err != nil {
			return err
		}
		positions, err := listPositionsTx(tx, electionID)
		if err != nil {
			return err
		}
		for _, position := range positions {
			if position.Status == entities.PositionStatusCompleted {
				continue
			}
			position.Status = entities.PositionStatusCompleted
			position.ClosedAt = &closed
			position.CompletionReason = reason
			completed = append(completed, position)
		}
		return tx.Model(&electionPositionModel{}).
			Where("election_id = ? AND status <> ?", electionID, string(entities.PositionStatusCompleted)).
			Updates(map[string]any{
				"status":            string(entities.PositionStatusCompleted),
				"closed_at":         closed,
				"completion_reason": reason,
			}).Error
	})
	if err != nil {
		return nil, r.txError("election_repo_close_election_failed", err, "election_id", electionID)
	}
	return completed, nil
}

func (r *Repository) FinalizeElection(ctx context.Context, electionID string, finalizedAt time.Time) (entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	var finalized entities.Election
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := lockElection(tx, electionID, lockUpdate)
		if err != nil {
			return err
		}
		if election.FinalizedAt != nil {
			return domainerrors.ErrElectionFinalized
		}
		var open int64
		if err := tx.Model(&electionPositionModel{}).
			Where("election_id = ? AND status <> ?", electionID, string(entities.PositionStatusCompleted)).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return domainerrors.ErrInvalidTransition
		}
		stamp := finalizedAt.UTC()
		if err := tx.Model(&electionModel{}).
			Where("election_id = ?", electionID).
			Updates(map[string]any{
				"is_active":    false,
				"finalized_at": stamp,
			}).Error; err != nil {
			return err
		}
		election.IsActive = false
		election.FinalizedAt = &stamp
		finalized = election.toEntity()
		return nil
	})
	if err != nil {
		return entities.Election{}, r.txError("election_repo_finalize_election_failed", err, "election_id", electionID)
	}
	return finalized, nil
}

func (r *Repository) GetElectionPosition(ctx context.Context, electionPositionID string) (entities.ElectionPosition, error) {
	row, err := getPositionTx(r.db.WithContext(ctx), strings.TrimSpace(electionPositionID), "")
	if err != nil {
		return entities.ElectionPosition{}, r.txError("election_repo_get_election_position_failed", err,
			"election_position_id", strings.TrimSpace(electionPositionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) FindElectionPosition(ctx context.Context, electionID string, positionID string) (entities.ElectionPosition, error) {
	row, err := findPositionTx(r.db.WithContext(ctx), electionID, positionID, "")
	if err != nil {
		return entities.ElectionPosition{}, r.txError("election_repo_find_election_position_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListElectionPositions(ctx context.Context, electionID string) ([]entities.ElectionPosition, error) {
	electionID = strings.TrimSpace(electionID)
	db := r.db.WithContext(ctx)
	var exists int64
	if err := db.Model(&electionModel{}).Where("election_id = ?", electionID).Count(&exists).Error; err != nil {
		return nil, r.logError("election_repo_list_election_positions_failed", err, "election_id", electionID)
	}
	if exists == 0 {
		return nil, domainerrors.ErrElectionNotFound
	}
	positions, err := listPositionsTx(db, electionID)
	if err != nil {
		return nil, r.logError("election_repo_list_election_positions_failed", err, "election_id", electionID)
	}
	return positions, nil
}

func (r *Repository) ActivateNextPending(ctx context.Context, electionID string, openedAt time.Time) (entities.ElectionPosition, bool, error) {
	electionID = strings.TrimSpace(electionID)
	var (
		activated entities.ElectionPosition
		found     bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := lockElection(tx, electionID, lockUpdate)
		if err != nil {
			return err
		}
		if err := requireMutable(election); err != nil {
			return err
		}
		positions, err := listPositionsTx(tx, electionID)
		if err != nil {
			return err
		}
		floor, ok := entities.OpenFloor(positions)
		if !ok {
			return domainerrors.ErrInvalidTransition
		}
		for _, position := range positions {
			if position.Status != entities.PositionStatusPending || position.OrderIndex < floor {
				continue
			}
			activated, err = activateTx(tx, position, openedAt)
			if err != nil {
				return err
			}
			found = true
			return nil
		}
		return nil
	})
	if err != nil {
		return entities.ElectionPosition{}, false, r.txError("election_repo_activate_next_failed", err, "election_id", electionID)
	}
	return activated, found, nil
}

func (r *Repository) ActivatePosition(ctx context.Context, electionPositionID string, openedAt time.Time) (entities.ElectionPosition, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	var activated entities.ElectionPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := lockPositionElection(tx, electionPositionID, lockUpdate)
		if err != nil {
			return err
		}
		if target.Status != entities.PositionStatusPending {
			return domainerrors.ErrInvalidTransition
		}
		positions, err := listPositionsTx(tx, target.ElectionID)
		if err != nil {
			return err
		}
		floor, ok := entities.OpenFloor(positions)
		if !ok || target.OrderIndex < floor {
			return domainerrors.ErrInvalidTransition
		}
		activated, err = activateTx(tx, target, openedAt)
		return err
	})
	if err != nil {
		return entities.ElectionPosition{}, r.txError("election_repo_activate_position_failed", err,
			"election_position_id", electionPositionID,
		)
	}
	return activated, nil
}

func (r *Repository) AdvanceScrutiny(ctx context.Context, electionPositionID string, fromScrutiny int) (entities.ElectionPosition, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	var advanced entities.ElectionPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := lockPositionElection(tx, electionPositionID, lockUpdate)
		if err != nil {
			return err
		}
		if !position.IsActive() {
			return domainerrors.ErrPositionNotActive
		}
		if position.CurrentScrutiny != fromScrutiny || fromScrutiny >= entities.MaxScrutiny {
			return domainerrors.ErrConflict
		}
		if err := tx.Model(&electionPositionModel{}).
			Where("election_position_id = ?", electionPositionID).
			Update("current_scrutiny", fromScrutiny+1).Error; err != nil {
			return err
		}
		position.CurrentScrutiny = fromScrutiny + 1
		advanced = position
		return nil
	})
	if err != nil {
		return entities.ElectionPosition{}, r.txError("election_repo_advance_scrutiny_failed", err,
			"election_position_id", electionPositionID,
			"from_scrutiny", fromScrutiny,
		)
	}
	return advanced, nil
}

func (r *Repository) CompletePosition(ctx context.Context, electionPositionID string, reason string, closedAt time.Time) (entities.ElectionPosition, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	var completed entities.ElectionPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := lockPositionElection(tx, electionPositionID, lockUpdate)
		if err != nil {
			return err
		}
		if position.Status == entities.PositionStatusCompleted {
			return domainerrors.ErrInvalidTransition
		}
		completed, err = completeTx(tx, position, reason, closedAt)
		return err
	})
	if err != nil {
		return entities.ElectionPosition{}, r.txError("election_repo_complete_position_failed", err,
			"election_position_id", electionPositionID,
		)
	}
	return completed, nil
}

func (r *Repository) RecordWinnerAndComplete(ctx context.Context, winner entities.WinnerRecord, closedAt time.Time) (entities.ElectionPosition, error) {
	electionID := strings.TrimSpace(winner.ElectionID)
	positionID := strings.TrimSpace(winner.PositionID)
	var completed entities.ElectionPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockElection(tx, electionID, lockUpdate); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&winnerModel{}).
			Where("election_id = ? AND position_id = ?", electionID, positionID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domainerrors.ErrWinnerAlreadyExists
		}
		row, err := findPositionTx(tx, electionID, positionID, "")
		if err != nil {
			return err
		}
		position := row.toEntity()
		if !position.IsActive() {
			return domainerrors.ErrPositionNotActive
		}
		if position.CurrentScrutiny != winner.WonAtScrutiny {
			return domainerrors.ErrConflict
		}
		if err := tx.Create(&winnerModel{
			ElectionID:    electionID,
			PositionID:    positionID,
			CandidateID:   strings.TrimSpace(winner.CandidateID),
			WonAtScrutiny: winner.WonAtScrutiny,
			RecordedAt:    winner.RecordedAt.UTC(),
		}).Error; err != nil {
			if constraintName(err) == winnerPrimaryKey {
				return domainerrors.ErrWinnerAlreadyExists
			}
			return err
		}
		completed, err = completeTx(tx, position, winnerCompletionReason, closedAt)
		return err
	})
	if err != nil {
		return entities.ElectionPosition{}, r.txError("election_repo_record_winner_failed", err,
			"election_id", electionID,
			"position_id", positionID,
			"candidate_id", strings.TrimSpace(winner.CandidateID),
		)
	}
	return completed, nil
}

func (r *Repository) GetWinner(ctx context.Context, electionID string, positionID string) (entities.WinnerRecord, bool, error) {
	var row winnerModel
	err := r.db.WithContext(ctx).
		Where("election_id = ? AND position_id = ?", strings.TrimSpace(electionID), strings.TrimSpace(positionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WinnerRecord{}, false, nil
		}
		return entities.WinnerRecord{}, false, r.logError("election_repo_get_winner_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ReplaceCandidates(ctx context.Context, electionID string, positionID string, candidates []entities.Candidate) error {
	electionID = strings.TrimSpace(electionID)
	positionID = strings.TrimSpace(positionID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockElection(tx, electionID, lockUpdate); err != nil {
			return err
		}
		row, err := findPositionTx(tx, electionID, positionID, "")
		if err != nil {
			return err
		}
		position := row.toEntity()
		if position.Status == entities.PositionStatusCompleted {
			return domainerrors.ErrInvalidTransition
		}
		if position.IsActive() {
			var ballots int64
			if err := tx.Model(&voteModel{}).
				Where("election_id = ? AND position_id = ?", electionID, positionID).
				Count(&ballots).Error; err != nil {
				return err
			}
			if ballots > 0 {
				return domainerrors.ErrInvalidTransition
			}
		}
		if err := tx.Where("election_id = ? AND position_id = ?", electionID, positionID).
			Delete(&candidateModel{}).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		rows := make([]candidateModel, 0, len(candidates))
		for i, candidate := range candidates {
			rows = append(rows, candidateModelFromEntity(candidate, i))
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return r.txError("election_repo_replace_candidates_failed", err,
			"election_id", electionID,
			"position_id", positionID,
		)
	}
	return nil
}

func (r *Repository) ListCandidates(ctx context.Context, electionID string, positionID string) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ? AND position_id = ?", strings.TrimSpace(electionID), strings.TrimSpace(positionID)).
		Order("list_index ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("election_repo_list_candidates_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return candidatesFromRows(rows), nil
}

// InsertVote rechecks the round and the nominee under a shared election lock,
// which ReplaceCandidates excludes; the unique ballot index settles two
// ballots from the same voter racing each other.
func (r *Repository) InsertVote(ctx context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := lockElection(tx, strings.TrimSpace(row.ElectionID), lockShare)
		if err != nil {
			return err
		}
		if err := requireMutable(election); err != nil {
			return err
		}
		position, err := findPositionTx(tx, row.ElectionID, row.PositionID, "")
		if err != nil {
			return err
		}
		if position.Status != string(entities.PositionStatusActive) {
			return domainerrors.ErrPositionNotActive
		}
		if position.CurrentScrutiny != row.ScrutinyRound {
			return domainerrors.ErrRoundMismatch
		}
		var nominees int64
		if err := tx.Model(&candidateModel{}).
			Where("election_id = ? AND position_id = ? AND candidate_id = ?", row.ElectionID, row.PositionID, row.CandidateID).
			Count(&nominees).Error; err != nil {
			return err
		}
		if nominees == 0 {
			return domainerrors.ErrCandidateNotFound
		}
		if err := tx.Create(&row).Error; err != nil {
			if constraintName(err) == voteBallotConstraint {
				return domainerrors.ErrDuplicateVote
			}
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return r.txError("election_repo_insert_vote_failed", err,
			"election_id", row.ElectionID,
			"position_id", row.PositionID,
			"scrutiny_round", row.ScrutinyRound,
		)
	}
	return nil
}

func (r *Repository) HasVoted(ctx context.Context, voterID string, positionID string, electionID string, scrutinyRound int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("voter_id = ? AND position_id = ? AND election_id = ? AND scrutiny_round = ?",
			strings.TrimSpace(voterID), strings.TrimSpace(positionID), strings.TrimSpace(electionID), scrutinyRound).
		Count(&count).
		Error; err != nil {
		return false, r.logError("election_repo_has_voted_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return count > 0, nil
}

func (r *Repository) ListVotes(ctx context.Context, electionID string, positionID string, scrutinyRound int) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ? AND position_id = ? AND scrutiny_round = ?",
			strings.TrimSpace(electionID), strings.TrimSpace(positionID), scrutinyRound).
		Order("cast_at ASC").
		Order("vote_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("election_repo_list_votes_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
			"scrutiny_round", scrutinyRound,
		)
	}
	return votesFromRows(rows), nil
}

func (r *Repository) UpsertAttendance(ctx context.Context, record entities.AttendanceRecord) error {
	row := attendanceModel{
		ElectionID: strings.TrimSpace(record.ElectionID),
		MemberID:   strings.TrimSpace(record.MemberID),
		IsPresent:  record.IsPresent,
		UpdatedAt:  record.UpdatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockElection(tx, row.ElectionID, lockShare); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "election_id"},
				{Name: "member_id"},
				{Name: "election_position_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"is_present", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return r.txError("election_repo_upsert_attendance_failed", err,
			"election_id", row.ElectionID,
			"member_id", row.MemberID,
		)
	}
	return nil
}

func (r *Repository) CreateSnapshot(ctx context.Context, electionPositionID string, takenAt time.Time) (bool, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := lockPositionElection(tx, electionPositionID, lockUpdate)
		if err != nil {
			return err
		}
		created, err = snapshotTx(tx, position, takenAt)
		return err
	})
	if err != nil {
		return false, r.txError("election_repo_create_snapshot_failed", err,
			"election_position_id", electionPositionID,
		)
	}
	return created, nil
}

func (r *Repository) CountPresent(ctx context.Context, electionID string) (int, int, error) {
	count, err := countPresenceTx(r.db.WithContext(ctx), strings.TrimSpace(electionID), "")
	if err != nil {
		return 0, 0, r.logError("election_repo_count_present_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return count.Present, count.Total, nil
}

func (r *Repository) CountPresentForPosition(ctx context.Context, electionPositionID string) (int, int, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	if electionPositionID == "" {
		return 0, 0, nil
	}
	var count presenceCount
	if err := r.db.WithContext(ctx).
		Model(&attendanceModel{}).
		Select("COUNT(*) FILTER (WHERE is_present) AS present, COUNT(*) AS total").
		Where("election_position_id = ?", electionPositionID).
		Scan(&count).
		Error; err != nil {
		return 0, 0, r.logError("election_repo_count_present_for_position_failed", err,
			"election_position_id", electionPositionID,
		)
	}
	return count.Present, count.Total, nil
}

// LoadElectionAggregate reads the whole election inside one repeatable-read
// transaction so the results view never mixes two states.
func (r *Repository) LoadElectionAggregate(ctx context.Context, electionID string) (ports.ElectionAggregate, error) {
	electionID = strings.TrimSpace(electionID)
	var aggregate ports.ElectionAggregate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var election electionModel
		if err := tx.Where("election_id = ?", electionID).First(&election).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}
		positions, err := listPositionsTx(tx, electionID)
		if err != nil {
			return err
		}
		var candidateRows []candidateModel
		if err := tx.Where("election_id = ?", electionID).
			Order("position_id ASC").
			Order("list_index ASC").
			Find(&candidateRows).Error; err != nil {
			return err
		}
		var voteRows []voteModel
		if err := tx.Where("election_id = ?", electionID).
			Order("cast_at ASC").
			Order("vote_id ASC").
			Find(&voteRows).Error; err != nil {
			return err
		}
		var winnerRows []winnerModel
		if err := tx.Where("election_id = ?", electionID).Find(&winnerRows).Error; err != nil {
			return err
		}
		roster, err := countPresenceTx(tx, electionID, "")
		if err != nil {
			return err
		}
		var snapshotRows []presenceCount
		if err := tx.Model(&attendanceModel{}).
			Select("election_position_id, COUNT(*) FILTER (WHERE is_present) AS present, COUNT(*) AS total").
			Where("election_id = ? AND election_position_id <> ''", electionID).
			Group("election_position_id").
			Scan(&snapshotRows).Error; err != nil {
			return err
		}

		aggregate = ports.ElectionAggregate{
			Election:    election.toEntity(),
			Positions:   positions,
			Candidates:  candidatesFromRows(candidateRows),
			Votes:       votesFromRows(voteRows),
			MainPresent: roster.Present,
			MainRows:    roster.Total,
			Snapshots:   make(map[string]ports.SnapshotCount, len(snapshotRows)),
		}
		for _, row := range winnerRows {
			aggregate.Winners = append(aggregate.Winners, row.toEntity())
		}
		for _, row := range snapshotRows {
			if row.Total == 0 {
				continue
			}
			aggregate.Snapshots[row.ElectionPositionID] = ports.SnapshotCount{Rows: row.Total, Present: row.Present}
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return ports.ElectionAggregate{}, r.txError("election_repo_load_aggregate_failed", err, "election_id", electionID)
	}
	return aggregate, nil
}

// txError passes domain errors through and logs everything else.
func (r *Repository) txError(event string, err error, attrs ...any) error {
	if domainerrors.KindOf(err) != domainerrors.KindInternal {
		return err
	}
	return r.logError(event, err, attrs...)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

func lockElection(tx *gorm.DB, electionID string, strength string) (electionModel, error) {
	var row electionModel
	err := tx.Clauses(clause.Locking{Strength: strength}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return electionModel{}, domainerrors.ErrElectionNotFound
		}
		return electionModel{}, err
	}
	return row, nil
}

// lockPositionElection resolves the position, then locks and checks its
// election before re-reading the position under that lock.
func lockPositionElection(tx *gorm.DB, electionPositionID string, strength string) (entities.ElectionPosition, error) {
	row, err := getPositionTx(tx, electionPositionID, "")
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	election, err := lockElection(tx, row.ElectionID, strength)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	if err := requireMutable(election); err != nil {
		return entities.ElectionPosition{}, err
	}
	row, err = getPositionTx(tx, electionPositionID, strength)
	if err != nil {
		return entities.ElectionPosition{}, err
	}
	return row.toEntity(), nil
}

func requireMutable(election electionModel) error {
	if election.FinalizedAt != nil {
		return domainerrors.ErrElectionFinalized
	}
	if !election.IsActive {
		return domainerrors.ErrElectionClosed
	}
	return nil
}

func getPositionTx(tx *gorm.DB, electionPositionID string, strength string) (electionPositionModel, error) {
	query := tx
	if strength != "" {
		query = query.Clauses(clause.Locking{Strength: strength})
	}
	var row electionPositionModel
	err := query.Where("election_position_id = ?", strings.TrimSpace(electionPositionID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return electionPositionModel{}, domainerrors.ErrPositionNotFound
		}
		return electionPositionModel{}, err
	}
	return row, nil
}

func findPositionTx(tx *gorm.DB, electionID string, positionID string, strength string) (electionPositionModel, error) {
	query := tx
	if strength != "" {
		query = query.Clauses(clause.Locking{Strength: strength})
	}
	var row electionPositionModel
	err := query.
		Where("election_id = ? AND position_id = ?", strings.TrimSpace(electionID), strings.TrimSpace(positionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return electionPositionModel{}, domainerrors.ErrPositionNotFound
		}
		return electionPositionModel{}, err
	}
	return row, nil
}

func listPositionsTx(tx *gorm.DB, electionID string) ([]entities.ElectionPosition, error) {
	var rows []electionPositionModel
	if err := tx.Where("election_id = ?", electionID).
		Order("order_index ASC").
		Order("election_position_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.ElectionPosition, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func activateTx(tx *gorm.DB, position entities.ElectionPosition, openedAt time.Time) (entities.ElectionPosition, error) {
	opened := openedAt.UTC()
	err := tx.Model(&electionPositionModel{}).
		Where("election_position_id = ?", position.ElectionPositionID).
		Updates(map[string]any{
			"status":           string(entities.PositionStatusActive),
			"current_scrutiny": 1,
			"opened_at":        opened,
		}).Error
	if err != nil {
		if constraintName(err) == oneActiveConstraint {
			return entities.ElectionPosition{}, domainerrors.ErrInvalidTransition
		}
		return entities.ElectionPosition{}, err
	}
	position.Status = entities.PositionStatusActive
	position.CurrentScrutiny = 1
	position.OpenedAt = &opened
	if _, err := snapshotTx(tx, position, openedAt); err != nil {
		return entities.ElectionPosition{}, err
	}
	return position, nil
}

func completeTx(tx *gorm.DB, position entities.ElectionPosition, reason string, closedAt time.Time) (entities.ElectionPosition, error) {
	closed := closedAt.UTC()
	if err := tx.Model(&electionPositionModel{}).
		Where("election_position_id = ?", position.ElectionPositionID).
		Updates(map[string]any{
			"status":            string(entities.PositionStatusCompleted),
			"closed_at":         closed,
			"completion_reason": reason,
		}).Error; err != nil {
		return entities.ElectionPosition{}, err
	}
	position.Status = entities.PositionStatusCompleted
	position.ClosedAt = &closed
	position.CompletionReason = reason
	return position, nil
}

// snapshotTx copies the main roster into rows tagged with the position. It is
// a no-op once the position has snapshot rows.
func snapshotTx(tx *gorm.DB, position entities.ElectionPosition, takenAt time.Time) (bool, error) {
	var existing int64
	if err := tx.Model(&attendanceModel{}).
		Where("election_position_id = ?", position.ElectionPositionID).
		Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}
	err := tx.Exec(`INSERT INTO election_attendance (election_id, member_id, election_position_id, is_present, updated_at)
		SELECT election_id, member_id, ?, is_present, ?
		FROM election_attendance
		WHERE election_id = ? AND election_position_id = ''
		ON CONFLICT DO NOTHING`,
		position.ElectionPositionID, takenAt.UTC(), position.ElectionID,
	).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func countPresenceTx(tx *gorm.DB, electionID string, electionPositionID string) (presenceCount, error) {
	var count presenceCount
	err := tx.Model(&attendanceModel{}).
		Select("COUNT(*) FILTER (WHERE is_present) AS present, COUNT(*) AS total").
		Where("election_id = ? AND election_position_id = ?", electionID, electionPositionID).
		Scan(&count).
		Error
	return count, err
}

func candidatesFromRows(rows []candidateModel) []entities.Candidate {
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func votesFromRows(rows []voteModel) []entities.Vote {
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}

var (
	_ ports.ElectionRepository   = (*Repository)(nil)
	_ ports.PositionRepository   = (*Repository)(nil)
	_ ports.SequencerRepository  = (*Repository)(nil)
	_ ports.CandidateRepository  = (*Repository)(nil)
	_ ports.BallotRepository     = (*Repository)(nil)
	_ ports.AttendanceRepository = (*Repository)(nil)
	_ ports.ResultsReader        = (*Repository)(nil)
	_ ports.MemberDirectory      = (*Repository)(nil)
	_ ports.OutboxWriter         = (*Repository)(nil)
	_ ports.OutboxRepository     = (*Repository)(nil)
	_ ports.EventDedupStore      = (*Repository)(nil)
)
