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

type SnapshotResult struct {
	ElectionPositionID string
	Created            bool
	PresentCount       int
}

// AttendanceUseCase owns the main roster and the per-position snapshots that
// freeze each position's quorum.
type AttendanceUseCase struct {
	Elections  ports.ElectionRepository
	Sequencer  ports.SequencerRepository
	Attendance ports.AttendanceRepository
	Events     ports.EventSink
	Clock      ports.Clock
	Logger     *slog.Logger
}

// SetMemberAttendance upserts the member's main roster row. Snapshots taken
// earlier are left untouched.
func (uc AttendanceUseCase) SetMemberAttendance(ctx context.Context, electionID string, memberID string, isPresent bool) (entities.AttendanceRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return entities.AttendanceRecord{}, domainerrors.ErrInvalidInput
	}
	election, err := requireMutableElection(ctx, uc.Elections, electionID)
	if err != nil {
		logger.Warn("attendance update rejected",
			"event", "election_attendance_update_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", strings.TrimSpace(electionID),
			"member_id", memberID,
			"error", err.Error(),
		)
		return entities.AttendanceRecord{}, err
	}
	record := entities.AttendanceRecord{
		ElectionID: election.ElectionID,
		MemberID:   memberID,
		IsPresent:  isPresent,
		UpdatedAt:  resolveNow(uc.Clock),
	}
	if err := uc.Attendance.UpsertAttendance(ctx, record); err != nil {
		return entities.AttendanceRecord{}, err
	}
	logger.Info("attendance updated",
		"event", "election_attendance_updated",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", record.ElectionID,
		"member_id", record.MemberID,
		"is_present", record.IsPresent,
	)
	present := record.IsPresent
	publishEvent(ctx, uc.Events, logger, ports.ElectionEvent{
		Type:       ports.EventTypeAttendance,
		ElectionID: record.ElectionID,
		MemberID:   record.MemberID,
		Present:    &present,
		Timestamp:  record.UpdatedAt,
	})
	return record, nil
}

// CreateAttendanceSnapshot freezes the current main roster for a position.
// Repeated calls keep the first snapshot.
func (uc AttendanceUseCase) CreateAttendanceSnapshot(ctx context.Context, electionPositionID string) (SnapshotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionPositionID = strings.TrimSpace(electionPositionID)
	if electionPositionID == "" {
		return SnapshotResult{}, domainerrors.ErrInvalidInput
	}
	position, err := uc.Sequencer.GetElectionPosition(ctx, electionPositionID)
	if err != nil {
		return SnapshotResult{}, err
	}
	if _, err := requireMutableElection(ctx, uc.Elections, position.ElectionID); err != nil {
		return SnapshotResult{}, err
	}
	created, err := uc.Attendance.CreateSnapshot(ctx, position.ElectionPositionID, resolveNow(uc.Clock))
	if err != nil {
		logger.Error("attendance snapshot failed",
			"event", "election_attendance_snapshot_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"election_position_id", position.ElectionPositionID,
			"error", err.Error(),
		)
		return SnapshotResult{}, err
	}
	present, _, err := uc.Attendance.CountPresentForPosition(ctx, position.ElectionPositionID)
	if err != nil {
		return SnapshotResult{}, err
	}
	logger.Info("attendance snapshot ensured",
		"event", "election_attendance_snapshot_ensured",
		"module", "governance/election-engine",
		"layer", "application",
		"election_position_id", position.ElectionPositionID,
		"created", created,
		"present_count", present,
	)
	return SnapshotResult{
		ElectionPositionID: position.ElectionPositionID,
		Created:            created,
		PresentCount:       present,
	}, nil
}

// GetPresentCount counts present members on the main roster.
func (uc AttendanceUseCase) GetPresentCount(ctx context.Context, electionID string) (int, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Elections.GetElection(ctx, electionID); err != nil {
		return 0, err
	}
	present, _, err := uc.Attendance.CountPresent(ctx, electionID)
	return present, err
}

// GetPresentCountForPosition counts present members in the position's
// snapshot. It is zero when no snapshot was taken.
func (uc AttendanceUseCase) GetPresentCountForPosition(ctx context.Context, electionPositionID string) (int, error) {
	electionPositionID = strings.TrimSpace(electionPositionID)
	if electionPositionID == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Sequencer.GetElectionPosition(ctx, electionPositionID); err != nil {
		return 0, err
	}
	present, _, err := uc.Attendance.CountPresentForPosition(ctx, electionPositionID)
	return present, err
}

// ResolveQuorum returns the present count that governs the position's
// threshold math.
func (uc AttendanceUseCase) ResolveQuorum(ctx context.Context, position entities.ElectionPosition) (entities.Quorum, error) {
	return resolveQuorum(ctx, uc.Attendance, position)
}

func resolveQuorum(ctx context.Context, attendance ports.AttendanceRepository, position entities.ElectionPosition) (entities.Quorum, error) {
	snapshotPresent, snapshotRows, err := attendance.CountPresentForPosition(ctx, position.ElectionPositionID)
	if err != nil {
		return entities.Quorum{}, err
	}
	mainPresent, mainRows, err := attendance.CountPresent(ctx, position.ElectionID)
	if err != nil {
		return entities.Quorum{}, err
	}
	quorum, ok := entities.ChooseQuorum(snapshotRows, snapshotPresent, mainRows, mainPresent)
	if !ok {
		return quorum, domainerrors.ErrQuorumUnavailable
	}
	return quorum, nil
}
