package entities

import "time"

// MaxScrutiny is the last voting round a position can reach.
const MaxScrutiny = 3

type Election struct {
	ElectionID  string
	Name        string
	IsActive    bool
	CreatedAt   time.Time
	ClosedAt    *time.Time
	FinalizedAt *time.Time
}

func (e Election) IsFinalized() bool {
	return e.FinalizedAt != nil
}

// Position is the reusable office template seeded into every new election.
type Position struct {
	PositionID string
	Name       string
	OrderIndex int
	CreatedAt  time.Time
}

type PositionStatus string

const (
	PositionStatusPending   PositionStatus = "pending"
	PositionStatusActive    PositionStatus = "active"
	PositionStatusCompleted PositionStatus = "completed"
)

// ElectionPosition is the live instance of a Position inside one election.
type ElectionPosition struct {
	ElectionPositionID string
	ElectionID         string
	PositionID         string
	PositionName       string
	Status             PositionStatus
	CurrentScrutiny    int
	OrderIndex         int
	OpenedAt           *time.Time
	ClosedAt           *time.Time
	CompletionReason   string
}

func (p ElectionPosition) IsActive() bool {
	return p.Status == PositionStatusActive
}

func (p ElectionPosition) AcceptsRound(round int) bool {
	return p.Status == PositionStatusActive && p.CurrentScrutiny == round
}

type Candidate struct {
	CandidateID string
	ElectionID  string
	PositionID  string
	Name        string
	Email       string
	MemberID    string
	CreatedAt   time.Time
}

// Vote is an immutable ballot row.
type Vote struct {
	VoteID        string
	VoterID       string
	PositionID    string
	ElectionID    string
	CandidateID   string
	ScrutinyRound int
	CastAt        time.Time
}

// AttendanceRecord with an empty ElectionPositionID belongs to the main
// roster; otherwise it is a frozen snapshot row for that position.
type AttendanceRecord struct {
	ElectionID         string
	MemberID           string
	IsPresent          bool
	ElectionPositionID string
	UpdatedAt          time.Time
}

func (a AttendanceRecord) IsMainRoster() bool {
	return a.ElectionPositionID == ""
}

type WinnerRecord struct {
	ElectionID    string
	PositionID    string
	CandidateID   string
	WonAtScrutiny int
	RecordedAt    time.Time
}

// QuorumScope tells which attendance rows produced a present count.
type QuorumScope string

const (
	QuorumScopeSnapshot   QuorumScope = "position_snapshot"
	QuorumScopeMainRoster QuorumScope = "main_roster"
)

type Quorum struct {
	PresentCount int
	Scope        QuorumScope
}

// ChooseQuorum picks the present count used for a position's threshold: its
// frozen snapshot when one was taken, the live main roster otherwise. ok is
// false when the chosen scope has no rows or nobody present.
func ChooseQuorum(snapshotRows, snapshotPresent, mainRows, mainPresent int) (Quorum, bool) {
	quorum := Quorum{PresentCount: mainPresent, Scope: QuorumScopeMainRoster}
	rows := mainRows
	if snapshotRows > 0 {
		quorum = Quorum{PresentCount: snapshotPresent, Scope: QuorumScopeSnapshot}
		rows = snapshotRows
	}
	if rows == 0 || quorum.PresentCount <= 0 {
		return quorum, false
	}
	return quorum, true
}

// OpenFloor returns the lowest order index a pending position may still be
// opened at: positions ordered below an already completed one stay closed.
// ok is false while another position is active.
func OpenFloor(positions []ElectionPosition) (int, bool) {
	floor := 0
	for _, position := range positions {
		switch position.Status {
		case PositionStatusActive:
			return 0, false
		case PositionStatusCompleted:
			if position.OrderIndex > floor {
				floor = position.OrderIndex
			}
		}
	}
	return floor, true
}
