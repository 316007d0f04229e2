package postgresadapter

import (
	"time"

	"fellowship/contexts/governance/election-engine/domain/entities"
	"fellowship/contexts/governance/election-engine/ports"
)

type positionModel struct {
	PositionID string    `gorm:"column:position_id;primaryKey"`
	Name       string    `gorm:"column:name"`
	OrderIndex int       `gorm:"column:order_index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (positionModel) TableName() string {
	return "election_position_templates"
}

func (m positionModel) toEntity() entities.Position {
	return entities.Position{
		PositionID: m.PositionID,
		Name:       m.Name,
		OrderIndex: m.OrderIndex,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type memberModel struct {
	MemberID string `gorm:"column:member_id;primaryKey"`
	IsActive bool   `gorm:"column:is_active"`
	CanVote  bool   `gorm:"column:can_vote"`
}

func (memberModel) TableName() string {
	return "election_members"
}

type electionModel struct {
	ElectionID  string     `gorm:"column:election_id;primaryKey"`
	Name        string     `gorm:"column:name"`
	IsActive    bool       `gorm:"column:is_active"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	ClosedAt    *time.Time `gorm:"column:closed_at"`
	FinalizedAt *time.Time `gorm:"column:finalized_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) electionModel {
	return electionModel{
		ElectionID:  election.ElectionID,
		Name:        election.Name,
		IsActive:    election.IsActive,
		CreatedAt:   election.CreatedAt.UTC(),
		ClosedAt:    utcPtr(election.ClosedAt),
		FinalizedAt: utcPtr(election.FinalizedAt),
	}
}

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ElectionID:  m.ElectionID,
		Name:        m.Name,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt.UTC(),
		ClosedAt:    utcPtr(m.ClosedAt),
		FinalizedAt: utcPtr(m.FinalizedAt),
	}
}

type electionPositionModel struct {
	ElectionPositionID string     `gorm:"column:election_position_id;primaryKey"`
	ElectionID         string     `gorm:"column:election_id"`
	PositionID         string     `gorm:"column:position_id"`
	PositionName       string     `gorm:"column:position_name"`
	Status             string     `gorm:"column:status"`
	CurrentScrutiny    int        `gorm:"column:current_scrutiny"`
	OrderIndex         int        `gorm:"column:order_index"`
	OpenedAt           *time.Time `gorm:"column:opened_at"`
	ClosedAt           *time.Time `gorm:"column:closed_at"`
	CompletionReason   string     `gorm:"column:completion_reason"`
}

func (electionPositionModel) TableName() string {
	return "election_positions"
}

func electionPositionModelFromEntity(position entities.ElectionPosition) electionPositionModel {
	return electionPositionModel{
		ElectionPositionID: position.ElectionPositionID,
		ElectionID:         position.ElectionID,
		PositionID:         position.PositionID,
		PositionName:       position.PositionName,
		Status:             string(position.Status),
		CurrentScrutiny:    position.CurrentScrutiny,
		OrderIndex:         position.OrderIndex,
		OpenedAt:           utcPtr(position.OpenedAt),
		ClosedAt:           utcPtr(position.ClosedAt),
		CompletionReason:   position.CompletionReason,
	}
}

func (m electionPositionModel) toEntity() entities.ElectionPosition {
	return entities.ElectionPosition{
		ElectionPositionID: m.ElectionPositionID,
		ElectionID:         m.ElectionID,
		PositionID:         m.PositionID,
		PositionName:       m.PositionName,
		Status:             entities.PositionStatus(m.Status),
		CurrentScrutiny:    m.CurrentScrutiny,
		OrderIndex:         m.OrderIndex,
		OpenedAt:           utcPtr(m.OpenedAt),
		ClosedAt:           utcPtr(m.ClosedAt),
		CompletionReason:   m.CompletionReason,
	}
}

type candidateModel struct {
	CandidateID string    `gorm:"column:candidate_id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id"`
	PositionID  string    `gorm:"column:position_id"`
	Name        string    `gorm:"column:name"`
	Email       string    `gorm:"column:email"`
	MemberID    string    `gorm:"column:member_id"`
	ListIndex   int       `gorm:"column:list_index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (candidateModel) TableName() string {
	return "election_candidates"
}

func candidateModelFromEntity(candidate entities.Candidate, listIndex int) candidateModel {
	return candidateModel{
		CandidateID: candidate.CandidateID,
		ElectionID:  candidate.ElectionID,
		PositionID:  candidate.PositionID,
		Name:        candidate.Name,
		Email:       candidate.Email,
		MemberID:    candidate.MemberID,
		ListIndex:   listIndex,
		CreatedAt:   candidate.CreatedAt.UTC(),
	}
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		CandidateID: m.CandidateID,
		ElectionID:  m.ElectionID,
		PositionID:  m.PositionID,
		Name:        m.Name,
		Email:       m.Email,
		MemberID:    m.MemberID,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type voteModel struct {
	VoteID        string    `gorm:"column:vote_id;primaryKey"`
	VoterID       string    `gorm:"column:voter_id"`
	ElectionID    string    `gorm:"column:election_id"`
	PositionID    string    `gorm:"column:position_id"`
	CandidateID   string    `gorm:"column:candidate_id"`
	ScrutinyRound int       `gorm:"column:scrutiny_round"`
	CastAt        time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "election_votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		VoteID:        vote.VoteID,
		VoterID:       vote.VoterID,
		ElectionID:    vote.ElectionID,
		PositionID:    vote.PositionID,
		CandidateID:   vote.CandidateID,
		ScrutinyRound: vote.ScrutinyRound,
		CastAt:        vote.CastAt.UTC(),
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:        m.VoteID,
		VoterID:       m.VoterID,
		ElectionID:    m.ElectionID,
		PositionID:    m.PositionID,
		CandidateID:   m.CandidateID,
		ScrutinyRound: m.ScrutinyRound,
		CastAt:        m.CastAt.UTC(),
	}
}

type attendanceModel struct {
	ElectionID         string    `gorm:"column:election_id;primaryKey"`
	MemberID           string    `gorm:"column:member_id;primaryKey"`
	ElectionPositionID string    `gorm:"column:election_position_id;primaryKey"`
	IsPresent          bool      `gorm:"column:is_present"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (attendanceModel) TableName() string {
	return "election_attendance"
}

type winnerModel struct {
	ElectionID    string    `gorm:"column:election_id;primaryKey"`
	PositionID    string    `gorm:"column:position_id;primaryKey"`
	CandidateID   string    `gorm:"column:candidate_id"`
	WonAtScrutiny int       `gorm:"column:won_at_scrutiny"`
	RecordedAt    time.Time `gorm:"column:recorded_at"`
}

func (winnerModel) TableName() string {
	return "election_winners"
}

func (m winnerModel) toEntity() entities.WinnerRecord {
	return entities.WinnerRecord{
		ElectionID:    m.ElectionID,
		PositionID:    m.PositionID,
		CandidateID:   m.CandidateID,
		WonAtScrutiny: m.WonAtScrutiny,
		RecordedAt:    m.RecordedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Seq          int64      `gorm:"column:seq;->"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "election_event_dedup"
}

// presenceCount receives COUNT aggregates over attendance rows.
type presenceCount struct {
	ElectionPositionID string
	Present            int
	Total              int
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
