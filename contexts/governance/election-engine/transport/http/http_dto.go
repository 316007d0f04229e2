package http

import "time"

// Field names follow the results contract consumed by the UI and the audit
// export, so every payload here uses camelCase.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateElectionRequest struct {
	Name string `json:"name"`
}

type ElectionResponse struct {
	ElectionID  string     `json:"electionId"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
}

type ElectionPositionResponse struct {
	ElectionPositionID string     `json:"electionPositionId"`
	ElectionID         string     `json:"electionId"`
	PositionID         string     `json:"positionId"`
	PositionName       string     `json:"positionName"`
	Status             string     `json:"status"`
	CurrentScrutiny    int        `json:"currentScrutiny"`
	OrderIndex         int        `json:"orderIndex"`
	OpenedAt           *time.Time `json:"openedAt,omitempty"`
	ClosedAt           *time.Time `json:"closedAt,omitempty"`
	CompletionReason   string     `json:"completionReason,omitempty"`
}

type CreateElectionResponse struct {
	Election   ElectionResponse           `json:"election"`
	Positions  []ElectionPositionResponse `json:"positions"`
	RosterSize int                        `json:"rosterSize"`
}

type CloseElectionResponse struct {
	ElectionID     string                     `json:"electionId"`
	ForceCompleted []ElectionPositionResponse `json:"forceCompleted"`
}

type OpenNextPositionResponse struct {
	Opened   bool                      `json:"opened"`
	Position *ElectionPositionResponse `json:"position,omitempty"`
}

type ListElectionPositionsResponse struct {
	Items []ElectionPositionResponse `json:"items"`
}

type ForceCompleteRequest struct {
	Reason       string `json:"reason"`
	ShouldReopen bool   `json:"shouldReopen,omitempty"`
}

type TallyCandidateResponse struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	VoteCount   int    `json:"voteCount"`
}

type WinnerResponse struct {
	ElectionID    string    `json:"electionId"`
	PositionID    string    `json:"positionId"`
	CandidateID   string    `json:"candidateId"`
	WonAtScrutiny int       `json:"wonAtScrutiny"`
	RecordedAt    time.Time `json:"recordedAt"`
}

type AdvanceResponse struct {
	Outcome      string                    `json:"outcome"`
	Position     ElectionPositionResponse  `json:"position"`
	Winner       *WinnerResponse           `json:"winner,omitempty"`
	Tied         []TallyCandidateResponse  `json:"tied,omitempty"`
	NextPosition *ElectionPositionResponse `json:"nextPosition,omitempty"`
	Exhausted    bool                      `json:"exhausted"`
}

type CloseRoundResponse struct {
	Scrutiny          int                      `json:"scrutiny"`
	PresentCount      int                      `json:"presentCount"`
	QuorumScope       string                   `json:"quorumScope"`
	MajorityThreshold int                      `json:"majorityThreshold"`
	TotalVoters       int                      `json:"totalVoters"`
	Candidates        []TallyCandidateResponse `json:"candidates"`
	AdvanceResponse
}

type TieCheckResponse struct {
	IsTie      bool                     `json:"isTie"`
	Candidates []TallyCandidateResponse `json:"candidates"`
}

type ResolveTieRequest struct {
	WinnerID string `json:"winnerId"`
}

type SnapshotResponse struct {
	ElectionPositionID string `json:"electionPositionId"`
	Created            bool   `json:"created"`
	PresentCount       int    `json:"presentCount"`
}

type CandidateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	MemberID string `json:"memberId,omitempty"`
}

type ReplaceCandidatesRequest struct {
	Candidates []CandidateRequest `json:"candidates"`
}

type CandidateResponse struct {
	CandidateID string `json:"candidateId"`
	ElectionID  string `json:"electionId"`
	PositionID  string `json:"positionId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	MemberID    string `json:"memberId,omitempty"`
}

type CandidatesResponse struct {
	Items []CandidateResponse `json:"items"`
}

type CastVoteRequest struct {
	ElectionID    string `json:"electionId"`
	PositionID    string `json:"positionId"`
	CandidateID   string `json:"candidateId"`
	ScrutinyRound int    `json:"scrutinyRound"`
}

type VoteResponse struct {
	VoteID        string    `json:"voteId"`
	VoterID       string    `json:"voterId"`
	ElectionID    string    `json:"electionId"`
	PositionID    string    `json:"positionId"`
	CandidateID   string    `json:"candidateId"`
	ScrutinyRound int       `json:"scrutinyRound"`
	CastAt        time.Time `json:"castAt"`
}

type HasVotedResponse struct {
	HasVoted bool `json:"hasVoted"`
}

type SetAttendanceRequest struct {
	IsPresent bool `json:"isPresent"`
}

type AttendanceResponse struct {
	ElectionID string    `json:"electionId"`
	MemberID   string    `json:"memberId"`
	IsPresent  bool      `json:"isPresent"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type PresentCountResponse struct {
	ElectionID   string `json:"electionId"`
	PresentCount int    `json:"presentCount"`
}

type CreatePositionRequest struct {
	Name       string `json:"name"`
	OrderIndex int    `json:"orderIndex"`
}

type PositionResponse struct {
	PositionID string `json:"positionId"`
	Name       string `json:"name"`
	OrderIndex int    `json:"orderIndex"`
}

type PositionsResponse struct {
	Items []PositionResponse `json:"items"`
}

type CandidateResultResponse struct {
	CandidateID       string `json:"candidateId"`
	Name              string `json:"name"`
	VoteCount         int    `json:"voteCount"`
	IsElected         bool   `json:"isElected"`
	ElectedInScrutiny *int   `json:"electedInScrutiny,omitempty"`
}

type PositionResultResponse struct {
	PositionID        string                    `json:"positionId"`
	PositionName      string                    `json:"positionName"`
	Status            string                    `json:"status"`
	CurrentScrutiny   int                       `json:"currentScrutiny"`
	TotalVoters       int                       `json:"totalVoters"`
	MajorityThreshold int                       `json:"majorityThreshold"`
	NeedsNextScrutiny bool                      `json:"needsNextScrutiny"`
	WinnerID          string                    `json:"winnerId,omitempty"`
	Candidates        []CandidateResultResponse `json:"candidates"`
}

type ElectionResultsResponse struct {
	ElectionID      string                   `json:"electionId"`
	ElectionName    string                   `json:"electionName"`
	IsActive        bool                     `json:"isActive"`
	CurrentScrutiny int                      `json:"currentScrutiny"`
	PresentCount    int                      `json:"presentCount"`
	Positions       []PositionResultResponse `json:"positions"`
}

type ResultsHistoryResponse struct {
	Items []ElectionResultsResponse `json:"items"`
}
