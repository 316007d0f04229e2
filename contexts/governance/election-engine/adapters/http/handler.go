package httpadapter

import (
	"context"
	"log/slog"

	"fellowship/contexts/governance/election-engine/application/commands"
	"fellowship/contexts/governance/election-engine/application/queries"
	"fellowship/contexts/governance/election-engine/domain/entities"
	httptransport "fellowship/contexts/governance/election-engine/transport/http"
)

type Handler struct {
	Lifecycle  commands.LifecycleUseCase
	Sequencer  commands.SequencerUseCase
	Ballots    commands.BallotUseCase
	Attendance commands.AttendanceUseCase
	Candidates commands.CandidateUseCase
	Templates  commands.PositionTemplateUseCase
	Results    queries.ResultsUseCase
	Catalog    queries.CatalogUseCase
	Logger     *slog.Logger
}

func (h Handler) CreateElectionHandler(ctx context.Context, req httptransport.CreateElectionRequest) (httptransport.CreateElectionResponse, error) {
	result, err := h.Lifecycle.CreateElection(ctx, plainText(req.Name))
	if err != nil {
		return httptransport.CreateElectionResponse{}, err
	}
	return httptransport.CreateElectionResponse{
		Election:   mapElection(result.Election),
		Positions:  mapElectionPositions(result.Positions),
		RosterSize: result.RosterLen,
	}, nil
}

func (h Handler) CloseElectionHandler(ctx context.Context, electionID string) (httptransport.CloseElectionResponse, error) {
	completed, err := h.Lifecycle.CloseElection(ctx, electionID)
	if err != nil {
		return httptransport.CloseElectionResponse{}, err
	}
	return httptransport.CloseElectionResponse{
		ElectionID:     electionID,
		ForceCompleted: mapElectionPositions(completed),
	}, nil
}

func (h Handler) FinalizeElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.FinalizeElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) ListElectionPositionsHandler(ctx context.Context, electionID string) (httptransport.ListElectionPositionsResponse, error) {
	positions, err := h.Catalog.ListElectionPositions(ctx, electionID)
	if err != nil {
		return httptransport.ListElectionPositionsResponse{}, err
	}
	return httptransport.ListElectionPositionsResponse{Items: mapElectionPositions(positions)}, nil
}

func (h Handler) OpenNextPositionHandler(ctx context.Context, electionID string) (httptransport.OpenNextPositionResponse, error) {
	position, opened, err := h.Sequencer.OpenNextPosition(ctx, electionID)
	if err != nil {
		return httptransport.OpenNextPositionResponse{}, err
	}
	if !opened {
		return httptransport.OpenNextPositionResponse{Opened: false}, nil
	}
	mapped := mapElectionPosition(position)
	return httptransport.OpenNextPositionResponse{Opened: true, Position: &mapped}, nil
}

func (h Handler) OpenPositionHandler(ctx context.Context, electionPositionID string) (httptransport.ElectionPositionResponse, error) {
	position, err := h.Sequencer.OpenPosition(ctx, electionPositionID)
	if err != nil {
		return httptransport.ElectionPositionResponse{}, err
	}
	return mapElectionPosition(position), nil
}

func (h Handler) AdvanceScrutinyHandler(ctx context.Context, electionPositionID string) (httptransport.ElectionPositionResponse, error) {
	position, err := h.Sequencer.AdvancePositionScrutiny(ctx, electionPositionID)
	if err != nil {
		return httptransport.ElectionPositionResponse{}, err
	}
	return mapElectionPosition(position), nil
}

func (h Handler) CompletePositionHandler(ctx context.Context, electionPositionID string) (httptransport.ElectionPositionResponse, error) {
	position, err := h.Sequencer.CompletePosition(ctx, electionPositionID)
	if err != nil {
		return httptransport.ElectionPositionResponse{}, err
	}
	return mapElectionPosition(position), nil
}

func (h Handler) ForceCompletePositionHandler(
	ctx context.Context,
	electionPositionID string,
	req httptransport.ForceCompleteRequest,
) (httptransport.ElectionPositionResponse, error) {
	position, err := h.Sequencer.ForceCompletePosition(ctx, commands.ForceCompleteCommand{
		ElectionPositionID: electionPositionID,
		Reason:             plainText(req.Reason),
		ShouldReopen:       req.ShouldReopen,
	})
	if err != nil {
		return httptransport.ElectionPositionResponse{}, err
	}
	return mapElectionPosition(position), nil
}

func (h Handler) CloseRoundHandler(ctx context.Context, electionPositionID string) (httptransport.CloseRoundResponse, error) {
	result, err := h.Sequencer.CloseRound(ctx, electionPositionID)
	if err != nil {
		return httptransport.CloseRoundResponse{}, err
	}
	return httptransport.CloseRoundResponse{
		Scrutiny:          result.Tally.Scrutiny,
		PresentCount:      result.Quorum.PresentCount,
		QuorumScope:       string(result.Quorum.Scope),
		MajorityThreshold: result.Tally.MajorityThreshold,
		TotalVoters:       result.Tally.TotalVoters,
		Candidates:        mapTally(result.Tally.Candidates),
		AdvanceResponse:   mapAdvance(result.AdvanceResult),
	}, nil
}

func (h Handler) CheckTieHandler(ctx context.Context, electionPositionID string) (httptransport.TieCheckResponse, error) {
	check, err := h.Sequencer.CheckThirdScrutinyTie(ctx, electionPositionID)
	if err != nil {
		return httptransport.TieCheckResponse{}, err
	}
	return httptransport.TieCheckResponse{
		IsTie:      check.IsTie,
		Candidates: mapTally(check.Candidates),
	}, nil
}

func (h Handler) ResolveTieHandler(
	ctx context.Context,
	electionPositionID string,
	req httptransport.ResolveTieRequest,
) (httptransport.AdvanceResponse, error) {
	result, err := h.Sequencer.ResolveThirdScrutinyTie(ctx, electionPositionID, req.WinnerID)
	if err != nil {
		return httptransport.AdvanceResponse{}, err
	}
	return mapAdvance(result), nil
}

func (h Handler) SnapshotHandler(ctx context.Context, electionPositionID string) (httptransport.SnapshotResponse, error) {
	result, err := h.Attendance.CreateAttendanceSnapshot(ctx, electionPositionID)
	if err != nil {
		return httptransport.SnapshotResponse{}, err
	}
	return httptransport.SnapshotResponse{
		ElectionPositionID: result.ElectionPositionID,
		Created:            result.Created,
		PresentCount:       result.PresentCount,
	}, nil
}

func (h Handler) ReplaceCandidatesHandler(
	ctx context.Context,
	electionID string,
	positionID string,
	req httptransport.ReplaceCandidatesRequest,
) (httptransport.CandidatesResponse, error) {
	inputs := make([]commands.CandidateInput, 0, len(req.Candidates))
	for _, candidate := range req.Candidates {
		inputs = append(inputs, commands.CandidateInput{
			Name:     plainText(candidate.Name),
			Email:    candidate.Email,
			MemberID: candidate.MemberID,
		})
	}
	candidates, err := h.Candidates.ReplaceCandidates(ctx, commands.ReplaceCandidatesCommand{
		ElectionID: electionID,
		PositionID: positionID,
		Candidates: inputs,
	})
	if err != nil {
		return httptransport.CandidatesResponse{}, err
	}
	return httptransport.CandidatesResponse{Items: mapCandidates(candidates)}, nil
}

func (h Handler) ListCandidatesHandler(ctx context.Context, electionID string, positionID string) (httptransport.CandidatesResponse, error) {
	candidates, err := h.Catalog.ListCandidates(ctx, electionID, positionID)
	if err != nil {
		return httptransport.CandidatesResponse{}, err
	}
	return httptransport.CandidatesResponse{Items: mapCandidates(candidates)}, nil
}

func (h Handler) CastVoteHandler(ctx context.Context, voterID string, req httptransport.CastVoteRequest) (httptransport.VoteResponse, error) {
	vote, err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		VoterID:       voterID,
		PositionID:    req.PositionID,
		ElectionID:    req.ElectionID,
		CandidateID:   req.CandidateID,
		ScrutinyRound: req.ScrutinyRound,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		VoteID:        vote.VoteID,
		VoterID:       vote.VoterID,
		ElectionID:    vote.ElectionID,
		PositionID:    vote.PositionID,
		CandidateID:   vote.CandidateID,
		ScrutinyRound: vote.ScrutinyRound,
		CastAt:        vote.CastAt,
	}, nil
}

func (h Handler) HasVotedHandler(
	ctx context.Context,
	voterID string,
	electionID string,
	positionID string,
	scrutinyRound int,
) (httptransport.HasVotedResponse, error) {
	voted, err := h.Ballots.HasVoted(ctx, voterID, positionID, electionID, scrutinyRound)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{HasVoted: voted}, nil
}

func (h Handler) SetAttendanceHandler(
	ctx context.Context,
	electionID string,
	memberID string,
	req httptransport.SetAttendanceRequest,
) (httptransport.AttendanceResponse, error) {
	record, err := h.Attendance.SetMemberAttendance(ctx, electionID, memberID, req.IsPresent)
	if err != nil {
		return httptransport.AttendanceResponse{}, err
	}
	return httptransport.AttendanceResponse{
		ElectionID: record.ElectionID,
		MemberID:   record.MemberID,
		IsPresent:  record.IsPresent,
		UpdatedAt:  record.UpdatedAt,
	}, nil
}

func (h Handler) PresentCountHandler(ctx context.Context, electionID string) (httptransport.PresentCountResponse, error) {
	count, err := h.Attendance.GetPresentCount(ctx, electionID)
	if err != nil {
		return httptransport.PresentCountResponse{}, err
	}
	return httptransport.PresentCountResponse{ElectionID: electionID, PresentCount: count}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID string) (httptransport.ElectionResultsResponse, error) {
	results, err := h.Results.GetResults(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResultsResponse{}, err
	}
	return mapResults(results), nil
}

func (h Handler) LatestResultsHandler(ctx context.Context) (httptransport.ElectionResultsResponse, error) {
	results, err := h.Results.GetLatestResults(ctx)
	if err != nil {
		return httptransport.ElectionResultsResponse{}, err
	}
	return mapResults(results), nil
}

func (h Handler) ResultsHistoryHandler(ctx context.Context) (httptransport.ResultsHistoryResponse, error) {
	history, err := h.Results.ListResultsHistory(ctx)
	if err != nil {
		return httptransport.ResultsHistoryResponse{}, err
	}
	items := make([]httptransport.ElectionResultsResponse, 0, len(history))
	for _, results := range history {
		items = append(items, mapResults(results))
	}
	return httptransport.ResultsHistoryResponse{Items: items}, nil
}

func (h Handler) CreatePositionHandler(ctx context.Context, req httptransport.CreatePositionRequest) (httptransport.PositionResponse, error) {
	position, err := h.Templates.CreatePosition(ctx, plainText(req.Name), req.OrderIndex)
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	return mapPosition(position), nil
}

func (h Handler) ListPositionsHandler(ctx context.Context) (httptransport.PositionsResponse, error) {
	positions, err := h.Catalog.ListPositions(ctx)
	if err != nil {
		return httptransport.PositionsResponse{}, err
	}
	items := make([]httptransport.PositionResponse, 0, len(positions))
	for _, position := range positions {
		items = append(items, mapPosition(position))
	}
	return httptransport.PositionsResponse{Items: items}, nil
}

func mapElection(election entities.Election) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ElectionID:  election.ElectionID,
		Name:        election.Name,
		IsActive:    election.IsActive,
		CreatedAt:   election.CreatedAt,
		ClosedAt:    election.ClosedAt,
		FinalizedAt: election.FinalizedAt,
	}
}

func mapElectionPosition(position entities.ElectionPosition) httptransport.ElectionPositionResponse {
	return httptransport.ElectionPositionResponse{
		ElectionPositionID: position.ElectionPositionID,
		ElectionID:         position.ElectionID,
		PositionID:         position.PositionID,
		PositionName:       position.PositionName,
		Status:             string(position.Status),
		CurrentScrutiny:    position.CurrentScrutiny,
		OrderIndex:         position.OrderIndex,
		OpenedAt:           position.OpenedAt,
		ClosedAt:           position.ClosedAt,
		CompletionReason:   position.CompletionReason,
	}
}

func mapElectionPositions(positions []entities.ElectionPosition) []httptransport.ElectionPositionResponse {
	items := make([]httptransport.ElectionPositionResponse, 0, len(positions))
	for _, position := range positions {
		items = append(items, mapElectionPosition(position))
	}
	return items
}

func mapTally(candidates []entities.CandidateTally) []httptransport.TallyCandidateResponse {
	items := make([]httptransport.TallyCandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, httptransport.TallyCandidateResponse{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			VoteCount:   candidate.VoteCount,
		})
	}
	return items
}

func mapAdvance(result commands.AdvanceResult) httptransport.AdvanceResponse {
	response := httptransport.AdvanceResponse{
		Outcome:   string(result.Outcome.Kind),
		Position:  mapElectionPosition(result.Position),
		Exhausted: result.Exhausted,
	}
	if result.Outcome.Kind == entities.OutcomeTie {
		response.Tied = mapTally(result.Outcome.Tied)
	}
	if result.Winner != nil {
		response.Winner = &httptransport.WinnerResponse{
			ElectionID:    result.Winner.ElectionID,
			PositionID:    result.Winner.PositionID,
			CandidateID:   result.Winner.CandidateID,
			WonAtScrutiny: result.Winner.WonAtScrutiny,
			RecordedAt:    result.Winner.RecordedAt,
		}
	}
	if result.NextPosition != nil {
		next := mapElectionPosition(*result.NextPosition)
		response.NextPosition = &next
	}
	return response
}

func mapCandidates(candidates []entities.Candidate) []httptransport.CandidateResponse {
	items := make([]httptransport.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, httptransport.CandidateResponse{
			CandidateID: candidate.CandidateID,
			ElectionID:  candidate.ElectionID,
			PositionID:  candidate.PositionID,
			Name:        candidate.Name,
			Email:       candidate.Email,
			MemberID:    candidate.MemberID,
		})
	}
	return items
}

func mapPosition(position entities.Position) httptransport.PositionResponse {
	return httptransport.PositionResponse{
		PositionID: position.PositionID,
		Name:       position.Name,
		OrderIndex: position.OrderIndex,
	}
}

func mapResults(results queries.ElectionResults) httptransport.ElectionResultsResponse {
	response := httptransport.ElectionResultsResponse{
		ElectionID:      results.ElectionID,
		ElectionName:    results.ElectionName,
		IsActive:        results.IsActive,
		CurrentScrutiny: results.CurrentScrutiny,
		PresentCount:    results.PresentCount,
		Positions:       make([]httptransport.PositionResultResponse, 0, len(results.Positions)),
	}
	for _, position := range results.Positions {
		item := httptransport.PositionResultResponse{
			PositionID:        position.PositionID,
			PositionName:      position.PositionName,
			Status:            string(position.Status),
			CurrentScrutiny:   position.CurrentScrutiny,
			TotalVoters:       position.TotalVoters,
			MajorityThreshold: position.MajorityThreshold,
			NeedsNextScrutiny: position.NeedsNextScrutiny,
			WinnerID:          position.WinnerID,
			Candidates:        make([]httptransport.CandidateResultResponse, 0, len(position.Candidates)),
		}
		for _, candidate := range position.Candidates {
			item.Candidates = append(item.Candidates, httptransport.CandidateResultResponse{
				CandidateID:       candidate.CandidateID,
				Name:              candidate.Name,
				VoteCount:         candidate.VoteCount,
				IsElected:         candidate.IsElected,
				ElectedInScrutiny: candidate.ElectedInScrutiny,
			})
		}
		response.Positions = append(response.Positions, item)
	}
	return response
}
