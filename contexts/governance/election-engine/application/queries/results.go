package queries

import (
	"context"
	"sort"
	"strings"

	"fellowship/contexts/governance/election-engine/domain/entities"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	"fellowship/contexts/governance/election-engine/ports"
)

type CandidateResult struct {
	CandidateID       string
	Name              string
	VoteCount         int
	IsElected         bool
	ElectedInScrutiny *int
}

type PositionResult struct {
	ElectionPositionID string
	PositionID         string
	PositionName       string
	Status             entities.PositionStatus
	CurrentScrutiny    int
	TotalVoters        int
	MajorityThreshold  int
	NeedsNextScrutiny  bool
	WinnerID           string
	Candidates         []CandidateResult
}

type ElectionResults struct {
	ElectionID      string
	ElectionName    string
	IsActive        bool
	CurrentScrutiny int
	PresentCount    int
	Positions       []PositionResult
}

type ResultsUseCase struct {
	Elections ports.ElectionRepository
	Results   ports.ResultsReader
}

func (uc ResultsUseCase) GetResults(ctx context.Context, electionID string) (ElectionResults, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return ElectionResults{}, domainerrors.ErrInvalidInput
	}
	aggregate, err := uc.Results.LoadElectionAggregate(ctx, electionID)
	if err != nil {
		return ElectionResults{}, err
	}
	return BuildResults(aggregate), nil
}

// GetLatestResults returns the results of the most recently created election.
func (uc ResultsUseCase) GetLatestResults(ctx context.Context) (ElectionResults, error) {
	election, err := uc.Elections.GetLatestElection(ctx)
	if err != nil {
		return ElectionResults{}, err
	}
	return uc.GetResults(ctx, election.ElectionID)
}

// ListResultsHistory returns the results of every election, newest first.
func (uc ResultsUseCase) ListResultsHistory(ctx context.Context) ([]ElectionResults, error) {
	elections, err := uc.Elections.ListElections(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(elections, func(i, j int) bool {
		return elections[i].CreatedAt.After(elections[j].CreatedAt)
	})
	items := make([]ElectionResults, 0, len(elections))
	for _, election := range elections {
		results, err := uc.GetResults(ctx, election.ElectionID)
		if err != nil {
			return nil, err
		}
		items = append(items, results)
	}
	return items, nil
}

// BuildResults folds a batch-fetched aggregate into the results view in a
// single pass over positions, candidates and votes.
func BuildResults(aggregate ports.ElectionAggregate) ElectionResults {
	results := ElectionResults{
		ElectionID:   aggregate.Election.ElectionID,
		ElectionName: aggregate.Election.Name,
		IsActive:     aggregate.Election.IsActive,
		PresentCount: aggregate.MainPresent,
		Positions:    make([]PositionResult, 0, len(aggregate.Positions)),
	}

	candidatesByPosition := make(map[string][]entities.Candidate)
	for _, candidate := range aggregate.Candidates {
		candidatesByPosition[candidate.PositionID] = append(candidatesByPosition[candidate.PositionID], candidate)
	}
	votesByPosition := make(map[string][]entities.Vote)
	for _, vote := range aggregate.Votes {
		votesByPosition[vote.PositionID] = append(votesByPosition[vote.PositionID], vote)
	}
	winners := make(map[string]entities.WinnerRecord, len(aggregate.Winners))
	for _, winner := range aggregate.Winners {
		winners[winner.PositionID] = winner
	}

	positions := append([]entities.ElectionPosition(nil), aggregate.Positions...)
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].OrderIndex < positions[j].OrderIndex
	})

	for _, position := range positions {
		snapshot := aggregate.Snapshots[position.ElectionPositionID]
		quorum, quorumOK := entities.ChooseQuorum(snapshot.Rows, snapshot.Present, aggregate.MainRows, aggregate.MainPresent)
		present := 0
		if quorumOK {
			present = quorum.PresentCount
		}
		tally := entities.TallyRound(
			candidatesByPosition[position.PositionID],
			votesByPosition[position.PositionID],
			position.CurrentScrutiny,
			present,
		)
		winner, hasWinner := winners[position.PositionID]

		item := PositionResult{
			ElectionPositionID: position.ElectionPositionID,
			PositionID:         position.PositionID,
			PositionName:       position.PositionName,
			Status:             position.Status,
			CurrentScrutiny:    position.CurrentScrutiny,
			TotalVoters:        tally.TotalVoters,
			MajorityThreshold:  tally.MajorityThreshold,
			NeedsNextScrutiny:  position.IsActive() && !hasWinner && quorumOK && tally.NeedsNextScrutiny(),
			Candidates:         make([]CandidateResult, 0, len(tally.Candidates)),
		}
		if hasWinner {
			item.WinnerID = winner.CandidateID
		}
		for _, candidate := range tally.Candidates {
			entry := CandidateResult{
				CandidateID: candidate.CandidateID,
				Name:        candidate.Name,
				VoteCount:   candidate.VoteCount,
			}
			if hasWinner && winner.CandidateID == candidate.CandidateID {
				round := winner.WonAtScrutiny
				entry.IsElected = true
				entry.ElectedInScrutiny = &round
			}
			item.Candidates = append(item.Candidates, entry)
		}
		if position.IsActive() {
			results.CurrentScrutiny = position.CurrentScrutiny
		}
		results.Positions = append(results.Positions, item)
	}
	return results
}
