package entities

import "sort"

// MajorityThreshold returns the minimum vote count needed to win a round.
// Rounds 1 and 2 need a strict majority of present voters; round 3 needs half
// rounded up.
func MajorityThreshold(presentCount int, scrutiny int) int {
	if presentCount <= 0 {
		return 0
	}
	if scrutiny >= MaxScrutiny {
		return (presentCount + 1) / 2
	}
	return presentCount/2 + 1
}

type CandidateTally struct {
	CandidateID string
	Name        string
	VoteCount   int
}

// RoundTally is the count of one scrutiny round for one position.
type RoundTally struct {
	ElectionID        string
	PositionID        string
	Scrutiny          int
	PresentCount      int
	MajorityThreshold int
	TotalVoters       int
	Candidates        []CandidateTally
}

// TallyRound counts votes cast in the given round. Every candidate appears in
// the result, including those with zero votes; votes from other rounds and
// votes for unknown candidates are ignored.
func TallyRound(candidates []Candidate, votes []Vote, scrutiny int, presentCount int) RoundTally {
	tally := RoundTally{
		Scrutiny:          scrutiny,
		PresentCount:      presentCount,
		MajorityThreshold: MajorityThreshold(presentCount, scrutiny),
		Candidates:        make([]CandidateTally, 0, len(candidates)),
	}
	index := make(map[string]int, len(candidates))
	for _, candidate := range candidates {
		if tally.ElectionID == "" {
			tally.ElectionID = candidate.ElectionID
			tally.PositionID = candidate.PositionID
		}
		index[candidate.CandidateID] = len(tally.Candidates)
		tally.Candidates = append(tally.Candidates, CandidateTally{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
		})
	}
	voters := make(map[string]struct{})
	for _, vote := range votes {
		if vote.ScrutinyRound != scrutiny {
			continue
		}
		position, ok := index[vote.CandidateID]
		if !ok {
			continue
		}
		tally.Candidates[position].VoteCount++
		voters[vote.VoterID] = struct{}{}
	}
	tally.TotalVoters = len(voters)
	return tally
}

// Leaders returns the candidates sharing the maximum vote count and that
// count. Leaders are ordered by candidate id for stable output.
func (t RoundTally) Leaders() ([]CandidateTally, int) {
	maxVotes := -1
	var leaders []CandidateTally
	for _, candidate := range t.Candidates {
		switch {
		case candidate.VoteCount > maxVotes:
			maxVotes = candidate.VoteCount
			leaders = []CandidateTally{candidate}
		case candidate.VoteCount == maxVotes:
			leaders = append(leaders, candidate)
		}
	}
	sort.Slice(leaders, func(i, j int) bool {
		return leaders[i].CandidateID < leaders[j].CandidateID
	})
	if maxVotes < 0 {
		maxVotes = 0
	}
	return leaders, maxVotes
}

type OutcomeKind string

const (
	OutcomeNoWinnerYet OutcomeKind = "no_winner_yet"
	OutcomeWinner      OutcomeKind = "winner"
	OutcomeTie         OutcomeKind = "tie"
)

// RoundOutcome is the end-of-round decision handed to the position sequencer.
// Only the field matching Kind is meaningful.
type RoundOutcome struct {
	Kind        OutcomeKind
	CandidateID string
	Tied        []CandidateTally
	Scrutiny    int
}

func NoWinnerYet(scrutiny int) RoundOutcome {
	return RoundOutcome{Kind: OutcomeNoWinnerYet, Scrutiny: scrutiny}
}

func WinnerOutcome(candidateID string, scrutiny int) RoundOutcome {
	return RoundOutcome{Kind: OutcomeWinner, CandidateID: candidateID, Scrutiny: scrutiny}
}

func TieOutcome(tied []CandidateTally) RoundOutcome {
	return RoundOutcome{Kind: OutcomeTie, Tied: tied, Scrutiny: MaxScrutiny}
}

// Exhausted reports a terminal-round result with neither winner nor tie.
func (o RoundOutcome) Exhausted() bool {
	return o.Kind == OutcomeNoWinnerYet && o.Scrutiny >= MaxScrutiny
}

// Decide applies the winner test to a tally.
//
// A unique leader at or above the threshold wins. A shared non-zero maximum in
// round 3 is a tie awaiting manual resolution; in earlier rounds it just means
// nobody won yet.
func Decide(t RoundTally) RoundOutcome {
	leaders, maxVotes := t.Leaders()
	if len(leaders) == 0 {
		return NoWinnerYet(t.Scrutiny)
	}
	if len(leaders) > 1 {
		if t.Scrutiny >= MaxScrutiny && maxVotes > 0 {
			return TieOutcome(leaders)
		}
		return NoWinnerYet(t.Scrutiny)
	}
	if t.MajorityThreshold > 0 && maxVotes >= t.MajorityThreshold {
		return WinnerOutcome(leaders[0].CandidateID, t.Scrutiny)
	}
	return NoWinnerYet(t.Scrutiny)
}

// NeedsNextScrutiny reports whether another voting round should follow.
func (t RoundTally) NeedsNextScrutiny() bool {
	outcome := Decide(t)
	return outcome.Kind == OutcomeNoWinnerYet && t.Scrutiny < MaxScrutiny
}
