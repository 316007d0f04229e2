package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid election input")
	ErrElectionNotFound  = errors.New("election not found")
	ErrPositionNotFound  = errors.New("election position not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrDuplicateVote     = errors.New("voter already voted for this position in this round")
	ErrPositionNotActive = errors.New("position is not open for voting")
	ErrRoundMismatch     = errors.New("vote round does not match the current scrutiny round")
	ErrInvalidTransition = errors.New("invalid election state transition")
	ErrUnresolvedTie     = errors.New("third scrutiny tie requires manual resolution")
	ErrQuorumUnavailable = errors.New("attendance quorum is unavailable")
	ErrConflict          = errors.New("election state conflict")
)

// Narrower failures wrap one of the kinds above so errors.Is matches both.
var (
	ErrElectionFinalized   = fmt.Errorf("election is finalized: %w", ErrInvalidTransition)
	ErrElectionClosed      = fmt.Errorf("election is closed: %w", ErrInvalidTransition)
	ErrWinnerAlreadyExists = fmt.Errorf("position already has a winner: %w", ErrInvalidTransition)
	ErrNoTie               = fmt.Errorf("position is not in a third scrutiny tie: %w", ErrInvalidTransition)
	ErrNoCandidates        = fmt.Errorf("position has no candidates: %w", ErrInvalidInput)
)

// Kind collapses the sentinel set into the caller-facing error taxonomy.
type Kind string

const (
	KindDuplicateVote     Kind = "duplicate_vote"
	KindPositionNotActive Kind = "position_not_active"
	KindRoundMismatch     Kind = "round_mismatch"
	KindInvalidTransition Kind = "invalid_transition"
	KindUnresolvedTie     Kind = "unresolved_tie"
	KindQuorumUnavailable Kind = "quorum_unavailable"
	KindNotFound          Kind = "not_found"
	KindInvalidRequest    Kind = "invalid_request"
	KindInternal          Kind = "internal_error"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateVote):
		return KindDuplicateVote
	case errors.Is(err, ErrPositionNotActive):
		return KindPositionNotActive
	case errors.Is(err, ErrRoundMismatch):
		return KindRoundMismatch
	case errors.Is(err, ErrUnresolvedTie):
		return KindUnresolvedTie
	case errors.Is(err, ErrQuorumUnavailable):
		return KindQuorumUnavailable
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConflict):
		return KindInvalidTransition
	case errors.Is(err, ErrElectionNotFound),
		errors.Is(err, ErrPositionNotFound),
		errors.Is(err, ErrCandidateNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
