package httpserver

import (
	"net/http"

	httptransport "fellowship/contexts/governance/election-engine/transport/http"
)

func (s *Server) handleReplaceCandidates(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ReplaceCandidatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.ReplaceCandidatesHandler(
		r.Context(),
		r.PathValue("election_id"),
		r.PathValue("position_id"),
		req,
	)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ListCandidatesHandler(r.Context(), r.PathValue("election_id"), r.PathValue("position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.CastVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.CastVoteHandler(r.Context(), voterID, req)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireUser(w, r)
	if !ok {
		return
	}
	round, ok := parseScrutiny(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.HasVotedHandler(
		r.Context(),
		voterID,
		r.PathValue("election_id"),
		r.PathValue("position_id"),
		round,
	)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	var req httptransport.SetAttendanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.SetAttendanceHandler(
		r.Context(),
		r.PathValue("election_id"),
		r.PathValue("member_id"),
		req,
	)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePresentCount(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.PresentCountHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ResultsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.LatestResultsHandler(r.Context())
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResultsHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ResultsHistoryHandler(r.Context())
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CreatePositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.CreatePositionHandler(r.Context(), req)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ListPositionsHandler(r.Context())
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
