package httpserver

import (
	"net/http"

	httptransport "fellowship/contexts/governance/election-engine/transport/http"
)

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CreateElectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.CreateElectionHandler(r.Context(), req)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCloseElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.CloseElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalizeElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.FinalizeElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListElectionPositions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ListElectionPositionsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenNextPosition(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.OpenNextPositionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.OpenPositionHandler(r.Context(), r.PathValue("election_position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvanceScrutiny(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.AdvanceScrutinyHandler(r.Context(), r.PathValue("election_position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompletePosition(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.CompletePositionHandler(r.Context(), r.PathValue("election_position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForceCompletePosition(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ForceCompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.ForceCompletePositionHandler(r.Context(), r.PathValue("election_position_id"), req)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseRound(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.CloseRoundHandler(r.Context(), r.PathValue("election_position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckTie(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.CheckTieHandler(r.Context(), r.PathValue("election_position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolveTie(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ResolveTieRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.ResolveTieHandler(r.Context(), r.PathValue("election_position_id"), req)
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAttendanceSnapshot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.SnapshotHandler(r.Context(), r.PathValue("election_position_id"))
	if err != nil {
		s.writeElectionDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}
