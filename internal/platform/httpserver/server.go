package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	electionengine "fellowship/contexts/governance/election-engine"
	domainerrors "fellowship/contexts/governance/election-engine/domain/errors"
	httptransport "fellowship/contexts/governance/election-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "fellowship/internal/platform/httpserver/docs"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	elections electionengine.Module
}

func New(elections electionengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		elections: elections,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

const shutdownTimeout = 10 * time.Second

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve drains in-flight requests and returns nil once ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", listener.Addr().String(),
	)

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(listener)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown failed",
			"event", "http_server_shutdown_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		return err
	}
	<-served
	s.logger.Info("http server stopped",
		"event", "http_server_stopped",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/close", s.handleCloseElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/finalize", s.handleFinalizeElection)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/positions", s.handleListElectionPositions)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/positions/open-next", s.handleOpenNextPosition)

	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/open", s.handleOpenPosition)
	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/advance-scrutiny", s.handleAdvanceScrutiny)
	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/complete", s.handleCompletePosition)
	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/force-complete", s.handleForceCompletePosition)
	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/close-round", s.handleCloseRound)
	s.mux.HandleFunc("GET /v1/election-positions/{election_position_id}/tie", s.handleCheckTie)
	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/tie/resolve", s.handleResolveTie)
	s.mux.HandleFunc("POST /v1/election-positions/{election_position_id}/attendance-snapshot", s.handleAttendanceSnapshot)

	s.mux.HandleFunc("PUT /v1/elections/{election_id}/positions/{position_id}/candidates", s.handleReplaceCandidates)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/positions/{position_id}/candidates", s.handleListCandidates)

	s.mux.HandleFunc("POST /v1/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/positions/{position_id}/votes/me", s.handleHasVoted)

	s.mux.HandleFunc("PUT /v1/elections/{election_id}/attendance/{member_id}", s.handleSetAttendance)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/attendance/count", s.handlePresentCount)

	s.mux.HandleFunc("GET /v1/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET /v1/results/latest", s.handleLatestResults)
	s.mux.HandleFunc("GET /v1/results/history", s.handleResultsHistory)

	s.mux.HandleFunc("POST /v1/positions", s.handleCreatePosition)
	s.mux.HandleFunc("GET /v1/positions", s.handleListPositions)
}

// decodeBody writes the error response itself and reports whether the
// handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func parseScrutiny(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("scrutiny")
	if raw == "" {
		writeElectionError(w, http.StatusBadRequest, string(domainerrors.KindInvalidRequest), "scrutiny query parameter is required")
		return 0, false
	}
	round, err := strconv.Atoi(raw)
	if err != nil {
		writeElectionError(w, http.StatusBadRequest, string(domainerrors.KindInvalidRequest), "scrutiny must be an integer")
		return 0, false
	}
	return round, true
}

func (s *Server) writeElectionDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domainerrors.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("election request failed",
			"event", "http_election_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeElectionError(w, status, string(domainerrors.KindInternal), "internal server error")
		return
	}
	writeElectionError(w, status, string(kind), err.Error())
}

func statusForKind(kind domainerrors.Kind) int {
	switch kind {
	case domainerrors.KindNotFound:
		return http.StatusNotFound
	case domainerrors.KindInvalidRequest:
		return http.StatusBadRequest
	case domainerrors.KindDuplicateVote,
		domainerrors.KindPositionNotActive,
		domainerrors.KindRoundMismatch,
		domainerrors.KindInvalidTransition,
		domainerrors.KindUnresolvedTie:
		return http.StatusConflict
	case domainerrors.KindQuorumUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeElectionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
