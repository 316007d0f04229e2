package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	electionengine "fellowship/contexts/governance/election-engine"
	"fellowship/contexts/governance/election-engine/domain/entities"
	httptransport "fellowship/contexts/governance/election-engine/transport/http"
)

func newTestServer(members ...string) *Server {
	module := electionengine.NewInMemoryModule([]entities.Position{
		{PositionID: "president", Name: "President", OrderIndex: 0},
		{PositionID: "secretary", Name: "Secretary", OrderIndex: 1},
	}, nil)
	module.Store.SetEligibleMembers(members...)
	return New(module, nil, ":0")
}

func serve(server *Server, method string, path string, body string, userID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rr.Body.String())
	}
	return out
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
	resp := decode[httptransport.ErrorResponse](t, rr)
	if resp.Code != code {
		t.Fatalf("expected code %s, got %s", code, resp.Code)
	}
}

// openElection creates an election, marks every member present and enters
// two candidates for the first position.
func openElection(t *testing.T, server *Server, members ...string) (string, []httptransport.CandidateResponse) {
	t.Helper()
	rr := serve(server, http.MethodPost, "/v1/elections", `{"name":"Annual assembly"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[httptransport.CreateElectionResponse](t, rr)
	electionID := created.Election.ElectionID

	for _, member := range members {
		rr = serve(server, http.MethodPut, "/v1/elections/"+electionID+"/attendance/"+member, `{"isPresent":true}`, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr = serve(server, http.MethodPut, "/v1/elections/"+electionID+"/positions/president/candidates",
		`{"candidates":[{"name":"<b>Alice</b>","email":"Alice@Example.org"},{"name":"Bob","email":"bob@example.org"}]}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	candidates := decode[httptransport.CandidatesResponse](t, rr)
	if len(candidates.Items) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates.Items))
	}
	return electionID, candidates.Items
}

func voteBody(electionID string, candidateID string, round int) string {
	payload, _ := json.Marshal(httptransport.CastVoteRequest{
		ElectionID:    electionID,
		PositionID:    "president",
		CandidateID:   candidateID,
		ScrutinyRound: round,
	})
	return string(payload)
}

func TestCreateElectionOpensFirstPosition(t *testing.T) {
	server := newTestServer("m1", "m2")
	rr := serve(server, http.MethodPost, "/v1/elections", `{"name":"Annual assembly"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[httptransport.CreateElectionResponse](t, rr)
	if created.RosterSize != 2 || len(created.Positions) != 2 {
		t.Fatalf("unexpected election payload: %+v", created)
	}
	if created.Positions[0].Status != "active" || created.Positions[1].Status != "pending" {
		t.Fatalf("expected first position active, got %+v", created.Positions)
	}

	rr = serve(server, http.MethodGet, "/v1/elections/"+created.Election.ElectionID+"/positions", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	listed := decode[httptransport.ListElectionPositionsResponse](t, rr)
	if len(listed.Items) != 2 || listed.Items[0].PositionID != "president" {
		t.Fatalf("unexpected positions: %+v", listed.Items)
	}
}

func TestCreateElectionRejectsBlankName(t *testing.T) {
	server := newTestServer()
	expectError(t, serve(server, http.MethodPost, "/v1/elections", `{"name":"   "}`, ""), http.StatusBadRequest, "invalid_request")
}

func TestInvalidJSONBodyRejected(t *testing.T) {
	server := newTestServer()
	expectError(t, serve(server, http.MethodPost, "/v1/elections", `{"name":`, ""), http.StatusBadRequest, "invalid_json")
}

func TestCastVoteRequiresUserHeader(t *testing.T) {
	server := newTestServer("m1")
	electionID, candidates := openElection(t, server, "m1")
	rr := serve(server, http.MethodPost, "/v1/votes", voteBody(electionID, candidates[0].CandidateID, 1), "")
	expectError(t, rr, http.StatusUnauthorized, "missing_user")
}

func TestCandidateNamesAreStrippedOfMarkup(t *testing.T) {
	server := newTestServer("m1")
	_, candidates := openElection(t, server, "m1")
	if candidates[0].Name != "Alice" {
		t.Fatalf("expected sanitized name, got %q", candidates[0].Name)
	}
	if candidates[0].Email != "alice@example.org" {
		t.Fatalf("expected normalized email, got %q", candidates[0].Email)
	}
}

func TestDuplicateVoteReturnsConflict(t *testing.T) {
	server := newTestServer("m1", "m2")
	electionID, candidates := openElection(t, server, "m1", "m2")

	rr := serve(server, http.MethodPost, "/v1/votes", voteBody(electionID, candidates[0].CandidateID, 1), "m1")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodPost, "/v1/votes", voteBody(electionID, candidates[1].CandidateID, 1), "m1")
	expectError(t, rr, http.StatusConflict, "duplicate_vote")

	rr = serve(server, http.MethodGet, "/v1/elections/"+electionID+"/positions/president/votes/me?scrutiny=1", "", "m1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !decode[httptransport.HasVotedResponse](t, rr).HasVoted {
		t.Fatalf("expected hasVoted true")
	}
}

func TestVoteForWrongRoundReturnsRoundMismatch(t *testing.T) {
	server := newTestServer("m1")
	electionID, candidates := openElection(t, server, "m1")
	rr := serve(server, http.MethodPost, "/v1/votes", voteBody(electionID, candidates[0].CandidateID, 2), "m1")
	expectError(t, rr, http.StatusConflict, "round_mismatch")
}

func TestVoteForPendingPositionReturnsNotActive(t *testing.T) {
	server := newTestServer("m1")
	electionID, _ := openElection(t, server, "m1")
	rr := serve(server, http.MethodPut, "/v1/elections/"+electionID+"/positions/secretary/candidates",
		`{"candidates":[{"name":"Carol","email":"carol@example.org"}]}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	carol := decode[httptransport.CandidatesResponse](t, rr).Items[0]
	body, _ := json.Marshal(httptransport.CastVoteRequest{
		ElectionID:    electionID,
		PositionID:    "secretary",
		CandidateID:   carol.CandidateID,
		ScrutinyRound: 1,
	})
	rr = serve(server, http.MethodPost, "/v1/votes", string(body), "m1")
	expectError(t, rr, http.StatusConflict, "position_not_active")
}

func TestHasVotedRequiresScrutinyParameter(t *testing.T) {
	server := newTestServer("m1")
	electionID, _ := openElection(t, server, "m1")
	rr := serve(server, http.MethodGet, "/v1/elections/"+electionID+"/positions/president/votes/me", "", "m1")
	expectError(t, rr, http.StatusBadRequest, "invalid_request")
	rr = serve(server, http.MethodGet, "/v1/elections/"+electionID+"/positions/president/votes/me?scrutiny=x", "", "m1")
	expectError(t, rr, http.StatusBadRequest, "invalid_request")
}

func TestCloseRoundElectsWinnerAndOpensNextPosition(t *testing.T) {
	server := newTestServer("m1", "m2", "m3")
	electionID, candidates := openElection(t, server, "m1", "m2", "m3")
	for _, voter := range []string{"m1", "m2"} {
		rr := serve(server, http.MethodPost, "/v1/votes", voteBody(electionID, candidates[0].CandidateID, 1), voter)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := serve(server, http.MethodGet, "/v1/elections/"+electionID+"/positions", "", "")
	president := decode[httptransport.ListElectionPositionsResponse](t, rr).Items[0]

	rr = serve(server, http.MethodPost, "/v1/election-positions/"+president.ElectionPositionID+"/close-round", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	closed := decode[httptransport.CloseRoundResponse](t, rr)
	if closed.Outcome != "winner" || closed.MajorityThreshold != 2 || closed.PresentCount != 3 {
		t.Fatalf("unexpected round close: %+v", closed)
	}
	if closed.Winner == nil || closed.Winner.CandidateID != candidates[0].CandidateID {
		t.Fatalf("expected Alice to win, got %+v", closed.Winner)
	}
	if closed.NextPosition == nil || closed.NextPosition.PositionID != "secretary" || closed.NextPosition.Status != "active" {
		t.Fatalf("expected secretary to open, got %+v", closed.NextPosition)
	}

	rr = serve(server, http.MethodGet, "/v1/elections/"+electionID+"/results", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	results := decode[httptransport.ElectionResultsResponse](t, rr)
	if len(results.Positions) != 2 || results.Positions[0].WinnerID != candidates[0].CandidateID {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestCloseRoundWithoutRosterReturnsQuorumUnavailable(t *testing.T) {
	server := newTestServer()
	electionID, _ := openElection(t, server)
	rr := serve(server, http.MethodGet, "/v1/elections/"+electionID+"/positions", "", "")
	president := decode[httptransport.ListElectionPositionsResponse](t, rr).Items[0]

	rr = serve(server, http.MethodPost, "/v1/election-positions/"+president.ElectionPositionID+"/close-round", "", "")
	expectError(t, rr, http.StatusUnprocessableEntity, "quorum_unavailable")
}

func TestUnknownElectionReturnsNotFound(t *testing.T) {
	server := newTestServer()
	expectError(t, serve(server, http.MethodPost, "/v1/elections/missing/close", "", ""), http.StatusNotFound, "not_found")
	expectError(t, serve(server, http.MethodGet, "/v1/elections/missing/results", "", ""), http.StatusNotFound, "not_found")
}

func TestFinalizeRequiresClosedElection(t *testing.T) {
	server := newTestServer("m1")
	electionID, _ := openElection(t, server, "m1")
	expectError(t, serve(server, http.MethodPost, "/v1/elections/"+electionID+"/finalize", "", ""), http.StatusConflict, "invalid_transition")

	rr := serve(server, http.MethodPost, "/v1/elections/"+electionID+"/close", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodPost, "/v1/elections/"+electionID+"/finalize", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decode[httptransport.ElectionResponse](t, rr).FinalizedAt == nil {
		t.Fatalf("expected finalizedAt to be set")
	}
}

func TestAttendanceCountAndSnapshot(t *testing.T) {
	server := newTestServer("m1", "m2", "m3")
	electionID, _ := openElection(t, server, "m1", "m2")

	rr := serve(server, http.MethodGet, "/v1/elections/"+electionID+"/attendance/count", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[httptransport.PresentCountResponse](t, rr).PresentCount; got != 2 {
		t.Fatalf("expected 2 present, got %d", got)
	}

	rr = serve(server, http.MethodGet, "/v1/elections/"+electionID+"/positions", "", "")
	president := decode[httptransport.ListElectionPositionsResponse](t, rr).Items[0]
	path := "/v1/election-positions/" + president.ElectionPositionID + "/attendance-snapshot"
	rr = serve(server, http.MethodPost, path, "", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodPost, path, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decode[httptransport.SnapshotResponse](t, rr).PresentCount != 2 {
		t.Fatalf("expected snapshot to keep 2 present")
	}
}

func TestPositionTemplates(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/positions", `{"name":"Treasurer","orderIndex":2}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodGet, "/v1/positions", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	positions := decode[httptransport.PositionsResponse](t, rr)
	if len(positions.Items) != 3 || positions.Items[2].Name != "Treasurer" {
		t.Fatalf("unexpected templates: %+v", positions.Items)
	}
}

func TestServeStopsWhenContextIsCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := newTestServer("m1")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, listener)
	}()

	resp, err := http.Get("http://" + listener.Addr().String() + "/v1/positions")
	if err != nil {
		t.Fatalf("request while serving: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 while serving, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after cancellation")
	}
	if _, err := net.DialTimeout("tcp", listener.Addr().String(), time.Second); err == nil {
		t.Fatalf("expected listener to be closed after shutdown")
	}
}
