// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/testutil"
)

func TestListElections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	c := testutil.NewComponents(t, db, cfg)
	handler := NewResultsHandler(db, c.Ballots, c.Audit)

	testutil.CreateTestElection(t, db, cfg, models.StatusDraft)
	openID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusOpen)
	closedID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusClosed)

	req := httptest.NewRequest("GET", "/elections", nil)
	w := httptest.NewRecorder()
	handler.ListElections(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var elections []models.Election
	testutil.AssertJSON(t, w, &elections)

	if len(elections) != 2 {
		t.Fatalf("Expected 2 listed elections (draft excluded), got %d", len(elections))
	}
	seen := map[string]bool{}
	for _, e := range elections {
		seen[e.ID] = true
		if e.Status == models.StatusDraft {
			t.Errorf("Draft election %s leaked into the public listing", e.ID)
		}
	}
	if !seen[openID] || !seen[closedID] {
		t.Errorf("Expected open and closed elections in listing, got %v", seen)
	}
}

func TestGetElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	c := testutil.NewComponents(t, db, cfg)
	handler := NewResultsHandler(db, c.Ballots, c.Audit)

	electionID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusOpen)
	testutil.AddTestCandidate(t, db, electionID, "Alice")
	testutil.AddTestCandidate(t, db, electionID, "Bob")

	req := httptest.NewRequest("GET", "/elections/"+electionID, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.GetElection(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ElectionWithCandidates
	testutil.AssertJSON(t, w, &resp)
	if resp.Election.ID != electionID {
		t.Errorf("Expected election %s, got %s", electionID, resp.Election.ID)
	}
	if len(resp.Candidates) != 2 {
		t.Errorf("Expected 2 candidates, got %d", len(resp.Candidates))
	}

	// Unknown election
	req = httptest.NewRequest("GET", "/elections/no-such", nil)
	req.SetPathValue("id", "no-such")
	w = httptest.NewRecorder()
	handler.GetElection(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestResultsSealedUntilClosed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	c := testutil.NewComponents(t, db, cfg)
	handler := NewResultsHandler(db, c.Ballots, c.Audit)
	ballots := NewBallotHandler(c.Orch, c.Elig)

	electionID, adminKey := testutil.CreateTestElection(t, db, cfg, models.StatusOpen)
	alice := testutil.AddTestCandidate(t, db, electionID, "Alice")
	bob := testutil.AddTestCandidate(t, db, electionID, "Bob")

	// Cast two votes for Alice, one for Bob
	for i, vote := range []struct {
		principal string
		candidate string
	}{
		{"voter-1", alice},
		{"voter-2", alice},
		{"voter-3", bob},
	} {
		testutil.GrantTestCredential(c, vote.principal, electionID, time.Now().Add(time.Hour))
		w := httptest.NewRecorder()
		ballots.SubmitBallot(w, submitRequest(electionID, vote.principal, "tok-"+vote.principal, vote.candidate))
		if w.Code != http.StatusCreated {
			t.Fatalf("Vote %d failed: %d %s", i, w.Code, w.Body.String())
		}
	}

	// Results are sealed while the election is open
	req := httptest.NewRequest("GET", "/elections/"+electionID+"/results", nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.GetResults(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	// Close the election
	elections := NewElectionHandler(db, cfg)
	closeReq := httptest.NewRequest("POST", "/elections/"+electionID+"/close", nil)
	closeReq.Header.Set("X-Admin-Key", adminKey)
	closeReq.SetPathValue("id", electionID)
	w = httptest.NewRecorder()
	elections.CloseElection(w, closeReq)
	testutil.AssertStatus(t, w, http.StatusOK)

	// Now results are readable
	req = httptest.NewRequest("GET", "/elections/"+electionID+"/results", nil)
	req.SetPathValue("id", electionID)
	w = httptest.NewRecorder()
	handler.GetResults(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var results models.ElectionResults
	testutil.AssertJSON(t, w, &results)

	if results.TotalBallots != 3 {
		t.Errorf("Expected 3 total ballots, got %d", results.TotalBallots)
	}
	if len(results.Tallies) != 2 {
		t.Fatalf("Expected 2 tallies, got %d", len(results.Tallies))
	}
	if results.Tallies[0].Name != "Alice" || results.Tallies[0].Votes != 2 {
		t.Errorf("Expected Alice leading with 2 votes, got %+v", results.Tallies[0])
	}
	if results.Tallies[1].Votes != 1 {
		t.Errorf("Expected Bob with 1 vote, got %+v", results.Tallies[1])
	}
	if results.InputsHash == "" {
		t.Error("Expected non-empty inputs_hash")
	}

	// The published hash must match a fresh recomputation
	tags, err := c.Ballots.IntegrityTags(req.Context(), electionID)
	if err != nil {
		t.Fatalf("IntegrityTags() error = %v", err)
	}
	if got := ballotstore.InputsHash(tags); got != results.InputsHash {
		t.Errorf("inputs_hash %s does not match recomputed %s", results.InputsHash, got)
	}
}

func TestGetAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	c := testutil.NewComponents(t, db, cfg)
	handler := NewResultsHandler(db, c.Ballots, c.Audit)
	ballots := NewBallotHandler(c.Orch, c.Elig)

	electionID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusOpen)
	candidateID := testutil.AddTestCandidate(t, db, electionID, "Alice")

	// Empty log for a fresh election
	req := httptest.NewRequest("GET", "/elections/"+electionID+"/audit-log", nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.GetAuditLog(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var entries []models.AuditEntry
	testutil.AssertJSON(t, w, &entries)
	if len(entries) != 0 {
		t.Errorf("Expected empty audit log, got %d entries", len(entries))
	}

	testutil.GrantTestCredential(c, "voter-1", electionID, time.Now().Add(time.Hour))
	w = httptest.NewRecorder()
	ballots.SubmitBallot(w, submitRequest(electionID, "voter-1", "tok-1", candidateID))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var rcpt models.Receipt
	testutil.AssertJSON(t, w, &rcpt)

	// The accepted ballot's integrity tag is now published
	req = httptest.NewRequest("GET", "/elections/"+electionID+"/audit-log", nil)
	req.SetPathValue("id", electionID)
	w = httptest.NewRecorder()
	handler.GetAuditLog(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	testutil.AssertJSON(t, w, &entries)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].IntegrityTag != rcpt.IntegrityTag {
		t.Errorf("Audit entry tag %s does not match receipt tag %s", entries[0].IntegrityTag, rcpt.IntegrityTag)
	}
}
