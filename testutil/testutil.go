// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/ballotbox/auditledger"
	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/cliparse"
	"github.com/danielhkuo/ballotbox/credential"
	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/receipt"
	"github.com/danielhkuo/ballotbox/submit"
)

// TestReceiptSeed is a fixed Ed25519 seed so receipts are verifiable
// across test helpers.
const TestReceiptSeed = "0101010101010101010101010101010101010101010101010101010101010101"

// SetupTestDB creates a fresh in-memory SQLite database with the full
// schema. The pool is capped at one connection so the in-memory database
// survives for the whole test and concurrent writers serialize cleanly.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                3521,
		DatabaseURL:         ":memory:",
		DatabaseType:        "sqlite",
		AdminKeySalt:        "test-admin-salt",
		VoterTokenSalt:      "test-token-salt",
		ReceiptSigningSeed:  TestReceiptSeed,
		IdentityProviderURL: "http://identity.test",
		IdentityTimeout:     time.Second,
		RevocationFreshness: time.Minute,
	}
}

// Components bundles the wired submission pipeline for tests.
type Components struct {
	Provider *credential.StaticProvider
	Verifier *credential.Verifier
	Elig     *ledger.Ledger
	Ballots  *ballotstore.Store
	Receipts *receipt.Issuer
	Audit    *auditledger.Ledger
	Orch     *submit.Orchestrator
}

// NewComponents wires the full pipeline against a static credential
// provider.
func NewComponents(t *testing.T, conn *sql.DB, cfg cliparse.Config) Components {
	t.Helper()

	key, err := auth.ReceiptKeyFromSeed(cfg.ReceiptSigningSeed)
	if err != nil {
		t.Fatalf("Failed to derive receipt key: %v", err)
	}

	provider := credential.NewStaticProvider()
	verifier := credential.NewVerifier(provider, cfg.RevocationFreshness)
	elig := ledger.New(conn)
	ballots := ballotstore.New(conn, cfg.VoterTokenSalt)
	receipts := receipt.NewIssuer(key)
	audit := auditledger.New(conn)

	return Components{
		Provider: provider,
		Verifier: verifier,
		Elig:     elig,
		Ballots:  ballots,
		Receipts: receipts,
		Audit:    audit,
		Orch:     submit.NewOrchestrator(conn, verifier, elig, ballots, receipts, audit),
	}
}

// CreateTestElection creates an election and returns its ID and admin key.
// status should be "draft", "open", or "closed"
func CreateTestElection(t *testing.T, conn *sql.DB, cfg cliparse.Config, status string) (electionID, adminKey string) {
	t.Helper()

	electionID = uuid.NewString()
	adminKey = auth.GenerateAdminKey(electionID, cfg.AdminKeySalt)

	var closedAt *time.Time
	if status == models.StatusClosed {
		now := time.Now()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO election (id, title, description, constituency, status, closed_at, created_at)
		VALUES ($1, 'Test Election', 'A test election', 'TEST-01', $2, $3, $4)
	`, electionID, status, closedAt, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID, adminKey
}

// AddTestCandidate adds a candidate to an election and returns its ID
func AddTestCandidate(t *testing.T, conn *sql.DB, electionID, name string) string {
	t.Helper()

	candidateID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO candidate (id, election_id, name, party, manifesto)
		VALUES ($1, $2, $3, 'Test Party', 'Test manifesto')
	`, candidateID, electionID, name)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return candidateID
}

// GrantTestCredential registers a usable credential for a principal.
func GrantTestCredential(c Components, principalID, electionID string, expiresAt time.Time) {
	c.Provider.Put(models.Credential{
		PrincipalID:  principalID,
		ElectionID:   electionID,
		Constituency: "TEST-01",
		IssuedAt:     time.Now().Add(-time.Hour),
		ExpiresAt:    expiresAt,
	})
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
