// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/ballotbox/auditledger"
	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
)

type ResultsHandler struct {
	db      *sql.DB
	ballots *ballotstore.Store
	audit   *auditledger.Ledger
}

func NewResultsHandler(db *sql.DB, ballots *ballotstore.Store, audit *auditledger.Ledger) *ResultsHandler {
	return &ResultsHandler{db: db, ballots: ballots, audit: audit}
}

// ListElections handles GET /elections
// Drafts are private to their admins and excluded from the listing.
func (h *ResultsHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, description, constituency, status, closed_at, created_at
		FROM election
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC
	`, models.StatusOpen, models.StatusClosed)
	if err != nil {
		slog.Error("failed to query elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		var e models.Election
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &desc, &e.Constituency, &e.Status, &e.ClosedAt, &e.CreatedAt); err != nil {
			slog.Error("failed to scan election", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
			return
		}
		e.Description = desc.String
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, elections)
}

// GetElection handles GET /elections/:id
// Returns election details and the candidate roster, but NOT results
// (results are sealed until the election closes).
func (h *ResultsHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "election id is required")
		return
	}

	election, ok := h.loadElection(w, electionID)
	if !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, election_id, name, party, manifesto
		FROM candidate WHERE election_id = $1 ORDER BY name ASC
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var party, manifesto sql.NullString
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &party, &manifesto); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
			return
		}
		c.Party = party.String
		c.Manifesto = manifesto.String
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithCandidates{
		Election:   election,
		Candidates: candidates,
	})
}

// GetResults handles GET /elections/:id/results
// Sealed until the election is closed.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "election id is required")
		return
	}

	election, ok := h.loadElection(w, electionID)
	if !ok {
		return
	}
	if election.Status != models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindElectionNotOpen, "Results are sealed until the election closes")
		return
	}

	tallies, total, err := h.ballots.Tally(r.Context(), electionID)
	if err != nil {
		slog.Error("failed to compute tally", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	tags, err := h.ballots.IntegrityTags(r.Context(), electionID)
	if err != nil {
		slog.Error("failed to list integrity tags", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionResults{
		ElectionID:   electionID,
		ComputedAt:   time.Now().UTC(),
		TotalBallots: total,
		InputsHash:   ballotstore.InputsHash(tags),
		Tallies:      tallies,
	})
}

// GetAuditLog handles GET /elections/:id/audit-log
// The public list of integrity tags third parties verify receipts against.
func (h *ResultsHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "election id is required")
		return
	}

	if _, ok := h.loadElection(w, electionID); !ok {
		return
	}

	entries, err := h.audit.Entries(r.Context(), electionID)
	if err != nil {
		slog.Error("failed to list audit entries", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	middleware.JSONResponse(w, http.StatusOK, entries)
}

func (h *ResultsHandler) loadElection(w http.ResponseWriter, electionID string) (models.Election, bool) {
	var e models.Election
	var desc sql.NullString
	err := h.db.QueryRow(`
		SELECT id, title, description, constituency, status, closed_at, created_at
		FROM election WHERE id = $1
	`, electionID).Scan(&e.ID, &e.Title, &desc, &e.Constituency, &e.Status, &e.ClosedAt, &e.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Election not found")
		return models.Election{}, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return models.Election{}, false
	}
	e.Description = desc.String

	return e, true
}
