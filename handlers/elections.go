// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/cliparse"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
)

type ElectionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg}
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "title is required")
		return
	}
	if req.Constituency == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "constituency is required")
		return
	}

	electionID := uuid.NewString()
	adminKey := auth.GenerateAdminKey(electionID, h.cfg.AdminKeySalt)

	_, err := h.db.Exec(`
		INSERT INTO election (id, title, description, constituency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, electionID, req.Title, req.Description, req.Constituency, models.StatusDraft, time.Now())

	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "title", req.Title)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		AdminKey:   adminKey,
	})
}

// AddCandidate handles POST /elections/:id/candidates
// Requires X-Admin-Key. Candidates can only be added while draft.
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	status, ok := h.requireAdmin(w, r, electionID)
	if !ok {
		return
	}
	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindElectionNotOpen, "Candidates can only be added to draft elections")
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "name is required")
		return
	}

	candidateID := uuid.NewString()
	_, err := h.db.Exec(`
		INSERT INTO candidate (id, election_id, name, party, manifesto)
		VALUES ($1, $2, $3, $4, $5)
	`, candidateID, electionID, req.Name, req.Party, req.Manifesto)

	if err != nil {
		slog.Error("failed to insert candidate", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Failed to add candidate")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{
		CandidateID: candidateID,
	})
}

// OpenElection handles POST /elections/:id/open
// Transitions draft -> open. Requires at least one candidate.
func (h *ElectionHandler) OpenElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	status, ok := h.requireAdmin(w, r, electionID)
	if !ok {
		return
	}
	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindElectionNotOpen, "Only draft elections can be opened")
		return
	}

	var candidates int
	if err := h.db.QueryRow(`
		SELECT COUNT(*) FROM candidate WHERE election_id = $1
	`, electionID).Scan(&candidates); err != nil {
		slog.Error("failed to count candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}
	if candidates == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindInvalidRequest, "Cannot open an election with no candidates")
		return
	}

	if _, err := h.db.Exec(`
		UPDATE election SET status = $1 WHERE id = $2
	`, models.StatusOpen, electionID); err != nil {
		slog.Error("failed to open election", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Failed to open election")
		return
	}

	slog.Info("election opened", "election_id", electionID)

	middleware.JSONResponse(w, http.StatusOK, models.OpenElectionResponse{
		Status: models.StatusOpen,
	})
}

// CloseElection handles POST /elections/:id/close
// Transitions open -> closed. Results become readable once closed.
func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	status, ok := h.requireAdmin(w, r, electionID)
	if !ok {
		return
	}
	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindElectionNotOpen, "Only open elections can be closed")
		return
	}

	closedAt := time.Now()
	if _, err := h.db.Exec(`
		UPDATE election SET status = $1, closed_at = $2 WHERE id = $3
	`, models.StatusClosed, closedAt, electionID); err != nil {
		slog.Error("failed to close election", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Failed to close election")
		return
	}

	slog.Info("election closed", "election_id", electionID)

	middleware.JSONResponse(w, http.StatusOK, models.CloseElectionResponse{
		ClosedAt: closedAt,
	})
}

// requireAdmin loads the election, validates the X-Admin-Key header, and
// returns the current status. Writes the error response itself when the
// check fails.
func (h *ElectionHandler) requireAdmin(w http.ResponseWriter, r *http.Request, electionID string) (string, bool) {
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "election id is required")
		return "", false
	}

	var status string
	err := h.db.QueryRow(`
		SELECT status FROM election WHERE id = $1
	`, electionID).Scan(&status)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Election not found")
		return "", false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return "", false
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if adminKey == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.KindUnauthenticated, "X-Admin-Key header required")
		return "", false
	}
	if err := auth.ValidateAdminKey(electionID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindUnauthenticated, "Invalid admin key")
		return "", false
	}

	return status, true
}
