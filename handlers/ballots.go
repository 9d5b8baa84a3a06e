// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/credential"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/receipt"
	"github.com/danielhkuo/ballotbox/submit"
)

type BallotHandler struct {
	orch *submit.Orchestrator
	elig *ledger.Ledger
}

func NewBallotHandler(orch *submit.Orchestrator, elig *ledger.Ledger) *BallotHandler {
	return &BallotHandler{orch: orch, elig: elig}
}

// SubmitBallot handles POST /elections/:id/ballots
// The principal id comes from the X-Principal-ID header; the session that
// produced it is assumed already authenticated by the identity provider.
func (h *BallotHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "election id is required")
		return
	}

	principalID := r.Header.Get("X-Principal-ID")
	if principalID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.KindUnauthenticated, "X-Principal-ID header required")
		return
	}

	var req models.SubmitBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "Invalid JSON")
		return
	}

	if req.IdempotencyToken == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "idempotency_token is required")
		return
	}
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "candidate_id is required")
		return
	}

	rcpt, err := h.orch.Submit(r.Context(), submit.Request{
		IdempotencyToken: req.IdempotencyToken,
		PrincipalID:      principalID,
		ElectionID:       electionID,
		CandidateID:      req.CandidateID,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, rcpt)
}

// GetEligibility handles GET /elections/:id/eligibility
// Server-authoritative "have I voted" check; replaces any client-held flag.
func (h *BallotHandler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "election id is required")
		return
	}

	principalID := r.Header.Get("X-Principal-ID")
	if principalID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.KindUnauthenticated, "X-Principal-ID header required")
		return
	}

	voted, err := h.elig.HasVoted(r.Context(), electionID, principalID)
	if err != nil {
		slog.Error("failed to query eligibility", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EligibilityResponse{
		ElectionID: electionID,
		HasVoted:   voted,
	})
}

// writeSubmitError maps domain errors to HTTP status codes and stable
// error kinds. Integrity errors are logged in full but surfaced opaquely.
func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, submit.ErrInvalidRequest):
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, err.Error())
	case errors.Is(err, submit.ErrUnknownElection):
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Election not found")
	case errors.Is(err, submit.ErrElectionNotOpen):
		middleware.ErrorResponse(w, http.StatusConflict, models.KindElectionNotOpen, "Election is not open for voting")
	case errors.Is(err, submit.ErrUnknownCandidate):
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "Invalid candidate for this election")
	case errors.Is(err, credential.ErrUnauthenticated):
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.KindUnauthenticated, "No voting credential for this election")
	case errors.Is(err, credential.ErrExpired):
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindExpired, "Voting credential has expired")
	case errors.Is(err, credential.ErrRevoked):
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindRevoked, "Voting credential has been revoked")
	case errors.Is(err, credential.ErrElectionMismatch):
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindElectionMismatch, "Credential is for a different election")
	case errors.Is(err, credential.ErrUnavailable):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, models.KindVerifierUnavailable, "Identity provider unavailable, retry later")
	case errors.Is(err, ledger.ErrAlreadyVoted):
		middleware.ErrorResponse(w, http.StatusConflict, models.KindAlreadyVoted, "A ballot has already been cast for this election")
	case errors.Is(err, ballotstore.ErrIntegrityConflict), errors.Is(err, receipt.ErrInvalidBallotReference):
		slog.Error("integrity error during submission", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Internal error")
	default:
		slog.Error("submission failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Internal error")
	}
}
