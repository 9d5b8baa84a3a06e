// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ballotbox/auditledger"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/receipt"
)

type ReceiptHandler struct {
	db     *sql.DB
	issuer *receipt.Issuer
	audit  *auditledger.Ledger
}

func NewReceiptHandler(db *sql.DB, issuer *receipt.Issuer, audit *auditledger.Ledger) *ReceiptHandler {
	return &ReceiptHandler{db: db, issuer: issuer, audit: audit}
}

// GetReceipt handles GET /receipts/:id
// Answers "was this receipt issued" by reconstructing it from the
// submission attempt record. No candidate selection is stored there, so
// nothing sensitive can leak.
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID := r.PathValue("id")
	if receiptID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "receipt id is required")
		return
	}

	var rcpt models.Receipt
	err := h.db.QueryRow(`
		SELECT receipt_id, election_id, integrity_tag, issued_at, verification_tag
		FROM submission_attempt WHERE receipt_id = $1
	`, receiptID).Scan(&rcpt.ReceiptID, &rcpt.ElectionID, &rcpt.IntegrityTag, &rcpt.IssuedAt, &rcpt.VerificationTag)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Receipt not found")
		return
	}
	if err != nil {
		slog.Error("failed to query receipt", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, rcpt)
}

// VerifyReceipt handles POST /receipts/verify
// Checks the Ed25519 signature, whether the receipt was actually issued,
// and whether its integrity tag appears in the public audit ledger.
func (h *ReceiptHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyReceiptRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "Invalid JSON")
		return
	}
	if req.Receipt.ReceiptID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindInvalidRequest, "receipt is required")
		return
	}

	signatureValid := receipt.Verify(h.issuer.PublicKey(), req.Receipt)

	var issued bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM submission_attempt WHERE receipt_id = $1)
	`, req.Receipt.ReceiptID).Scan(&issued)
	if err != nil {
		slog.Error("failed to query receipt issuance", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	included, err := h.audit.Lookup(r.Context(), req.Receipt.IntegrityTag)
	if err != nil {
		slog.Error("failed to look up audit ledger", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindInternalError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VerifyReceiptResponse{
		SignatureValid: signatureValid,
		LedgerIncluded: included,
		Issued:         issued,
	})
}
