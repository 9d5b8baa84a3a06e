// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package submit composes the credential verifier, eligibility ledger,
ballot store, and receipt issuer into the ballot submission flow.

Each submission walks a fixed state sequence:

	Received -> Verifying -> Checking -> Persisting -> Issuing -> Completed

with Rejected(reason) from any state on the first failure. Checking and
Persisting run inside one database transaction, so there is no state in
which a principal is marked Voted without a stored ballot. After
Verifying succeeds the orchestrator detaches from caller cancellation:
a client that gives up mid-request cannot strand a half-applied
submission.

Idempotency is keyed by the client-supplied token: the issued receipt is
recorded in the same transaction as the ballot, and a retry with the same
token returns the identical receipt rather than AlreadyVoted.
*/
package submit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/ballotbox/auditledger"
	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/credential"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/receipt"
)

var (
	ErrInvalidRequest   = errors.New("invalid submission request")
	ErrUnknownElection  = errors.New("unknown election")
	ErrElectionNotOpen  = errors.New("election is not open for voting")
	ErrUnknownCandidate = errors.New("candidate does not belong to this election")
)

// Submission states, logged as each request advances.
const (
	StateReceived   = "received"
	StateVerifying  = "verifying"
	StateChecking   = "checking"
	StatePersisting = "persisting"
	StateIssuing    = "issuing"
	StateCompleted  = "completed"
	StateRejected   = "rejected"
)

type Request struct {
	IdempotencyToken string
	PrincipalID      string
	ElectionID       string
	CandidateID      string
}

type Orchestrator struct {
	db       *sql.DB
	verifier *credential.Verifier
	ledger   *ledger.Ledger
	ballots  *ballotstore.Store
	receipts *receipt.Issuer
	audit    *auditledger.Ledger
	now      func() time.Time
}

func NewOrchestrator(
	database *sql.DB,
	verifier *credential.Verifier,
	elig *ledger.Ledger,
	ballots *ballotstore.Store,
	receipts *receipt.Issuer,
	audit *auditledger.Ledger,
) *Orchestrator {
	return &Orchestrator{
		db:       database,
		verifier: verifier,
		ledger:   elig,
		ballots:  ballots,
		receipts: receipts,
		audit:    audit,
		now:      time.Now,
	}
}

// Submit runs one ballot submission end to end and returns the receipt.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (models.Receipt, error) {
	// Received: structural validation
	if req.IdempotencyToken == "" || req.PrincipalID == "" || req.ElectionID == "" || req.CandidateID == "" {
		return models.Receipt{}, fmt.Errorf("%w: all identifiers are required", ErrInvalidRequest)
	}

	if err := o.checkElection(ctx, req); err != nil {
		return models.Receipt{}, err
	}

	// Replay check before anything else: if a prior attempt with this
	// token already succeeded, the voter gets the same receipt back even
	// if the credential has since expired or been revoked.
	if rcpt, ok, err := o.recordedReceipt(ctx, req); err != nil {
		return models.Receipt{}, err
	} else if ok {
		slog.Info("submission replayed", "election_id", req.ElectionID, "state", StateCompleted)
		return rcpt, nil
	}

	// Verifying
	if _, err := o.verifier.Verify(ctx, req.PrincipalID, req.ElectionID); err != nil {
		slog.Info("submission rejected", "election_id", req.ElectionID, "state", StateRejected, "reason", err)
		return models.Receipt{}, err
	}

	// The eligibility mark and ballot write must run to completion even
	// if the caller goes away now; abandoning them between Checking and
	// Persisting is the one failure mode this design exists to prevent.
	ctx = context.WithoutCancel(ctx)

	rcpt, err := o.persist(ctx, req)
	if err != nil {
		return models.Receipt{}, err
	}

	// Post-commit: publish the commitment. Failure here never unwinds the
	// accepted ballot; publication is retried on the next Publish of the
	// same tag.
	if _, err := o.audit.Publish(ctx, rcpt.ElectionID, rcpt.IntegrityTag); err != nil {
		slog.Error("failed to publish integrity tag", "error", err, "election_id", rcpt.ElectionID)
	}

	slog.Info("ballot accepted", "election_id", req.ElectionID, "receipt_id", rcpt.ReceiptID, "state", StateCompleted)
	return rcpt, nil
}

// persist runs Checking, Persisting, and Issuing as one transaction.
func (o *Orchestrator) persist(ctx context.Context, req Request) (models.Receipt, error) {
	submittedAt := o.now()

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Checking: atomic check-and-mark
	if err := o.ledger.TryMarkVoted(ctx, tx, req.ElectionID, req.PrincipalID, submittedAt); err != nil {
		if errors.Is(err, ledger.ErrAlreadyVoted) {
			tx.Rollback()
			// A concurrent attempt with the same token may have won the
			// race; replay its receipt instead of failing the retry.
			if rcpt, ok, rerr := o.recordedReceipt(ctx, req); rerr == nil && ok {
				return rcpt, nil
			}
			slog.Info("submission rejected", "election_id", req.ElectionID, "state", StateRejected, "reason", err)
		}
		return models.Receipt{}, err
	}

	// Persisting
	token, err := o.ballots.DeriveToken(req.PrincipalID, req.ElectionID)
	if err != nil {
		return models.Receipt{}, err
	}

	stored, err := o.ballots.Append(ctx, tx, models.Ballot{
		VoterToken:  token,
		ElectionID:  req.ElectionID,
		CandidateID: req.CandidateID,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		return models.Receipt{}, err
	}

	// Issuing
	rcpt, err := o.receipts.Issue(stored)
	if err != nil {
		return models.Receipt{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submission_attempt (idempotency_token, election_id, receipt_id, integrity_tag, issued_at, verification_tag)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.IdempotencyToken, rcpt.ElectionID, rcpt.ReceiptID, rcpt.IntegrityTag, rcpt.IssuedAt, rcpt.VerificationTag)
	if err != nil {
		tx.Rollback()
		// Two in-flight requests with the same token: the other one won.
		if rcpt, ok, rerr := o.recordedReceipt(ctx, req); rerr == nil && ok {
			return rcpt, nil
		}
		return models.Receipt{}, fmt.Errorf("failed to record submission attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Receipt{}, fmt.Errorf("failed to commit submission: %w", err)
	}

	return rcpt, nil
}

// recordedReceipt reconstructs the receipt recorded for an idempotency
// token, if any. Reusing a token across elections is rejected rather than
// silently replaying a receipt for the wrong election.
func (o *Orchestrator) recordedReceipt(ctx context.Context, req Request) (models.Receipt, bool, error) {
	var rcpt models.Receipt
	err := o.db.QueryRowContext(ctx, `
		SELECT election_id, receipt_id, integrity_tag, issued_at, verification_tag
		FROM submission_attempt WHERE idempotency_token = $1
	`, req.IdempotencyToken).Scan(&rcpt.ElectionID, &rcpt.ReceiptID, &rcpt.IntegrityTag, &rcpt.IssuedAt, &rcpt.VerificationTag)

	if err == sql.ErrNoRows {
		return models.Receipt{}, false, nil
	}
	if err != nil {
		return models.Receipt{}, false, fmt.Errorf("failed to query submission attempt: %w", err)
	}

	if rcpt.ElectionID != req.ElectionID {
		return models.Receipt{}, false, fmt.Errorf("%w: idempotency token already used for a different election", ErrInvalidRequest)
	}

	return rcpt, true, nil
}

// checkElection validates that the election exists, is open, and contains
// the selected candidate.
func (o *Orchestrator) checkElection(ctx context.Context, req Request) error {
	var status string
	err := o.db.QueryRowContext(ctx, `
		SELECT status FROM election WHERE id = $1
	`, req.ElectionID).Scan(&status)

	if err == sql.ErrNoRows {
		return ErrUnknownElection
	}
	if err != nil {
		return fmt.Errorf("failed to query election: %w", err)
	}

	if status != models.StatusOpen {
		return ErrElectionNotOpen
	}

	var exists bool
	err = o.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM candidate WHERE id = $1 AND election_id = $2)
	`, req.CandidateID, req.ElectionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query candidate: %w", err)
	}
	if !exists {
		return ErrUnknownCandidate
	}

	return nil
}
