// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Execer is the subset of *sql.DB / *sql.Tx the write paths need. The
// eligibility ledger and ballot store take an Execer so the orchestrator
// can run their writes inside one transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is the read-side counterpart of Execer.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation
// from either supported driver (modernc sqlite or lib/pq).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    constituency TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'closed')),
    closed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    party TEXT,
    manifesto TEXT
);

CREATE INDEX IF NOT EXISTS idx_candidate_election_id ON candidate(election_id);

-- Eligibility records: one per (election, principal), created only when a
-- ballot is accepted. The primary key is the atomic check-and-mark: a
-- second insert for the same pair fails the unique constraint.
CREATE TABLE IF NOT EXISTS eligibility_record (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    principal_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'voted' CHECK (status IN ('voted')),
    voted_at TIMESTAMP NOT NULL,
    PRIMARY KEY (election_id, principal_id)
);

-- Ballots: keyed by integrity tag, one per anonymized voter token per
-- election. No principal id and no reverse mapping is stored here.
CREATE TABLE IF NOT EXISTS ballot (
    integrity_tag TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_token TEXT NOT NULL,
    candidate_id TEXT NOT NULL REFERENCES candidate(id),
    submitted_at TIMESTAMP NOT NULL,
    UNIQUE (election_id, voter_token)
);

CREATE INDEX IF NOT EXISTS idx_ballot_election_id ON ballot(election_id);

-- Submission attempts: idempotency key -> issued receipt. Stores exactly
-- the receipt fields, never the candidate selection.
CREATE TABLE IF NOT EXISTS submission_attempt (
    idempotency_token TEXT PRIMARY KEY,
    election_id TEXT NOT NULL,
    receipt_id TEXT NOT NULL,
    integrity_tag TEXT NOT NULL,
    issued_at TIMESTAMP NOT NULL,
    verification_tag TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submission_attempt_receipt_id ON submission_attempt(receipt_id);

-- Public audit ledger: append-only list of accepted integrity tags.
CREATE TABLE IF NOT EXISTS audit_ledger (
    entry_id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL,
    integrity_tag TEXT NOT NULL UNIQUE,
    published_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_ledger_election_id ON audit_ledger(election_id);
`
