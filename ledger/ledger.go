// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger implements the eligibility ledger: at most one ballot per
principal per election.

The check-and-mark is a single conditional INSERT against the
(election_id, principal_id) primary key. There is no read-then-write
window: when N requests race for the same pair, the database accepts
exactly one insert and every other caller gets ErrAlreadyVoted.
*/
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/models"
)

// ErrAlreadyVoted means a ballot was already accepted for this principal
// in this election. Terminal; callers must not retry.
var ErrAlreadyVoted = errors.New("ballot already accepted for this principal in this election")

type Ledger struct {
	db *sql.DB
}

func New(database *sql.DB) *Ledger {
	return &Ledger{db: database}
}

// TryMarkVoted atomically transitions (electionID, principalID) from
// Unvoted to Voted. The write runs on exec, which is either the shared
// *sql.DB or the orchestrator's transaction, so the mark commits or rolls
// back together with the ballot append.
func (l *Ledger) TryMarkVoted(ctx context.Context, exec db.Execer, electionID, principalID string, ts time.Time) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO eligibility_record (election_id, principal_id, status, voted_at)
		VALUES ($1, $2, $3, $4)
	`, electionID, principalID, models.EligibilityVoted, ts)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("failed to mark voted: %w", err)
	}

	return nil
}

// HasVoted reports whether a ballot has been accepted for the pair. A
// missing record is implicitly Unvoted.
func (l *Ledger) HasVoted(ctx context.Context, electionID, principalID string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM eligibility_record
			WHERE election_id = $1 AND principal_id = $2 AND status = $3
		)
	`, electionID, principalID, models.EligibilityVoted).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to query eligibility record: %w", err)
	}

	return exists, nil
}

// CountVoted returns the number of principals marked Voted in an election.
func (l *Ledger) CountVoted(ctx context.Context, electionID string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM eligibility_record WHERE election_id = $1
	`, electionID).Scan(&n)

	if err != nil {
		return 0, fmt.Errorf("failed to count eligibility records: %w", err)
	}

	return n, nil
}
