// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auditledger maintains the public, append-only list of accepted
ballot integrity tags.

Every accepted ballot's integrity tag is published here after the
submission transaction commits. Third parties use Lookup and Entries
together with a receipt to confirm a ballot was counted. Entries are
never updated or deleted.
*/
package auditledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/models"
)

type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

func New(database *sql.DB) *Ledger {
	return &Ledger{db: database, now: time.Now}
}

// Publish appends an integrity tag to the ledger and returns the entry id.
// Publishing the same tag twice is a no-op that returns the existing entry
// id, so a crashed-and-retried publication cannot duplicate entries.
func (l *Ledger) Publish(ctx context.Context, electionID, integrityTag string) (string, error) {
	entryID, err := auth.GenerateID(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate entry id: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO audit_ledger (entry_id, election_id, integrity_tag, published_at)
		VALUES ($1, $2, $3, $4)
	`, entryID, electionID, integrityTag, l.now())

	if err != nil {
		if db.IsUniqueViolation(err) {
			var existing string
			qerr := l.db.QueryRowContext(ctx, `
				SELECT entry_id FROM audit_ledger WHERE integrity_tag = $1
			`, integrityTag).Scan(&existing)
			if qerr != nil {
				return "", fmt.Errorf("failed to read existing ledger entry: %w", qerr)
			}
			return existing, nil
		}
		return "", fmt.Errorf("failed to publish integrity tag: %w", err)
	}

	return entryID, nil
}

// Lookup reports whether an integrity tag has been published.
func (l *Ledger) Lookup(ctx context.Context, integrityTag string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM audit_ledger WHERE integrity_tag = $1)
	`, integrityTag).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to look up integrity tag: %w", err)
	}

	return exists, nil
}

// Entries lists the published entries for an election in publication order.
func (l *Ledger) Entries(ctx context.Context, electionID string) ([]models.AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT entry_id, election_id, integrity_tag, published_at
		FROM audit_ledger
		WHERE election_id = $1
		ORDER BY published_at ASC, entry_id ASC
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.EntryID, &e.ElectionID, &e.IntegrityTag, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
