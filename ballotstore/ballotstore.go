// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballotstore persists anonymized ballots.

A ballot is stored under an anonymized voter token derived with
HKDF-SHA256 from the principal id, the election id, and a server-side
secret salt. The derivation is deterministic per (principal, election),
so re-submission maps to the same token and trips the unique constraint,
but tokens for the same principal in different elections are unlinkable,
and no stored field allows recovering the principal without the salt.

Each ballot carries an integrity tag: SHA-256 over its fixed-order fields.
The tag doubles as the primary key and as the public commitment published
to the audit ledger.
*/
package ballotstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/models"
)

// ErrIntegrityConflict means a ballot already exists for this voter token
// in this election. With the eligibility ledger in front this indicates a
// data inconsistency, not a normal double vote.
var ErrIntegrityConflict = errors.New("ballot already recorded for this voter token")

// ErrNotFound means no stored ballot matches the given integrity tag.
var ErrNotFound = errors.New("no ballot with this integrity tag")

const tokenContext = "ballotbox voter token v1"

type Store struct {
	db   *sql.DB
	salt []byte
}

func New(database *sql.DB, voterTokenSalt string) *Store {
	return &Store{db: database, salt: []byte(voterTokenSalt)}
}

// DeriveToken computes the anonymized voter token for a principal in an
// election. Same inputs always yield the same token; different elections
// yield unlinkable tokens.
func (s *Store) DeriveToken(principalID, electionID string) (string, error) {
	info := []byte(principalID + "\x00" + electionID)
	r := hkdf.New(sha256.New, s.salt, []byte(tokenContext), info)

	token := make([]byte, 32)
	if _, err := io.ReadFull(r, token); err != nil {
		return "", fmt.Errorf("failed to derive voter token: %w", err)
	}

	return hex.EncodeToString(token), nil
}

// IntegrityTag computes the commitment over a ballot's fixed-order fields.
func IntegrityTag(b models.Ballot) string {
	payload := strings.Join([]string{
		"ballot", "v1",
		b.ElectionID,
		b.VoterToken,
		b.CandidateID,
		b.SubmittedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Append durably persists a ballot. The write runs on exec so the
// orchestrator can commit it atomically with the eligibility mark.
func (s *Store) Append(ctx context.Context, exec db.Execer, b models.Ballot) (models.StoredBallot, error) {
	tag := IntegrityTag(b)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO ballot (integrity_tag, election_id, voter_token, candidate_id, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tag, b.ElectionID, b.VoterToken, b.CandidateID, b.SubmittedAt)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.StoredBallot{}, ErrIntegrityConflict
		}
		return models.StoredBallot{}, fmt.Errorf("failed to append ballot: %w", err)
	}

	return models.StoredBallot{
		IntegrityTag: tag,
		ElectionID:   b.ElectionID,
		VoterToken:   b.VoterToken,
		CandidateID:  b.CandidateID,
		SubmittedAt:  b.SubmittedAt,
	}, nil
}

// Get fetches a stored ballot by integrity tag.
func (s *Store) Get(ctx context.Context, integrityTag string) (models.StoredBallot, error) {
	var sb models.StoredBallot
	err := s.db.QueryRowContext(ctx, `
		SELECT integrity_tag, election_id, voter_token, candidate_id, submitted_at
		FROM ballot WHERE integrity_tag = $1
	`, integrityTag).Scan(&sb.IntegrityTag, &sb.ElectionID, &sb.VoterToken, &sb.CandidateID, &sb.SubmittedAt)

	if err == sql.ErrNoRows {
		return models.StoredBallot{}, ErrNotFound
	}
	if err != nil {
		return models.StoredBallot{}, fmt.Errorf("failed to query ballot: %w", err)
	}

	return sb, nil
}

// IntegrityTags lists all integrity tags for an election, sorted, for
// audit publication and the results inputs hash.
func (s *Store) IntegrityTags(ctx context.Context, electionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT integrity_tag FROM ballot WHERE election_id = $1
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrity tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan integrity tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate integrity tags: %w", err)
	}

	sort.Strings(tags)
	return tags, nil
}

// Tally aggregates stored ballots per candidate. Candidates with zero
// ballots still appear with a zero count.
func (s *Store) Tally(ctx context.Context, electionID string) ([]models.CandidateTally, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.party, COUNT(b.integrity_tag)
		FROM candidate c
		LEFT JOIN ballot b ON b.candidate_id = c.id AND b.election_id = c.election_id
		WHERE c.election_id = $1
		GROUP BY c.id, c.name, c.party
		ORDER BY COUNT(b.integrity_tag) DESC, c.name ASC
	`, electionID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tally: %w", err)
	}
	defer rows.Close()

	var tallies []models.CandidateTally
	total := 0
	for rows.Next() {
		var t models.CandidateTally
		var party sql.NullString
		if err := rows.Scan(&t.CandidateID, &t.Name, &party, &t.Votes); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tally row: %w", err)
		}
		t.Party = party.String
		total += t.Votes
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tally rows: %w", err)
	}

	for i := range tallies {
		if total > 0 {
			tallies[i].Share = float64(tallies[i].Votes) / float64(total)
		}
	}

	return tallies, total, nil
}

// InputsHash commits to the exact ballot set behind a published result:
// SHA-256 over the sorted integrity tags.
func InputsHash(tags []string) string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)

	h := sha256.New()
	for _, tag := range sorted {
		h.Write([]byte(tag))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
