// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation and driver-neutral helpers.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election: election metadata and lifecycle state
  - candidate: candidates per election
  - eligibility_record: one row per (election, principal), the at-most-once guard
  - ballot: anonymized ballots keyed by integrity tag
  - submission_attempt: idempotency token -> issued receipt
  - audit_ledger: append-only public list of integrity tags

# Unique Constraints

Three constraints carry the correctness of the whole service:

  - eligibility_record PRIMARY KEY (election_id, principal_id) — at-most-one
    ballot per principal per election, enforced by the database, not by
    read-then-write application code
  - ballot UNIQUE (election_id, voter_token) — defense-in-depth behind the
    eligibility record
  - submission_attempt PRIMARY KEY (idempotency_token) — retried requests
    converge on a single receipt

IsUniqueViolation recognizes constraint failures from both supported
drivers (modernc sqlite and lib/pq) so callers don't match error strings
themselves.
*/
package db
