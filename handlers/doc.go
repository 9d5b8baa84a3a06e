// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the ballotbox API.

# Handler Types

Each handler is a struct with its dependencies injected via constructor:

  - ElectionHandler: election lifecycle (create, add candidates, open, close)
  - BallotHandler: ballot submission and eligibility checks
  - ResultsHandler: election browsing, tallies, audit log
  - ReceiptHandler: receipt lookup and verification

# Election Lifecycle

Elections progress through three states: draft → open → closed

	POST /elections                  → CreateElection (returns admin_key)
	POST /elections/{id}/candidates  → AddCandidate (draft only)
	POST /elections/{id}/open        → OpenElection
	POST /elections/{id}/close       → CloseElection

Admin operations require the X-Admin-Key header. The key is an HMAC of
the election id and is never stored server-side.

# Voting Flow

	POST /elections/{id}/ballots     → SubmitBallot (returns a Receipt)
	GET  /elections/{id}/eligibility → GetEligibility

Submission requires the X-Principal-ID header (session identity from the
external identity provider) and a client-supplied idempotency_token in
the body. Retrying with the same token returns the identical receipt.

# Results and Verification

	GET  /elections                  → ListElections
	GET  /elections/{id}             → GetElection (candidates, no results)
	GET  /elections/{id}/results     → GetResults (sealed until closed)
	GET  /elections/{id}/audit-log   → GetAuditLog (public integrity tags)
	GET  /receipts/{id}              → GetReceipt
	POST /receipts/verify            → VerifyReceipt

# Error Mapping

writeSubmitError translates domain errors into HTTP statuses and stable
error kinds. Integrity errors (a ballot conflict behind an eligibility
mark, an unreceiptable stored ballot) are logged in full and surfaced
only as internal_error.
*/
package handlers
