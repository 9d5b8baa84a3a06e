// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the
ballotbox API.

# Error Kinds

Every rejection carries a stable machine-readable kind in the error_kind
field of the JSON error body:

	unauthenticated, expired, revoked, election_mismatch,
	election_not_open, already_voted, verifier_unavailable,
	invalid_request, not_found, internal_error

Clients branch on the kind, never on the message text.

# Identity Handling

Ballot and StoredBallot carry the anonymized voter token, never the
principal id. StoredBallot additionally hides the token and the candidate
selection from JSON serialization: the only fields a caller ever sees are
the integrity tag, the election id, and the submission time.
*/
package models
