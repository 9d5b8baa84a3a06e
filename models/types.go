package models

import "time"

// Election status constants
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Eligibility status constants
const (
	EligibilityUnvoted = "unvoted"
	EligibilityVoted   = "voted"
)

// Stable error kinds returned in the error_kind field of error responses.
// Calling UIs branch on these, never on the human-readable message.
const (
	KindInvalidRequest      = "invalid_request"
	KindNotFound            = "not_found"
	KindUnauthenticated     = "unauthenticated"
	KindExpired             = "expired"
	KindRevoked             = "revoked"
	KindElectionMismatch    = "election_mismatch"
	KindElectionNotOpen     = "election_not_open"
	KindAlreadyVoted        = "already_voted"
	KindVerifierUnavailable = "verifier_unavailable"
	KindInternalError       = "internal_error"
)

// Request types

type CreateElectionRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Constituency string `json:"constituency"`
}

type AddCandidateRequest struct {
	Name      string `json:"name"`
	Party     string `json:"party"`
	Manifesto string `json:"manifesto"`
}

type SubmitBallotRequest struct {
	IdempotencyToken string `json:"idempotency_token"`
	CandidateID      string `json:"candidate_id"`
}

type VerifyReceiptRequest struct {
	Receipt Receipt `json:"receipt"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	AdminKey   string `json:"admin_key"`
}

type AddCandidateResponse struct {
	CandidateID string `json:"candidate_id"`
}

type OpenElectionResponse struct {
	Status string `json:"status"`
}

type CloseElectionResponse struct {
	ClosedAt time.Time `json:"closed_at"`
}

type EligibilityResponse struct {
	ElectionID string `json:"election_id"`
	HasVoted   bool   `json:"has_voted"`
}

type VerifyReceiptResponse struct {
	SignatureValid bool `json:"signature_valid"`
	LedgerIncluded bool `json:"ledger_included"`
	Issued         bool `json:"issued"`
}

// Domain types

type Election struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Constituency string     `json:"constituency"`
	Status       string     `json:"status"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Candidate struct {
	ID         string `json:"id"`
	ElectionID string `json:"election_id"`
	Name       string `json:"name"`
	Party      string `json:"party"`
	Manifesto  string `json:"manifesto"`
}

type ElectionWithCandidates struct {
	Election   Election    `json:"election"`
	Candidates []Candidate `json:"candidates"`
}

// Credential is a principal's right to vote in one election. It is issued
// and owned by the external identity provider; this service only reads it.
type Credential struct {
	PrincipalID  string    `json:"principal_id"`
	ElectionID   string    `json:"election_id"`
	Constituency string    `json:"constituency"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Revoked      bool      `json:"revoked"`
}

// Ballot is the anonymized vote as handed to the ballot store. The voter
// token is the only identity-bearing field; the principal id never reaches
// storage.
type Ballot struct {
	VoterToken  string
	ElectionID  string
	CandidateID string
	SubmittedAt time.Time
}

type StoredBallot struct {
	IntegrityTag string    `json:"integrity_tag"`
	ElectionID   string    `json:"election_id"`
	VoterToken   string    `json:"-"` // Never expose in JSON
	CandidateID  string    `json:"-"` // Never expose in JSON
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Receipt proves a ballot was accepted without revealing its contents.
type Receipt struct {
	ReceiptID       string    `json:"receipt_id"`
	ElectionID      string    `json:"election_id"`
	IntegrityTag    string    `json:"integrity_tag"`
	IssuedAt        time.Time `json:"issued_at"`
	VerificationTag string    `json:"verification_tag"`
}

type AuditEntry struct {
	EntryID      string    `json:"entry_id"`
	ElectionID   string    `json:"election_id"`
	IntegrityTag string    `json:"integrity_tag"`
	PublishedAt  time.Time `json:"published_at"`
}

// Result types

type CandidateTally struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Party       string  `json:"party"`
	Votes       int     `json:"votes"`
	Share       float64 `json:"share"`
}

type ElectionResults struct {
	ElectionID   string           `json:"election_id"`
	ComputedAt   time.Time        `json:"computed_at"`
	TotalBallots int              `json:"total_ballots"`
	InputsHash   string           `json:"inputs_hash"` // Hash of all integrity tags for verification
	Tallies      []CandidateTally `json:"tallies"`
}

// Error response

type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message,omitempty"`
}
