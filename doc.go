// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the ballotbox API server.

ballotbox is a ballot submission service: it verifies voting credentials
against an external identity provider, enforces at-most-one ballot per
principal per election, stores anonymized ballots, and issues verifiable
acceptance receipts backed by a public audit ledger of integrity tags.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=ballotbox.db go run main.go

Or with flags:

	go run main.go -p 3521 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - IDENTITY_PROVIDER_URL (-identity-url): credential issuer base URL
  - ADMIN_KEY_SALT (--admin-salt): secret for admin key HMAC
  - VOTER_TOKEN_SALT (--token-salt): secret for anonymized token derivation
  - RECEIPT_SIGNING_SEED (--receipt-seed): hex Ed25519 seed for receipts

Optional settings:

  - PORT (-p): server port (default: 3521)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - IDENTITY_TIMEOUT: bound on identity provider calls (default: 5s)
  - REVOCATION_FRESHNESS: max credential cache age (default: 60s)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - credential: credential verification against the identity provider
  - ledger: eligibility ledger (at-most-once enforcement)
  - ballotstore: anonymized ballot persistence and tallying
  - receipt: receipt issuance and verification
  - auditledger: public append-only list of integrity tags
  - submit: the submission orchestrator composing the above
  - handlers: HTTP request handlers
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: request/response types and error kinds
  - auth: admin keys and signing key derivation
  - db: schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
