// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides key generation and validation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(electionID, salt)
	err := auth.ValidateAdminKey(electionID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same election ID and salt always produce the same key. This allows
validation without storing the key in the database.

# Receipt Signing Keys

The Ed25519 key pair that signs receipts is derived from a hex seed:

	key, err := auth.ReceiptKeyFromSeed(cfg.ReceiptSigningSeed)

Deriving from a seed (rather than generating at startup) keeps previously
issued receipts verifiable after a restart.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
