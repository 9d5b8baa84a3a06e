// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package receipt issues and verifies ballot acceptance receipts.

A receipt commits to a stored ballot through its integrity tag, never to
the ballot's contents: a third party holding only the receipt and the
public list of integrity tags can confirm the ballot was counted without
learning the candidate selection.

The verification tag is an Ed25519 signature over the receipt's
fixed-order fields, so receipts cannot be forged without the server's
signing key and any holder of the public key can check one offline.
*/
package receipt

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/danielhkuo/ballotbox/models"
)

// ErrInvalidBallotReference means the stored ballot handed to Issue is
// structurally incomplete and cannot be receipted. Indicates a programming
// error, not a caller mistake.
var ErrInvalidBallotReference = errors.New("ballot reference does not match a stored ballot")

type Issuer struct {
	key ed25519.PrivateKey
	now func() time.Time
}

func NewIssuer(key ed25519.PrivateKey) *Issuer {
	return &Issuer{key: key, now: time.Now}
}

// PublicKey returns the verification key matching the issuer's signing key.
func (i *Issuer) PublicKey() ed25519.PublicKey {
	return i.key.Public().(ed25519.PublicKey)
}

// Issue builds the receipt for a stored ballot. Pure apart from reading
// the clock; it cannot fail for any ballot the store actually returned.
func (i *Issuer) Issue(sb models.StoredBallot) (models.Receipt, error) {
	if sb.IntegrityTag == "" || sb.ElectionID == "" {
		return models.Receipt{}, ErrInvalidBallotReference
	}

	// Whole seconds only: the signed payload must survive storage and
	// JSON round-trips that may not preserve sub-second precision.
	r := models.Receipt{
		ReceiptID:    ReceiptID(sb.IntegrityTag),
		ElectionID:   sb.ElectionID,
		IntegrityTag: sb.IntegrityTag,
		IssuedAt:     i.now().UTC().Truncate(time.Second),
	}
	r.VerificationTag = hex.EncodeToString(ed25519.Sign(i.key, signingPayload(r)))

	return r, nil
}

// ReceiptID derives the receipt identifier from the ballot's integrity
// tag. Deterministic, so a replayed submission reproduces the identical
// receipt.
func ReceiptID(integrityTag string) string {
	sum := sha256.Sum256([]byte("receipt|v1|" + integrityTag))
	return hex.EncodeToString(sum[:16])
}

// Verify checks a receipt's signature against the issuer's public key.
func Verify(pub ed25519.PublicKey, r models.Receipt) bool {
	sig, err := hex.DecodeString(r.VerificationTag)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, signingPayload(r), sig)
}

func signingPayload(r models.Receipt) []byte {
	return []byte(strings.Join([]string{
		"receipt", "v1",
		r.ReceiptID,
		r.ElectionID,
		r.IntegrityTag,
		r.IssuedAt.UTC().Format(time.RFC3339),
	}, "|"))
}
