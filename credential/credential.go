// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danielhkuo/ballotbox/models"
)

var (
	ErrUnauthenticated  = errors.New("no credential for principal")
	ErrExpired          = errors.New("credential expired")
	ErrRevoked          = errors.New("credential revoked")
	ErrElectionMismatch = errors.New("credential is for a different election")
	ErrUnavailable      = errors.New("identity provider unavailable")
)

// Provider fetches credentials from the external identity provider.
// Implementations return ErrUnauthenticated when no credential exists and
// ErrUnavailable on transport failures or timeouts.
type Provider interface {
	GetCredential(ctx context.Context, principalID, electionID string) (models.Credential, error)
}

type cached struct {
	cred      models.Credential
	fetchedAt time.Time
}

// Verifier validates that a principal holds a usable credential for an
// election. Credentials are cached, but never past the freshness window:
// a revocation decision is always backed by a provider response at most
// freshness old.
type Verifier struct {
	provider  Provider
	freshness time.Duration
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func NewVerifier(provider Provider, freshness time.Duration) *Verifier {
	return &Verifier{
		provider:  provider,
		freshness: freshness,
		now:       time.Now,
		cache:     make(map[string]cached),
	}
}

// Verify checks that principalID holds a current, unexpired, unrevoked
// credential for electionID. It has no side effects beyond refreshing the
// internal cache.
func (v *Verifier) Verify(ctx context.Context, principalID, electionID string) (models.Credential, error) {
	cred, err := v.fetch(ctx, principalID, electionID)
	if err != nil {
		return models.Credential{}, err
	}

	if cred.ElectionID != electionID {
		return models.Credential{}, ErrElectionMismatch
	}
	if cred.Revoked {
		return models.Credential{}, ErrRevoked
	}
	// expiry == now is already expired; only now < expiry is usable
	if !v.now().Before(cred.ExpiresAt) {
		return models.Credential{}, ErrExpired
	}

	return cred, nil
}

func (v *Verifier) fetch(ctx context.Context, principalID, electionID string) (models.Credential, error) {
	key := principalID + "\x00" + electionID

	v.mu.Lock()
	entry, ok := v.cache[key]
	v.mu.Unlock()

	if ok && v.now().Sub(entry.fetchedAt) < v.freshness {
		return entry.cred, nil
	}

	cred, err := v.provider.GetCredential(ctx, principalID, electionID)
	if err != nil {
		return models.Credential{}, err
	}

	v.mu.Lock()
	v.cache[key] = cached{cred: cred, fetchedAt: v.now()}
	v.mu.Unlock()

	return cred, nil
}
