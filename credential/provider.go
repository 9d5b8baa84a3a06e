// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/danielhkuo/ballotbox/models"
)

// HTTPProvider fetches credentials from the identity provider's REST API:
//
//	GET {base}/credentials/{principalID}?election={electionID}
//
// 404 means the principal holds no credential. Timeouts and 5xx responses
// map to ErrUnavailable so callers can distinguish "not authenticated"
// from "could not check".
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) GetCredential(ctx context.Context, principalID, electionID string) (models.Credential, error) {
	u := fmt.Sprintf("%s/credentials/%s?election=%s",
		p.baseURL, url.PathEscape(principalID), url.QueryEscape(electionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to build credential request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Timeout, connection refused, DNS failure: all retriable
		return models.Credential{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.Credential{}, ErrUnauthenticated
	case resp.StatusCode >= 500:
		return models.Credential{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return models.Credential{}, fmt.Errorf("unexpected identity provider status %d", resp.StatusCode)
	}

	var cred models.Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return models.Credential{}, fmt.Errorf("failed to decode credential: %w", err)
	}

	return cred, nil
}

// StaticProvider serves credentials from an in-memory map, keyed by
// principal id. Used in development mode and tests, the same way an
// official registry would be mocked out.
type StaticProvider struct {
	mu    sync.Mutex
	creds map[string]models.Credential
	err   error
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{creds: make(map[string]models.Credential)}
}

// Put registers or replaces the credential for a principal.
func (p *StaticProvider) Put(cred models.Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds[cred.PrincipalID+"\x00"+cred.ElectionID] = cred
}

// Revoke flips the revocation flag on an existing credential.
func (p *StaticProvider) Revoke(principalID, electionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := principalID + "\x00" + electionID
	if cred, ok := p.creds[key]; ok {
		cred.Revoked = true
		p.creds[key] = cred
	}
}

// Fail makes every subsequent lookup return err. Passing nil restores
// normal behavior.
func (p *StaticProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *StaticProvider) GetCredential(_ context.Context, principalID, electionID string) (models.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return models.Credential{}, p.err
	}
	cred, ok := p.creds[principalID+"\x00"+electionID]
	if !ok {
		return models.Credential{}, ErrUnauthenticated
	}
	return cred, nil
}

var _ Provider = (*HTTPProvider)(nil)
var _ Provider = (*StaticProvider)(nil)
