// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballotstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/testutil"
)

func TestDeriveToken(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := ballotstore.New(conn, "test-token-salt")

	t1, err := s.DeriveToken("P1", "E1")
	require.NoError(t, err)
	assert.Len(t, t1, 64, "token should be 32 hex-encoded bytes")

	// Deterministic: same principal and election, same token
	t1again, err := s.DeriveToken("P1", "E1")
	require.NoError(t, err)
	assert.Equal(t, t1, t1again)

	// Unlinkable across elections for the same principal
	t2, err := s.DeriveToken("P1", "E2")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	// Distinct principals never collide
	t3, err := s.DeriveToken("P2", "E1")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t3)

	// A different server salt yields a different token universe
	other := ballotstore.New(conn, "other-salt")
	t4, err := other.DeriveToken("P1", "E1")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t4)
}

func TestDeriveToken_NoDelimiterCollision(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := ballotstore.New(conn, "test-token-salt")

	// ("ab", "c") and ("a", "bc") must not derive the same token
	t1, err := s.DeriveToken("ab", "c")
	require.NoError(t, err)
	t2, err := s.DeriveToken("a", "bc")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestIntegrityTag(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := models.Ballot{
		VoterToken:  "token-1",
		ElectionID:  "E1",
		CandidateID: "cand-42",
		SubmittedAt: at,
	}

	tag := ballotstore.IntegrityTag(b)
	assert.Len(t, tag, 64, "tag should be a hex SHA-256")

	// Stable for identical input
	assert.Equal(t, tag, ballotstore.IntegrityTag(b))

	// Any field change must change the tag
	for name, mutate := range map[string]func(models.Ballot) models.Ballot{
		"token":     func(b models.Ballot) models.Ballot { b.VoterToken = "token-2"; return b },
		"election":  func(b models.Ballot) models.Ballot { b.ElectionID = "E2"; return b },
		"candidate": func(b models.Ballot) models.Ballot { b.CandidateID = "cand-43"; return b },
		"timestamp": func(b models.Ballot) models.Ballot { b.SubmittedAt = at.Add(time.Second); return b },
	} {
		assert.NotEqual(t, tag, ballotstore.IntegrityTag(mutate(b)), "mutating %s should change the tag", name)
	}
}

func TestAppend(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	electionID, _ := testutil.CreateTestElection(t, conn, cfg, models.StatusOpen)
	candidateID := testutil.AddTestCandidate(t, conn, electionID, "Alice")

	s := ballotstore.New(conn, cfg.VoterTokenSalt)
	ctx := context.Background()

	token, err := s.DeriveToken("P1", electionID)
	require.NoError(t, err)

	stored, err := s.Append(ctx, conn, models.Ballot{
		VoterToken:  token,
		ElectionID:  electionID,
		CandidateID: candidateID,
		SubmittedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.IntegrityTag)

	got, err := s.Get(ctx, stored.IntegrityTag)
	require.NoError(t, err)
	assert.Equal(t, candidateID, got.CandidateID)
	assert.Equal(t, token, got.VoterToken)
}

func TestAppend_IntegrityConflict(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	electionID, _ := testutil.CreateTestElection(t, conn, cfg, models.StatusOpen)
	candidateID := testutil.AddTestCandidate(t, conn, electionID, "Alice")

	s := ballotstore.New(conn, cfg.VoterTokenSalt)
	ctx := context.Background()

	token, err := s.DeriveToken("P1", electionID)
	require.NoError(t, err)

	_, err = s.Append(ctx, conn, models.Ballot{
		VoterToken:  token,
		ElectionID:  electionID,
		CandidateID: candidateID,
		SubmittedAt: time.Now(),
	})
	require.NoError(t, err)

	// Same token in the same election: rejected even with a different
	// selection and timestamp
	_, err = s.Append(ctx, conn, models.Ballot{
		VoterToken:  token,
		ElectionID:  electionID,
		CandidateID: candidateID,
		SubmittedAt: time.Now().Add(time.Minute),
	})
	assert.ErrorIs(t, err, ballotstore.ErrIntegrityConflict)
}

func TestGet_NotFound(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := ballotstore.New(conn, "salt")
	_, err := s.Get(context.Background(), "no-such-tag")
	assert.ErrorIs(t, err, ballotstore.ErrNotFound)
}

func TestTally(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	electionID, _ := testutil.CreateTestElection(t, conn, cfg, models.StatusOpen)
	alice := testutil.AddTestCandidate(t, conn, electionID, "Alice")
	bob := testutil.AddTestCandidate(t, conn, electionID, "Bob")
	carol := testutil.AddTestCandidate(t, conn, electionID, "Carol")

	s := ballotstore.New(conn, cfg.VoterTokenSalt)
	ctx := context.Background()

	votes := map[string]string{
		"P1": alice, "P2": alice, "P3": alice,
		"P4": bob,
	}
	for principal, candidate := range votes {
		token, err := s.DeriveToken(principal, electionID)
		require.NoError(t, err)
		_, err = s.Append(ctx, conn, models.Ballot{
			VoterToken:  token,
			ElectionID:  electionID,
			CandidateID: candidate,
			SubmittedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	tallies, total, err := s.Tally(ctx, electionID)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, tallies, 3, "zero-vote candidates still appear")

	assert.Equal(t, alice, tallies[0].CandidateID)
	assert.Equal(t, 3, tallies[0].Votes)
	assert.InDelta(t, 0.75, tallies[0].Share, 1e-9)

	assert.Equal(t, bob, tallies[1].CandidateID)
	assert.Equal(t, 1, tallies[1].Votes)

	assert.Equal(t, carol, tallies[2].CandidateID)
	assert.Equal(t, 0, tallies[2].Votes)
	assert.Zero(t, tallies[2].Share)
}

func TestInputsHash(t *testing.T) {
	h1 := ballotstore.InputsHash([]string{"tag-a", "tag-b"})
	h2 := ballotstore.InputsHash([]string{"tag-b", "tag-a"})
	assert.Equal(t, h1, h2, "inputs hash must be order independent")

	h3 := ballotstore.InputsHash([]string{"tag-a", "tag-b", "tag-c"})
	assert.NotEqual(t, h1, h3)

	assert.NotEmpty(t, ballotstore.InputsHash(nil))
}
