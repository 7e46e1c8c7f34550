package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newAccepted(t *testing.T) *Challenge {
	t.Helper()
	c, err := NewChallenge("c1", "alice", "bob", t0, 0)
	require.NoError(t, err)
	require.NoError(t, c.Accept("bob", t0.Add(time.Minute)))
	return c
}

func TestNewChallenge(t *testing.T) {
	c, err := NewChallenge("c1", " alice ", "bob", t0, 0)
	require.NoError(t, err)
	require.Equal(t, ChallengeStatusPending, c.Status)
	require.Equal(t, "alice", c.ChallengerID)
	require.Equal(t, t0.Add(DefaultChallengeTTL), c.ExpiresAt)
	require.Equal(t, PairKey("bob", "alice"), c.PairKey)

	_, err = NewChallenge("c2", "alice", "alice", t0, 0)
	require.ErrorIs(t, err, ErrSelfChallenge)
	_, err = NewChallenge("c3", "", "bob", t0, 0)
	require.ErrorIs(t, err, ErrInvalidParticipant)
}

func TestAcceptGuards(t *testing.T) {
	c, _ := NewChallenge("c1", "alice", "bob", t0, time.Hour)

	require.ErrorIs(t, c.Accept("mallory", t0), ErrNotParticipant)
	require.ErrorIs(t, c.Accept("alice", t0), ErrWrongRole)
	require.ErrorIs(t, c.Accept("bob", t0.Add(2*time.Hour)), ErrChallengeExpired)
	require.Equal(t, ChallengeStatusPending, c.Status)

	require.NoError(t, c.Accept("bob", t0))
	require.Equal(t, ChallengeStatusAccepted, c.Status)
	require.NotNil(t, c.AcceptedAt)

	// повторный accept не меняет состояние
	require.ErrorIs(t, c.Accept("bob", t0), ErrInvalidTransition)
	require.Equal(t, ChallengeStatusAccepted, c.Status)
}

func TestSubmitScoreWinner(t *testing.T) {
	c := newAccepted(t)

	done, err := c.SubmitScore("alice", 50, t0)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, ChallengeStatusAccepted, c.Status)
	require.Nil(t, c.WinnerID)

	done, err = c.SubmitScore("bob", 80, t0)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, ChallengeStatusCompleted, c.Status)
	require.NotNil(t, c.WinnerID)
	require.Equal(t, "bob", *c.WinnerID)
	require.NotNil(t, c.CompletedAt)
}

func TestSubmitScoreTie(t *testing.T) {
	c := newAccepted(t)
	_, err := c.SubmitScore("bob", 60, t0)
	require.NoError(t, err)
	done, err := c.SubmitScore("alice", 60, t0)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, ChallengeStatusCompleted, c.Status)
	require.Nil(t, c.WinnerID)
}

func TestSubmitScoreNoOverwrite(t *testing.T) {
	c := newAccepted(t)
	_, err := c.SubmitScore("alice", 50, t0)
	require.NoError(t, err)

	_, err = c.SubmitScore("alice", 5000, t0)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Equal(t, int64(50), *c.ChallengerScore)
}

func TestSubmitScoreGuards(t *testing.T) {
	c, _ := NewChallenge("c1", "alice", "bob", t0, 0)
	_, err := c.SubmitScore("alice", 10, t0)
	require.ErrorIs(t, err, ErrInvalidTransition)

	c = newAccepted(t)
	_, err = c.SubmitScore("mallory", 10, t0)
	require.ErrorIs(t, err, ErrNotParticipant)
	_, err = c.SubmitScore("alice", -1, t0)
	require.ErrorIs(t, err, ErrInvalidScore)
}

func TestCancel(t *testing.T) {
	c := newAccepted(t)
	require.ErrorIs(t, c.Cancel("bob", t0), ErrWrongRole)
	require.NoError(t, c.Cancel("alice", t0))
	require.Equal(t, ChallengeStatusCancelled, c.Status)

	c = newAccepted(t)
	_, _ = c.SubmitScore("bob", 1, t0)
	require.ErrorIs(t, c.Cancel("alice", t0), ErrScoresSubmitted)

	pending, _ := NewChallenge("c2", "alice", "bob", t0, 0)
	require.ErrorIs(t, pending.Cancel("alice", t0), ErrInvalidTransition)
}

func TestTerminalStatesNeverChange(t *testing.T) {
	later := t0.Add(48 * time.Hour)

	declined, _ := NewChallenge("d", "alice", "bob", t0, 0)
	require.NoError(t, declined.Decline("bob", t0))

	expired, _ := NewChallenge("e", "alice", "bob", t0, time.Hour)
	require.NoError(t, expired.Expire(t0.Add(2*time.Hour)))

	cancelled := newAccepted(t)
	require.NoError(t, cancelled.Cancel("alice", t0))

	completed := newAccepted(t)
	_, _ = completed.SubmitScore("alice", 1, t0)
	_, _ = completed.SubmitScore("bob", 2, t0)

	for _, c := range []*Challenge{declined, expired, cancelled, completed} {
		before := c.Status
		require.True(t, before.IsTerminal())

		require.Error(t, c.Accept("bob", t0))
		require.Error(t, c.Decline("bob", t0))
		require.Error(t, c.Cancel("alice", t0))
		require.Error(t, c.Expire(later))
		_, err := c.SubmitScore("alice", 99, t0)
		require.Error(t, err)
		_, err = c.SubmitScore("bob", 99, t0)
		require.Error(t, err)

		require.Equal(t, before, c.Status)
	}
}

func TestBlocksPair(t *testing.T) {
	c, _ := NewChallenge("c1", "alice", "bob", t0, time.Hour)
	window := 24 * time.Hour

	require.True(t, c.BlocksPair(t0.Add(time.Minute), window))
	// pending после срока больше не блокирует, даже если sweep не прошел
	require.False(t, c.BlocksPair(t0.Add(2*time.Hour), window))

	require.NoError(t, c.Accept("bob", t0.Add(time.Minute)))
	require.True(t, c.BlocksPair(t0.Add(2*time.Hour), window))
	require.False(t, c.BlocksPair(t0.Add(25*time.Hour), window))

	require.NoError(t, c.Cancel("alice", t0))
	require.False(t, c.BlocksPair(t0.Add(2*time.Minute), window))
}

func TestCloneIsDeep(t *testing.T) {
	c := newAccepted(t)
	_, _ = c.SubmitScore("alice", 7, t0)
	cp := c.Clone()
	*cp.ChallengerScore = 100
	require.Equal(t, int64(7), *c.ChallengerScore)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindConflict, KindOf(ErrAlreadySubmitted))
	require.Equal(t, KindInternal, KindOf(nil))
}
