package tier

import (
	"errors"
	"testing"

	"challenge_arena/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestTierForScore(t *testing.T) {
	cases := []struct {
		score int64
		want  Tier
	}{
		{-5, 0},
		{0, 0},
		{199, 0},
		{200, 1},
		{499, 1},
		{500, 2},
		{600, 2},
		{999, 2},
		{1000, 3},
		{1999, 3},
		{2000, 4},
		{1 << 40, 4},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TierForScore(tc.score), "score %d", tc.score)
	}
}

func TestTierForScoreMonotonicAndQualifies(t *testing.T) {
	prev := TierForScore(-1)
	for score := int64(-1); score <= 2500; score++ {
		got := TierForScore(score)
		require.GreaterOrEqual(t, got, prev, "tier decreased at score %d", score)
		prev = got

		ok, err := ScoreQualifies(score, got)
		require.NoError(t, err)
		require.True(t, ok, "score %d does not qualify for its own tier %d", score, got)
	}
}

func TestScoreQualifies(t *testing.T) {
	ok, err := ScoreQualifies(300, 4)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = ScoreQualifies(2000, 4)
	require.NoError(t, err)
	require.True(t, ok)

	// нулевой уровень доступен всегда
	ok, err = ScoreQualifies(-10, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestScoreQualifiesRejectsOutOfRange(t *testing.T) {
	for _, bad := range []Tier{-1, 5, 100} {
		_, err := ScoreQualifies(1000, bad)
		require.True(t, errors.Is(err, domain.ErrInvalidTier), "tier %d", bad)
		require.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy([5]int64{0, 10, 20, 30, 40})
	require.NoError(t, err)
	require.Equal(t, Tier(2), p.TierForScore(25))
	require.Equal(t, []int64{0, 10, 20, 30, 40}, p.Floors())

	_, err = NewPolicy([5]int64{1, 10, 20, 30, 40})
	require.Error(t, err)

	_, err = NewPolicy([5]int64{0, 10, 5, 30, 40})
	require.Error(t, err)
}
