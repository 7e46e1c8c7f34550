package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func fastRetries(t *testing.T) {
	t.Helper()
	prevInitial, prevElapsed := readRetryInitial, readRetryMaxElapsed
	readRetryInitial = time.Millisecond
	readRetryMaxElapsed = time.Second
	t.Cleanup(func() {
		readRetryInitial, readRetryMaxElapsed = prevInitial, prevElapsed
	})
}

func TestReadRetryRecoversFromTransient(t *testing.T) {
	fastRetries(t)
	calls := 0
	v, err := withReadRetry(context.Background(), "test", func() (int, error) {
		calls++
		if calls < 3 {
			return 0, &pgconn.PgError{Code: "08006"}
		}
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Equal(t, 3, calls)
}

func TestReadRetryStopsOnPermanent(t *testing.T) {
	fastRetries(t)
	permanent := errors.New("syntax error")
	calls := 0
	_, err := withReadRetry(context.Background(), "test", func() (int, error) {
		calls++
		return 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestReadRetryIsBounded(t *testing.T) {
	fastRetries(t)
	calls := 0
	_, err := withReadRetry(context.Background(), "test", func() (int, error) {
		calls++
		return 0, &pgconn.PgError{Code: "57P01"}
	})
	require.Error(t, err)
	require.Equal(t, int(maxReadRetries)+1, calls)
}

func TestIsTransient(t *testing.T) {
	require.False(t, isTransient(nil))
	require.False(t, isTransient(context.Canceled))
	require.False(t, isTransient(&pgconn.PgError{Code: "23505"}))
	require.True(t, isTransient(&pgconn.PgError{Code: "08003"}))
}
