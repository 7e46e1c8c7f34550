package repository

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"challenge_arena/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// повторы только для идемпотентных чтений. запись не повторяется никогда:
// условная запись при повторе может примениться дважды
var (
	maxReadRetries      uint64 = 3
	readRetryInitial           = 50 * time.Millisecond
	readRetryMaxElapsed        = 2 * time.Second
)

func newReadBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = readRetryInitial
	b.MaxElapsedTime = readRetryMaxElapsed
	return backoff.WithContext(backoff.WithMaxRetries(b, maxReadRetries), ctx)
}

// withReadRetry выполняет чтение, повторяя его на временных ошибках хранилища
func withReadRetry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var out T
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		v, err := fn()
		if err == nil {
			out = v
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("store read failed, retrying", "op", op, "attempt", attempt, "error", err)
		return err
	}, newReadBackOff(ctx))
	return out, err
}

// isTransient - обрыв соединения, таймаут, рестарт сервера
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection exception, 57P01..03 shutdown / cannot connect now
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	return false
}
