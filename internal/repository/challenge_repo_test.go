package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"challenge_arena/internal/db"
	"challenge_arena/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// тесты против живого Postgres, запускаются только с TEST_DATABASE_URL
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(pool))
	return pool
}

// уникальные id участников, чтобы прогоны не пересекались
func pair(t *testing.T) (string, string) {
	t.Helper()
	return "a-" + uuid.NewString(), "b-" + uuid.NewString()
}

func TestPostgresCreateDedupeConcurrent(t *testing.T) {
	repo := NewChallengeRepository(testPool(t))
	ctx := context.Background()
	a, b := pair(t)
	now := time.Now().UTC()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dups    int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			challenger, opponent := a, b
			if i%2 == 1 {
				challenger, opponent = b, a
			}
			c, err := domain.NewChallenge(uuid.NewString(), challenger, opponent, now, time.Hour)
			if err != nil {
				return
			}
			err = repo.Create(ctx, c, domain.DefaultDedupeWindow)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case err == domain.ErrDuplicateChallenge:
				dups++
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, created)
	require.Equal(t, n-1, dups)
}

func TestPostgresConcurrentSubmitCompletesOnce(t *testing.T) {
	repo := NewChallengeRepository(testPool(t))
	ctx := context.Background()
	a, b := pair(t)
	now := time.Now().UTC()

	c, err := domain.NewChallenge(uuid.NewString(), a, b, now, time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c, domain.DefaultDedupeWindow))
	_, err = repo.Update(ctx, c.ID, func(c *domain.Challenge) error { return c.Accept(b, now) })
	require.NoError(t, err)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		completions int
	)
	for _, side := range []struct {
		id    string
		score int64
	}{{a, 50}, {b, 80}, {a, 51}, {b, 81}} {
		wg.Add(1)
		go func(id string, score int64) {
			defer wg.Done()
			var completed bool
			_, err := repo.Update(ctx, c.ID, func(c *domain.Challenge) error {
				var err error
				completed, err = c.SubmitScore(id, score, time.Now())
				return err
			})
			if err == nil && completed {
				mu.Lock()
				completions++
				mu.Unlock()
			}
		}(side.id, side.score)
	}
	wg.Wait()
	require.Equal(t, 1, completions)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ChallengeStatusCompleted, got.Status)
	require.NotNil(t, got.ChallengerScore)
	require.NotNil(t, got.OpponentScore)
}

func TestPostgresExpireDue(t *testing.T) {
	repo := NewChallengeRepository(testPool(t))
	ctx := context.Background()
	a, b := pair(t)
	created := time.Now().UTC().Add(-2 * time.Hour)

	c, err := domain.NewChallenge(uuid.NewString(), a, b, created, time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c, domain.DefaultDedupeWindow))

	expired, err := repo.ExpireDue(ctx, time.Now().UTC(), 1000)
	require.NoError(t, err)
	var found bool
	for _, e := range expired {
		if e.ID == c.ID {
			found = true
			require.Equal(t, domain.ChallengeStatusExpired, e.Status)
		}
	}
	require.True(t, found)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
}
