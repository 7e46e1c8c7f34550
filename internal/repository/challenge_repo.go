package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"challenge_arena/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const challengeColumns = `id::text, challenger_id, opponent_id, pair_key, challenger_score, opponent_score,
		       status, winner_id, created_at, expires_at, accepted_at, completed_at, updated_at`

// ChallengeRepository - хранилище вызовов в Postgres.
// Все проверки вида "прочитал - записал" выполняются внутри одной транзакции
// под блокировкой, поэтому инварианты держатся и при нескольких инстансах.
type ChallengeRepository struct {
	db *pgxpool.Pool
}

func NewChallengeRepository(db *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create вставляет pending вызов, если для пары нет открытого вызова в окне.
// Advisory lock по ключу пары сериализует конкурентные создания,
// вставка идет одним условным INSERT ... WHERE NOT EXISTS.
func (r *ChallengeRepository) Create(ctx context.Context, c *domain.Challenge, window time.Duration) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, c.PairKey); err != nil {
		return fmt.Errorf("lock pair: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO challenges (id, challenger_id, opponent_id, pair_key, status, created_at, expires_at, updated_at)
		SELECT $1::uuid, $2, $3, $4, $5, $6, $7, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM challenges
			WHERE pair_key = $4
			  AND created_at > $8
			  AND (status = 'accepted' OR (status = 'pending' AND expires_at >= $6))
		)
	`, c.ID, c.ChallengerID, c.OpponentID, c.PairKey, c.Status, c.CreatedAt, c.ExpiresAt, c.CreatedAt.Add(-window))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateChallenge
	}

	return tx.Commit(ctx)
}

// GetByID получает вызов по id
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrChallengeNotFound
	}
	c, err := withReadRetry(ctx, "challenge.get", func() (*domain.Challenge, error) {
		return scanChallenge(r.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1::uuid`, id))
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrChallengeNotFound
	}
	return c, nil
}

// Update атомарно применяет переход: строка блокируется SELECT ... FOR UPDATE,
// fn проверяет guard и меняет копию, изменения пишутся в той же транзакции.
// Ошибка fn откатывает транзакцию без записи.
func (r *ChallengeRepository) Update(ctx context.Context, id string, fn func(c *domain.Challenge) error) (*domain.Challenge, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrChallengeNotFound
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanChallenge(tx.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1::uuid FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrChallengeNotFound
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE challenges
		SET challenger_score = $2, opponent_score = $3, status = $4, winner_id = $5,
		    accepted_at = $6, completed_at = $7, updated_at = $8
		WHERE id = $1::uuid
	`, c.ID, c.ChallengerScore, c.OpponentScore, c.Status, c.WinnerID, c.AcceptedAt, c.CompletedAt, c.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByParticipant - вызовы, где участник одна из сторон, новые первыми.
// Пустой statuses - любые статусы.
func (r *ChallengeRepository) ListByParticipant(ctx context.Context, participantID string, statuses []domain.ChallengeStatus, limit int) ([]*domain.Challenge, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE (challenger_id = $1 OR opponent_id = $1)`
	args := []any{participantID, limit}
	if len(statuses) > 0 {
		st := make([]string, len(statuses))
		for i, s := range statuses {
			st[i] = string(s)
		}
		query += ` AND status = ANY($3)`
		args = append(args, st)
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	return withReadRetry(ctx, "challenge.list", func() ([]*domain.Challenge, error) {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanChallenges(rows)
	})
}

// ExpireDue переводит просроченные pending в expired и возвращает их.
// SKIP LOCKED - параллельные sweep-ы на разных инстансах не мешают друг другу
func (r *ChallengeRepository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*domain.Challenge, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.Query(ctx, `
		UPDATE challenges SET status = 'expired', updated_at = $1
		WHERE id IN (
			SELECT id FROM challenges
			WHERE status = 'pending' AND expires_at < $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+challengeColumns, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChallenges(rows)
}

// сканирует строку в Challenge, nil без ошибки если строки нет
func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	if err := row.Scan(
		&c.ID, &c.ChallengerID, &c.OpponentID, &c.PairKey, &c.ChallengerScore, &c.OpponentScore,
		&c.Status, &c.WinnerID, &c.CreatedAt, &c.ExpiresAt, &c.AcceptedAt, &c.CompletedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanChallenges(rows pgx.Rows) ([]*domain.Challenge, error) {
	var out []*domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
