package repository

import (
	"context"
	"errors"
	"strings"

	"challenge_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ParticipantRepository struct {
	db *pgxpool.Pool
}

func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// GetByID получает участника по id
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	p, err := withReadRetry(ctx, "participant.get", func() (*domain.Participant, error) {
		return scanParticipant(r.db.QueryRow(ctx, `
			SELECT id, handle, COALESCE(tg_id, 0), COALESCE(wallet_address, ''), created_at
			FROM participants WHERE id = $1
		`, id))
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrParticipantNotFound
	}
	return p, nil
}

// ResolveHandle ищет участника по handle без учета регистра и ведущего @
func (r *ParticipantRepository) ResolveHandle(ctx context.Context, handle string) (*domain.Participant, error) {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, domain.ErrParticipantNotFound
	}
	p, err := withReadRetry(ctx, "participant.resolve", func() (*domain.Participant, error) {
		return scanParticipant(r.db.QueryRow(ctx, `
			SELECT id, handle, COALESCE(tg_id, 0), COALESCE(wallet_address, ''), created_at
			FROM participants WHERE lower(handle) = $1
		`, handle))
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrParticipantNotFound
	}
	return p, nil
}

// Upsert создает участника или обновляет handle/кошелек существующего.
// Пустой wallet_address не затирает сохраненный.
func (r *ParticipantRepository) Upsert(ctx context.Context, p *domain.Participant) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO participants (id, handle, tg_id, wallet_address)
		VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE
		SET handle = EXCLUDED.handle,
		    tg_id = COALESCE(EXCLUDED.tg_id, participants.tg_id),
		    wallet_address = COALESCE(EXCLUDED.wallet_address, participants.wallet_address)
		RETURNING created_at
	`, p.ID, p.Handle, p.TgID, p.WalletAddress).Scan(&p.CreatedAt)
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var p domain.Participant
	if err := row.Scan(&p.ID, &p.Handle, &p.TgID, &p.WalletAddress, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// NormalizeHandle приводит handle к виду для поиска
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
