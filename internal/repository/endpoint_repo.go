package repository

import (
	"context"

	"challenge_arena/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// адреса доставки уведомлений, ядро только читает
type EndpointRepository struct {
	db *pgxpool.Pool
}

func NewEndpointRepository(db *pgxpool.Pool) *EndpointRepository {
	return &EndpointRepository{db: db}
}

func (r *EndpointRepository) ListByParticipant(ctx context.Context, participantID string) ([]domain.NotificationEndpoint, error) {
	return withReadRetry(ctx, "endpoint.list", func() ([]domain.NotificationEndpoint, error) {
		rows, err := r.db.Query(ctx, `
			SELECT id, participant_id, kind, target, created_at
			FROM notification_endpoints
			WHERE participant_id = $1
			ORDER BY id
		`, participantID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []domain.NotificationEndpoint
		for rows.Next() {
			var e domain.NotificationEndpoint
			if err := rows.Scan(&e.ID, &e.ParticipantID, &e.Kind, &e.Target, &e.CreatedAt); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, rows.Err()
	})
}

// Add регистрирует адрес доставки (используется при telegram логине)
func (r *EndpointRepository) Add(ctx context.Context, e *domain.NotificationEndpoint) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notification_endpoints (participant_id, kind, target)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_id, kind, target) DO UPDATE SET target = EXCLUDED.target
		RETURNING id, created_at
	`, e.ParticipantID, e.Kind, e.Target).Scan(&e.ID, &e.CreatedAt)
}
