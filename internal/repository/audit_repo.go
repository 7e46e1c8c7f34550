package repository

import (
	"context"
	"encoding/json"

	"challenge_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id, participant_id, COALESCE(challenge_id, ''), action, category, details, COALESCE(ip, ''), created_at`

// журнал аудита в Postgres
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// создает новую запись в журнале
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		detailsJSON = []byte("{}")
	}

	var challengeID *string
	if log.ChallengeID != "" {
		challengeID = &log.ChallengeID
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (participant_id, challenge_id, action, category, details, ip)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at
	`, log.ParticipantID, challengeID, log.Action, log.Category, detailsJSON, log.IP).Scan(&log.ID, &log.CreatedAt)
}

// записи по вызову в порядке появления
func (r *AuditRepository) GetByChallenge(ctx context.Context, challengeID string, limit int) ([]*domain.AuditLog, error) {
	return withReadRetry(ctx, "audit.by_challenge", func() ([]*domain.AuditLog, error) {
		rows, err := r.db.Query(ctx, `
			SELECT `+auditColumns+`
			FROM audit_logs
			WHERE challenge_id = $1
			ORDER BY id
			LIMIT $2
		`, challengeID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanAuditLogs(rows)
	})
}

// последние записи участника
func (r *AuditRepository) GetByParticipant(ctx context.Context, participantID string, limit int) ([]*domain.AuditLog, error) {
	return withReadRetry(ctx, "audit.by_participant", func() ([]*domain.AuditLog, error) {
		rows, err := r.db.Query(ctx, `
			SELECT `+auditColumns+`
			FROM audit_logs
			WHERE participant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, participantID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanAuditLogs(rows)
	})
}

// преобразует строки из БД в структуры AuditLog
func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&log.ID, &log.ParticipantID, &log.ChallengeID, &log.Action, &log.Category, &detailsJSON, &log.IP, &log.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			log.Details = make(map[string]interface{})
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
