package domain

import "time"

// Журнал важных действий: переходы вызовов и выданные подписи
type AuditLog struct {
	ID            int64                  `db:"id" json:"id"`
	ParticipantID string                 `db:"participant_id" json:"participant_id"`
	ChallengeID   string                 `db:"challenge_id" json:"challenge_id,omitempty"`
	Action        string                 `db:"action" json:"action"`
	Category      string                 `db:"category" json:"category"`
	Details       map[string]interface{} `db:"details" json:"details"`
	IP            string                 `db:"ip" json:"ip,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
}

// Категории
const (
	AuditCategoryAuth        = "auth"
	AuditCategoryChallenge   = "challenge"
	AuditCategoryAttestation = "attestation"
)

const (
	// Авторизация
	AuditActionLogin = "login"

	// Вызовы
	AuditActionChallengeCreate  = "challenge_create"
	AuditActionChallengeAccept  = "challenge_accept"
	AuditActionChallengeDecline = "challenge_decline"
	AuditActionChallengeCancel  = "challenge_cancel"
	AuditActionChallengeExpire  = "challenge_expire"
	AuditActionScoreSubmit      = "score_submit"
	AuditActionChallengeFinish  = "challenge_complete"

	// Подписи
	AuditActionSignAchievement = "sign_achievement"
	AuditActionSignBattle      = "sign_battle"
)
