package service

import (
	"context"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/logger"
)

// AuditStore - журнал аудита (Postgres или память)
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByChallenge(ctx context.Context, challengeID string, limit int) ([]*domain.AuditLog, error)
	GetByParticipant(ctx context.Context, participantID string, limit int) ([]*domain.AuditLog, error)
}

// обрабатывает логирование аудита
type AuditService struct {
	repo AuditStore
}

// создает новый сервис аудита
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// создает новую запись в журнале аудита. ошибка записи только логируется
func (s *AuditService) Log(ctx context.Context, participantID, challengeID, action, category string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		ParticipantID: participantID,
		ChallengeID:   challengeID,
		Action:        action,
		Category:      category,
		Details:       details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("не удалось создать запись аудита", "error", err, "action", action, "participant_id", participantID)
	}
}

// логирует переход вызова от имени участника
func (s *AuditService) LogChallenge(ctx context.Context, actorID, action string, c *domain.Challenge, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["status"] = string(c.Status)
	if c.WinnerID != nil {
		details["winner_id"] = *c.WinnerID
	}

	s.Log(ctx, actorID, c.ID, action, domain.AuditCategoryChallenge, details)
}

// логирует выданную подпись
func (s *AuditService) LogAttestation(ctx context.Context, participantID, challengeID string, a *domain.Attestation) {
	action := domain.AuditActionSignAchievement
	if a.Kind == domain.AttestationBattle {
		action = domain.AuditActionSignBattle
	}
	details := map[string]interface{}{
		"message_hash": a.MessageHash,
		"signer":       a.Signer,
		"version":      a.Version,
	}
	if a.Achievement != nil {
		details["tier"] = a.Achievement.Tier
		details["score"] = a.Achievement.Score
		details["nonce"] = a.Achievement.Nonce.String()
	}

	s.Log(ctx, participantID, challengeID, action, domain.AuditCategoryAttestation, details)
}

// логирует вход участника
func (s *AuditService) LogLogin(ctx context.Context, participantID, ip string) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		ParticipantID: participantID,
		Action:        domain.AuditActionLogin,
		Category:      domain.AuditCategoryAuth,
		IP:            ip,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("не удалось создать запись аудита", "error", err, "action", log.Action, "participant_id", participantID)
	}
}

// возвращает историю вызова по журналу
func (s *AuditService) GetChallengeLogs(ctx context.Context, challengeID string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByChallenge(ctx, challengeID, limit)
}

// возвращает последние записи участника
func (s *AuditService) GetParticipantLogs(ctx context.Context, participantID string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByParticipant(ctx, participantID, limit)
}
