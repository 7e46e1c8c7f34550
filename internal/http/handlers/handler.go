package handlers

import (
	"net/http"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/http/middleware"
	"challenge_arena/internal/logger"
	"challenge_arena/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler - зависимости http обработчиков
type Handler struct {
	Challenges   *service.ChallengeService
	Attestations *service.AttestationService
	Auth         *service.AuthService
	Audit        *service.AuditService
	Version      string
}

// writeError переводит ошибку предметной области в статус ответа
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error", "kind": kind})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindPolicyViolation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindSignerUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": domain.KindValidation})
}

// actingAs проверяет, что заявленный в теле участник совпадает с сессией.
// Без сессии (AUTH_REQUIRED=false) доверяем телу запроса.
func actingAs(c *gin.Context, claimed string) bool {
	sessionID, ok := middleware.ParticipantID(c)
	if !ok {
		return true
	}
	if sessionID != claimed {
		c.JSON(http.StatusForbidden, gin.H{"error": "caller does not match session", "kind": domain.KindAuthorization})
		return false
	}
	return true
}
