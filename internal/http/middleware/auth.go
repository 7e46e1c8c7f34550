package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const participantKey = "participant_id"

// TokenParser возвращает id участника по bearer токену
type TokenParser func(token string) (string, error)

// Auth разбирает Authorization: Bearer. required=false пропускает запросы
// без заголовка, но битый токен отклоняется всегда.
func Auth(parse TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
				return
			}
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		participantID, err := parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(participantKey, participantID)
		c.Next()
	}
}

// ParticipantID - участник из сессии, если запрос аутентифицирован
func ParticipantID(c *gin.Context) (string, bool) {
	v, ok := c.Get(participantKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
