package ws

import (
	"net/http"

	"challenge_arena/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenParser возвращает id участника по токену сессии
type TokenParser func(token string) (string, error)

// HandleWS апгрейдит соединение для живых уведомлений.
// Токен передается в query, браузерный websocket не умеет в заголовки.
func HandleWS(hub *Hub, parse TokenParser, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		participantID, err := parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "participant", participantID, "error", err)
			return
		}

		client := NewClient(participantID, conn, hub)
		go client.Run()
	}
}
