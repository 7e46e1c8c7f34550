package http

import (
	"challenge_arena/internal/http/handlers"
	"challenge_arena/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RouterDeps - все, что нужно для регистрации маршрутов
type RouterDeps struct {
	Handler      *handlers.Handler
	RateLimiter  *middleware.RateLimiter
	ParseToken   middleware.TokenParser
	AuthRequired bool
	Checks       map[string]handlers.Checker
	WS           gin.HandlerFunc
	Metrics      gin.HandlerFunc
}

// RegisterRoutes вешает API на роутер
func RegisterRoutes(r *gin.Engine, d RouterDeps) {
	h := d.Handler

	r.GET("/healthz", handlers.Health(h.Version, d.Checks))
	if d.Metrics != nil {
		r.GET("/metrics", d.Metrics)
	}
	if d.WS != nil {
		r.GET("/ws", d.WS)
	}

	api := r.Group("/api/v1")
	api.Use(d.RateLimiter.Middleware())

	api.POST("/auth/telegram", h.TelegramLogin)

	// чтения открыты, запись требует сессию при AUTH_REQUIRED
	api.GET("/challenges/pending", h.ListPending)
	api.GET("/challenges/active", h.ListActive)
	api.GET("/challenges/history", h.ListHistory)
	api.GET("/challenges/:id", h.GetChallenge)
	api.GET("/challenges/:id/audit", h.ChallengeAudit)
	api.GET("/attestations/signer", h.SignerInfo)
	api.POST("/attestations/verify", h.VerifyAttestation)

	write := api.Group("")
	write.Use(middleware.Auth(d.ParseToken, d.AuthRequired))
	write.POST("/challenges/create", h.CreateChallenge)
	write.POST("/challenges/accept", h.AcceptChallenge)
	write.POST("/challenges/decline", h.DeclineChallenge)
	write.POST("/challenges/cancel", h.CancelChallenge)
	write.POST("/challenges/submit", h.SubmitScore)
	write.POST("/attestations/sign-achievement", h.SignAchievement)
	write.POST("/attestations/sign-battle", h.SignBattle)
}
