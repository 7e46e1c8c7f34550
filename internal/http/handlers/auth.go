package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// POST /auth/telegram
func (h *Handler) TelegramLogin(c *gin.Context) {
	var req struct {
		InitData string `json:"initData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.InitData == "" {
		badRequest(c, "initData required")
		return
	}

	token, p, err := h.Auth.LoginTelegram(c.Request.Context(), req.InitData, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "participant": p})
}
