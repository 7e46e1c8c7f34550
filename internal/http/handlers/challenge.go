package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/service"

	"github.com/gin-gonic/gin"
)

type createChallengeRequest struct {
	ChallengerID   string `json:"challengerId"`
	OpponentID     string `json:"opponentId"`
	OpponentHandle string `json:"opponentHandle"`
}

type challengeActionRequest struct {
	ChallengeID string `json:"challengeId"`
	CallerID    string `json:"callerId"`
}

type submitScoreRequest struct {
	ChallengeID string `json:"challengeId"`
	CallerID    string `json:"callerId"`
	Score       *int64 `json:"score"`
}

// POST /challenges/create
func (h *Handler) CreateChallenge(c *gin.Context) {
	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	if !actingAs(c, req.ChallengerID) {
		return
	}

	ch, err := h.Challenges.Create(c.Request.Context(), service.CreateChallengeInput{
		ChallengerID:   req.ChallengerID,
		OpponentID:     req.OpponentID,
		OpponentHandle: req.OpponentHandle,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"challenge": ch})
}

// POST /challenges/accept
func (h *Handler) AcceptChallenge(c *gin.Context) {
	h.challengeAction(c, h.Challenges.Accept)
}

// POST /challenges/decline
func (h *Handler) DeclineChallenge(c *gin.Context) {
	h.challengeAction(c, h.Challenges.Decline)
}

// POST /challenges/cancel
func (h *Handler) CancelChallenge(c *gin.Context) {
	h.challengeAction(c, h.Challenges.Cancel)
}

func (h *Handler) challengeAction(c *gin.Context, action func(ctx context.Context, id, callerID string) (*domain.Challenge, error)) {
	var req challengeActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ChallengeID) == "" || strings.TrimSpace(req.CallerID) == "" {
		badRequest(c, "challengeId and callerId are required")
		return
	}
	if !actingAs(c, req.CallerID) {
		return
	}

	ch, err := action(c.Request.Context(), req.ChallengeID, req.CallerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": ch})
}

// POST /challenges/submit
func (h *Handler) SubmitScore(c *gin.Context) {
	var req submitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ChallengeID) == "" || strings.TrimSpace(req.CallerID) == "" || req.Score == nil {
		badRequest(c, "challengeId, callerId and score are required")
		return
	}
	if !actingAs(c, req.CallerID) {
		return
	}

	ch, completed, err := h.Challenges.SubmitScore(c.Request.Context(), req.ChallengeID, req.CallerID, *req.Score)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": ch, "completed": completed})
}

// GET /challenges/:id
func (h *Handler) GetChallenge(c *gin.Context) {
	ch, err := h.Challenges.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": ch})
}

// GET /challenges/pending?participant=
func (h *Handler) ListPending(c *gin.Context) {
	list, err := h.Challenges.ListPending(c.Request.Context(), c.Query("participant"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": list})
}

// GET /challenges/active?participant=
func (h *Handler) ListActive(c *gin.Context) {
	list, err := h.Challenges.ListActive(c.Request.Context(), c.Query("participant"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": list})
}

// GET /challenges/history?participant=&limit=
func (h *Handler) ListHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := h.Challenges.ListHistory(c.Request.Context(), c.Query("participant"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": list})
}

// GET /challenges/:id/audit - журнал переходов вызова
func (h *Handler) ChallengeAudit(c *gin.Context) {
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []any{}})
		return
	}
	ch, err := h.Challenges.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := h.Audit.GetChallengeLogs(c.Request.Context(), ch.ID, 200)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
