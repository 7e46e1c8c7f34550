package handlers

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"challenge_arena/internal/attest"
	"challenge_arena/internal/domain"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
)

type signAchievementRequest struct {
	Player string      `json:"player"`
	Tier   *int        `json:"tier"`
	Score  *int64      `json:"score"`
	Nonce  json.Number `json:"nonce"` // число или строка, до uint256
}

type signBattleRequest struct {
	ChallengeID string `json:"challengeId"`
	CallerID    string `json:"callerId"`
}

type verifyRequest struct {
	MessageHash string `json:"messageHash"`
	Signature   string `json:"signature"`
}

// POST /attestations/sign-achievement
func (h *Handler) SignAchievement(c *gin.Context) {
	var req signAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Tier == nil || req.Score == nil || req.Nonce == "" {
		badRequest(c, "player, tier, score and nonce are required")
		return
	}
	nonce, ok := new(big.Int).SetString(strings.TrimSpace(req.Nonce.String()), 10)
	if !ok {
		writeError(c, domain.ErrInvalidNonce)
		return
	}

	a, err := h.Attestations.RequestAchievementAttestation(c.Request.Context(), domain.AchievementClaim{
		Player: req.Player,
		Tier:   *req.Tier,
		Score:  *req.Score,
		Nonce:  nonce,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// POST /attestations/sign-battle
func (h *Handler) SignBattle(c *gin.Context) {
	var req signBattleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ChallengeID) == "" || strings.TrimSpace(req.CallerID) == "" {
		badRequest(c, "challengeId and callerId are required")
		return
	}
	if !actingAs(c, req.CallerID) {
		return
	}

	a, err := h.Attestations.RequestBattleAttestation(c.Request.Context(), req.ChallengeID, req.CallerID)
	if err != nil {
		// ничья - состояние вызова, а не кривой запрос
		if errors.Is(err, domain.ErrNoWinner) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /attestations/signer
func (h *Handler) SignerInfo(c *gin.Context) {
	addr, err := h.Attestations.SignerAddress()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex(), "version": attest.EncodingVersion})
}

// POST /attestations/verify
func (h *Handler) VerifyAttestation(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	msg, err := hexutil.Decode(req.MessageHash)
	if err != nil {
		badRequest(c, "messageHash must be 0x-prefixed hex")
		return
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		badRequest(c, "signature must be 0x-prefixed hex")
		return
	}

	recovered, valid, err := h.Attestations.Verify(msg, sig)
	if err != nil {
		if domain.KindOf(err) == domain.KindSignerUnavailable {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid, "signer": recovered.Hex()})
}
