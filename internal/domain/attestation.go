package domain

import "math/big"

// Вид аттестации
type AttestationKind string

const (
	AttestationAchievement AttestationKind = "achievement"
	AttestationBattle      AttestationKind = "battle"
)

// Заявка на достижение: игрок набрал score и претендует на tier
type AchievementClaim struct {
	Player string   `json:"player"` // 0x адрес
	Tier   int      `json:"tier"`
	Score  int64    `json:"score"`
	Nonce  *big.Int `json:"nonce"`
}

// Итог завершенного матча
type BattleResult struct {
	ChallengeID        string `json:"challengeId"`
	WinnerScore        int64  `json:"winnerScore"`
	LoserScore         int64  `json:"loserScore"`
	WinnerIsChallenger bool   `json:"winnerIsChallenger"`
}

// Подписанное сообщение, которое уходит клиенту и дальше в контракт.
// Ничего из этого не сохраняется, кроме записи в аудите.
type Attestation struct {
	Kind        AttestationKind   `json:"kind"`
	Version     int               `json:"version"`
	MessageHash string            `json:"messageHash"`
	Signature   string            `json:"signature"`
	Signer      string            `json:"signer"`
	Achievement *AchievementClaim `json:"achievement,omitempty"`
	Battle      *BattleResult     `json:"battle,omitempty"`
}
