package service

import (
	"context"
	"math/big"
	"strings"

	"challenge_arena/internal/attest"
	"challenge_arena/internal/domain"
	"challenge_arena/internal/logger"
	"challenge_arena/internal/metrics"
	"challenge_arena/internal/tier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChallengeReader - чтение вызова для проверки итога матча
type ChallengeReader interface {
	Get(ctx context.Context, id string) (*domain.Challenge, error)
}

// AttestationService проверяет заявку и только потом тратит подпись.
// Каждая выданная подпись соответствует факту в хранилище или в политике уровней.
type AttestationService struct {
	signer     *attest.Signer
	policy     tier.Policy
	challenges ChallengeReader
	audit      *AuditService
}

func NewAttestationService(signer *attest.Signer, policy tier.Policy, challenges ChallengeReader, audit *AuditService) *AttestationService {
	return &AttestationService{
		signer:     signer,
		policy:     policy,
		challenges: challenges,
		audit:      audit,
	}
}

// RequestAchievementAttestation подписывает (player, tier, score, nonce).
// Уникальность nonce проверяет контракт, здесь он только входит в подпись как есть.
func (s *AttestationService) RequestAchievementAttestation(ctx context.Context, claim domain.AchievementClaim) (*domain.Attestation, error) {
	kind := string(domain.AttestationAchievement)
	if !s.signer.Available() {
		return nil, s.reject(kind, domain.ErrSignerUnavailable)
	}

	// адрес, уровень, счет и nonce проверяются при упаковке
	msg, err := attest.AchievementMessage(claim)
	if err != nil {
		return nil, s.reject(kind, err)
	}
	ok, err := s.policy.ScoreQualifies(claim.Score, tier.Tier(claim.Tier))
	if err != nil {
		return nil, s.reject(kind, err)
	}
	if !ok {
		return nil, s.reject(kind, domain.ErrTierNotQualified)
	}

	normalized := claim
	normalized.Player = common.HexToAddress(claim.Player).Hex()
	normalized.Nonce = new(big.Int).Set(claim.Nonce)

	a, err := s.sign(domain.AttestationAchievement, msg)
	if err != nil {
		return nil, s.reject(kind, err)
	}
	a.Achievement = &normalized

	metrics.AttestationsIssued.WithLabelValues(kind).Inc()
	s.audit.LogAttestation(ctx, normalized.Player, "", a)
	logger.Info("achievement attested", "player", normalized.Player, "tier", claim.Tier, "nonce", claim.Nonce.String())
	return a, nil
}

// RequestBattleAttestation подписывает итог завершенного вызова для победителя
// или проигравшего (любой из участников может запросить).
func (s *AttestationService) RequestBattleAttestation(ctx context.Context, challengeID, callerID string) (*domain.Attestation, error) {
	kind := string(domain.AttestationBattle)
	if !s.signer.Available() {
		return nil, s.reject(kind, domain.ErrSignerUnavailable)
	}

	c, err := s.challenges.Get(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return nil, s.reject(kind, err)
	}
	if c.Status != domain.ChallengeStatusCompleted {
		return nil, s.reject(kind, domain.ErrChallengeNotCompleted)
	}
	if !c.IsParticipant(callerID) {
		return nil, s.reject(kind, domain.ErrNotParticipant)
	}
	if c.WinnerID == nil {
		return nil, s.reject(kind, domain.ErrNoWinner)
	}

	result := BattleResultOf(c)
	msg, err := attest.BattleMessage(result)
	if err != nil {
		return nil, s.reject(kind, err)
	}
	a, err := s.sign(domain.AttestationBattle, msg)
	if err != nil {
		return nil, s.reject(kind, err)
	}
	a.Battle = &result

	metrics.AttestationsIssued.WithLabelValues(kind).Inc()
	s.audit.LogAttestation(ctx, callerID, c.ID, a)
	logger.Info("battle attested", "challenge_id", c.ID, "caller", callerID)
	return a, nil
}

// SignerAddress - адрес, который видит контракт
func (s *AttestationService) SignerAddress() (common.Address, error) {
	return s.signer.Address()
}

// Verify восстанавливает подписанта по хэшу сообщения и сверяет с нашим ключом
func (s *AttestationService) Verify(messageHash, signature []byte) (common.Address, bool, error) {
	authority, err := s.signer.Address()
	if err != nil {
		return common.Address{}, false, err
	}
	recovered, err := attest.RecoverSigner(messageHash, signature)
	if err != nil {
		return common.Address{}, false, err
	}
	return recovered, recovered == authority, nil
}

// BattleResultOf выводит кортеж итога из завершенного вызова с победителем
func BattleResultOf(c *domain.Challenge) domain.BattleResult {
	challengerWon := *c.WinnerID == c.ChallengerID
	winner, loser := *c.OpponentScore, *c.ChallengerScore
	if challengerWon {
		winner, loser = loser, winner
	}
	return domain.BattleResult{
		ChallengeID:        c.ID,
		WinnerScore:        winner,
		LoserScore:         loser,
		WinnerIsChallenger: challengerWon,
	}
}

func (s *AttestationService) sign(kind domain.AttestationKind, msg []byte) (*domain.Attestation, error) {
	sig, err := s.signer.Sign(msg)
	if err != nil {
		return nil, err
	}
	addr, err := s.signer.Address()
	if err != nil {
		return nil, err
	}
	return &domain.Attestation{
		Kind:        kind,
		Version:     attest.EncodingVersion,
		MessageHash: hexutil.Encode(msg),
		Signature:   hexutil.Encode(sig),
		Signer:      addr.Hex(),
	}, nil
}

func (s *AttestationService) reject(kind string, err error) error {
	metrics.AttestationRejections.WithLabelValues(kind, string(domain.KindOf(err))).Inc()
	return err
}
