package attest

import (
	"math/big"
	"strings"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/tier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// EncodingVersion - версия упаковки сообщений. Порядок полей и ширина
// кодирования общие с контрактом-верификатором: любое изменение требует
// новой версии, иначе все выданные, но еще не погашенные подписи сломаются.
const EncodingVersion = 1

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AchievementMessage возвращает keccak256(abi.encodePacked(
//
//	address player, uint8 tier, uint256 score, uint256 nonce))
func AchievementMessage(c domain.AchievementClaim) ([]byte, error) {
	if !common.IsHexAddress(c.Player) || !strings.HasPrefix(strings.ToLower(c.Player), "0x") {
		return nil, domain.ErrInvalidAddress
	}
	if !tier.Valid(c.Tier) {
		return nil, domain.ErrInvalidTier
	}
	if c.Score < 0 {
		return nil, domain.ErrInvalidScore
	}
	if c.Nonce == nil || c.Nonce.Sign() < 0 || c.Nonce.Cmp(maxUint256) > 0 {
		return nil, domain.ErrInvalidNonce
	}

	player := common.HexToAddress(c.Player)
	return crypto.Keccak256(
		player.Bytes(),
		[]byte{uint8(c.Tier)},
		uint256Bytes(big.NewInt(c.Score)),
		uint256Bytes(c.Nonce),
	), nil
}

// BattleMessage возвращает keccak256(abi.encodePacked(
//
//	bytes16 challengeId, uint256 winnerScore, uint256 loserScore, bool winnerIsChallenger))
func BattleMessage(r domain.BattleResult) ([]byte, error) {
	id, err := uuid.Parse(r.ChallengeID)
	if err != nil {
		return nil, domain.ErrInvalidChallengeID
	}
	if r.WinnerScore < 0 || r.LoserScore < 0 {
		return nil, domain.ErrInvalidScore
	}

	flag := byte(0)
	if r.WinnerIsChallenger {
		flag = 1
	}
	return crypto.Keccak256(
		id[:],
		uint256Bytes(big.NewInt(r.WinnerScore)),
		uint256Bytes(big.NewInt(r.LoserScore)),
		[]byte{flag},
	), nil
}

// big-endian, 32 байта, число уже проверено на диапазон
func uint256Bytes(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}
