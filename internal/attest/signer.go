package attest

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"challenge_arena/internal/domain"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer держит ключ подписи аттестаций. После создания только читается,
// так что безопасен для конкурентного использования.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner разбирает hex ключ secp256k1 (с 0x или без).
// Пустой ключ дает подписанта, который отказывает во всех подписях.
func NewSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return &Signer{}, nil
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid attestation signer key: %w", err)
	}
	return NewSignerFromKey(key), nil
}

func NewSignerFromKey(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Available - ключ настроен
func (s *Signer) Available() bool {
	return s != nil && s.key != nil
}

// Address - адрес, который контракт ожидает получить из ecrecover
func (s *Signer) Address() (common.Address, error) {
	if !s.Available() {
		return common.Address{}, domain.ErrSignerUnavailable
	}
	return s.address, nil
}

// Sign подписывает 32-байтный хэш сообщения в формате personal_sign:
// digest = keccak256("\x19Ethereum Signed Message:\n32" ‖ message).
// Подпись 65 байт r‖s‖v, v = 27/28 для ecrecover. RFC 6979, детерминирована.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	if !s.Available() {
		return nil, domain.ErrSignerUnavailable
	}
	if len(message) != common.HashLength {
		return nil, fmt.Errorf("message must be %d bytes, got %d", common.HashLength, len(message))
	}
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing attestation: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
