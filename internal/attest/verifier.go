package attest

import (
	"fmt"

	"challenge_arena/internal/domain"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrSignatureMismatch = domain.NewError(domain.KindValidation, "signature was not produced by the attestation signer")

// Verifier повторяет проверку контракта: восстанавливает адрес из подписи
// и сравнивает с доверенным.
type Verifier struct {
	authority common.Address
}

func NewVerifier(authority common.Address) *Verifier {
	return &Verifier{authority: authority}
}

// RecoverSigner восстанавливает адрес подписавшего 32-байтный хэш сообщения
func RecoverSigner(message, signature []byte) (common.Address, error) {
	if len(message) != common.HashLength {
		return common.Address{}, domain.NewError(domain.KindValidation, "message hash must be 32 bytes")
	}
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, domain.NewError(domain.KindValidation, "signature must be 65 bytes")
	}
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("unable to recover attestation signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify возвращает восстановленный адрес, ErrSignatureMismatch если он чужой
func (v *Verifier) Verify(message, signature []byte) (common.Address, error) {
	addr, err := RecoverSigner(message, signature)
	if err != nil {
		return common.Address{}, err
	}
	if addr != v.authority {
		return addr, ErrSignatureMismatch
	}
	return addr, nil
}

func (v *Verifier) Authority() common.Address {
	return v.authority
}
