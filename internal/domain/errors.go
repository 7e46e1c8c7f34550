package domain

import "errors"

// категория ошибки, по ней http слой выбирает статус ответа
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindAuthorization     ErrorKind = "authorization"
	KindPolicyViolation   ErrorKind = "policy_violation"
	KindSignerUnavailable ErrorKind = "signer_unavailable"
	KindInternal          ErrorKind = "internal"
)

// Error - ошибка предметной области с категорией
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// NewError создает ошибку заданной категории
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf возвращает категорию первой domain-ошибки в цепочке, иначе KindInternal
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	// валидация входных данных
	ErrInvalidTier        = NewError(KindValidation, "tier out of range")
	ErrInvalidScore       = NewError(KindValidation, "score must be non-negative")
	ErrInvalidParticipant = NewError(KindValidation, "participant id required")
	ErrSelfChallenge      = NewError(KindValidation, "cannot challenge yourself")
	ErrInvalidAddress     = NewError(KindValidation, "invalid player address")
	ErrInvalidNonce       = NewError(KindValidation, "nonce must be a non-negative 256-bit integer")
	ErrInvalidChallengeID = NewError(KindValidation, "invalid challenge id")

	// поиск
	ErrChallengeNotFound   = NewError(KindNotFound, "challenge not found")
	ErrParticipantNotFound = NewError(KindNotFound, "participant not found")

	// конфликты состояния
	ErrDuplicateChallenge    = NewError(KindConflict, "an open challenge already exists for this pair")
	ErrAlreadySubmitted      = NewError(KindConflict, "score already submitted")
	ErrInvalidTransition     = NewError(KindConflict, "transition not allowed from current status")
	ErrChallengeExpired      = NewError(KindConflict, "challenge expired")
	ErrChallengeNotCompleted = NewError(KindConflict, "challenge not completed")
	ErrScoresSubmitted       = NewError(KindConflict, "scores already submitted, cannot cancel")

	// доступ
	ErrNotParticipant = NewError(KindAuthorization, "caller is not a participant")
	ErrWrongRole      = NewError(KindAuthorization, "caller is not allowed to perform this action")

	// политика
	ErrTierNotQualified = NewError(KindPolicyViolation, "score does not qualify for tier")
	ErrNoWinner         = NewError(KindPolicyViolation, "challenge ended in a tie, nothing to attest")

	// подписант не настроен
	ErrSignerUnavailable = NewError(KindSignerUnavailable, "attestation signer unavailable")
)
