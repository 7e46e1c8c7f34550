package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"challenge_arena/internal/domain"
)

var ErrInvalidInitData = domain.NewError(domain.KindAuthorization, "invalid telegram init data")

// EndpointRegistrar сохраняет адрес доставки уведомлений
type EndpointRegistrar interface {
	Add(ctx context.Context, e *domain.NotificationEndpoint) error
}

// AuthService - вход через Telegram WebApp
type AuthService struct {
	participants ParticipantStore
	endpoints    EndpointRegistrar
	audit        *AuditService
	botToken     string
	maxAge       time.Duration
	now          func() time.Time
}

func NewAuthService(participants ParticipantStore, endpoints EndpointRegistrar, audit *AuditService, botToken string) *AuthService {
	return &AuthService{
		participants: participants,
		endpoints:    endpoints,
		audit:        audit,
		botToken:     botToken,
		maxAge:       DefaultInitDataMaxAge,
		now:          time.Now,
	}
}

// LoginTelegram проверяет init_data, регистрирует участника и его чат
// как адрес уведомлений, выдает токен сессии
func (s *AuthService) LoginTelegram(ctx context.Context, initData, ip string) (string, *domain.Participant, error) {
	values, ok := ValidateTelegramInitDataAt(initData, s.botToken, s.now(), s.maxAge)
	if !ok {
		return "", nil, ErrInvalidInitData
	}
	tgUser, ok := ParseTelegramUser(values)
	if !ok {
		return "", nil, ErrInvalidInitData
	}

	p := &domain.Participant{
		ID:     TelegramParticipantID(tgUser.ID),
		Handle: tgUser.Username,
		TgID:   tgUser.ID,
	}
	if p.Handle == "" {
		p.Handle = "tg" + strconv.FormatInt(tgUser.ID, 10)
	}
	if err := s.participants.Upsert(ctx, p); err != nil {
		return "", nil, err
	}

	// в личном чате с ботом chat id совпадает с id пользователя
	if s.endpoints != nil {
		err := s.endpoints.Add(ctx, &domain.NotificationEndpoint{
			ParticipantID: p.ID,
			Kind:          domain.EndpointTelegram,
			Target:        strconv.FormatInt(tgUser.ID, 10),
		})
		if err != nil {
			return "", nil, err
		}
	}

	token, err := GenerateJWT(p.ID)
	if err != nil {
		if errors.Is(err, ErrJWTNotConfigured) {
			return "", nil, domain.NewError(domain.KindInternal, "sessions are not configured")
		}
		return "", nil, err
	}

	s.audit.LogLogin(ctx, p.ID, ip)
	return token, p, nil
}

// TelegramParticipantID - стабильный id участника из Telegram
func TelegramParticipantID(tgID int64) string {
	return "tg:" + strconv.FormatInt(tgID, 10)
}
