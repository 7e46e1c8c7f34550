package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/logger"
	"challenge_arena/internal/metrics"

	"github.com/google/uuid"
)

// ChallengeStore - хранилище вызовов. Create и Update обязаны быть атомарными
// относительно конкурентных вызовов (в том числе с других инстансов).
type ChallengeStore interface {
	// Create вставляет вызов, если для пары нет блокирующего в окне window
	Create(ctx context.Context, c *domain.Challenge, window time.Duration) error
	GetByID(ctx context.Context, id string) (*domain.Challenge, error)
	// Update читает вызов под блокировкой, применяет fn и сохраняет результат.
	// Ошибка fn отменяет запись.
	Update(ctx context.Context, id string, fn func(c *domain.Challenge) error) (*domain.Challenge, error)
	ListByParticipant(ctx context.Context, participantID string, statuses []domain.ChallengeStatus, limit int) ([]*domain.Challenge, error)
	// ExpireDue переводит просроченные pending в expired и возвращает их
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]*domain.Challenge, error)
}

type ParticipantStore interface {
	GetByID(ctx context.Context, id string) (*domain.Participant, error)
	ResolveHandle(ctx context.Context, handle string) (*domain.Participant, error)
	Upsert(ctx context.Context, p *domain.Participant) error
}

// MatchNotifier получает события жизненного цикла. Вызовы не блокируют
type MatchNotifier interface {
	OnChallengeCreated(c *domain.Challenge)
	OnChallengeAccepted(c *domain.Challenge)
	OnChallengeDeclined(c *domain.Challenge)
	OnChallengeCancelled(c *domain.Challenge)
	OnChallengeExpired(c *domain.Challenge)
	OnChallengeCompleted(c *domain.Challenge)
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ChallengeOptions struct {
	TTL          time.Duration
	DedupeWindow time.Duration
}

// ChallengeService - машина состояний вызовов поверх хранилища
type ChallengeService struct {
	store        ChallengeStore
	participants ParticipantStore
	notifier     MatchNotifier
	audit        *AuditService
	ttl          time.Duration
	window       time.Duration
	now          func() time.Time
	newID        func() string
}

func NewChallengeService(store ChallengeStore, participants ParticipantStore, notifier MatchNotifier, audit *AuditService, opts ChallengeOptions) *ChallengeService {
	if opts.TTL <= 0 {
		opts.TTL = domain.DefaultChallengeTTL
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = domain.DefaultDedupeWindow
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ChallengeService{
		store:        store,
		participants: participants,
		notifier:     notifier,
		audit:        audit,
		ttl:          opts.TTL,
		window:       opts.DedupeWindow,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

type CreateChallengeInput struct {
	ChallengerID   string
	OpponentID     string
	OpponentHandle string
}

// Create создает pending вызов. Оппонент задается id или handle
func (s *ChallengeService) Create(ctx context.Context, in CreateChallengeInput) (*domain.Challenge, error) {
	opponentID := strings.TrimSpace(in.OpponentID)
	if opponentID == "" && strings.TrimSpace(in.OpponentHandle) != "" {
		if s.participants == nil {
			return nil, s.reject("create", domain.ErrParticipantNotFound)
		}
		p, err := s.participants.ResolveHandle(ctx, in.OpponentHandle)
		if err != nil {
			return nil, s.reject("create", err)
		}
		opponentID = p.ID
	}

	c, err := domain.NewChallenge(s.newID(), in.ChallengerID, opponentID, s.now(), s.ttl)
	if err != nil {
		return nil, s.reject("create", err)
	}
	if err := s.store.Create(ctx, c, s.window); err != nil {
		return nil, s.reject("create", err)
	}

	metrics.ChallengeTransitions.WithLabelValues(string(domain.EventChallengeCreated)).Inc()
	s.audit.LogChallenge(ctx, c.ChallengerID, domain.AuditActionChallengeCreate, c, map[string]interface{}{
		"opponent_id": c.OpponentID,
	})
	logger.Info("challenge created", "challenge_id", c.ID, "challenger", c.ChallengerID, "opponent", c.OpponentID)
	s.notifier.OnChallengeCreated(c)
	return c, nil
}

// Accept: оппонент принимает pending вызов
func (s *ChallengeService) Accept(ctx context.Context, id, callerID string) (*domain.Challenge, error) {
	c, err := s.transition(ctx, "accept", id, func(c *domain.Challenge, now time.Time) error {
		return c.Accept(callerID, now)
	})
	if err != nil {
		return nil, err
	}
	metrics.ChallengeTransitions.WithLabelValues(string(domain.EventChallengeAccepted)).Inc()
	s.audit.LogChallenge(ctx, callerID, domain.AuditActionChallengeAccept, c, nil)
	s.notifier.OnChallengeAccepted(c)
	return c, nil
}

// Decline: оппонент отклоняет pending вызов
func (s *ChallengeService) Decline(ctx context.Context, id, callerID string) (*domain.Challenge, error) {
	c, err := s.transition(ctx, "decline", id, func(c *domain.Challenge, now time.Time) error {
		return c.Decline(callerID, now)
	})
	if err != nil {
		return nil, err
	}
	metrics.ChallengeTransitions.WithLabelValues(string(domain.EventChallengeDeclined)).Inc()
	s.audit.LogChallenge(ctx, callerID, domain.AuditActionChallengeDecline, c, nil)
	s.notifier.OnChallengeDeclined(c)
	return c, nil
}

// Cancel: автор отменяет принятый вызов, пока никто не прислал счет
func (s *ChallengeService) Cancel(ctx context.Context, id, callerID string) (*domain.Challenge, error) {
	c, err := s.transition(ctx, "cancel", id, func(c *domain.Challenge, now time.Time) error {
		return c.Cancel(callerID, now)
	})
	if err != nil {
		return nil, err
	}
	metrics.ChallengeTransitions.WithLabelValues(string(domain.EventChallengeCancelled)).Inc()
	s.audit.LogChallenge(ctx, callerID, domain.AuditActionChallengeCancel, c, nil)
	s.notifier.OnChallengeCancelled(c)
	return c, nil
}

// SubmitScore записывает счет стороны вызывающего. completed = true только
// у того запроса, который перевел вызов в completed; ровно он шлет событие.
func (s *ChallengeService) SubmitScore(ctx context.Context, id, callerID string, score int64) (*domain.Challenge, bool, error) {
	var completed bool
	c, err := s.transition(ctx, "submit", id, func(c *domain.Challenge, now time.Time) error {
		var err error
		completed, err = c.SubmitScore(callerID, score, now)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	s.audit.LogChallenge(ctx, callerID, domain.AuditActionScoreSubmit, c, map[string]interface{}{"score": score})
	if completed {
		metrics.ChallengeTransitions.WithLabelValues(string(domain.EventChallengeCompleted)).Inc()
		s.audit.LogChallenge(ctx, callerID, domain.AuditActionChallengeFinish, c, nil)
		logger.Info("challenge completed", "challenge_id", c.ID, "winner", winnerOf(c))
		s.notifier.OnChallengeCompleted(c)
	}
	return c, completed, nil
}

// Get возвращает вызов; просроченный pending истекает на месте
func (s *ChallengeService) Get(ctx context.Context, id string) (*domain.Challenge, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, c)
}

// ListPending - pending вызовы участника, без просроченных
func (s *ChallengeService) ListPending(ctx context.Context, participantID string) ([]*domain.Challenge, error) {
	return s.list(ctx, participantID, []domain.ChallengeStatus{domain.ChallengeStatusPending}, maxListLimit, true)
}

// ListActive - принятые, но еще не завершенные вызовы
func (s *ChallengeService) ListActive(ctx context.Context, participantID string) ([]*domain.Challenge, error) {
	return s.list(ctx, participantID, []domain.ChallengeStatus{domain.ChallengeStatusAccepted}, maxListLimit, false)
}

// ListHistory - все вызовы участника, новые первыми
func (s *ChallengeService) ListHistory(ctx context.Context, participantID string, limit int) ([]*domain.Challenge, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.list(ctx, participantID, nil, limit, false)
}

// ExpireDue - один проход sweep, возвращает число истекших вызовов
func (s *ChallengeService) ExpireDue(ctx context.Context, batch int) (int, error) {
	expired, err := s.store.ExpireDue(ctx, s.now(), batch)
	if err != nil {
		return 0, err
	}
	for _, c := range expired {
		s.onExpired(ctx, c)
	}
	return len(expired), nil
}

func (s *ChallengeService) list(ctx context.Context, participantID string, statuses []domain.ChallengeStatus, limit int, dropExpired bool) ([]*domain.Challenge, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, domain.ErrInvalidParticipant
	}
	items, err := s.store.ListByParticipant(ctx, participantID, statuses, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Challenge, 0, len(items))
	for _, c := range items {
		c, err := s.refresh(ctx, c)
		if err != nil {
			return nil, err
		}
		if dropExpired && c.Status == domain.ChallengeStatusExpired {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// refresh переводит просроченный pending в expired условной записью.
// Если запись проиграла гонку (вызов уже принят или истек), перечитывает.
func (s *ChallengeService) refresh(ctx context.Context, c *domain.Challenge) (*domain.Challenge, error) {
	now := s.now()
	if !c.PastExpiry(now) {
		return c, nil
	}
	expired, err := s.store.Update(ctx, c.ID, func(c *domain.Challenge) error {
		return c.Expire(now)
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		return s.store.GetByID(ctx, c.ID)
	}
	if err != nil {
		return nil, err
	}
	s.onExpired(ctx, expired)
	return expired, nil
}

func (s *ChallengeService) onExpired(ctx context.Context, c *domain.Challenge) {
	metrics.ChallengeTransitions.WithLabelValues(string(domain.EventChallengeExpired)).Inc()
	s.audit.LogChallenge(ctx, c.ChallengerID, domain.AuditActionChallengeExpire, c, nil)
	s.notifier.OnChallengeExpired(c)
}

// transition выполняет переход атомарно через store.Update.
// Попытка над просроченным pending заодно фиксирует его истечение.
func (s *ChallengeService) transition(ctx context.Context, op, id string, fn func(c *domain.Challenge, now time.Time) error) (*domain.Challenge, error) {
	now := s.now()
	c, err := s.store.Update(ctx, id, func(c *domain.Challenge) error {
		return fn(c, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrChallengeExpired) {
			current, getErr := s.store.GetByID(ctx, id)
			if getErr == nil {
				_, getErr = s.refresh(ctx, current)
			}
			if getErr != nil {
				logger.Warn("lazy expiry failed", "challenge_id", id, "op", op, "error", getErr)
			}
		}
		return nil, s.reject(op, err)
	}
	return c, nil
}

func (s *ChallengeService) reject(op string, err error) error {
	metrics.ChallengeRejections.WithLabelValues(op, string(domain.KindOf(err))).Inc()
	return err
}

func winnerOf(c *domain.Challenge) string {
	if c.WinnerID == nil {
		return "tie"
	}
	return *c.WinnerID
}

type noopNotifier struct{}

func (noopNotifier) OnChallengeCreated(*domain.Challenge)   {}
func (noopNotifier) OnChallengeAccepted(*domain.Challenge)  {}
func (noopNotifier) OnChallengeDeclined(*domain.Challenge)  {}
func (noopNotifier) OnChallengeCancelled(*domain.Challenge) {}
func (noopNotifier) OnChallengeExpired(*domain.Challenge)   {}
func (noopNotifier) OnChallengeCompleted(*domain.Challenge) {}
