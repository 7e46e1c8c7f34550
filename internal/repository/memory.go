package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"challenge_arena/internal/domain"
)

// In-memory реализации хранилищ для STORE_BACKEND=memory и тестов.
// Один мьютекс на хранилище дает ту же атомарность чтение-изменение-запись,
// что и блокировки строк в Postgres, но только в пределах процесса.

type MemoryChallengeRepository struct {
	mu         sync.Mutex
	challenges map[string]*domain.Challenge
}

func NewMemoryChallengeRepository() *MemoryChallengeRepository {
	return &MemoryChallengeRepository{challenges: make(map[string]*domain.Challenge)}
}

func (r *MemoryChallengeRepository) Create(_ context.Context, c *domain.Challenge, window time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.challenges[c.ID]; ok {
		return domain.ErrDuplicateChallenge
	}
	for _, existing := range r.challenges {
		if existing.PairKey == c.PairKey && existing.BlocksPair(c.CreatedAt, window) {
			return domain.ErrDuplicateChallenge
		}
	}
	r.challenges[c.ID] = c.Clone()
	return nil
}

func (r *MemoryChallengeRepository) GetByID(_ context.Context, id string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return c.Clone(), nil
}

func (r *MemoryChallengeRepository) Update(_ context.Context, id string, fn func(c *domain.Challenge) error) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	c := stored.Clone()
	if err := fn(c); err != nil {
		return nil, err
	}
	r.challenges[id] = c.Clone()
	return c, nil
}

func (r *MemoryChallengeRepository) ListByParticipant(_ context.Context, participantID string, statuses []domain.ChallengeStatus, limit int) ([]*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Challenge
	for _, c := range r.challenges {
		if !c.IsParticipant(participantID) || !statusIn(c.Status, statuses) {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryChallengeRepository) ExpireDue(_ context.Context, now time.Time, limit int) ([]*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Challenge
	for _, c := range r.challenges {
		if limit > 0 && len(out) >= limit {
			break
		}
		if err := c.Expire(now); err != nil {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

func statusIn(s domain.ChallengeStatus, statuses []domain.ChallengeStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

type MemoryParticipantRepository struct {
	mu           sync.RWMutex
	participants map[string]*domain.Participant
}

func NewMemoryParticipantRepository() *MemoryParticipantRepository {
	return &MemoryParticipantRepository{participants: make(map[string]*domain.Participant)}
}

func (r *MemoryParticipantRepository) GetByID(_ context.Context, id string) (*domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryParticipantRepository) ResolveHandle(_ context.Context, handle string) (*domain.Participant, error) {
	handle = NormalizeHandle(handle)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if handle == "" {
		return nil, domain.ErrParticipantNotFound
	}
	for _, p := range r.participants {
		if NormalizeHandle(p.Handle) == handle {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

func (r *MemoryParticipantRepository) Upsert(_ context.Context, p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.participants[p.ID]; ok {
		if p.WalletAddress == "" {
			p.WalletAddress = existing.WalletAddress
		}
		if p.TgID == 0 {
			p.TgID = existing.TgID
		}
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	r.participants[p.ID] = &cp
	return nil
}

type MemoryEndpointRepository struct {
	mu        sync.RWMutex
	nextID    int64
	endpoints map[string][]domain.NotificationEndpoint
}

func NewMemoryEndpointRepository() *MemoryEndpointRepository {
	return &MemoryEndpointRepository{endpoints: make(map[string][]domain.NotificationEndpoint)}
}

func (r *MemoryEndpointRepository) ListByParticipant(_ context.Context, participantID string) ([]domain.NotificationEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.NotificationEndpoint(nil), r.endpoints[participantID]...), nil
}

func (r *MemoryEndpointRepository) Add(_ context.Context, e *domain.NotificationEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.endpoints[e.ParticipantID] {
		if existing.Kind == e.Kind && existing.Target == e.Target {
			*e = existing
			return nil
		}
	}
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now().UTC()
	r.endpoints[e.ParticipantID] = append(r.endpoints[e.ParticipantID], *e)
	return nil
}

type MemoryAuditRepository struct {
	mu     sync.Mutex
	nextID int64
	logs   []*domain.AuditLog
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	log.ID = r.nextID
	log.CreatedAt = time.Now().UTC()
	cp := *log
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *MemoryAuditRepository) GetByChallenge(_ context.Context, challengeID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for _, l := range r.logs {
		if l.ChallengeID != challengeID {
			continue
		}
		cp := *l
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryAuditRepository) GetByParticipant(_ context.Context, participantID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].ParticipantID != participantID {
			continue
		}
		cp := *r.logs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
