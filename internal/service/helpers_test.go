package service

import (
	"sync"
	"testing"
	"time"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/repository"
)

type recordedEvent struct {
	event       domain.ChallengeEvent
	challengeID string
}

// recordingNotifier запоминает события синхронно
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) add(e domain.ChallengeEvent, c *domain.Challenge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: e, challengeID: c.ID})
}

func (r *recordingNotifier) OnChallengeCreated(c *domain.Challenge) {
	r.add(domain.EventChallengeCreated, c)
}
func (r *recordingNotifier) OnChallengeAccepted(c *domain.Challenge) {
	r.add(domain.EventChallengeAccepted, c)
}
func (r *recordingNotifier) OnChallengeDeclined(c *domain.Challenge) {
	r.add(domain.EventChallengeDeclined, c)
}
func (r *recordingNotifier) OnChallengeCancelled(c *domain.Challenge) {
	r.add(domain.EventChallengeCancelled, c)
}
func (r *recordingNotifier) OnChallengeExpired(c *domain.Challenge) {
	r.add(domain.EventChallengeExpired, c)
}
func (r *recordingNotifier) OnChallengeCompleted(c *domain.Challenge) {
	r.add(domain.EventChallengeCompleted, c)
}

func (r *recordingNotifier) count(e domain.ChallengeEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.event == e {
			n++
		}
	}
	return n
}

// управляемые часы для тестов
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type challengeFixture struct {
	svc          *ChallengeService
	store        *repository.MemoryChallengeRepository
	participants *repository.MemoryParticipantRepository
	audit        *repository.MemoryAuditRepository
	notifier     *recordingNotifier
	clock        *fakeClock
}

func newChallengeFixture(t *testing.T) *challengeFixture {
	t.Helper()
	f := &challengeFixture{
		store:        repository.NewMemoryChallengeRepository(),
		participants: repository.NewMemoryParticipantRepository(),
		audit:        repository.NewMemoryAuditRepository(),
		notifier:     &recordingNotifier{},
		clock:        &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = NewChallengeService(f.store, f.participants, f.notifier, NewAuditService(f.audit), ChallengeOptions{
		TTL:          time.Hour,
		DedupeWindow: 24 * time.Hour,
	})
	f.svc.now = f.clock.Now
	return f
}
