package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/logger"
	"challenge_arena/internal/metrics"
)

// Message - полезная нагрузка уведомления получателю
type Message struct {
	Event     domain.ChallengeEvent `json:"event"`
	Recipient string                `json:"recipient"`
	Challenge *domain.Challenge     `json:"challenge"`
	Text      string                `json:"text"`
	SentAt    time.Time             `json:"sentAt"`
}

// Channel доставляет сообщение на один адрес
type Channel interface {
	Kind() domain.EndpointKind
	Deliver(ctx context.Context, target string, msg Message) error
}

// ErrSkipped - канал не смог доставить по не зависящей от него причине
// (например, нет живого соединения). Не считается ошибкой доставки.
var ErrSkipped = errors.New("delivery skipped")

// EndpointStore - сохраненные адреса участника
type EndpointStore interface {
	ListByParticipant(ctx context.Context, participantID string) ([]domain.NotificationEndpoint, error)
}

// Notifier рассылает события вызовов асинхронно. Переход вызова никогда
// не ждет доставку и не падает из-за нее.
type Notifier struct {
	endpoints EndpointStore
	channels  map[domain.EndpointKind]Channel
	timeout   time.Duration
	now       func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(endpoints EndpointStore, timeout time.Duration, channels ...Channel) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	n := &Notifier{
		endpoints: endpoints,
		channels:  make(map[domain.EndpointKind]Channel, len(channels)),
		timeout:   timeout,
		now:       time.Now,
	}
	for _, ch := range channels {
		if ch != nil {
			n.channels[ch.Kind()] = ch
		}
	}
	return n
}

// OnChallengeCreated уведомляет оппонента
func (n *Notifier) OnChallengeCreated(c *domain.Challenge) {
	n.dispatch(domain.EventChallengeCreated, c, c.OpponentID)
}

// OnChallengeAccepted уведомляет автора вызова
func (n *Notifier) OnChallengeAccepted(c *domain.Challenge) {
	n.dispatch(domain.EventChallengeAccepted, c, c.ChallengerID)
}

// OnChallengeCompleted уведомляет обе стороны
func (n *Notifier) OnChallengeCompleted(c *domain.Challenge) {
	n.dispatch(domain.EventChallengeCompleted, c, c.ChallengerID, c.OpponentID)
}

func (n *Notifier) OnChallengeDeclined(c *domain.Challenge) {
	n.dispatch(domain.EventChallengeDeclined, c, c.ChallengerID)
}

func (n *Notifier) OnChallengeCancelled(c *domain.Challenge) {
	n.dispatch(domain.EventChallengeCancelled, c, c.OpponentID)
}

func (n *Notifier) OnChallengeExpired(c *domain.Challenge) {
	n.dispatch(domain.EventChallengeExpired, c, c.ChallengerID)
}

// Close перестает принимать события и ждет уже запущенные рассылки
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) dispatch(event domain.ChallengeEvent, c *domain.Challenge, recipients ...string) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		logger.Warn("notifier closed, event dropped", "event", event, "challenge_id", c.ID)
		return
	}
	n.wg.Add(len(recipients))
	n.mu.Unlock()

	snapshot := c.Clone()
	for _, r := range recipients {
		go func(recipient string) {
			defer n.wg.Done()
			n.deliver(event, snapshot, recipient)
		}(r)
	}
}

// deliver шлет на каждый адрес получателя в своей горутине и со своим таймаутом
func (n *Notifier) deliver(event domain.ChallengeEvent, c *domain.Challenge, recipient string) {
	log := logger.With("component", "notifier", "event", event, "challenge_id", c.ID, "recipient", recipient)

	var endpoints []domain.NotificationEndpoint
	if n.endpoints != nil {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		stored, err := n.endpoints.ListByParticipant(ctx, recipient)
		cancel()
		if err != nil {
			log.Error("failed to load notification endpoints", "error", err)
		}
		endpoints = stored
	}
	// живые websocket соединения адресуются по id участника
	if _, ok := n.channels[domain.EndpointWS]; ok {
		endpoints = append(endpoints, domain.NotificationEndpoint{
			ParticipantID: recipient,
			Kind:          domain.EndpointWS,
			Target:        recipient,
		})
	}

	msg := Message{
		Event:     event,
		Recipient: recipient,
		Challenge: c,
		Text:      Text(event, c, recipient),
		SentAt:    n.now().UTC(),
	}

	var wg sync.WaitGroup
	for _, e := range endpoints {
		ch, ok := n.channels[e.Kind]
		if !ok {
			metrics.NotificationDeliveries.WithLabelValues(string(e.Kind), "unsupported").Inc()
			continue
		}
		wg.Add(1)
		go func(ch Channel, e domain.NotificationEndpoint) {
			defer wg.Done()
			n.deliverOne(log, ch, e, msg)
		}(ch, e)
	}
	wg.Wait()
}

func (n *Notifier) deliverOne(log *slog.Logger, ch Channel, e domain.NotificationEndpoint, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	err := ch.Deliver(ctx, e.Target, msg)
	switch {
	case err == nil:
		metrics.NotificationDeliveries.WithLabelValues(string(e.Kind), "ok").Inc()
	case errors.Is(err, ErrSkipped):
		metrics.NotificationDeliveries.WithLabelValues(string(e.Kind), "skipped").Inc()
	default:
		metrics.NotificationDeliveries.WithLabelValues(string(e.Kind), "failed").Inc()
		log.Warn("notification delivery failed", "channel", e.Kind, "endpoint_id", e.ID, "error", err)
	}
}
