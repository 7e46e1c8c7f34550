package service

import (
	"context"
	"sync"
	"time"

	"challenge_arena/internal/logger"
	"challenge_arena/internal/metrics"
)

const sweepBatch = 500

// Expirer - один проход истечения
type Expirer interface {
	ExpireDue(ctx context.Context, batch int) (int, error)
}

// ExpirySweeper периодически переводит просроченные pending вызовы в expired.
// Чтения тоже проверяют срок, так что sweep нужен для уведомлений и чистоты списков.
type ExpirySweeper struct {
	expirer  Expirer
	interval time.Duration
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	running  bool
	stopped  bool
}

func NewExpirySweeper(expirer Expirer, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		expirer:  expirer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start блокирует до Stop, запускать в горутине
func (w *ExpirySweeper) Start() {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()
	defer close(w.done)

	log := logger.With("component", "expiry_sweeper")
	log.Info("запуск expiry sweeper", "interval", w.interval)

	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			log.Info("остановка expiry sweeper")
			return
		}
	}
}

// Stop останавливает sweeper и ждет завершения текущего прохода.
// После Stop повторный Start ничего не делает.
func (w *ExpirySweeper) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.stop)
	running := w.running
	w.mu.Unlock()
	if running {
		<-w.done
	}
}

// sweep разбирает просроченные пачками, пока пачка полная
func (w *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	total := 0
	for {
		n, err := w.expirer.ExpireDue(ctx, sweepBatch)
		if err != nil {
			logger.Error("expiry sweep failed", "error", err, "expired_so_far", total)
			return
		}
		total += n
		if n < sweepBatch {
			break
		}
	}
	if total > 0 {
		metrics.ExpiredBySweep.Add(float64(total))
		logger.Info("expired pending challenges", "count", total)
	}
}
