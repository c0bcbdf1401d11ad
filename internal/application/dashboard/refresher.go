package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshInterval paces the background refresh loop.
const DefaultRefreshInterval = 30 * time.Second

// Refresher keeps a fixed set of dashboard queries warm. Each tick runs
// a cache-respecting load: a fresh entry costs nothing, an expired one
// is renewed through the stale-while-revalidate path. The single-flight
// guard in the service means a tick that overlaps a user-triggered load
// does no duplicate work.
type Refresher struct {
	service  *Service
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	tracked []Query
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func NewRefresher(service *Service, logger *zap.Logger, interval time.Duration, queries ...Query) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		service:  service,
		logger:   logger,
		interval: interval,
		timeout:  interval,
		tracked:  queries,
	}
}

// Track adds a query to the warm set. Duplicate keys are collapsed.
func (r *Refresher) Track(q Query) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := q.CacheKey()
	for _, t := range r.tracked {
		if t.CacheKey() == key {
			return
		}
	}
	r.tracked = append(r.tracked, q)
}

// Start launches the refresh loop. Calling Start on a running refresher
// is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(r.stopCh, r.doneCh)
	r.logger.Info("dashboard refresher started",
		zap.Duration("interval", r.interval),
		zap.Int("tracked", len(r.tracked)))
}

// Stop halts the loop and waits for the in-progress tick to finish.
// Calling Stop on a stopped refresher is a no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
	r.logger.Info("dashboard refresher stopped")
}

func (r *Refresher) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.tick(stopCh)
		}
	}
}

func (r *Refresher) tick(stopCh chan struct{}) {
	r.mu.Lock()
	queries := make([]Query, len(r.tracked))
	copy(queries, r.tracked)
	r.mu.Unlock()

	for _, q := range queries {
		select {
		case <-stopCh:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if _, err := r.service.Load(ctx, q); err != nil {
			r.logger.Warn("background refresh failed",
				zap.String("key", q.CacheKey()),
				zap.Error(err))
		}
		cancel()
	}
}
