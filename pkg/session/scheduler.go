package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshInterval is how often an authenticated session renews
// its token proactively, ahead of any reactive 401-driven refresh.
const DefaultRefreshInterval = 20 * time.Minute

// Scheduler keeps an authenticated session alive by invoking Refresh
// on a fixed interval. It follows the manager's state: it starts when
// the session becomes authenticated and stops when it no longer is.
// Start and Stop are idempotent; entering the authenticated state
// twice never produces two timers.
type Scheduler struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler bound to the manager's lifecycle.
// An interval of 0 means DefaultRefreshInterval.
func NewScheduler(manager *Manager, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
	manager.Watch(func(st State) {
		if st.Authenticated {
			s.Start()
		} else {
			s.Stop()
		}
	})
	return s
}

// Start launches the refresh loop. A no-op while a loop is running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// Stop cancels the refresh loop. It does not wait for an in-flight
// refresh to finish: Stop is invoked from the manager's watcher, which
// can fire on the loop's own goroutine when a refresh fails.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.manager.State()
			if !st.Authenticated {
				return
			}
			if exp, ok := TokenExpiry(st.Token); ok {
				s.logger.Debug("proactive token refresh", "expires_at", exp)
			}
			if !s.manager.Refresh(ctx) {
				// Refresh converged the session to unauthenticated;
				// the watcher has already cancelled ctx.
				return
			}
		}
	}
}
