// Package watchdog periodically enforces session expiry while an admin view is mounted.
package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/blogdesk/internal/config"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/notify"
)

const msgExpired = "Session expired. Please log in again."

// SessionSource yields the current session
type SessionSource interface {
	Get() model.Session
}

// Logouter ends the session
type Logouter interface {
	Logout(ctx context.Context, silent bool)
}

// Watchdog checks session expiry on a fixed interval
type Watchdog struct {
	sessions SessionSource
	auth     Logouter
	notify   notify.Notifier
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// Option configures a Watchdog
type Option func(*Watchdog)

// WithInterval sets the check period
func WithInterval(d time.Duration) Option {
	return func(w *Watchdog) { w.interval = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

// WithNotifier sets where the expiry notice goes
func WithNotifier(n notify.Notifier) Option {
	return func(w *Watchdog) { w.notify = n }
}

// New creates a stopped Watchdog
func New(sessions SessionSource, auth Logouter, opts ...Option) *Watchdog {
	w := &Watchdog{
		sessions: sessions,
		auth:     auth,
		notify:   notify.Nop{},
		interval: config.DefaultWatchdogInterval,
		now:      time.Now,
		log:      logger.Named("watchdog"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins checking: once immediately, then every interval. Starting a running watchdog is a no-op.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(w.stopCh, w.done)
	w.log.Debug("Watchdog started", logger.F("interval", w.interval.String()))
}

// Stop ends the checks and waits for an in-progress check to finish. Safe to call repeatedly.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.done
	w.mu.Unlock()

	<-done
	w.log.Debug("Watchdog stopped")
}

// Running reports whether the watchdog is started
func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watchdog) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.Check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-stop:
			return
		}
	}
}

// Check runs one expiry check and reports whether it logged the session out
func (w *Watchdog) Check(ctx context.Context) bool {
	sess := w.sessions.Get()
	if !sess.IsExpired(w.now()) {
		return false
	}

	w.log.Info("Session expired", logger.F("expired_at", sess.ExpiresAt.Format(time.RFC3339)))
	w.notify.Error(msgExpired)
	w.auth.Logout(ctx, true)
	return true
}
