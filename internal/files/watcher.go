package files

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

// Watcher follows the file service's folder update stream while started and
// delivers the changes that add or remove listing entries.
type Watcher struct {
	url        string
	dialer     domain.SubscriberDialer
	clock      clockwork.Clock
	retryDelay time.Duration

	changes chan domain.FileChange

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(url string, dialer domain.SubscriberDialer, clock clockwork.Clock, retryDelay time.Duration) *Watcher {
	return &Watcher{
		url:        url,
		dialer:     dialer,
		clock:      clock,
		retryDelay: retryDelay,
		changes:    make(chan domain.FileChange, 16),
	}
}

// Changes stays open across Start/Stop cycles.
func (w *Watcher) Changes() <-chan domain.FileChange {
	return w.changes
}

// Start connects in the background. It is a no-op while already running.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop disconnects and waits for the background loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		conn, err := w.dialer.Dial(ctx, w.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Debug("Folder update stream unavailable", "error", err, "retry_in", w.retryDelay)
		} else {
			w.follow(ctx, conn)
		}

		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(w.retryDelay):
		}
	}
}

// follow reads one connection until it fails or ctx ends.
func (w *Watcher) follow(ctx context.Context, conn domain.SubscriberConn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		if stop() {
			_ = conn.Close()
		}
	}()

	slog.Debug("Following folder updates", "url", w.url)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("Folder update stream closed", "error", err)
			}
			return
		}

		var change domain.FileChange
		if err := json.Unmarshal(data, &change); err != nil {
			slog.Warn("Dropping folder update", "error", err)
			continue
		}
		if !change.AffectsListing() {
			continue
		}

		select {
		case w.changes <- change:
		case <-ctx.Done():
			return
		}
	}
}
