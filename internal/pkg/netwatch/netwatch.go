// Package netwatch observes device connectivity. Transitions to online
// are what trigger unconditional queue drains, so watchers only emit on
// state change, never on every probe.
package netwatch

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status is one connectivity observation. Connected means a network
// interface is up; InternetReachable means the probe endpoint answered.
type Status struct {
	Connected         bool
	InternetReachable bool
}

// Online reports whether the device can reach the remote store.
func (s Status) Online() bool {
	return s.Connected && s.InternetReachable
}

// Watcher emits connectivity transitions to subscribers.
type Watcher interface {
	// Current returns the last observed status.
	Current() Status

	// Subscribe registers for transitions and returns the channel and a
	// cleanup function.
	Subscribe() (<-chan Status, func())
}

// ManualWatcher holds a status set by its owner. Used directly in tests
// and embedded by ProbeWatcher for fan-out.
type ManualWatcher struct {
	mu     sync.Mutex
	status Status
	subs   map[chan Status]struct{}
}

func NewManualWatcher(initial Status) *ManualWatcher {
	return &ManualWatcher{
		status: initial,
		subs:   make(map[chan Status]struct{}),
	}
}

func (w *ManualWatcher) Current() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *ManualWatcher) Subscribe() (<-chan Status, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan Status, 4)
	w.subs[ch] = struct{}{}

	cleanup := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
	}
	return ch, cleanup
}

// Set records a new status and notifies subscribers if it changed.
func (w *ManualWatcher) Set(s Status) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s == w.status {
		return
	}
	w.status = s
	for ch := range w.subs {
		select {
		case ch <- s:
		default:
			// Skip if channel is full (non-blocking to prevent deadlock)
		}
	}
}

// ProbeWatcher derives connectivity by periodically issuing a HEAD
// request against a well-known endpoint.
type ProbeWatcher struct {
	*ManualWatcher
	url      string
	interval time.Duration
	client   *http.Client
}

func NewProbeWatcher(url string, interval, timeout time.Duration) *ProbeWatcher {
	return &ProbeWatcher{
		ManualWatcher: NewManualWatcher(Status{}),
		url:           url,
		interval:      interval,
		client:        &http.Client{Timeout: timeout},
	}
}

// Start probes immediately and then on every tick until ctx ends.
func (w *ProbeWatcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.probe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.probe(ctx)
			}
		}
	}()
}

func (w *ProbeWatcher) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.url, nil)
	if err != nil {
		slog.Error("netwatch probe request failed", "url", w.url, "error", err)
		return
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.Set(Status{Connected: false, InternetReachable: false})
		return
	}
	resp.Body.Close()
	w.Set(Status{Connected: true, InternetReachable: true})
}
