// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	vpolog "github.com/vpoeng/vpo/internal/log"
)

// Loader holds an atomically-swappable Policy loaded from a file on disk,
// with optional fsnotify-driven hot reload (§4.1 is silent on reload, but
// a long-lived worker process needs one; modeled on the ambient config
// reload discipline: validate before swap, never apply a broken policy).
type Loader struct {
	path    string
	current atomic.Pointer[Policy]
	logger  zerolog.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching bool

	listenersMu sync.RWMutex
	listeners   []chan<- *Policy
}

// NewLoader loads path once and returns a Loader wrapping the result.
func NewLoader(path string) (*Loader, []UnknownFieldWarning, error) {
	l := &Loader{path: path, logger: vpolog.WithComponent("policy")}
	pol, warnings, err := l.load()
	if err != nil {
		return nil, nil, err
	}
	l.current.Store(pol)
	return l, warnings, nil
}

func (l *Loader) load() (*Policy, []UnknownFieldWarning, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("policy: read %s: %w", l.path, err)
	}
	return LoadYAML(data)
}

// Current returns the most recently loaded, validated Policy.
func (l *Loader) Current() *Policy {
	return l.current.Load()
}

// Reload re-reads and re-validates the policy file. On failure the
// previously loaded Policy remains current — an invalid edit never
// interrupts an in-flight job.
func (l *Loader) Reload(_ context.Context) ([]UnknownFieldWarning, error) {
	pol, warnings, err := l.load()
	if err != nil {
		l.logger.Error().Err(err).Str("event", "policy.reload_failed").Msg("failed to reload policy")
		return nil, err
	}
	l.current.Store(pol)
	l.logger.Info().Str("event", "policy.reload_success").Int("schema_version", pol.SchemaVersion).Msg("policy reloaded")
	l.notify(pol)
	return warnings, nil
}

// Watch starts an fsnotify watch on the policy file's directory and
// reloads (debounced) on write/create/rename events, until ctx is done.
func (l *Loader) Watch(ctx context.Context) error {
	l.mu.Lock()
	if l.watching {
		l.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("policy: create watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		l.mu.Unlock()
		return fmt.Errorf("policy: watch dir %s: %w", dir, err)
	}
	l.watcher = watcher
	l.watching = true
	l.mu.Unlock()

	go l.watchLoop(ctx)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context) {
	fileName := filepath.Base(l.path)
	var debounce *time.Timer
	const debounceDuration = 300 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != fileName {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, func() {
				if _, err := l.Reload(ctx); err != nil {
					l.logger.Error().Err(err).Str("event", "policy.watch_reload_failed").Msg("policy watch reload failed")
				}
			})
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Str("event", "policy.watch_error").Msg("policy watcher error")
		}
	}
}

// Subscribe registers ch to receive the new Policy after every successful
// reload. Sends are non-blocking; a full channel drops the notification.
func (l *Loader) Subscribe(ch chan<- *Policy) {
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()
	l.listeners = append(l.listeners, ch)
}

func (l *Loader) notify(pol *Policy) {
	l.listenersMu.RLock()
	defer l.listenersMu.RUnlock()
	for _, ch := range l.listeners {
		select {
		case ch <- pol:
		default:
			l.logger.Warn().Str("event", "policy.listener_skip").Msg("skipped notifying policy listener (channel full)")
		}
	}
}
