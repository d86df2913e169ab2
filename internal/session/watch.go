package session

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opsbook/opsbook/internal/constants"
)

// Watch follows changes to the config file made by other processes until ctx
// is done. It uses filesystem notifications on the config directory, since the
// file is replaced on every write, and polls every interval when no watcher
// can be established. A zero interval means constants.SessionPollInterval.
func (s *Session) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = constants.SessionPollInterval
	}

	watcher, err := s.newWatcher()
	if err != nil {
		s.logger.Debug("file watcher unavailable, polling instead", "error", err, "interval", interval)
		go s.poll(ctx, interval)
		return
	}
	go s.watch(ctx, watcher)
}

func (s *Session) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func (s *Session) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		_ = watcher.Close()
	}()
	target := filepath.Clean(s.path)

	// Writers truncate before writing, so reload once events settle.
	settle := time.NewTimer(constants.SessionSettleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-settle.C:
			if err := s.Refresh(); err != nil {
				s.logger.Debug("failed to reload session", "error", err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			settle.Reset(constants.SessionSettleDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Debug("file watcher error", "error", err)
		}
	}
}

func (s *Session) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(); err != nil {
				s.logger.Debug("failed to reload session", "error", err)
			}
		}
	}
}
