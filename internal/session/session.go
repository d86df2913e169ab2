// Package session holds the stored API key shared by every command.
// The key lives in the CLI config file; the Session keeps an in-memory copy,
// notifies subscribers when it changes and follows edits made by other processes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/opsbook/opsbook/internal/config"
	"github.com/opsbook/opsbook/internal/constants"
)

// ErrNotAuthenticated is returned by the gate when no API key is stored.
var ErrNotAuthenticated = errors.New("not logged in, run 'opsbook login' or 'opsbook signup' first")

// Listener receives the new API key. An empty key means the session ended.
type Listener func(apiKey string)

// Session is an observable view of the stored API key.
type Session struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	apiKey    string
	listeners map[int]Listener
	nextID    int
}

// Open loads the key stored in the config file at path.
func Open(path string, log *slog.Logger) (*Session, error) {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	return &Session{
		path:      path,
		logger:    log,
		apiKey:    cfg.APIKey,
		listeners: make(map[int]Listener),
	}, nil
}

// Path returns the config file backing the session.
func (s *Session) Path() string {
	return s.path
}

// APIKey returns the current key, or "" when logged out.
// Session satisfies client.KeySource.
func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// Authenticated reports whether a key is stored.
func (s *Session) Authenticated() bool {
	return s.APIKey() != ""
}

// Require is the gate for commands that need a session.
func (s *Session) Require() error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Login persists key and notifies subscribers.
func (s *Session) Login(key string) error {
	if key == "" {
		return errors.New("api key must not be empty")
	}
	return s.store(key)
}

// Logout removes the stored key and notifies subscribers.
func (s *Session) Logout() error {
	return s.store("")
}

func (s *Session) store(key string) error {
	cfg, err := config.LoadFrom(s.path)
	if err != nil {
		return err
	}
	cfg.APIKey = key
	if err = config.SaveTo(s.path, cfg); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	s.set(key)
	return nil
}

// Refresh re-reads the stored key and notifies subscribers if it changed.
func (s *Session) Refresh() error {
	cfg, err := config.LoadFrom(s.path)
	if err != nil {
		return err
	}
	s.set(cfg.APIKey)
	return nil
}

func (s *Session) set(key string) {
	s.mu.Lock()
	if s.apiKey == key {
		s.mu.Unlock()
		return
	}
	s.apiKey = key
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	s.logger.Debug("session changed", "authenticated", key != "", "listeners", len(listeners))
	for _, fn := range listeners {
		fn(key)
	}
}

// Subscribe registers fn for key changes and returns a function removing it.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, constants.SessionCtxKey, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(constants.SessionCtxKey).(*Session); ok {
		return s
	}
	return nil
}
