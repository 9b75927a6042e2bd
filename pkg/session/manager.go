package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/metrics"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// ManagerConfig holds settings shared by every session
type ManagerConfig struct {
	Session   Config
	Sinks     []violation.Sink
	Detector  detection.Detector
	RemoteURL string

	// NewNotifier returns the outbound channel for a new session
	NewNotifier func(id string) Notifier

	// OnClose is called after a session's loop has stopped
	OnClose func(id string)
}

// Manager creates, tracks and closes sessions
type Manager struct {
	cfg    ManagerConfig
	ctx    context.Context
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. Sessions stop when ctx is cancelled.
func NewManager(ctx context.Context, cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		ctx:      ctx,
		logger:   log.With("component", "sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a random id
func (m *Manager) Create() *Session {
	id := uuid.NewString()

	opts := Options{
		ID:        id,
		Config:    m.cfg.Session,
		Sinks:     m.cfg.Sinks,
		Detector:  m.cfg.Detector,
		RemoteURL: m.cfg.RemoteURL,
		Logger:    m.logger,
	}
	if m.cfg.NewNotifier != nil {
		opts.Notifier = m.cfg.NewNotifier(id)
	}

	s := New(opts)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	metrics.SessionOpened()
	go func() {
		s.Run(m.ctx)
		m.forget(id)
	}()

	m.logger.Info("session created", "session", id)
	return s
}

// Get looks up a session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns open sessions, oldest first
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops one session
func (m *Manager) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Close()
	m.forget(id)
	return nil
}

// CloseAll stops every session
func (m *Manager) CloseAll() {
	for _, s := range m.List() {
		s.Close()
		m.forget(s.ID())
	}
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	metrics.SessionClosed()
	m.logger.Info("session closed", "session", id)
	if m.cfg.OnClose != nil {
		m.cfg.OnClose(id)
	}
}
