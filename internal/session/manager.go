package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure a Manager.
type Options struct {
	// Root is the directory document file names are resolved against.
	Root string
	// StrictSave gates saves on full validation, items included.
	StrictSave bool
}

// Manager creates sessions and serializes access to each of them.
type Manager struct {
	store  Store
	root   string
	strict atomic.Bool

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is held in Manager.locks only while some caller holds or waits
// on it.
type sessionLock struct {
	sync.Mutex
	refs int
}

func NewManager(store Store, opts Options) *Manager {
	m := &Manager{store: store, root: opts.Root, locks: map[string]*sessionLock{}}
	m.strict.Store(opts.StrictSave)
	return m
}

// SetStrictSave switches the save gate at runtime.
func (m *Manager) SetStrictSave(v bool) { m.strict.Store(v) }

// StrictSave reports the current save gate.
func (m *Manager) StrictSave() bool { return m.strict.Load() }

// Create starts an empty session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s := New(uuid.NewString(), m.root)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	sessionLogger.Info("session created", zap.String("session", s.ID))
	return s, nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.bind(m.root, m.strict.Load())
	return s, nil
}

// Delete discards the session and any unsaved edits in it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	defer m.acquire(id)()
	return m.store.Delete(ctx, id)
}

// With runs fn against the session under its lock. The session is written
// back only when fn succeeds, so a failed operation leaves no partial edits.
func (m *Manager) With(ctx context.Context, id string, fn func(*Session) error) error {
	defer m.acquire(id)()

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return err
	}
	s.bind(m.root, m.strict.Load())
	if err := fn(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	return m.store.Save(ctx, s)
}

// acquire locks id and returns the matching release. The entry is dropped
// once the last holder releases it, so unknown and expired ids leave
// nothing behind.
func (m *Manager) acquire(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
