package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"configtree/internal/model"
)

// Store persists sessions between requests. Load returns a private copy;
// changes become visible only after Save.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process. Idle sessions expire after ttl.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, sessions: map[string]*Session{}, now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// RedisStore keeps JSON snapshots of sessions in Redis with a sliding TTL so
// several server instances can share them.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "configtree:session:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return decodeSnapshot(raw)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(s.ID), raw, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.key(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// The attached schema of a config is not part of its document, so snapshots
// carry it alongside.
type configSnapshot struct {
	Working        *model.Config `json:"working,omitempty"`
	WorkingSchema  *model.Schema `json:"working_schema,omitempty"`
	Baseline       *model.Config `json:"baseline,omitempty"`
	BaselineSchema *model.Schema `json:"baseline_schema,omitempty"`
	File           string        `json:"file,omitempty"`
	Path           string        `json:"path,omitempty"`
}

type schemaSnapshot struct {
	Working       *model.Schema `json:"working,omitempty"`
	Baseline      *model.Schema `json:"baseline,omitempty"`
	File          string        `json:"file,omitempty"`
	Path          string        `json:"path,omitempty"`
	ContentEdited bool          `json:"content_edited,omitempty"`
}

type snapshot struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Schema    schemaSnapshot `json:"schema"`
	Config    configSnapshot `json:"config"`
}

func encodeSnapshot(s *Session) ([]byte, error) {
	snap := snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Schema:    schemaSnapshot(s.Schema),
		Config: configSnapshot{
			Working:  s.Config.Working,
			Baseline: s.Config.Baseline,
			File:     s.Config.File,
			Path:     s.Config.Path,
		},
	}
	if s.Config.Working != nil {
		snap.Config.WorkingSchema = s.Config.Working.Schema()
	}
	if s.Config.Baseline != nil {
		snap.Config.BaselineSchema = s.Config.Baseline.Schema()
	}
	return json.Marshal(snap)
}

func decodeSnapshot(raw []byte) (*Session, error) {
	var snap snapshot
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if snap.Config.Working != nil {
		snap.Config.Working.AttachSchema(snap.Config.WorkingSchema)
	}
	if snap.Config.Baseline != nil {
		snap.Config.Baseline.AttachSchema(snap.Config.BaselineSchema)
	}
	return &Session{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
		Schema:    SchemaDoc(snap.Schema),
		Config: ConfigDoc{
			Working:  snap.Config.Working,
			Baseline: snap.Config.Baseline,
			File:     snap.Config.File,
			Path:     snap.Config.Path,
		},
	}, nil
}
