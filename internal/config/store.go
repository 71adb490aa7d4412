package config

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// Watcher is called after a config update is committed.
type Watcher func(newCfg *Config, changed map[string]bool)

// Validator may veto an update by returning an error.
type Validator func(newCfg *Config, changed map[string]bool) error

// Store holds the live config and fans updates out to watchers.
type Store struct {
	v          atomic.Pointer[Config]
	mu         sync.RWMutex
	nextID     int
	watchers   map[int]Watcher
	validators map[int]Validator
}

func NewStore(cfg *Config) *Store {
	s := &Store{watchers: map[int]Watcher{}, validators: map[int]Validator{}}
	s.v.Store(cfg)
	return s
}

func (s *Store) Get() *Config {
	return s.v.Load()
}

// Update commits newCfg without validation and notifies watchers.
func (s *Store) Update(newCfg *Config, changed map[string]bool) {
	s.v.Store(newCfg)
	s.mu.RLock()
	ws := lo.Values(s.watchers)
	s.mu.RUnlock()
	for _, w := range ws {
		w(newCfg, changed)
	}
}

// Watch registers w and returns a function that removes it.
func (s *Store) Watch(w Watcher) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// AddValidator registers a validator. If any validator returns error on update,
// the update is discarded.
func (s *Store) AddValidator(v Validator) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.validators[id] = v
	return func() {
		s.mu.Lock()
		delete(s.validators, id)
		s.mu.Unlock()
	}
}

// UpdateValidated runs validators before committing the config. If any
// validator fails, no change is applied.
func (s *Store) UpdateValidated(newCfg *Config, changed map[string]bool) bool {
	s.mu.RLock()
	vals := lo.Values(s.validators)
	s.mu.RUnlock()
	for _, v := range vals {
		if err := v(newCfg, changed); err != nil {
			configLogger.Sugar().Warnf("config update rejected: %v", err)
			return false
		}
	}
	s.Update(newCfg, changed)
	return true
}

// Sane rejects values the server cannot run with.
func Sane(cfg *Config, _ map[string]bool) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}
	if !lo.Contains([]string{"text", "json"}, cfg.Log.Format) {
		return fmt.Errorf("invalid log format %q", cfg.Log.Format)
	}
	if strings.TrimSpace(cfg.Editor.Root) == "" {
		return fmt.Errorf("editor root must not be empty")
	}
	if cfg.RateLimit.Max < 0 {
		return fmt.Errorf("rate limit max must not be negative")
	}
	return nil
}

func cloneConfig(in *Config) *Config {
	out := *in
	out.JWT.SaveRoles = append([]string(nil), in.JWT.SaveRoles...)
	return &out
}
