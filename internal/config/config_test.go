package config

import (
	"testing"
	"time"
)

func TestGetIntBool(t *testing.T) {
	t.Setenv("X_INT", "42")
	if v := getInt("X_INT", 1); v != 42 {
		t.Fatalf("want 42, got %d", v)
	}
	t.Setenv("X_INT_BAD", "forty")
	if v := getInt("X_INT_BAD", 1); v != 1 {
		t.Fatalf("want default 1, got %d", v)
	}

	t.Setenv("X_BOOL_T", "true")
	t.Setenv("X_BOOL_F", "false")
	if !getBool("X_BOOL_T", false) {
		t.Fatalf("want true")
	}
	if getBool("X_BOOL_F", true) {
		t.Fatalf("want false")
	}

	t.Setenv("X_LIST", " editor, ,admin ")
	if got := getList("X_LIST"); len(got) != 2 || got[0] != "editor" || got[1] != "admin" {
		t.Fatalf("unexpected list: %q", got)
	}
	if got := getList("X_LIST_UNSET"); len(got) != 0 {
		t.Fatalf("want empty list, got %q", got)
	}
}

func TestLoad_EditorDefaultsAndEnv(t *testing.T) {
	t.Setenv("APOLLO_ENABLE", "false")
	t.Setenv("EDITOR_ROOT", "/data/docs")
	t.Setenv("EDITOR_STRICT_SAVE", "true")
	t.Setenv("SESSION_TTL_MIN", "5")

	cfg, store, closer, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if closer != nil {
		t.Fatalf("no apollo closer expected")
	}
	if store.Get() != cfg {
		t.Fatalf("store must hold the loaded config")
	}
	if cfg.Editor.Root != "/data/docs" || !cfg.Editor.StrictSave || cfg.Editor.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected editor config: %+v", cfg.Editor)
	}
	if cfg.ES.Index != "schema-items" || cfg.MQ.Exchange != "configtree" {
		t.Fatalf("unexpected defaults: es=%q mq=%q", cfg.ES.Index, cfg.MQ.Exchange)
	}
}

func TestApplyOverrides(t *testing.T) {
	values := map[string]string{
		"log.level":             "debug",
		"editor.strict_save":    "true",
		"redis.db":              "3",
		"redis.password":        "",
		"server.addr":           "",
		"rate_limit.window_sec": "30",
		"es.index":              "items-v2",
		"jwt.save_roles":        "editor,admin",
	}
	lookup := func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Redis.Password = "secret"

	applyOverrides(lookup, cfg)

	if cfg.Log.Level != "debug" || !cfg.Editor.StrictSave || cfg.Redis.DB != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Redis.Password != "" {
		t.Fatalf("empty password override must clear the value")
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("empty addr override must be ignored")
	}
	if len(cfg.JWT.SaveRoles) != 2 || cfg.JWT.SaveRoles[1] != "admin" {
		t.Fatalf("unexpected save roles: %q", cfg.JWT.SaveRoles)
	}
	if cfg.RateLimit.Window != 30*time.Second || cfg.ES.Index != "items-v2" {
		t.Fatalf("unexpected: window=%v index=%q", cfg.RateLimit.Window, cfg.ES.Index)
	}
}

func TestStore_ValidatorVetoesAndWatchersFire(t *testing.T) {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Editor.Root = "."
	s := NewStore(cfg)
	s.AddValidator(Sane)

	var seen []map[string]bool
	stop := s.Watch(func(_ *Config, changed map[string]bool) { seen = append(seen, changed) })

	bad := cloneConfig(cfg)
	bad.Log.Level = "loud"
	if s.UpdateValidated(bad, map[string]bool{"log.level": true}) {
		t.Fatalf("invalid level must be rejected")
	}
	if s.Get().Log.Level != "info" || len(seen) != 0 {
		t.Fatalf("rejected update leaked")
	}

	good := cloneConfig(cfg)
	good.Editor.StrictSave = true
	if !s.UpdateValidated(good, map[string]bool{"editor.strict_save": true}) {
		t.Fatalf("valid update rejected")
	}
	if !s.Get().Editor.StrictSave || len(seen) != 1 || !seen[0]["editor.strict_save"] {
		t.Fatalf("watcher not notified: %v", seen)
	}

	stop()
	s.Update(cloneConfig(good), map[string]bool{"x": true})
	if len(seen) != 1 {
		t.Fatalf("removed watcher still called")
	}
}
