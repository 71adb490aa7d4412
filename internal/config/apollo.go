package config

import (
	"strconv"
	"strings"
	"time"

	agollo "github.com/apolloconfig/agollo/v4"
	apconf "github.com/apolloconfig/agollo/v4/env/config"
	"github.com/apolloconfig/agollo/v4/storage"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// overrideFromApollo starts the Apollo client and overrides config values if present.
// Returns a closer to stop the Apollo client.
func overrideFromApollo(cfg *Config, store *Store) (func(), error) {
	if cfg.Apollo.Addrs == "" || cfg.Apollo.AppID == "" {
		configLogger.Warn("apollo: missing APOLLO_ADDRS or APOLLO_APP_ID; skip")
		return nil, nil
	}

	ns := cfg.Apollo.Namespace
	if ns == "" {
		ns = "application"
	}

	appCfg := &apconf.AppConfig{
		AppID:         cfg.Apollo.AppID,
		Cluster:       cfg.Apollo.Cluster,
		NamespaceName: ns,
		IP:            cfg.Apollo.Addrs,
		Secret:        cfg.Apollo.AccessKey,
	}

	client, err := agollo.StartWithConfig(func() (*apconf.AppConfig, error) { return appCfg, nil })
	if err != nil {
		return nil, err
	}

	applyOverrides(cacheLookup(client, ns), cfg)
	_ = store.UpdateValidated(cfg, map[string]bool{"apollo.init": true})

	client.AddChangeListener(&changeListener{ns: ns, client: client, store: store})

	// agollo v4 has no public Stop.
	closer := func() {}
	return closer, nil
}

type lookupFunc func(key string) (string, bool)

func cacheLookup(client agollo.Client, namespace string) lookupFunc {
	return func(key string) (string, bool) {
		cache := client.GetConfigCache(namespace)
		if cache == nil {
			return "", false
		}
		v, err := cache.Get(key)
		if err != nil {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
}

// override binds one Apollo key to a config field. Empty values are ignored
// unless allowEmpty is set.
type override struct {
	key        string
	allowEmpty bool
	apply      func(cfg *Config, v string)
}

func str(dst func(*Config) *string) func(*Config, string) {
	return func(cfg *Config, v string) { *dst(cfg) = v }
}

func list(dst func(*Config) *[]string) func(*Config, string) {
	return func(cfg *Config, v string) {
		parts := strings.Split(v, ",")
		*dst(cfg) = lo.Compact(lo.Map(parts, func(p string, _ int) string { return strings.TrimSpace(p) }))
	}
}

func num(dst func(*Config) *int) func(*Config, string) {
	return func(cfg *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*dst(cfg) = n
		}
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) {
	return func(cfg *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst(cfg) = b
		}
	}
}

func duration(dst func(*Config) *time.Duration, unit time.Duration) func(*Config, string) {
	return func(cfg *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst(cfg) = time.Duration(n) * unit
		}
	}
}

var overrides = []override{
	{key: "app.env", apply: str(func(c *Config) *string { return &c.AppEnv })},
	{key: "server.addr", apply: str(func(c *Config) *string { return &c.Server.Addr })},
	{key: "log.level", apply: str(func(c *Config) *string { return &c.Log.Level })},
	{key: "log.format", apply: str(func(c *Config) *string { return &c.Log.Format })},
	{key: "editor.root", apply: str(func(c *Config) *string { return &c.Editor.Root })},
	{key: "editor.strict_save", apply: boolean(func(c *Config) *bool { return &c.Editor.StrictSave })},
	{key: "editor.session_ttl_min", apply: duration(func(c *Config) *time.Duration { return &c.Editor.SessionTTL }, time.Minute)},
	{key: "redis.addr", apply: str(func(c *Config) *string { return &c.Redis.Addr })},
	{key: "redis.password", allowEmpty: true, apply: str(func(c *Config) *string { return &c.Redis.Password })},
	{key: "redis.db", apply: num(func(c *Config) *int { return &c.Redis.DB })},
	{key: "mq.url", apply: str(func(c *Config) *string { return &c.MQ.URL })},
	{key: "mq.exchange", apply: str(func(c *Config) *string { return &c.MQ.Exchange })},
	{key: "es.addrs", apply: str(func(c *Config) *string { return &c.ES.Addrs })},
	{key: "es.username", allowEmpty: true, apply: str(func(c *Config) *string { return &c.ES.Username })},
	{key: "es.password", allowEmpty: true, apply: str(func(c *Config) *string { return &c.ES.Password })},
	{key: "es.index", apply: str(func(c *Config) *string { return &c.ES.Index })},
	{key: "jwt.secret", allowEmpty: true, apply: str(func(c *Config) *string { return &c.JWT.Secret })},
	{key: "jwt.issuer", allowEmpty: true, apply: str(func(c *Config) *string { return &c.JWT.Issuer })},
	{key: "jwt.save_roles", allowEmpty: true, apply: list(func(c *Config) *[]string { return &c.JWT.SaveRoles })},
	{key: "rate_limit.window_sec", apply: duration(func(c *Config) *time.Duration { return &c.RateLimit.Window }, time.Second)},
	{key: "rate_limit.max", apply: num(func(c *Config) *int { return &c.RateLimit.Max })},
}

func applyOverrides(lookup lookupFunc, cfg *Config) {
	for _, o := range overrides {
		v, ok := lookup(o.key)
		if !ok || (v == "" && !o.allowEmpty) {
			continue
		}
		o.apply(cfg, v)
	}
}

type changeListener struct {
	ns     string
	client agollo.Client
	store  *Store
}

func (c *changeListener) OnChange(e *storage.ChangeEvent) {
	configLogger.Info("apollo change", zap.String("namespace", e.Namespace), zap.Int("changes", len(e.Changes)))
	next := cloneConfig(c.store.Get())
	applyOverrides(cacheLookup(c.client, c.ns), next)
	changed := map[string]bool{}
	for k := range e.Changes {
		changed[k] = true
	}
	if !c.store.UpdateValidated(next, changed) {
		configLogger.Warn("apollo change rejected", zap.String("namespace", e.Namespace))
	}
}

func (c *changeListener) OnNewestChange(e *storage.FullChangeEvent) {
	configLogger.Debug("apollo namespace refreshed", zap.String("namespace", e.Namespace))
}
