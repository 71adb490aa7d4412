package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"configtree/internal/logx"
)

var configLogger = logx.GetScope("config")

// Config holds the application configuration
type Config struct {
	AppEnv string
	Server struct {
		Addr string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text, json
	}
	Editor struct {
		Root       string // directory document file names resolve into
		StrictSave bool   // gate saves on item and group errors too
		SessionTTL time.Duration
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	MQ struct {
		URL      string // RabbitMQ URL
		Exchange string
	}
	ES struct {
		Addrs    string // comma separated
		Username string
		Password string
		Index    string
	}
	JWT struct {
		Secret    string
		Issuer    string
		SaveRoles []string
	}
	RateLimit struct {
		Window time.Duration
		Max    int
	}
	Apollo struct {
		Enable    bool
		AppID     string
		Cluster   string
		Namespace string
		Addrs     string
		AccessKey string
	}
}

// Load loads config from env, and if enabled, overrides with Apollo values.
// Returns config, its store, an optional apollo closer, and error.
func Load() (*Config, *Store, func(), error) {
	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Server.Addr = getEnv("SERVER_ADDR", ":8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "text")

	// Editor
	cfg.Editor.Root = getEnv("EDITOR_ROOT", ".")
	cfg.Editor.StrictSave = getBool("EDITOR_STRICT_SAVE", false)
	cfg.Editor.SessionTTL = time.Duration(getInt("SESSION_TTL_MIN", 120)) * time.Minute

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	// RabbitMQ
	cfg.MQ.URL = getEnv("RABBITMQ_URL", "")
	cfg.MQ.Exchange = getEnv("MQ_EXCHANGE", "configtree")

	// Elasticsearch
	cfg.ES.Addrs = getEnv("ES_ADDRS", "")
	cfg.ES.Username = getEnv("ES_USERNAME", "")
	cfg.ES.Password = getEnv("ES_PASSWORD", "")
	cfg.ES.Index = getEnv("ES_INDEX", "schema-items")

	cfg.JWT.Secret = getEnv("JWT_SECRET", "")
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", "")
	cfg.JWT.SaveRoles = getList("JWT_SAVE_ROLES")

	cfg.RateLimit.Window = time.Duration(getInt("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second
	cfg.RateLimit.Max = getInt("RATE_LIMIT_MAX", 300)

	cfg.Apollo.Enable = getBool("APOLLO_ENABLE", false)
	cfg.Apollo.AppID = getEnv("APOLLO_APP_ID", "")
	cfg.Apollo.Cluster = getEnv("APOLLO_CLUSTER", "default")
	cfg.Apollo.Namespace = getEnv("APOLLO_NAMESPACE", "application")
	cfg.Apollo.Addrs = getEnv("APOLLO_ADDRS", "")
	cfg.Apollo.AccessKey = getEnv("APOLLO_ACCESS_KEY", "")

	store := NewStore(cfg)

	if cfg.Apollo.Enable {
		closer, err := overrideFromApollo(cfg, store)
		if err != nil {
			configLogger.Sugar().Errorf("apollo override failed: %v", err)
			return cfg, store, closer, err
		}
		return cfg, store, closer, nil
	}

	return cfg, store, nil, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getList(key string) []string {
	parts := strings.Split(os.Getenv(key), ",")
	return lo.Compact(lo.Map(parts, func(p string, _ int) string { return strings.TrimSpace(p) }))
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
