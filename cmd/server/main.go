// Package main is the entry point for the configtree editing server
//
//	@title			configtree API
//	@version		1.0
//	@description	Edits schema and config documents through server-side sessions
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in						header
//	@name					Authorization
//
//	@security			BearerAuth
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"configtree/internal/config"
	"configtree/internal/esx"
	"configtree/internal/httpx"
	"configtree/internal/httpx/kit"
	"configtree/internal/logx"
	"configtree/internal/mqx"
	"configtree/internal/redisx"
	"configtree/internal/server"
	"configtree/internal/session"

	_ "configtree/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load config (env first; optional Apollo override)
	cfg, store, apClose, err := config.Load()
	if err != nil {
		panic(err)
	}
	if apClose != nil {
		defer apClose()
	}

	logx.Init(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logx.Sync() }()
	mainLogger := logx.GetScope("main")

	mainLogger.Info("config loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.Server.Addr),
		zap.String("editor.root", cfg.Editor.Root),
		zap.Bool("editor.strict_save", cfg.Editor.StrictSave),
		zap.String("log.level", cfg.Log.Level),
		zap.String("log.format", cfg.Log.Format),
	)

	store.AddValidator(config.Sane)

	// Optional deps: Redis, MQ, ES
	rdb, redisClose, err := redisx.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Warnw("redis init failed; sessions stay in memory", "err", err)
	}
	defer redisClose()

	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, "", cfg.Editor.SessionTTL)
	} else {
		sessions = session.NewMemoryStore(cfg.Editor.SessionTTL)
	}

	var publisher mqx.Publisher
	if cfg.MQ.URL != "" {
		if pub, err := mqx.NewRabbitPublisher(cfg.MQ.URL, cfg.MQ.Exchange); err != nil {
			mainLogger.Sugar().Warnw("mq init failed", "err", err)
		} else {
			publisher = pub
			defer func() { _ = pub.Close() }()
		}
	}

	esClient, esClose, err := esx.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Warnw("es init failed", "err", err)
	}
	defer esClose()

	manager := session.NewManager(sessions, session.Options{Root: cfg.Editor.Root, StrictSave: cfg.Editor.StrictSave})

	app := fiber.New(fiber.Config{ErrorHandler: kit.ErrorHandler()})
	httpx.RegisterCommonMiddlewares(app)
	httpx.Register(app, &httpx.Providers{
		Sessions:   manager,
		Events:     mqx.NewEvents(publisher),
		ES:         esClient,
		RDB:        rdb,
		ESIndex:    func() string { return store.Get().ES.Index },
		JWTSecret:  func() string { return store.Get().JWT.Secret },
		JWTIssuer:  func() string { return store.Get().JWT.Issuer },
		SaveRoles:  cfg.JWT.SaveRoles,
		RateWindow: cfg.RateLimit.Window,
		RateMax:    cfg.RateLimit.Max,
	})

	// Watch for dynamic config changes (Apollo)
	store.Watch(func(newCfg *config.Config, changed map[string]bool) {
		if changed["log.level"] || changed["log.format"] {
			logx.Init(newCfg.Log.Level, newCfg.Log.Format)
			mainLogger.Info("logger reconfigured",
				zap.String("level", newCfg.Log.Level),
				zap.String("format", newCfg.Log.Format),
			)
		}
		if changed["editor.strict_save"] {
			manager.SetStrictSave(newCfg.Editor.StrictSave)
			mainLogger.Info("save gate updated", zap.Bool("strict", newCfg.Editor.StrictSave))
		}
		for _, key := range []string{"server.addr", "editor.root", "editor.session_ttl_min", "redis.addr", "mq.url", "es.addrs", "jwt.save_roles", "rate_limit.window_sec", "rate_limit.max"} {
			if changed[key] {
				mainLogger.Warn("config changed; restart required to take effect", zap.String("key", key))
			}
		}
	})

	// Graceful shutdown
	go func() {
		ln, err := server.GetListener(cfg.Server.Addr)
		if err != nil {
			mainLogger.Sugar().Errorf("listener error: %v", err)
			return
		}
		if err := app.Listener(ln); err != nil {
			mainLogger.Sugar().Infof("fiber exit: %v", err)
		}
	}()
	mainLogger.Sugar().Infof("server started on %s", cfg.Server.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	mainLogger.Sugar().Info("shutting down...")
	_ = app.Shutdown()
}
