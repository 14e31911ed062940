package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"prebunk/server/internal/api"
	"prebunk/server/internal/config"
	"prebunk/server/internal/content"
	"prebunk/server/internal/i18n"
	"prebunk/server/internal/kv"
	"prebunk/server/internal/orchestrator"
	"prebunk/server/internal/session"
	"prebunk/server/internal/timeline"
)

func main() {
	// 部署差异（端口、存储后端、Redis 密码）用环境变量覆盖，见 config.Load。
	configPath := flag.String("config", "server/configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	kvStore, err := openKV(cfg)
	if err != nil {
		log.Fatalf("open kv store (%s): %v", cfg.Storage.Backend, err)
	}
	defer kvStore.Close()

	library, err := content.Load(cfg.Paths.Content)
	if err != nil {
		log.Fatalf("load content: %v", err)
	}
	bundle, err := i18n.LoadDir(cfg.Paths.Locales, cfg.I18N.DefaultLocale)
	if err != nil {
		log.Fatalf("load locales: %v", err)
	}

	orch := orchestrator.New(session.NewKVStore(kvStore), timeline.NewInMemoryStore(), library, nil, nil)
	orch.SetPacing(cfg.Onboarding.TypingDelay, cfg.Onboarding.AutoCompleteDelay)

	server := api.NewServer(cfg, orch, library, bundle)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("prebunk server listening on %s (storage=%s, questions=%d, locales=%v)",
		cfg.Addr(), cfg.Storage.Backend, library.Len(), bundle.Locales())
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// openKV 按配置选择快照存储后端。
func openKV(cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return kv.NewSQLiteStore(cfg.Storage.SQLitePath)
	case "redis":
		return kv.NewRedisStore(context.Background(), cfg.Storage.Redis.Addr,
			cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.SessionTTL)
	default:
		return kv.NewMemoryStore(), nil
	}
}
