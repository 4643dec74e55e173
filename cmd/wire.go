package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yumeka/bili2tg/internal/adapters/bili"
	"github.com/yumeka/bili2tg/internal/adapters/credfile"
	"github.com/yumeka/bili2tg/internal/adapters/ledger/memory"
	"github.com/yumeka/bili2tg/internal/adapters/ledger/postgres"
	tomlledger "github.com/yumeka/bili2tg/internal/adapters/ledger/toml"
	statusadapter "github.com/yumeka/bili2tg/internal/adapters/render/status"
	"github.com/yumeka/bili2tg/internal/adapters/telegram"
	"github.com/yumeka/bili2tg/internal/application"
	"github.com/yumeka/bili2tg/internal/ports"
)

const (
	configDirName   = ".bili2tg"
	defaultInterval = 5 * time.Minute
)

type app struct {
	session *application.SessionService
	sync    *application.SyncService
	gateway ports.AuthGateway
	creds   ports.CredentialStore
	ledger  ports.LedgerStore
	logger  *zap.Logger

	statusRenderer func(statusadapter.Summary) (string, error)
	credentialPath string
	ledgerBackend  string
	watchInterval  time.Duration
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger()
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	client := bili.NewClient(bili.DefaultAPI())
	creds := credfile.NewStore(cfg.GetString("credential.path"))

	backend := cfg.GetString("ledger.driver")
	ledger, err := openLedger(backend, cfg)
	if err != nil {
		return nil, fmt.Errorf("wire ledger store: %w", err)
	}

	sink := telegram.Sink{
		BaseURL: cfg.GetString("telegram.api_url"),
		Token:   cfg.GetString("telegram.token"),
		ChatID:  cfg.GetString("telegram.chat_id"),
	}

	session := application.NewSessionService(client, creds, ports.SystemClock{}, logger)
	sync := application.NewSyncService(session, client, ledger, sink, ports.SystemClock{}, logger)

	return &app{
		session:        session,
		sync:           sync,
		gateway:        client,
		creds:          creds,
		ledger:         ledger,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		credentialPath: cfg.GetString("credential.path"),
		ledgerBackend:  backend,
		watchInterval:  cfg.GetDuration("watch.interval"),
		now:            time.Now,
	}, nil
}

func loadConfig() (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, configDirName)

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(configDir)
	cfg.SetEnvPrefix("BILI2TG")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault("telegram.api_url", "https://api.telegram.org")
	cfg.SetDefault("ledger.driver", "toml")
	cfg.SetDefault("credential.path", filepath.Join(configDir, "credential"))
	cfg.SetDefault("watch.interval", defaultInterval)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}

func openLedger(backend string, cfg *viper.Viper) (ports.LedgerStore, error) {
	switch backend {
	case "toml":
		return tomlledger.NewStore(cfg)
	case "postgres":
		dsn := cfg.GetString("ledger.dsn")
		if dsn == "" {
			return nil, errors.New("ledger.dsn is required for the postgres driver")
		}
		return postgres.Open(dsn)
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", backend)
	}
}

func buildLogger() (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	logCfg.DisableStacktrace = true
	return logCfg.Build()
}
