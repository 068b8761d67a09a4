package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/udisondev/wowauth/internal/bnet"
	"github.com/udisondev/wowauth/internal/config"
	"github.com/udisondev/wowauth/internal/db"
	"github.com/udisondev/wowauth/internal/db2"
	"github.com/udisondev/wowauth/internal/db2store"
	"github.com/udisondev/wowauth/internal/realm"
)

const ConfigPath = "config/authserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context) error {
	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("WOWAUTH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAuthServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))

	slog.Info("wowauth server starting", "bind", cfg.BindAddress, "port", cfg.Port)

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// Load client data before accepting anything: a missing or corrupt
	// table is a startup failure.
	primary, err := db2.ParseLocale(cfg.PrimaryLocale)
	if err != nil {
		return fmt.Errorf("parsing primary locale: %w", err)
	}
	var additional []db2.Locale
	for _, name := range cfg.Locales {
		loc, err := db2.ParseLocale(name)
		if err != nil {
			return fmt.Errorf("parsing locale %q: %w", name, err)
		}
		if loc != primary {
			additional = append(additional, loc)
		}
	}
	stores, err := db2store.Load(cfg.DB2Dir, primary, additional)
	if err != nil {
		return fmt.Errorf("loading client data: %w", err)
	}
	if err := stores.ApplyHotfixes(ctx, db2store.NewPostgresHotfixStore(database.Pool())); err != nil {
		return fmt.Errorf("applying db2 hotfixes: %w", err)
	}
	slog.Info("client data loaded", "dir", cfg.DB2Dir, "tables", stores.Tables())

	// Realm registry: first refresh must succeed, then poll in background
	realms := realm.NewRegistry(realm.NewPostgresStore(database.Pool()))
	if err := realms.Refresh(ctx); err != nil {
		return fmt.Errorf("initial realm refresh: %w", err)
	}
	refreshInterval := time.Duration(cfg.RealmRefreshSeconds) * time.Second
	if refreshInterval <= 0 {
		refreshInterval = 10 * time.Second
	}
	go realms.StartRefreshLoop(ctx, refreshInterval)

	// Start auth server
	server, err := bnet.NewServer(cfg, database, realms)
	if err != nil {
		return fmt.Errorf("creating auth server: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("starting auth server: %w", err)
	}

	return nil
}
