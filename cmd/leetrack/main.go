package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/conorfennell/leetrack/internal/config"
	"github.com/conorfennell/leetrack/internal/schedule"
	"github.com/conorfennell/leetrack/internal/storage"
	"github.com/conorfennell/leetrack/internal/sync"
	"github.com/conorfennell/leetrack/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("leetrack", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to the YAML config file")
	runImport := flags.Bool("import", false, "Import configured question sources before serving")
	flags.String("server.addr", ":8080", "HTTP listen address")
	flags.String("db.path", "leetrack.db", "Path to the SQLite database file")
	flags.String("scheduler.policy", schedule.PolicyWeeks, "Interval policy: weeks or solve-count")
	flags.String("log.level", "info", "Log level: debug, info, warn or error")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	policy, err := schedule.PolicyFromName(cfg.Scheduler.Policy)
	if err != nil {
		slog.Error("invalid interval policy", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DB.Path, policy)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DB.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB.Path, "policy", cfg.Scheduler.Policy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *runImport {
		if err := sync.Run(ctx, db, cfg.Sync.Sources, cfg.Sync.ReposDir); err != nil {
			slog.Error("question import failed", "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.NewServer(db, slog.Default()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("listening", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func logLevel(level string) slog.Level {
	switch level {
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
