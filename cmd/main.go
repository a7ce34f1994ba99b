package main

import (
	"context"
	"docsummary/internal/bot"
	"docsummary/internal/completion"
	"docsummary/internal/config"
	"docsummary/internal/database"
	"docsummary/internal/domain"
	"docsummary/internal/extract"
	"docsummary/internal/scheduler"
	"docsummary/internal/summary"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}
	level.Set(cfg.LogLevel)

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		log.ErrorContext(ctx, "TOKEN is required",
			"envVar", "TOKEN")

		return
	}

	defaultProvider, err := domain.ParseProvider(cfg.DefaultProvider)
	if err != nil {
		log.ErrorContext(ctx, "DEFAULT_PROVIDER is invalid",
			"error", err,
			"DEFAULT_PROVIDER", cfg.DefaultProvider)

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	registry, err := completion.NewRegistryFromConfig(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize providers",
			"error", err)

		return
	}
	log.InfoContext(ctx, "Providers are initialized",
		"providers", completion.FormatProviders(registry.Providers()))

	pipeline := summary.New(registry, cfg.ChunkSize, log)
	extractor := extract.New(cfg.MaxFileSize, log)

	botInst, err := bot.New(token, db, pipeline, extractor, registry, bot.Options{
		AllowedUsers:    cfg.AllowedUsers,
		DefaultProvider: defaultProvider,
		MaxFileSize:     cfg.MaxFileSize,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	sched := scheduler.New(ctx, db, cfg.HistoryRetention, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.HourlyCleanupSpec,
			"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.HourlyCleanupSpec,
		"historyRetention", cfg.HistoryRetention.String())

	go func() {
		botInst.Start(ctx)
	}()
	log.InfoContext(ctx, "Bot is started")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}
