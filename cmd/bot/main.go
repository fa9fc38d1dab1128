// Package main contains the entrypoint for the page counter bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/RisAbd/sayfasayicibot/internal/bot"
	"github.com/RisAbd/sayfasayicibot/internal/bot/handlers"
	"github.com/RisAbd/sayfasayicibot/internal/bot/tasks"
	"github.com/RisAbd/sayfasayicibot/internal/config"
	"github.com/RisAbd/sayfasayicibot/internal/database"
	"github.com/RisAbd/sayfasayicibot/internal/logger"
	"github.com/RisAbd/sayfasayicibot/internal/stats"
	"github.com/RisAbd/sayfasayicibot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// telegram bot, webhook server, scheduler), handles graceful shutdown, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	if err := store.SeedCatalog(ctx, catalogFromConfig(cfg.Catalog)); err != nil {
		log.Error("Failed to seed book catalog", "error", err)
		return 1
	}

	engine := stats.NewEngine(store, log)

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Stats:  engine,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	if err := telegram.RegisterCommandMenu(ctx, tg, cfg); err != nil {
		log.Error("Failed to publish command menu", "error", err)
		return 1
	}

	if err := telegram.EnsureWebhook(ctx, tg, log, cfg.Telegram.WebhookURL, cfg.Telegram.Token); err != nil {
		log.Error("Failed to register webhook with Telegram", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Stats:  engine,
		Sink:   tg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	srv := telegram.NewWebhookServer(cfg.Server.ListenAddr, cfg.Telegram.Token, tg, store, log)
	app := bot.NewBot(log, cfg, tg, srv, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

// catalogFromConfig maps the configured catalog seed into store rows.
func catalogFromConfig(books []config.CatalogBook) []database.CatalogBook {
	out := make([]database.CatalogBook, 0, len(books))
	for _, b := range books {
		out = append(out, database.CatalogBook{Author: b.Author, Title: b.Title, Year: b.Year})
	}
	return out
}
