package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"FunnelBot/config"
	"FunnelBot/funnel"
	"FunnelBot/handler"
	"FunnelBot/metrics"
	"FunnelBot/repo"
	"FunnelBot/server"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(envFile string) error {
	if _, err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	log.Logger = logger

	table, err := loadTable(cfg.Funnel, cfg.FunnelFile, cfg.CheckoutURL)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.Store().Close(); err != nil {
			log.Error().Err(err).Msg("error closing session store")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := handler.NewFunnelBotHandler(nil, logger.With().Str("component", "handler").Logger())
	b, err := bot.New(cfg.BotToken,
		bot.WithDefaultHandler(h.DefaultHandler),
		bot.WithErrorsHandler(func(err error) {
			log.Error().Err(err).Msg("telegram error")
		}),
	)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}

	h.Funnel = funnel.NewEngine(table, sessions, repo.NewTelegramRenderer(b),
		funnel.WithLogger(logger.With().Str("component", "funnel").Str("funnel", table.Name()).Logger()),
		funnel.WithRecorder(metrics.NewPrometheusRecorder(reg)),
	)
	b.RegisterHandlerMatchFunc(handler.IsStartCommand, h.StartHandler)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.CallbackHandler)

	if cfg.HTTPAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("serving health and metrics")
			err := server.Run(ctx, cfg.HTTPAddr, server.NewHandler(sessions.Store(), reg))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	log.Info().
		Str("funnel", table.Name()).
		Int("questions", table.Len()).
		Str("backend", cfg.Backend).
		Msg("bot started, polling")
	b.Start(ctx)
	<-ctx.Done()
	log.Info().Msg("bot stopped")
	return nil
}

func loadTable(name, file, checkoutURL string) (*funnel.Table, error) {
	if file != "" {
		return funnel.LoadFile(file, checkoutURL)
	}
	return funnel.Load(name, checkoutURL)
}

// openSessions connects the configured session backend.
func openSessions(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repo.SessionManager, error) {
	managerLogger := repo.WithManagerLogger(logger.With().Str("component", "sessions").Logger())

	switch cfg.Backend {
	case config.BackendRedis:
		store := repo.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, repo.WithTTL(cfg.Redis.SessionTTL))
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}
		opts := []repo.ManagerOption{managerLogger}
		if cfg.Redis.Lock {
			opts = append(opts, repo.WithLocker(repo.NewRedisLocker(store.Client(), "funnel:"), cfg.Redis.LockTTL))
		}
		return repo.NewSessionManager(store, opts...), nil

	case config.BackendFirebase:
		store, err := repo.NewFirebaseStore(ctx, cfg.Firebase.ServiceAccountKeyPath, cfg.Firebase.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("error creating Firebase store: %w", err)
		}
		return repo.NewSessionManager(store, managerLogger), nil
	}

	return repo.NewSessionManager(repo.NewMemoryStore(), managerLogger), nil
}
