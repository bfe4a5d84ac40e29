package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"mascot-factory/internal/album"
	"mascot-factory/internal/config"
	"mascot-factory/internal/gemini"
	"mascot-factory/internal/handlers"
	"mascot-factory/internal/httpclient"
	"mascot-factory/internal/mascot"
	"mascot-factory/internal/telegram"
	"mascot-factory/internal/workshop"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})
	// Telegram polling would drown the provider call counter.
	telegramHTTP := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Uncounted:  true,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: telegramHTTP,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiImageModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if !gem.HasAPIKey() {
		logger.Warn("GEMINI_API_KEY is not set; generation requests will fail until it is")
	}

	if len(cfg.AllowedTelegramIDs)+len(cfg.OperatorTelegramIDs) == 0 {
		logger.Warn("ALLOWED_TELEGRAM_IDS and OPERATOR_TELEGRAM_IDS are empty; every user will be refused")
	}

	shop := workshop.NewStore()
	handler := handlers.New(handlers.Options{
		Telegram:  tg,
		Workshop:  shop,
		Generator: mascot.NewGenerator(mascot.GeneratorOptions{Provider: gem, Logger: logger}),
		Allowed:   cfg.AllowedTelegramIDs,
		Operators: cfg.OperatorTelegramIDs,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrent))

	// run bounds concurrent work; it gives up when shutdown starts
	run := func(fn func(context.Context) error) {
		if err := sem.Acquire(gctx, 1); err != nil {
			return
		}
		g.Go(func() error {
			defer sem.Release(1)

			reqCtx, cancel := context.WithTimeout(gctx, cfg.RequestTimeout)
			defer cancel()

			if err := fn(reqCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("handle update failed", "err", err)
			}
			return nil
		})
	}

	albums := album.New(album.Options{
		Debounce: cfg.AlbumDebounce,
		OnFlush: func(group album.Group) {
			run(func(ctx context.Context) error {
				handler.HandleAlbum(ctx, group)
				return nil
			})
		},
	})
	defer albums.Close()
	handler.SetAlbumCollector(albums)

	logger.Info("bot started", "username", tg.Username(), "model", gem.Model(), "allowed", len(cfg.AllowedTelegramIDs), "operators", len(cfg.OperatorTelegramIDs))

	updates := tg.Updates(30 * time.Second)
	defer tg.StopUpdates()

	g.Go(func() error {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				shop.Prune(24 * time.Hour)
			}
		}
	})

loop:
	for {
		select {
		case <-gctx.Done():
			logger.Info("shutting down")
			break loop
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				stop()
				break loop
			}
			run(func(ctx context.Context) error {
				return handler.HandleUpdate(ctx, update)
			})
		}
	}

	albums.Close()
	_ = g.Wait()
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}
