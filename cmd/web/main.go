package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"mascot-factory/internal/account"
	"mascot-factory/internal/config"
	"mascot-factory/internal/gemini"
	"mascot-factory/internal/httpclient"
	"mascot-factory/internal/mascot"
	"mascot-factory/internal/session"
	"mascot-factory/internal/web"
	"mascot-factory/internal/workshop"
)

//go:embed static/*
var staticFS embed.FS

const (
	pruneEvery   = 10 * time.Minute
	workshopIdle = 24 * time.Hour
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

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

	store, err := account.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("open database failed", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	accounts := account.NewService(account.Options{
		Store:     store,
		AccessTTL: cfg.AccessTTL,
		Logger:    logger,
	})
	if cfg.AdminPassword != "" {
		if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("admin bootstrap failed", "err", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("ADMIN_PASSWORD is not set; the admin account is not created or updated", "email", cfg.AdminEmail)
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	shop := workshop.NewStore()
	srv := web.New(web.Options{
		Accounts:       accounts,
		Sessions:       session.NewStore(session.Options{TTL: cfg.SessionTTL}),
		Workshop:       shop,
		Generator:      mascot.NewGenerator(mascot.GeneratorOptions{Provider: gem, Logger: logger}),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		Static:         staticSub,
	})

	httpSrv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web started", "addr", cfg.WebAddr, "model", gem.Model())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		t := time.NewTicker(pruneEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if n := shop.Prune(workshopIdle); n > 0 {
					logger.Debug("pruned idle workshops", "count", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}
