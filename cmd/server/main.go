package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"WeaveSync/internal/config"
	"WeaveSync/internal/handlers"
	"WeaveSync/internal/logger"
	"WeaveSync/internal/middleware"
	"WeaveSync/internal/repo"
	"WeaveSync/internal/service"

	"golang.org/x/sync/errgroup"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	if cfg.Version {
		fmt.Printf("WeaveSync server\nVersion: %s\nBuild date: %s\n", version, buildDate)
		return
	}

	sugar, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = sugar.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, dialect, err := repo.InitDB(cfg.DatabaseDriver, cfg.DatabaseDSN, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "driver", cfg.DatabaseDriver, "error", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := repo.NewStorage(gormDB, dialect)
	userService := service.NewUserService(store, service.WithBcryptCost(cfg.BcryptCost))
	syncService := service.NewSyncService(store, userService, sugar,
		service.WithGuardMode(service.GuardMode(cfg.GuardMode)),
	)

	h := handlers.NewHandler(userService, syncService, sugar, cfg)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"Driver", cfg.DatabaseDriver,
		"PathPrefix", cfg.PathPrefix,
		"GuardMode", cfg.GuardMode,
		"AdminAPI", cfg.AdminEnabled(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("Starting server", "addr", srv.Addr, "version", version)
		var err error
		if cfg.EnableHTTPS {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sugar.Infow("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("Server failed", "error", err)
		os.Exit(1)
	}
	sugar.Infow("Server stopped")
}
