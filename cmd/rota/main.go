package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rota/internal/auth"
	"rota/internal/config"
	"rota/internal/db"
	httpx "rota/internal/http"
	"rota/internal/jobs"
	"rota/internal/notify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
	if err := db.Seed(gdb, cfg.ScheduleWeeks); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	if err := db.SeedAdmin(gdb, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		logger.Error("admin seed failed", "error", err)
		os.Exit(1)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)

	jobsRepo := &jobs.Repo{DB: gdb}
	dispatcher := &notify.QueueDispatcher{Queue: jobsRepo}
	r := httpx.NewRouter(cfg, gdb, jwtSvc, dispatcher)

	// notification worker
	worker := &jobs.Worker{
		ID:         "worker-1",
		Queue:      jobsRepo,
		WebhookURL: cfg.NotifyWebhookURL,
		Log:        logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
