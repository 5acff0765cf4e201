package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio/internal/auth"
	"portfolio/internal/feed"
	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/objectstore"
	"portfolio/internal/server"
	"portfolio/internal/storage"
)

func configPath() string {
	if p := os.Getenv("PORTFOLIO_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func main() {
	log := logging.NewJSON()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatal := func(msg string, err error) {
		log.Error(ctx, msg, "err", err)
		os.Exit(1)
	}

	cfg, err := models.LoadConfig(configPath())
	if err != nil {
		fatal("failed to load config", err)
	}

	db, err := storage.NewStorage(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to init storage", err)
	}
	defer db.Close()

	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL)
	if cfg.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			fatal("failed to provision admin", err)
		}
	} else {
		log.Warn(ctx, "no admin account configured; sign-in will fail")
	}

	var (
		objects  objectstore.Store
		filesDir string
	)
	if cfg.UseS3() {
		objects, err = objectstore.NewS3(ctx, objectstore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			fatal("failed to init s3", err)
		}
	} else {
		local, err := objectstore.NewLocal(cfg.StoragePath, cfg.PublicBaseURL)
		if err != nil {
			fatal("failed to init local object store", err)
		}
		objects, filesDir = local, local.Root()
	}

	hub := feed.NewHub(db, log.With("component", "feed"))

	var notifier feed.Notifier = feed.NewLocal(hub)
	if cfg.KafkaBroker != "" {
		producer := feed.NewKafka(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		notifier = producer

		consumer := feed.NewConsumer(cfg.KafkaBroker, cfg.KafkaTopic, hub, log.With("component", "consumer"))
		go consumer.Run(ctx)
		log.Info(ctx, "change feed on kafka", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	srv := server.NewServer(cfg, server.Deps{
		Photos:   db,
		Objects:  objects,
		Feed:     hub,
		Notifier: notifier,
		Auth:     authSvc,
		Log:      log.With("component", "http"),
		FilesDir: filesDir,
	})

	go func() {
		log.Info(ctx, "server listening", "addr", cfg.ServerAddr, "s3", cfg.UseS3())
		if err := srv.Start(); err != nil {
			fatal("failed to start server", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "error shutting down server", "err", err)
	}
}
