package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"markershare/internal/app"
	"markershare/internal/config"
	"markershare/internal/kv"
	"markershare/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()
	kvStore, err := kv.Open(ctx, kv.Options{
		Backend:     cfg.KVBackend,
		RedisURL:    cfg.RedisURL,
		Namespace:   cfg.KVNamespace,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		logrus.WithError(err).WithField("backend", cfg.KVBackend).Fatal("kv backend unavailable")
	}
	defer kvStore.Close()

	service, err := app.NewService(cfg, kvStore)
	if err != nil {
		logrus.WithError(err).Fatal("service setup failed")
	}

	httpServer := app.NewHTTPServer(service, cfg.AllowedOrigins)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{"addr": cfg.Addr, "backend": cfg.KVBackend}).Info("marker api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("shutdown error")
	}
}
