package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"expo/internal/channel"
	"expo/internal/config"
	"expo/internal/infrastructure/logger"
	"expo/internal/kitchen"
	"expo/internal/notify"
	"expo/internal/server"
	"expo/internal/upstream"
	"expo/internal/waiter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := channel.New(channel.Config{
		URL:          cfg.Channel.URL,
		DialTimeout:  cfg.Channel.DialTimeout,
		MinReconnect: cfg.Channel.MinReconnect,
		MaxReconnect: cfg.Channel.MaxReconnect,
		WriteTimeout: cfg.Channel.WriteTimeout,
	}, zapLogger)
	go func() {
		if err := ch.Run(ctx); err != nil {
			zapLogger.Error("channel stopped", zap.Error(err))
		}
	}()

	api := upstream.New(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	}, zapLogger)

	kitchenMod := kitchen.NewModule(ch, api, notify.NewCenter(zapLogger, 50), cfg, zapLogger)
	waiterMod := waiter.NewModule(ch, api, notify.NewCenter(zapLogger, 50), zapLogger)

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := kitchenMod.Service.Start(startCtx); err != nil {
		zapLogger.Warn("kitchen view starting without initial snapshot", zap.Error(err))
	}
	if err := waiterMod.Service.Start(startCtx); err != nil {
		zapLogger.Warn("waiter view starting without initial snapshot", zap.Error(err))
	}
	startCancel()

	router := server.NewRouter(kitchenMod.Controller, waiterMod.Controller, zapLogger)
	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}

	kitchenMod.Service.Stop()
	waiterMod.Service.Stop()
	cancel()
	if err := ch.Close(); err != nil {
		zapLogger.Error("channel close failed", zap.Error(err))
	}

	zapLogger.Info("stopped gracefully")
}
