package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptocalc/config"
	"cryptocalc/internal/api"
	"cryptocalc/internal/metrics"
	"cryptocalc/internal/refresh"
	"cryptocalc/internal/state"
	"cryptocalc/logger"
	"cryptocalc/reader/coingecko"
	"cryptocalc/reader/gemini"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Cryptocalc.Name,
		"version": cfg.Cryptocalc.Version,
	}).WithEnv("APP_ENV").Info("starting cryptocalc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		cw := cfg.Metrics.CloudWatch
		logger.InitCloudWatch(logger.CloudWatchOptions{
			Region:          cw.Region,
			Namespace:       cw.Namespace,
			Dashboard:       cw.Dashboard,
			AccessKeyID:     cw.AccessKeyID,
			SecretAccessKey: cw.SecretAccessKey,
		})
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	metrics.Init()

	if cfg.Source.Gemini.APIKey == "" {
		log.WithComponent("main").Warn("no Gemini API key configured; market commentary uses the fallback text")
	}

	store := state.NewStore(state.Initial())
	orchestrator := refresh.New(store, coingecko.NewClient(cfg), gemini.NewClient(cfg))
	server := api.NewServer(cfg, log, store, orchestrator)

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			serverErr <- err
		}
	}()

	if err := orchestrator.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start refresh orchestrator")
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	log.WithFields(logger.Fields{"address": server.Address()}).Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case err := <-serverErr:
		log.WithError(err).Error("api server stopped")
		exitCode = 1
	}

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping refresh orchestrator")
	orchestrator.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("cryptocalc stopped")
	os.Exit(exitCode)
}
