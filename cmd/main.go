package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"checkinBoard/cmd/buildCFG"
	"checkinBoard/cmd/middleware"
	"checkinBoard/internal/api/api"
	"checkinBoard/internal/clock"
	syncWorker "checkinBoard/internal/consumerWorker"
	"checkinBoard/internal/notion"
	"checkinBoard/internal/queue"
	"checkinBoard/internal/rabbit"
	"checkinBoard/internal/repo"
	"checkinBoard/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", ""); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}

	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	storageCfg, err := buildCFG.BuildStorageConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid storage config")
	}
	syncCfg := buildCFG.BuildSyncConfig(cfg, &log)
	checkInCfg := buildCFG.BuildCheckInConfig(cfg, &log)
	adminCfg, err := buildCFG.BuildAdminConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid admin config")
	}

	clk := clock.NewSystem()

	repository, closeStore := openRepository(storageCfg, cfg, clk, &log)
	defer closeStore()

	q := openQueue(buildCFG.BuildRabbitConfig(cfg, &log), syncCfg, &log)
	defer q.Close()

	notionClient := notion.NewClient(syncCfg.NotionBaseURL, syncCfg.Timeout)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	worker := syncWorker.NewWorker(q, repository, notionClient, &log, syncWorker.Options{
		Timeout:  syncCfg.Timeout,
		MaxTries: syncCfg.MaxTries,
	})
	worker.Start(workerCtx)

	serviceInstance := service.NewService(repository, &log, q, notionClient, clk, service.Config{
		EmailDomain:   checkInCfg.EmailDomain,
		SyncTimeout:   syncCfg.Timeout,
		AdminUsername: adminCfg.Username,
		AdminPassword: adminCfg.Password,
		JWTSecret:     adminCfg.JWTSecret,
		TokenTTL:      adminCfg.TokenTTL,
	})

	limiter := middleware.NewRateLimiter(checkInCfg.RateRPS, checkInCfg.RateBurst)
	defer limiter.Stop()

	app := api.NewRouters(&api.Routers{
		Service:        serviceInstance,
		Log:            &log,
		Mode:           serverCfg.Mode,
		CheckInLimiter: limiter,
		RequireToken:   adminCfg.RequireToken,
		TrustedProxies: serverCfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:    ":" + serverCfg.Port,
		Handler: app,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Err(err).Msg("Server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}

	cancelWorkers()
	worker.Stop()

	log.Info().Msg("Shutdown complete")
}

// openRepository returns the configured store and a func releasing it.
func openRepository(storageCfg buildCFG.StorageConfig, cfg *config.Config, clk clock.Clock, log *zerolog.Logger) (repo.Repository, func()) {
	if storageCfg.Driver == buildCFG.StorageMemory {
		log.Info().Msg("Using in-memory storage")
		return repo.NewMemoryRepository(log, clk), func() {}
	}

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}

	repository, err := repo.NewPostgresRepository(db, log, clk)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	migrationPath := storageCfg.MigrationsDir
	if !filepath.IsAbs(migrationPath) {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot get working directory")
		}
		migrationPath = filepath.Join(cwd, migrationPath)
	}
	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	return repository, func() {
		if err := db.Master.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close DB")
		}
	}
}

// openQueue prefers RabbitMQ and falls back to the in-process queue when no
// broker is configured.
func openQueue(rabbitCfg buildCFG.RabbitConfig, syncCfg buildCFG.SyncConfig, log *zerolog.Logger) queue.Queue {
	if rabbitCfg.Url == "" {
		log.Info().Int("size", syncCfg.QueueSize).Msg("RabbitMQ not configured, using in-process sync queue")
		return queue.NewMemory(syncCfg.QueueSize, log)
	}
	rmq, err := rabbit.NewRabbit(rabbit.Config{
		URL:      rabbitCfg.Url,
		Exchange: rabbitCfg.Exchange,
		Queue:    rabbitCfg.Queue,
	}, log)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
	}
	return rmq
}
