package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/dbconfig"
	"github.com/mcdev12/bankrun/internal/feed"
	"github.com/mcdev12/bankrun/internal/gateway"
	"github.com/mcdev12/bankrun/internal/script"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg, err := loadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbCfg := dbconfig.NewConfigFromEnv()

	if err := runMigrations(cfg.Migrations.Path, dbCfg.DSN()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupDatabase(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	gameScript := script.Default()
	if cfg.Script.Path != "" {
		gameScript, err = script.Load(cfg.Script.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Script.Path).Msg("failed to load game script")
		}
	}

	// Feed pipeline: Postgres NOTIFY -> JetStream -> subscribers.
	publisherCfg := feed.DefaultPublisherConfig()
	publisherCfg.URL = cfg.NATS.URL
	publisher, err := feed.NewPublisher(ctx, publisherCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feed publisher")
	}
	defer publisher.Close()

	listenerCfg := feed.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	listener, err := feed.NewListener(publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feed listener")
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("feed listener failed")
		}
	}()

	subscriber, err := feed.NewSubscriber(publisher.Conn())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feed subscriber")
	}

	clk := clockwork.NewRealClock()
	services := setupServices(pool, subscriber, gameScript, clk)

	go func() {
		if err := services.Supervisor.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("host supervisor failed")
		}
	}()

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = cfg.NATS.URL
	gatewayService, err := gateway.NewService(gatewayConfig, services.Games, services.Players, services.Events, clk)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}
	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	server := setupServer(cfg.Server.Port, gatewayService, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	time.Sleep(1 * time.Second)

	log.Info().Msg("shutdown complete")
}
