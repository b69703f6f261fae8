package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bahrain-bp/unity-sub000/internal/actuation"
	"github.com/bahrain-bp/unity-sub000/internal/app"
	"github.com/bahrain-bp/unity-sub000/internal/broadcast"
	"github.com/bahrain-bp/unity-sub000/internal/config"
	"github.com/bahrain-bp/unity-sub000/internal/database"
	"github.com/bahrain-bp/unity-sub000/internal/ingest"
	"github.com/bahrain-bp/unity-sub000/internal/logging"
	"github.com/bahrain-bp/unity-sub000/internal/redis"
	"github.com/bahrain-bp/unity-sub000/internal/server"
	ws "github.com/bahrain-bp/unity-sub000/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, gateway *ws.Gateway) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		gateway.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	// Stores
	connectionRepo := redis.NewConnectionRepo(redisClient)
	telemetryRepo := database.NewTelemetryRepo(pool)
	actionRepo := database.NewActionLogRepo(pool)

	// Realtime layer
	gateway := ws.NewGateway()
	broadcaster := broadcast.NewBroadcaster(connectionRepo, gateway, cfg.PushTimeout)
	snapshotSvc := app.NewSnapshotService(actionRepo, gateway, cfg.DeviceGroups, cfg.PushTimeout, clock)

	// Pipelines
	pipeline := ingest.NewPipeline(telemetryRepo, broadcaster, clock)
	actuator := actuation.NewVoiceMonkeyClient(cfg.VoiceMonkeyBaseURL, cfg.VoiceMonkeyToken)
	controller := actuation.NewController(actionRepo, actuator, broadcaster, cfg.PlugDeviceMap, cfg.CooldownWindow, cfg.ActuatorTimeout, clock)

	srv := server.NewServer(cfg, gateway, connectionRepo, snapshotSvc, pipeline, controller, telemetryRepo, pool, redisClient)

	done := runGracefulShutdown(srv, gateway)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
