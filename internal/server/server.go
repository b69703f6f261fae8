// Package server wires the HTTP and realtime surfaces of the backend.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bahrain-bp/unity-sub000/internal/actuation"
	"github.com/bahrain-bp/unity-sub000/internal/app"
	"github.com/bahrain-bp/unity-sub000/internal/config"
	"github.com/bahrain-bp/unity-sub000/internal/domain"
	apperrors "github.com/bahrain-bp/unity-sub000/internal/errors"
	"github.com/bahrain-bp/unity-sub000/internal/ingest"
	ws "github.com/bahrain-bp/unity-sub000/internal/websocket"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	gateway     *ws.Gateway
	connections domain.ConnectionRepository
	snapshot    *app.SnapshotService
	pipeline    *ingest.Pipeline
	controller  *actuation.Controller
	telemetry   domain.TelemetryRepository
	pool        *pgxpool.Pool
	redisClient *goredis.Client
	startTime   time.Time
}

func NewServer(
	cfg *config.Config,
	gateway *ws.Gateway,
	connections domain.ConnectionRepository,
	snapshot *app.SnapshotService,
	pipeline *ingest.Pipeline,
	controller *actuation.Controller,
	telemetry domain.TelemetryRepository,
	pool *pgxpool.Pool,
	redisClient *goredis.Client,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		gateway:     gateway,
		connections: connections,
		snapshot:    snapshot,
		pipeline:    pipeline,
		controller:  controller,
		telemetry:   telemetry,
		pool:        pool,
		redisClient: redisClient,
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
