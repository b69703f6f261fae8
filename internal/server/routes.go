package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Telemetry: ingestion is fire-and-forget from the device side, the
	// query endpoint serves dashboards.
	s.echo.POST("/api/telemetry", s.handleIngestTelemetry)
	s.echo.GET("/api/telemetry", s.handleQueryTelemetry)

	// Actuation requires an upstream-verified caller identity.
	s.echo.POST("/api/plugs", s.handleActuate, s.requireIdentity)

	// Realtime channel (authentication handled upstream)
	s.echo.GET("/ws", s.handleWebSocket)
}
