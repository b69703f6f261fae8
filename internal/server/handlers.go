package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/bahrain-bp/unity-sub000/internal/errors"
	"github.com/bahrain-bp/unity-sub000/internal/version"
)

const defaultQueryLimit = 25

// handleIngestTelemetry accepts one raw device payload per call. Skipped
// payloads (missing identity fields, no numeric metrics) still return 200:
// the ingestion source is fire-and-forget and loss tolerant.
func (s *Server) handleIngestTelemetry(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return apperrors.ValidationError("Invalid JSON")
	}

	record, err := s.pipeline.Ingest(c.Request().Context(), payload)
	if err != nil {
		return apperrors.InternalError("failed to ingest telemetry", err)
	}
	if record == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "skipped"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQueryTelemetry(c echo.Context) error {
	device := c.QueryParam("device")
	if device == "" {
		return apperrors.ValidationError("Missing ?device=...")
	}

	limit := defaultQueryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.ValidationError("limit must be a positive integer")
		}
		limit = parsed
	}

	records, err := s.telemetry.RecentByDevice(c.Request().Context(), device, limit)
	if err != nil {
		return apperrors.InternalError("failed to query telemetry", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"device": device,
		"count":  len(records),
		"items":  records,
	})
}

type actuateRequest struct {
	DeviceGroup  string `json:"deviceGroup"`
	DesiredState string `json:"desiredState"`
}

func (s *Server) handleActuate(c echo.Context) error {
	userID, _ := c.Get("userID").(string)

	var req actuateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid JSON")
	}

	result, err := s.controller.Actuate(c.Request().Context(), userID, req.DeviceGroup, req.DesiredState)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"ok":               true,
		"deviceGroup":      result.DeviceGroup,
		"desiredState":     result.DesiredState,
		"actuatorResponse": result.ActuatorResponse,
		"nextAllowedAt":    result.NextAllowedAt,
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
