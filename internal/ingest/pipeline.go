// Package ingest normalizes heterogeneous device payloads into canonical
// telemetry records and republishes them over the realtime channel.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
	"github.com/bahrain-bp/unity-sub000/internal/metrics"
)

const source = "telemetry-ingest"

// Pipeline validates raw payloads, extracts metrics, persists the record
// and hands the normalized event to the broadcaster.
type Pipeline struct {
	telemetry   domain.TelemetryRepository
	broadcaster domain.Broadcaster
	extract     MetricExtractor
	clock       clockwork.Clock
}

func NewPipeline(telemetry domain.TelemetryRepository, broadcaster domain.Broadcaster, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		telemetry:   telemetry,
		broadcaster: broadcaster,
		extract:     ExtractMetrics,
		clock:       clock,
	}
}

// Ingest processes one raw device payload. It returns the persisted record,
// or nil when the payload was skipped (missing identity fields or no
// numeric metrics). The ingestion source is loss tolerant, so skips are
// logged warnings, never errors. A broadcast failure after a successful
// persist is swallowed: ingestion durability is independent of delivery.
func (p *Pipeline) Ingest(ctx context.Context, payload map[string]any) (*domain.TelemetryRecord, error) {
	device := stringField(payload, "device", "clientId")
	sensorID := stringField(payload, "sensor_id")
	sensorType := stringField(payload, "sensor_type")

	if device == "" || sensorID == "" || sensorType == "" {
		slog.Warn("Missing required fields, skipping payload",
			"device", device, "sensor_id", sensorID, "sensor_type", sensorType)
		metrics.IngestTotal.WithLabelValues("skipped_missing_fields").Inc()
		return nil, nil
	}

	ts := p.clock.Now().Unix()
	if clientTs, ok := asNumber(payload["ts"]); ok {
		ts = int64(clientTs)
	}

	extracted := p.extract(payload)
	metricKeys := ResolveMetricKeys(payload, extracted)
	if len(metricKeys) == 0 {
		slog.Warn("No numeric metrics found, skipping payload", "device", device, "sensor_id", sensorID)
		metrics.IngestTotal.WithLabelValues("skipped_no_metrics").Inc()
		return nil, nil
	}

	record := domain.TelemetryRecord{
		Device:       device,
		Ts:           ts,
		SensorID:     sensorID,
		SensorType:   sensorType,
		Metrics:      extracted,
		MetricKeys:   metricKeys,
		Status:       stringField(payload, "status"),
		ParkingSpace: stringField(payload, "parking_space"),
		SlotID:       stringField(payload, "slot_id"),
		Type:         stringField(payload, "type"),
	}

	if err := p.telemetry.Insert(ctx, record); err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist telemetry record: %w", err)
	}
	metrics.IngestTotal.WithLabelValues("ok").Inc()

	event := domain.Event{
		Type:    "telemetry",
		Source:  source,
		Ts:      ts,
		Payload: record,
	}
	if err := p.broadcaster.BroadcastToAll(ctx, event); err != nil {
		slog.Error("Failed to broadcast telemetry event", "device", device, "error", err)
	}

	return &record, nil
}

// stringField returns the first non-empty string value among the given keys.
func stringField(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
