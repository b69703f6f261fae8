package domain

import "context"

// TelemetryRecord is one reading from one sensor on one device at one
// instant. Records are immutable once written; retention is an external
// concern.
type TelemetryRecord struct {
	Device     string             `json:"device"`
	Ts         int64              `json:"ts"`
	SensorID   string             `json:"sensor_id"`
	SensorType string             `json:"sensor_type"`
	Metrics    map[string]float64 `json:"metrics"`
	MetricKeys []string           `json:"metric_keys"`

	// Optional passthrough fields from the raw payload.
	Status       string `json:"status,omitempty"`
	ParkingSpace string `json:"parking_space,omitempty"`
	SlotID       string `json:"slot_id,omitempty"`
	Type         string `json:"type,omitempty"`
}

type TelemetryRepository interface {
	Insert(ctx context.Context, rec TelemetryRecord) error
	// RecentByDevice returns up to limit records for a device, newest first.
	RecentByDevice(ctx context.Context, device string, limit int) ([]TelemetryRecord, error)
}
