package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

// TelemetryRepo implements domain.TelemetryRepository backed by PostgreSQL.
type TelemetryRepo struct {
	pool *pgxpool.Pool
}

func NewTelemetryRepo(pool *pgxpool.Pool) *TelemetryRepo {
	return &TelemetryRepo{pool: pool}
}

func (r *TelemetryRepo) Insert(ctx context.Context, rec domain.TelemetryRecord) error {
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	keysJSON, err := json.Marshal(rec.MetricKeys)
	if err != nil {
		return fmt.Errorf("failed to marshal metric keys: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO telemetry (device, ts, sensor_id, sensor_type, metrics, metric_keys, status, parking_space, slot_id, type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.Device, rec.Ts, rec.SensorID, rec.SensorType,
		metricsJSON, keysJSON,
		rec.Status, rec.ParkingSpace, rec.SlotID, rec.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry record: %w", err)
	}
	return nil
}

func (r *TelemetryRepo) RecentByDevice(ctx context.Context, device string, limit int) ([]domain.TelemetryRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT device, ts, sensor_id, sensor_type, metrics, metric_keys, status, parking_space, slot_id, type
		 FROM telemetry
		 WHERE device = $1
		 ORDER BY ts DESC
		 LIMIT $2`,
		device, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var records []domain.TelemetryRecord
	for rows.Next() {
		rec, err := scanTelemetry(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanTelemetry(row pgx.Row) (domain.TelemetryRecord, error) {
	var rec domain.TelemetryRecord
	var metricsJSON, keysJSON []byte

	err := row.Scan(&rec.Device, &rec.Ts, &rec.SensorID, &rec.SensorType,
		&metricsJSON, &keysJSON,
		&rec.Status, &rec.ParkingSpace, &rec.SlotID, &rec.Type)
	if err != nil {
		return rec, fmt.Errorf("failed to scan telemetry record: %w", err)
	}

	if err := json.Unmarshal(metricsJSON, &rec.Metrics); err != nil {
		return rec, fmt.Errorf("corrupt metrics column: %w", err)
	}
	if err := json.Unmarshal(keysJSON, &rec.MetricKeys); err != nil {
		return rec, fmt.Errorf("corrupt metric_keys column: %w", err)
	}
	return rec, nil
}
