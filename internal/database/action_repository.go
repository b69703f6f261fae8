package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

const actionColumns = `user_id, ts, device_group, action, actuator_device_id, actuator_response`

// ActionLogRepo implements domain.ActionLogRepository backed by PostgreSQL.
type ActionLogRepo struct {
	pool *pgxpool.Pool
}

func NewActionLogRepo(pool *pgxpool.Pool) *ActionLogRepo {
	return &ActionLogRepo{pool: pool}
}

func (r *ActionLogRepo) Insert(ctx context.Context, rec domain.ActionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO plug_actions (`+actionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.UserID, rec.Ts, rec.DeviceGroup, rec.Action, rec.ActuatorDeviceID, rec.ActuatorResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to insert action record: %w", err)
	}
	return nil
}

func (r *ActionLogRepo) LatestByUser(ctx context.Context, userID string) (*domain.ActionRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM plug_actions WHERE user_id = $1 ORDER BY ts DESC LIMIT 1`,
		userID,
	)
	return scanAction(row)
}

func (r *ActionLogRepo) LatestByGroup(ctx context.Context, deviceGroup string) (*domain.ActionRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM plug_actions WHERE device_group = $1 ORDER BY ts DESC LIMIT 1`,
		deviceGroup,
	)
	return scanAction(row)
}

// scanAction maps "no rows" to (nil, nil): no prior action is not an error.
func scanAction(row pgx.Row) (*domain.ActionRecord, error) {
	var rec domain.ActionRecord
	err := row.Scan(&rec.UserID, &rec.Ts, &rec.DeviceGroup, &rec.Action, &rec.ActuatorDeviceID, &rec.ActuatorResponse)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan action record: %w", err)
	}
	return &rec, nil
}
