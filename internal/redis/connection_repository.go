package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

const connKeyPrefix = "conn:"

// scanBatchSize is a hint for SCAN, not a result bound; listings are unbounded.
const scanBatchSize = 100

// ConnectionRepo implements domain.ConnectionRepository backed by Redis.
// Each open channel is one hash under conn:<id>.
type ConnectionRepo struct {
	rdb *goredis.Client
}

func NewConnectionRepo(rdb *goredis.Client) *ConnectionRepo {
	return &ConnectionRepo{rdb: rdb}
}

func connKey(connectionID string) string {
	return connKeyPrefix + connectionID
}

func (r *ConnectionRepo) Put(ctx context.Context, conn domain.Connection) error {
	key := connKey(conn.ConnectionID)
	err := r.rdb.HSet(ctx, key, map[string]any{
		"created_at": strconv.FormatInt(conn.CreatedAt.UnixMilli(), 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to store connection %s: %w", conn.ConnectionID, err)
	}
	return nil
}

// Delete removes the connection entry. Deleting an absent key is a no-op,
// which makes disconnect idempotent.
func (r *ConnectionRepo) Delete(ctx context.Context, connectionID string) error {
	if err := r.rdb.Del(ctx, connKey(connectionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", connectionID, err)
	}
	return nil
}

func (r *ConnectionRepo) ScanAll(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64

	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, connKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan connections: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, connKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}

// Get returns the stored connection metadata, or nil if absent.
func (r *ConnectionRepo) Get(ctx context.Context, connectionID string) (*domain.Connection, error) {
	values, err := r.rdb.HGetAll(ctx, connKey(connectionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read connection %s: %w", connectionID, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	createdMillis, err := strconv.ParseInt(values["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at for connection %s: %w", connectionID, err)
	}

	return &domain.Connection{
		ConnectionID: connectionID,
		CreatedAt:    time.UnixMilli(createdMillis),
	}, nil
}
