// Package broadcast implements the fan-out of realtime events to every
// registered connection.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
	"github.com/bahrain-bp/unity-sub000/internal/metrics"
)

// Broadcaster scans the connection store and pushes one event to every
// connection concurrently. Delivery is at most once per connection per
// call: a failed push is logged and never retried.
type Broadcaster struct {
	connections domain.ConnectionRepository
	pusher      domain.Pusher
	pushTimeout time.Duration
}

func NewBroadcaster(connections domain.ConnectionRepository, pusher domain.Pusher, pushTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		connections: connections,
		pusher:      pusher,
		pushTimeout: pushTimeout,
	}
}

// BroadcastToAll serializes the event once, pushes it to every connection
// present in the store at scan time, and returns after all pushes have
// settled. Connections that report gone are reaped from the store, best
// effort. A single connection's failure never aborts the batch; only a
// scan or serialization failure is returned to the caller.
func (b *Broadcaster) BroadcastToAll(ctx context.Context, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast event: %w", err)
	}

	ids, err := b.connections.ScanAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan connections: %w", err)
	}

	metrics.BroadcastsTotal.Inc()
	if len(ids) == 0 {
		return nil
	}

	results := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, connectionID := range ids {
		wg.Add(1)
		go func(i int, connectionID string) {
			defer wg.Done()
			pushCtx, cancel := context.WithTimeout(ctx, b.pushTimeout)
			defer cancel()
			results[i] = b.pusher.Push(pushCtx, connectionID, payload)
		}(i, connectionID)
	}
	wg.Wait()

	for i, pushErr := range results {
		switch {
		case pushErr == nil:
			metrics.PushesTotal.WithLabelValues("ok").Inc()
		case errors.Is(pushErr, domain.ErrConnectionGone):
			metrics.PushesTotal.WithLabelValues("gone").Inc()
			slog.Info("Stale connection, deleting", "connection_id", ids[i])
			if delErr := b.connections.Delete(ctx, ids[i]); delErr != nil {
				slog.Warn("Failed to reap stale connection", "connection_id", ids[i], "error", delErr)
			}
		default:
			metrics.PushesTotal.WithLabelValues("error").Inc()
			slog.Error("Failed to push to connection", "connection_id", ids[i], "error", pushErr)
		}
	}

	return nil
}
