package domain

import (
	"context"
	"time"
)

// Connection is one open realtime channel, identified by an opaque id.
// The entry may transiently outlive the actual socket; the broadcaster
// reaps it lazily when a push reports the connection is gone.
type Connection struct {
	ConnectionID string    `json:"connectionId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConnectionRepository is the durable registry of currently-open channels.
// It is backed by an external key-value store so that any instance can
// reach every connection's metadata.
type ConnectionRepository interface {
	Put(ctx context.Context, conn Connection) error
	// Delete removes a connection entry. Deleting an absent entry is not
	// an error.
	Delete(ctx context.Context, connectionID string) error
	ScanAll(ctx context.Context) ([]string, error)
}

// Pusher delivers a serialized message to a single connection.
type Pusher interface {
	// Push writes payload to the given connection. Returns
	// ErrConnectionGone if the connection no longer exists.
	Push(ctx context.Context, connectionID string, payload []byte) error
}
