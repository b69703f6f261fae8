// Package websocket owns the live socket endpoints for the realtime channel.
//
// The Gateway is the process-local side of the connection registry: it maps
// opaque connection ids to open sockets and implements domain.Pusher. The
// durable side (which ids exist at all) lives in the Redis connection store.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
	"github.com/bahrain-bp/unity-sub000/internal/metrics"
)

const (
	writeTimeout   = 5 * time.Second
	sendBufferSize = 16
)

// clientWriter serializes writes to one connection through a buffered
// channel so that a slow client never blocks a broadcast.
type clientWriter struct {
	conn     *websocket.Conn
	sendCh   chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cw.stop()
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.done)
		cw.conn.Close()
	})
}

// Gateway tracks the sockets owned by this process and pushes serialized
// messages to them by connection id.
type Gateway struct {
	mu      sync.RWMutex
	writers map[string]*clientWriter
}

func NewGateway() *Gateway {
	return &Gateway{writers: make(map[string]*clientWriter)}
}

// Register assigns a fresh connection id to the socket and starts its
// writer. The caller is responsible for persisting the id in the
// connection store.
func (g *Gateway) Register(conn *websocket.Conn) string {
	connectionID := uuid.NewString()

	g.mu.Lock()
	g.writers[connectionID] = newClientWriter(conn)
	g.mu.Unlock()

	metrics.ConnectedClients.Inc()
	return connectionID
}

// Unregister stops the writer and closes the socket. Unknown ids are
// ignored, so disconnect handling stays idempotent.
func (g *Gateway) Unregister(connectionID string) {
	g.mu.Lock()
	cw, ok := g.writers[connectionID]
	if ok {
		delete(g.writers, connectionID)
	}
	g.mu.Unlock()

	if ok {
		cw.stop()
		metrics.ConnectedClients.Dec()
	}
}

// Push implements domain.Pusher. It returns domain.ErrConnectionGone when
// the id has no live socket in this process; the broadcaster uses that to
// reap stale registry entries.
func (g *Gateway) Push(ctx context.Context, connectionID string, payload []byte) error {
	g.mu.RLock()
	cw, ok := g.writers[connectionID]
	g.mu.RUnlock()

	if !ok {
		return domain.ErrConnectionGone
	}

	select {
	case cw.sendCh <- payload:
		return nil
	case <-cw.done:
		return domain.ErrConnectionGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of live sockets in this process.
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.writers)
}

// Stop closes every socket, e.g. on shutdown.
func (g *Gateway) Stop() {
	g.mu.Lock()
	writers := g.writers
	g.writers = make(map[string]*clientWriter)
	g.mu.Unlock()

	for _, cw := range writers {
		cw.stop()
		metrics.ConnectedClients.Dec()
	}
}
