package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

type fakeConnectionRepo struct {
	mu      sync.Mutex
	ids     []string
	deleted []string
	scanErr error
	delErr  error
}

func (f *fakeConnectionRepo) Put(_ context.Context, _ domain.Connection) error { return nil }

func (f *fakeConnectionRepo) Delete(_ context.Context, connectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, connectionID)
	return nil
}

func (f *fakeConnectionRepo) ScanAll(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return append([]string(nil), f.ids...), nil
}

// fakePusher records pushes and fails the connections listed in gone/failing.
type fakePusher struct {
	mu      sync.Mutex
	pushed  map[string][][]byte
	gone    map[string]bool
	failing map[string]bool
	block   time.Duration
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		pushed:  make(map[string][][]byte),
		gone:    make(map[string]bool),
		failing: make(map[string]bool),
	}
}

func (f *fakePusher) Push(ctx context.Context, connectionID string, payload []byte) error {
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[connectionID] {
		return domain.ErrConnectionGone
	}
	if f.failing[connectionID] {
		return errors.New("write failed")
	}
	f.pushed[connectionID] = append(f.pushed[connectionID], payload)
	return nil
}

func (f *fakePusher) delivered(connectionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed[connectionID])
}

func TestBroadcastToAll_DeliversToEveryConnection(t *testing.T) {
	repo := &fakeConnectionRepo{ids: []string{"c1", "c2", "c3"}}
	pusher := newFakePusher()
	b := NewBroadcaster(repo, pusher, time.Second)

	err := b.BroadcastToAll(context.Background(), domain.Event{Type: "telemetry", Ts: 1000})

	require.NoError(t, err)
	for _, id := range repo.ids {
		assert.Equal(t, 1, pusher.delivered(id), "connection %s", id)
	}
}

func TestBroadcastToAll_OneFailureNeverAbortsSiblings(t *testing.T) {
	repo := &fakeConnectionRepo{ids: []string{"c1", "c2", "c3"}}
	pusher := newFakePusher()
	pusher.failing["c2"] = true
	b := NewBroadcaster(repo, pusher, time.Second)

	err := b.BroadcastToAll(context.Background(), domain.Event{Type: "telemetry"})

	require.NoError(t, err, "per-connection failures are contained")
	assert.Equal(t, 1, pusher.delivered("c1"))
	assert.Equal(t, 1, pusher.delivered("c3"))
	assert.Empty(t, repo.deleted, "non-gone failures are not reaped")
}

func TestBroadcastToAll_ReapsGoneConnections(t *testing.T) {
	repo := &fakeConnectionRepo{ids: []string{"c1", "stale", "c3"}}
	pusher := newFakePusher()
	pusher.gone["stale"] = true
	b := NewBroadcaster(repo, pusher, time.Second)

	err := b.BroadcastToAll(context.Background(), domain.Event{Type: "action"})

	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, repo.deleted)
	assert.Equal(t, 1, pusher.delivered("c1"))
	assert.Equal(t, 1, pusher.delivered("c3"))
}

func TestBroadcastToAll_ReapFailureIsSwallowed(t *testing.T) {
	repo := &fakeConnectionRepo{ids: []string{"stale"}, delErr: errors.New("store down")}
	pusher := newFakePusher()
	pusher.gone["stale"] = true
	b := NewBroadcaster(repo, pusher, time.Second)

	assert.NoError(t, b.BroadcastToAll(context.Background(), domain.Event{}))
}

func TestBroadcastToAll_EmptyStore(t *testing.T) {
	repo := &fakeConnectionRepo{}
	b := NewBroadcaster(repo, newFakePusher(), time.Second)

	assert.NoError(t, b.BroadcastToAll(context.Background(), domain.Event{}))
}

func TestBroadcastToAll_ScanFailurePropagates(t *testing.T) {
	repo := &fakeConnectionRepo{scanErr: errors.New("store down")}
	b := NewBroadcaster(repo, newFakePusher(), time.Second)

	err := b.BroadcastToAll(context.Background(), domain.Event{})

	assert.Error(t, err)
}

func TestBroadcastToAll_UnserializableEvent(t *testing.T) {
	repo := &fakeConnectionRepo{ids: []string{"c1"}}
	pusher := newFakePusher()
	b := NewBroadcaster(repo, pusher, time.Second)

	err := b.BroadcastToAll(context.Background(), map[string]any{"bad": make(chan int)})

	require.Error(t, err)
	assert.Equal(t, 0, pusher.delivered("c1"))
}

func TestBroadcastToAll_SlowPushIsBoundedByTimeout(t *testing.T) {
	repo := &fakeConnectionRepo{ids: []string{"slow", "c2"}}
	pusher := newFakePusher()
	pusher.block = 500 * time.Millisecond
	b := NewBroadcaster(repo, pusher, 10*time.Millisecond)

	start := time.Now()
	err := b.BroadcastToAll(context.Background(), domain.Event{})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "join must not wait out the full block")
}
