package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

type fakeActionRepo struct {
	latest map[string]*domain.ActionRecord
	err    error
}

func (f *fakeActionRepo) Insert(_ context.Context, _ domain.ActionRecord) error { return nil }

func (f *fakeActionRepo) LatestByUser(_ context.Context, _ string) (*domain.ActionRecord, error) {
	return nil, nil
}

func (f *fakeActionRepo) LatestByGroup(_ context.Context, deviceGroup string) (*domain.ActionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.latest[deviceGroup], nil
}

type fakePusher struct {
	payloads map[string][][]byte
	err      error
}

func newFakePusher() *fakePusher {
	return &fakePusher{payloads: make(map[string][][]byte)}
}

func (f *fakePusher) Push(_ context.Context, connectionID string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.payloads[connectionID] = append(f.payloads[connectionID], payload)
	return nil
}

func TestSendSnapshot_DefaultsAndRecordedStates(t *testing.T) {
	repo := &fakeActionRepo{latest: map[string]*domain.ActionRecord{
		"plug1": {DeviceGroup: "plug1", Action: domain.StateOn, Ts: 900},
	}}
	pusher := newFakePusher()
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	svc := NewSnapshotService(repo, pusher, []string{"plug1", "plug2"}, time.Second, clock)

	err := svc.SendSnapshot(context.Background(), "c1")

	require.NoError(t, err)
	require.Len(t, pusher.payloads["c1"], 1)

	var event struct {
		Type    string `json:"type"`
		Ts      int64  `json:"ts"`
		Payload struct {
			Items []PlugState `json:"items"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pusher.payloads["c1"][0], &event))

	assert.Equal(t, "snapshot", event.Type)
	assert.Equal(t, int64(1000), event.Ts)
	require.Len(t, event.Payload.Items, 2)
	assert.Equal(t, PlugState{ID: "plug1", State: "on", UpdatedAt: 900}, event.Payload.Items[0])
	assert.Equal(t, PlugState{ID: "plug2", State: "off", UpdatedAt: 0}, event.Payload.Items[1])
}

func TestSendSnapshot_TargetsOnlyTheRequestingConnection(t *testing.T) {
	pusher := newFakePusher()
	svc := NewSnapshotService(&fakeActionRepo{}, pusher, []string{"plug1"}, time.Second, clockwork.NewFakeClock())

	require.NoError(t, svc.SendSnapshot(context.Background(), "c2"))

	assert.Len(t, pusher.payloads, 1)
	assert.Len(t, pusher.payloads["c2"], 1)
}

func TestSendSnapshot_LookupFailure(t *testing.T) {
	repo := &fakeActionRepo{err: errors.New("store down")}
	pusher := newFakePusher()
	svc := NewSnapshotService(repo, pusher, []string{"plug1"}, time.Second, clockwork.NewFakeClock())

	err := svc.SendSnapshot(context.Background(), "c1")

	assert.Error(t, err)
	assert.Empty(t, pusher.payloads)
}

func TestSendSnapshot_PushFailureIsSurfaced(t *testing.T) {
	pusher := newFakePusher()
	pusher.err = domain.ErrConnectionGone
	svc := NewSnapshotService(&fakeActionRepo{}, pusher, []string{"plug1"}, time.Second, clockwork.NewFakeClock())

	err := svc.SendSnapshot(context.Background(), "c1")

	assert.ErrorIs(t, err, domain.ErrConnectionGone)
}
