// Package app holds the services orchestrating domain operations.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

// PlugState is one entry of a snapshot: the last-known actuator state for
// a device group.
type PlugState struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SnapshotService answers a client's hello by pushing the current actuator
// states to that one connection.
type SnapshotService struct {
	actions      domain.ActionLogRepository
	pusher       domain.Pusher
	deviceGroups []string
	pushTimeout  time.Duration
	clock        clockwork.Clock
}

func NewSnapshotService(actions domain.ActionLogRepository, pusher domain.Pusher, deviceGroups []string, pushTimeout time.Duration, clock clockwork.Clock) *SnapshotService {
	return &SnapshotService{
		actions:      actions,
		pusher:       pusher,
		deviceGroups: deviceGroups,
		pushTimeout:  pushTimeout,
		clock:        clock,
	}
}

// SendSnapshot gathers the most recent action per configured device group
// and pushes a single snapshot message to the requesting connection. A
// group with no recorded action defaults to off at timestamp 0. Unlike a
// broadcast, a failed push here is surfaced to the caller.
func (s *SnapshotService) SendSnapshot(ctx context.Context, connectionID string) error {
	items := make([]PlugState, 0, len(s.deviceGroups))
	for _, group := range s.deviceGroups {
		state := PlugState{ID: group, State: domain.StateOff, UpdatedAt: 0}

		last, err := s.actions.LatestByGroup(ctx, group)
		if err != nil {
			return fmt.Errorf("failed to load last action for %s: %w", group, err)
		}
		if last != nil {
			state.State = last.Action
			state.UpdatedAt = last.Ts
		}
		items = append(items, state)
	}

	event := domain.Event{
		Type: "snapshot",
		Ts:   s.clock.Now().Unix(),
		Payload: map[string]any{
			"items": items,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()
	if err := s.pusher.Push(pushCtx, connectionID, payload); err != nil {
		return fmt.Errorf("failed to push snapshot to %s: %w", connectionID, err)
	}
	return nil
}
