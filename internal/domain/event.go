package domain

import "context"

// Event is the envelope every realtime message is wrapped in.
type Event struct {
	Type    string `json:"type"`
	Source  string `json:"source,omitempty"`
	Ts      int64  `json:"ts"`
	Payload any    `json:"payload,omitempty"`
}

// CooldownInfo describes the rate-limit state attached to action events.
type CooldownInfo struct {
	Active        bool           `json:"active"`
	RetryAfter    int64          `json:"retryAfter,omitempty"`
	NextAllowedAt int64          `json:"nextAllowedAt"`
	Reason        string         `json:"reason,omitempty"`
	User          map[string]any `json:"user,omitempty"`
	Group         map[string]any `json:"group,omitempty"`
}

// ActionEvent is broadcast after every actuation attempt that reaches the
// cooldown decision, whether it was rejected or carried out.
type ActionEvent struct {
	Type        string       `json:"type"`
	Ts          int64        `json:"ts"`
	UserID      string       `json:"user_id"`
	DeviceGroup string       `json:"deviceGroup"`
	Action      string       `json:"action,omitempty"`
	Status      int          `json:"status"`
	Cooldown    CooldownInfo `json:"cooldown"`
}

// Broadcaster pushes an event to every currently-registered connection,
// best effort, at most once per connection per call.
type Broadcaster interface {
	BroadcastToAll(ctx context.Context, event any) error
}
