package domain

import "context"

// Plug states accepted by the actuation endpoint.
const (
	StateOn  = "on"
	StateOff = "off"
)

// ActionRecord is one audit entry for a successful actuation. Rejected
// attempts (cooldown, actuator failure) never produce a record.
type ActionRecord struct {
	UserID           string `json:"user_id"`
	Ts               int64  `json:"ts"`
	DeviceGroup      string `json:"device_group"`
	Action           string `json:"action"`
	ActuatorDeviceID string `json:"actuator_device_id"`
	ActuatorResponse string `json:"actuator_response"`
}

type ActionLogRepository interface {
	Insert(ctx context.Context, rec ActionRecord) error
	// LatestByUser returns the most recent action by a user across all
	// device groups, or nil if the user has never acted.
	LatestByUser(ctx context.Context, userID string) (*ActionRecord, error)
	// LatestByGroup returns the most recent action targeting a device
	// group across all users, or nil if the group was never actuated.
	LatestByGroup(ctx context.Context, deviceGroup string) (*ActionRecord, error)
}

// Actuator triggers a physical device through an external service.
type Actuator interface {
	// Trigger fires the device and returns the raw response body.
	Trigger(ctx context.Context, deviceID string) (string, error)
}
