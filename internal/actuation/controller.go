// Package actuation rate-limits and executes smart-plug commands.
package actuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bahrain-bp/unity-sub000/internal/config"
	"github.com/bahrain-bp/unity-sub000/internal/domain"
	apperrors "github.com/bahrain-bp/unity-sub000/internal/errors"
	"github.com/bahrain-bp/unity-sub000/internal/metrics"
)

// maxResponseLen bounds the stored actuator response.
const maxResponseLen = 500

// Result is returned on a successful actuation.
type Result struct {
	DeviceGroup      string `json:"deviceGroup"`
	DesiredState     string `json:"desiredState"`
	ActuatorResponse string `json:"actuatorResponse"`
	NextAllowedAt    int64  `json:"nextAllowedAt"`
}

// Controller enforces two independent cooldown windows (per acting user,
// per target device group) before invoking the external actuator, then
// records and broadcasts the outcome.
//
// The cooldown check and the audit write are not atomic: two concurrent
// requests can both pass the check before either writes its record,
// briefly violating the window. Accepted, see DESIGN.md.
type Controller struct {
	actions         domain.ActionLogRepository
	actuator        domain.Actuator
	broadcaster     domain.Broadcaster
	deviceMap       map[string]config.PlugDevice
	cooldownWindow  time.Duration
	actuatorTimeout time.Duration
	clock           clockwork.Clock
}

func NewController(
	actions domain.ActionLogRepository,
	actuator domain.Actuator,
	broadcaster domain.Broadcaster,
	deviceMap map[string]config.PlugDevice,
	cooldownWindow time.Duration,
	actuatorTimeout time.Duration,
	clock clockwork.Clock,
) *Controller {
	return &Controller{
		actions:         actions,
		actuator:        actuator,
		broadcaster:     broadcaster,
		deviceMap:       deviceMap,
		cooldownWindow:  cooldownWindow,
		actuatorTimeout: actuatorTimeout,
		clock:           clock,
	}
}

type lookupResult struct {
	record *domain.ActionRecord
	err    error
}

// Actuate validates the command, checks both cooldown windows, invokes the
// actuator and persists plus broadcasts the outcome. Cooldown rejections
// write no record; actuator failures write no record and broadcast nothing.
func (c *Controller) Actuate(ctx context.Context, userID, deviceGroup, desiredState string) (*Result, error) {
	if desiredState != domain.StateOn && desiredState != domain.StateOff {
		metrics.ActuationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.ValidationError(
			"Invalid payload. Expected { deviceGroup, desiredState: 'on'|'off' }")
	}
	devices, ok := c.deviceMap[deviceGroup]
	if !ok {
		metrics.ActuationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.ValidationError(fmt.Sprintf("Unknown device group: %s", deviceGroup))
	}

	deviceID := devices.Off
	if desiredState == domain.StateOn {
		deviceID = devices.On
	}

	// Both cooldown lookups run concurrently and must settle before the
	// decision; a missing record means no prior action.
	userCh := make(chan lookupResult, 1)
	groupCh := make(chan lookupResult, 1)
	go func() {
		rec, err := c.actions.LatestByUser(ctx, userID)
		userCh <- lookupResult{record: rec, err: err}
	}()
	go func() {
		rec, err := c.actions.LatestByGroup(ctx, deviceGroup)
		groupCh <- lookupResult{record: rec, err: err}
	}()
	lastUser, lastGroup := <-userCh, <-groupCh

	if lastUser.err != nil {
		metrics.ActuationsTotal.WithLabelValues("storage_error").Inc()
		return nil, apperrors.InternalError("failed to load last user action", lastUser.err)
	}
	if lastGroup.err != nil {
		metrics.ActuationsTotal.WithLabelValues("storage_error").Inc()
		return nil, apperrors.InternalError("failed to load last group action", lastGroup.err)
	}

	now := c.clock.Now().Unix()
	cooldownSeconds := int64(c.cooldownWindow / time.Second)
	retryAfterUser := remainingCooldown(lastUser.record, now, cooldownSeconds)
	retryAfterGroup := remainingCooldown(lastGroup.record, now, cooldownSeconds)

	if retryAfter := max(retryAfterUser, retryAfterGroup); retryAfter > 0 {
		metrics.ActuationsTotal.WithLabelValues("cooldown").Inc()
		c.broadcastRejection(ctx, userID, deviceGroup, now, retryAfter, retryAfterUser, retryAfterGroup)

		return nil, apperrors.CooldownError(
			fmt.Sprintf("Cooldown active. Please wait %d seconds.", retryAfter), retryAfter,
		).WithContext("cooldown", map[string]any{
			"user":  retryAfterUser,
			"group": retryAfterGroup,
		})
	}

	actuatorCtx, cancel := context.WithTimeout(ctx, c.actuatorTimeout)
	defer cancel()
	response, err := c.actuator.Trigger(actuatorCtx, deviceID)
	if err != nil {
		metrics.ActuationsTotal.WithLabelValues("actuator_error").Inc()
		appErr := apperrors.ExternalError("Failed to trigger actuator", err)
		var actErr *ActuatorError
		if errors.As(err, &actErr) {
			appErr.WithContext("status", actErr.StatusCode).WithContext("response", actErr.Body)
		}
		return nil, appErr
	}

	record := domain.ActionRecord{
		UserID:           userID,
		Ts:               now,
		DeviceGroup:      deviceGroup,
		Action:           desiredState,
		ActuatorDeviceID: deviceID,
		ActuatorResponse: truncate(response, maxResponseLen),
	}
	if err := c.actions.Insert(ctx, record); err != nil {
		metrics.ActuationsTotal.WithLabelValues("storage_error").Inc()
		return nil, apperrors.InternalError("failed to record action", err)
	}
	metrics.ActuationsTotal.WithLabelValues("success").Inc()

	c.broadcastSuccess(ctx, record, now+cooldownSeconds)

	return &Result{
		DeviceGroup:      deviceGroup,
		DesiredState:     desiredState,
		ActuatorResponse: response,
		NextAllowedAt:    now + cooldownSeconds,
	}, nil
}

// remainingCooldown returns how many seconds of the window are left after
// the given record, or 0 when the window has passed or no record exists.
func remainingCooldown(record *domain.ActionRecord, now, cooldownSeconds int64) int64 {
	if record == nil {
		return 0
	}
	elapsed := now - record.Ts
	if elapsed >= cooldownSeconds {
		return 0
	}
	return cooldownSeconds - elapsed
}

// broadcastRejection pushes the cooldown state to all clients, best effort.
// When both windows are active the group cooldown names the blocking
// reason, even though retryAfter is the max of both.
func (c *Controller) broadcastRejection(ctx context.Context, userID, deviceGroup string, now, retryAfter, retryAfterUser, retryAfterGroup int64) {
	reason := "user"
	if retryAfterGroup > 0 {
		reason = "group"
	}

	event := domain.ActionEvent{
		Type:        "action",
		Ts:          now,
		UserID:      userID,
		DeviceGroup: deviceGroup,
		Status:      429,
		Cooldown: domain.CooldownInfo{
			Active:        true,
			RetryAfter:    retryAfter,
			NextAllowedAt: now + retryAfter,
			Reason:        reason,
			User:          map[string]any{"retryAfter": retryAfterUser},
			Group:         map[string]any{"retryAfter": retryAfterGroup},
		},
	}
	if err := c.broadcaster.BroadcastToAll(ctx, event); err != nil {
		slog.Error("Failed to broadcast cooldown rejection", "device_group", deviceGroup, "error", err)
	}
}

func (c *Controller) broadcastSuccess(ctx context.Context, record domain.ActionRecord, nextAllowedAt int64) {
	event := domain.ActionEvent{
		Type:        "action",
		Ts:          record.Ts,
		UserID:      record.UserID,
		DeviceGroup: record.DeviceGroup,
		Action:      record.Action,
		Status:      200,
		Cooldown: domain.CooldownInfo{
			Active:        false,
			NextAllowedAt: nextAllowedAt,
		},
	}
	if err := c.broadcaster.BroadcastToAll(ctx, event); err != nil {
		slog.Error("Failed to broadcast action result", "device_group", record.DeviceGroup, "error", err)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
