package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

const (
	// maxDeliveryAttempts bounds retries per endpoint delivery.
	maxDeliveryAttempts = 5
	// initialRetryInterval seeds the jittered exponential backoff.
	initialRetryInterval = 2 * time.Second
	// maxRetryInterval caps the backoff growth.
	maxRetryInterval = 30 * time.Second
)

// StatusRecorder receives per-endpoint delivery status transitions. The
// notification manager implements it; tests substitute a fake.
type StatusRecorder interface {
	RecordSendingStatus(ctx context.Context, notificationID, endpointID uint, status entities.SendingStatus) error
}

// Dispatcher fans a fired notification out to the trigger's endpoints. Each
// delivery runs in its own goroutine with bounded, jittered exponential
// retry; the engine never blocks on or sees delivery failures.
type Dispatcher struct {
	router   Router
	recorder StatusRecorder
	log      *zap.Logger

	retryInterval time.Duration
	wg            sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over the given router and recorder.
func NewDispatcher(router Router, recorder StatusRecorder, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		router:        router,
		recorder:      recorder,
		log:           log,
		retryInterval: initialRetryInterval,
	}
}

// Send enqueues one async delivery per endpoint of the trigger and returns
// immediately. Every delivery starts in the pending status.
func (d *Dispatcher) Send(ctx context.Context, notification *entities.Notification, trigger *entities.Trigger) {
	for i := range trigger.Endpoints {
		endpoint := trigger.Endpoints[i]
		message := buildMessage(notification, trigger, &endpoint)

		d.recordStatus(ctx, notification.ID, endpoint.ID, entities.SendingPending)

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(notification.ID, endpoint, message)
		}()
	}
}

// Wait blocks until all in-flight deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// deliver runs one endpoint delivery with retries and records the outcome.
func (d *Dispatcher) deliver(notificationID uint, endpoint entities.Endpoint, message Message) {
	ctx := context.Background()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retryInterval
	bo.MaxInterval = maxRetryInterval

	operation := func() error {
		err := d.router.Route(ctx, endpoint.Type, endpoint.Meta, message)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, _ time.Duration) {
		d.recordStatus(ctx, notificationID, endpoint.ID, entities.SendingRetrying)
		d.log.Warn("notification delivery retrying",
			zap.Uint("notification_id", notificationID),
			zap.Uint("endpoint_id", endpoint.ID),
			zap.String("endpoint_type", endpoint.Type),
			zap.Error(err))
	}

	err := backoff.RetryNotify(operation, backoff.WithMaxRetries(bo, maxDeliveryAttempts-1), notify)
	if err != nil {
		d.recordStatus(ctx, notificationID, endpoint.ID, entities.SendingFailed)
		d.log.Error("notification delivery failed",
			zap.Uint("notification_id", notificationID),
			zap.Uint("endpoint_id", endpoint.ID),
			zap.String("endpoint_type", endpoint.Type),
			zap.Error(err))
		return
	}
	d.recordStatus(ctx, notificationID, endpoint.ID, entities.SendingSuccess)
}

func (d *Dispatcher) recordStatus(ctx context.Context, notificationID, endpointID uint, status entities.SendingStatus) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordSendingStatus(ctx, notificationID, endpointID, status); err != nil {
		d.log.Error("failed to record sending status",
			zap.Uint("notification_id", notificationID),
			zap.Uint("endpoint_id", endpointID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// buildMessage renders the endpoint payload, substituting template
// variables from the notification meta. Endpoints without templates get the
// defaults.
func buildMessage(notification *entities.Notification, trigger *entities.Trigger, endpoint *entities.Endpoint) Message {
	meta := &notification.Meta

	title, _ := endpoint.Meta["template_title"].(string)
	body, _ := endpoint.Meta["template_message"].(string)
	if title == "" {
		title = fmt.Sprintf("Trigger fired: %s", trigger.Title)
	}
	if body == "" {
		body = fmt.Sprintf("Person %s detected at camera %s", meta.ProfileID, meta.CameraID)
	}

	pairs := []string{
		"{{trigger_title}}", trigger.Title,
		"{{workspace_id}}", trigger.WorkspaceID,
		"{{camera_id}}", meta.CameraID,
		"{{profile_id}}", meta.ProfileID,
		"{{activity_id}}", meta.ActivityID,
		"{{matched_groups}}", strings.Join(meta.MatchedProfileGroups, ", "),
	}
	replacer := strings.NewReplacer(pairs...)

	return Message{
		Title:          replacer.Replace(title),
		Body:           replacer.Replace(body),
		WorkspaceID:    notification.WorkspaceID,
		NotificationID: notification.ID,
		TriggerID:      trigger.ID,
		Data: map[string]any{
			"type":                   meta.Type,
			"camera":                 meta.CameraID,
			"profile":                meta.ProfileID,
			"activity":               meta.ActivityID,
			"matched_profile_groups": meta.MatchedProfileGroups,
		},
	}
}
