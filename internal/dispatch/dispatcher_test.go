package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// scriptedRouter fails the first failures deliveries, then succeeds.
type scriptedRouter struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	messages []Message
}

func (r *scriptedRouter) Route(_ context.Context, _ string, _ map[string]any, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failures {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

type statusLog struct {
	mu      sync.Mutex
	entries []entities.SendingStatus
}

func (s *statusLog) RecordSendingStatus(_ context.Context, _, _ uint, status entities.SendingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, status)
	return nil
}

func (s *statusLog) statuses() []entities.SendingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.SendingStatus(nil), s.entries...)
}

func testTrigger() *entities.Trigger {
	return &entities.Trigger{
		ID:          7,
		WorkspaceID: "ws-1",
		Title:       "VIP at entrance",
		Endpoints: []entities.Endpoint{
			{ID: 42, Type: entities.EndpointTypeWebhook, Meta: map[string]any{"url": "http://sink"}},
		},
	}
}

func testNotification() *entities.Notification {
	return &entities.Notification{
		ID:          13,
		WorkspaceID: "ws-1",
		TriggerID:   7,
		ProfileID:   "profile-1",
		Meta: entities.NotificationMeta{
			Type:                 "presence",
			CameraID:             "cam-1",
			ProfileID:            "profile-1",
			ActivityID:           "activity-1",
			MatchedProfileGroups: []string{"vip"},
		},
	}
}

func newTestDispatcher(router Router, recorder StatusRecorder) *Dispatcher {
	d := NewDispatcher(router, recorder, zap.NewNop())
	d.retryInterval = time.Millisecond
	return d
}

func TestDispatcher_SuccessfulDelivery(t *testing.T) {
	router := &scriptedRouter{}
	log := &statusLog{}
	d := newTestDispatcher(router, log)

	d.Send(t.Context(), testNotification(), testTrigger())
	d.Wait()

	assert.Equal(t, 1, router.calls)
	assert.Equal(t, []entities.SendingStatus{entities.SendingPending, entities.SendingSuccess}, log.statuses())
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	router := &scriptedRouter{failures: 2, err: Retryable(errors.New("connection refused"))}
	log := &statusLog{}
	d := newTestDispatcher(router, log)

	d.Send(t.Context(), testNotification(), testTrigger())
	d.Wait()

	assert.Equal(t, 3, router.calls)
	assert.Equal(t, []entities.SendingStatus{
		entities.SendingPending,
		entities.SendingRetrying,
		entities.SendingRetrying,
		entities.SendingSuccess,
	}, log.statuses())
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	router := &scriptedRouter{failures: 100, err: Retryable(errors.New("connection refused"))}
	log := &statusLog{}
	d := newTestDispatcher(router, log)

	d.Send(t.Context(), testNotification(), testTrigger())
	d.Wait()

	assert.Equal(t, maxDeliveryAttempts, router.calls)
	statuses := log.statuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, entities.SendingFailed, statuses[len(statuses)-1])
}

func TestDispatcher_PermanentErrorSkipsRetries(t *testing.T) {
	router := &scriptedRouter{failures: 100, err: errors.New("endpoint misconfigured")}
	log := &statusLog{}
	d := newTestDispatcher(router, log)

	d.Send(t.Context(), testNotification(), testTrigger())
	d.Wait()

	assert.Equal(t, 1, router.calls)
	assert.Equal(t, []entities.SendingStatus{entities.SendingPending, entities.SendingFailed}, log.statuses())
}

func TestDispatcher_OneDeliveryPerEndpoint(t *testing.T) {
	router := &scriptedRouter{}
	log := &statusLog{}
	d := newTestDispatcher(router, log)

	trigger := testTrigger()
	trigger.Endpoints = append(trigger.Endpoints,
		entities.Endpoint{ID: 43, Type: entities.EndpointTypeEmail, Meta: map[string]any{}},
		entities.Endpoint{ID: 44, Type: entities.EndpointTypeWebInterface, Meta: map[string]any{}},
	)

	d.Send(t.Context(), testNotification(), trigger)
	d.Wait()

	assert.Equal(t, 3, router.calls)
}

func TestBuildMessage_Defaults(t *testing.T) {
	trigger := testTrigger()
	notification := testNotification()

	message := buildMessage(notification, trigger, &trigger.Endpoints[0])

	assert.Equal(t, "Trigger fired: VIP at entrance", message.Title)
	assert.Equal(t, "Person profile-1 detected at camera cam-1", message.Body)
	assert.Equal(t, uint(13), message.NotificationID)
	assert.Equal(t, uint(7), message.TriggerID)
	assert.Equal(t, "cam-1", message.Data["camera"])
}

func TestBuildMessage_Templates(t *testing.T) {
	trigger := testTrigger()
	trigger.Endpoints[0].Meta["template_title"] = "{{trigger_title}} on {{camera_id}}"
	trigger.Endpoints[0].Meta["template_message"] = "{{profile_id}} seen ({{matched_groups}})"
	notification := testNotification()

	message := buildMessage(notification, trigger, &trigger.Endpoints[0])

	assert.Equal(t, "VIP at entrance on cam-1", message.Title)
	assert.Equal(t, "profile-1 seen (vip)", message.Body)
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("boom")
	assert.False(t, IsRetryable(base))
	assert.True(t, IsRetryable(Retryable(base)))
	assert.True(t, IsRetryable(Retryable(base)), "wrapping must be stable")
	assert.ErrorIs(t, Retryable(base), base)
}
