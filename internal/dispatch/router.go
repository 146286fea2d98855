// Package dispatch routes fired notifications to their endpoints: email and
// bot delivery through shoutrrr service URLs, webhooks over HTTP, and the
// web interface through a websocket hub. Delivery is fire-and-forget from
// the engine's perspective; outcomes flow back only as sending statuses.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// Message is the rendered payload delivered to an endpoint.
type Message struct {
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	WorkspaceID    string         `json:"workspace_id"`
	NotificationID uint           `json:"notification_id"`
	TriggerID      uint           `json:"trigger_id"`
	Data           map[string]any `json:"data,omitempty"`
}

// Router delivers a message to one endpoint. Implementations either succeed
// or return an error; transient failures are wrapped in RetryableError.
type Router interface {
	Route(ctx context.Context, endpointType string, endpointMeta map[string]any, message Message) error
}

// RetryableError marks a delivery failure worth retrying with backoff.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as retryable.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// ServiceRouter dispatches on the closed endpoint type set.
type ServiceRouter struct {
	webhook *WebhookSender
	shout   *ShoutrrrSender
	hub     *Hub
}

// NewServiceRouter creates a router over the three delivery backends. Any
// backend may be nil; routing to a missing backend fails permanently.
func NewServiceRouter(webhook *WebhookSender, shout *ShoutrrrSender, hub *Hub) *ServiceRouter {
	return &ServiceRouter{webhook: webhook, shout: shout, hub: hub}
}

// Route implements Router.
func (r *ServiceRouter) Route(ctx context.Context, endpointType string, endpointMeta map[string]any, message Message) error {
	switch endpointType {
	case entities.EndpointTypeWebhook:
		if r.webhook == nil {
			return fmt.Errorf("webhook sender not configured")
		}
		return r.webhook.Send(ctx, endpointMeta, message)
	case entities.EndpointTypeEmail, entities.EndpointTypeBot:
		if r.shout == nil {
			return fmt.Errorf("shoutrrr sender not configured")
		}
		return r.shout.Send(ctx, endpointMeta, message)
	case entities.EndpointTypeWebInterface:
		if r.hub == nil {
			return fmt.Errorf("websocket hub not configured")
		}
		return r.hub.Send(ctx, endpointMeta, message)
	default:
		return fmt.Errorf("unknown endpoint type %q", endpointType)
	}
}
