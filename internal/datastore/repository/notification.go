package repository

import (
	"context"
	"errors"
	"time"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// ErrNotificationNotFound is returned when a notification does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository handles notification CRUD and status transitions.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *entities.Notification) error
	GetNotification(ctx context.Context, id uint) (*entities.Notification, error)

	// Active-set queries used by the lifecycle manager
	GetActiveByTrigger(ctx context.Context, triggerID uint) ([]entities.Notification, error)
	GetActiveByProfile(ctx context.Context, triggerID uint, profileID string) ([]entities.Notification, error)

	// Bulk transitions (no per-row events)
	DeactivateByIDs(ctx context.Context, ids []uint) (int64, error)
	RefreshLastModified(ctx context.Context, ids []uint, now time.Time) (int64, error)
	SetViewed(ctx context.Context, ids []uint, viewed bool) (int64, error)

	// DeprecateWithLifetime deactivates active notifications of a trigger
	// whose last_modified is older than now minus lifetime.
	DeprecateWithLifetime(ctx context.Context, triggerID uint, lifetime time.Duration, now time.Time) (int64, error)

	// UpdateSendingStatus merges one endpoint's delivery status into the
	// notification's statuses map under a row lock.
	UpdateSendingStatus(ctx context.Context, id uint, endpointID uint, status entities.SendingStatus) error

	// GetReactivatable returns recently deactivated notifications whose
	// deactivation coincides with their creation within the inaccuracy
	// window: created and immediately expired without ever being refreshed.
	GetReactivatable(ctx context.Context, triggerID uint, since time.Time, inaccuracy time.Duration) ([]entities.Notification, error)

	// DeleteByIDs hard-deletes notifications. Admin bulk cleanup only; the
	// lifecycle never deletes.
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}
