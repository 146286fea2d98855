// Package notification manages notification records: creation, status
// transitions and the time-windowed expiry and reactivation queries used by
// the lifecycle manager.
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
	"github.com/watchgrid/triggerd/internal/datastore/repository"
)

// ReactivationInaccuracy is the window within which a deactivation
// timestamp counts as coinciding with the creation timestamp. Notifications
// inside the window were created and expired without ever being refreshed.
const ReactivationInaccuracy = 2 * time.Second

// Manager provides notification CRUD and status transitions on top of the
// repository.
type Manager struct {
	repo repository.NotificationRepository
	log  *zap.Logger
}

// NewManager creates a notification Manager.
func NewManager(repo repository.NotificationRepository, log *zap.Logger) *Manager {
	return &Manager{repo: repo, log: log}
}

// Create persists a new active notification for the trigger.
func (m *Manager) Create(ctx context.Context, trigger *entities.Trigger, meta entities.NotificationMeta) (*entities.Notification, error) {
	meta.Trigger = entities.TriggerRef{ID: trigger.ID}
	notification := &entities.Notification{
		WorkspaceID:  trigger.WorkspaceID,
		TriggerID:    trigger.ID,
		ProfileID:    meta.ProfileID,
		Meta:         meta,
		IsActive:     true,
		LastModified: time.Now(),
	}
	if err := m.repo.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}
	m.log.Debug("notification created",
		zap.Uint("notification_id", notification.ID),
		zap.Uint("trigger_id", trigger.ID),
		zap.String("profile_id", meta.ProfileID))
	return notification, nil
}

// GetActive returns the active notifications of a trigger.
func (m *Manager) GetActive(ctx context.Context, triggerID uint) ([]entities.Notification, error) {
	return m.repo.GetActiveByTrigger(ctx, triggerID)
}

// GetActiveByProfile returns the active notifications of a trigger for one
// profile.
func (m *Manager) GetActiveByProfile(ctx context.Context, triggerID uint, profileID string) ([]entities.Notification, error) {
	return m.repo.GetActiveByProfile(ctx, triggerID, profileID)
}

// DeactivateList bulk-deactivates notifications without per-row events.
func (m *Manager) DeactivateList(ctx context.Context, notifications []entities.Notification) (int64, error) {
	return m.repo.DeactivateByIDs(ctx, collectIDs(notifications))
}

// RefreshLastModified advances last_modified on the given notifications,
// marking the condition as still holding.
func (m *Manager) RefreshLastModified(ctx context.Context, notifications []entities.Notification, now time.Time) (int64, error) {
	return m.repo.RefreshLastModified(ctx, collectIDs(notifications), now)
}

// DeprecateWithLifetime deactivates active notifications of a trigger whose
// last confirming detection is older than the lifetime.
func (m *Manager) DeprecateWithLifetime(ctx context.Context, triggerID uint, lifetime time.Duration) (int64, error) {
	return m.repo.DeprecateWithLifetime(ctx, triggerID, lifetime, time.Now())
}

// UpdateSendingStatus records one endpoint's delivery state. This is the
// callback contract for the external delivery tasks.
func (m *Manager) UpdateSendingStatus(ctx context.Context, notificationID, endpointID uint, status entities.SendingStatus) error {
	return m.repo.UpdateSendingStatus(ctx, notificationID, endpointID, status)
}

// GetReactivatable returns the trigger's recently deactivated notifications
// that were created and immediately expired without a refresh. The presence
// paths never call this; it exists for the disabled overflow flow and for
// admin tooling.
func (m *Manager) GetReactivatable(ctx context.Context, trigger *entities.Trigger) ([]entities.Notification, error) {
	since := time.Now().Add(-trigger.Lifetime() - ReactivationInaccuracy)
	return m.repo.GetReactivatable(ctx, trigger.ID, since, ReactivationInaccuracy)
}

// SetViewed marks notifications viewed or unviewed.
func (m *Manager) SetViewed(ctx context.Context, notifications []entities.Notification, viewed bool) (int64, error) {
	return m.repo.SetViewed(ctx, collectIDs(notifications), viewed)
}

// Delete hard-deletes notifications. Admin bulk cleanup only.
func (m *Manager) Delete(ctx context.Context, notifications []entities.Notification) (int64, error) {
	return m.repo.DeleteByIDs(ctx, collectIDs(notifications))
}

func collectIDs(notifications []entities.Notification) []uint {
	ids := make([]uint, 0, len(notifications))
	for i := range notifications {
		ids = append(ids, notifications[i].ID)
	}
	return ids
}
