package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// notificationRepository implements NotificationRepository.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateNotification inserts a notification. LastModified defaults to the
// creation instant when unset.
func (r *notificationRepository) CreateNotification(ctx context.Context, notification *entities.Notification) error {
	if notification.LastModified.IsZero() {
		notification.LastModified = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotification returns a single notification by id.
// Returns ErrNotificationNotFound if it does not exist.
func (r *notificationRepository) GetNotification(ctx context.Context, id uint) (*entities.Notification, error) {
	var notification entities.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification %d: %w", id, err)
	}
	return &notification, nil
}

// GetActiveByTrigger returns the active notifications of a trigger.
func (r *notificationRepository) GetActiveByTrigger(ctx context.Context, triggerID uint) ([]entities.Notification, error) {
	var notifications []entities.Notification
	err := r.db.WithContext(ctx).
		Where("trigger_id = ? AND is_active = ?", triggerID, true).
		Order("id ASC").Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active notifications: %w", err)
	}
	return notifications, nil
}

// GetActiveByProfile returns the active notifications of a trigger for one
// profile.
func (r *notificationRepository) GetActiveByProfile(ctx context.Context, triggerID uint, profileID string) ([]entities.Notification, error) {
	var notifications []entities.Notification
	err := r.db.WithContext(ctx).
		Where("trigger_id = ? AND profile_id = ? AND is_active = ?", triggerID, profileID, true).
		Order("id ASC").Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active notifications by profile: %w", err)
	}
	return notifications, nil
}

// DeactivateByIDs deactivates the given notifications, recording when.
func (r *notificationRepository) DeactivateByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Updates(map[string]any{"is_active": false, "deactivated_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RefreshLastModified advances last_modified on the given notifications.
func (r *notificationRepository) RefreshLastModified(ctx context.Context, ids []uint, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("id IN ?", ids).
		Update("last_modified", now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to refresh notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SetViewed marks notifications viewed or unviewed.
func (r *notificationRepository) SetViewed(ctx context.Context, ids []uint, viewed bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("id IN ?", ids).
		Update("is_viewed", viewed)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications viewed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeprecateWithLifetime is the expiry sweep: active notifications of the
// trigger whose last confirming detection is older than the lifetime are
// deactivated.
func (r *notificationRepository) DeprecateWithLifetime(ctx context.Context, triggerID uint, lifetime time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-lifetime)
	result := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("trigger_id = ? AND is_active = ? AND last_modified < ?", triggerID, true, cutoff).
		Updates(map[string]any{"is_active": false, "deactivated_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deprecate notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateSendingStatus merges one endpoint's delivery status into the
// statuses map. The row lock serializes concurrent delivery callbacks so a
// late failure cannot clobber another endpoint's success.
func (r *notificationRepository) UpdateSendingStatus(ctx context.Context, id uint, endpointID uint, status entities.SendingStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var notification entities.Notification
		if err := lockForUpdate(tx).First(&notification, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotificationNotFound
			}
			return fmt.Errorf("failed to lock notification %d: %w", id, err)
		}
		if notification.Meta.Statuses == nil {
			notification.Meta.Statuses = make(map[uint]entities.SendingStatus)
		}
		notification.Meta.Statuses[endpointID] = status
		if err := tx.Model(&notification).Select("meta").Updates(&notification).Error; err != nil {
			return fmt.Errorf("failed to update sending status: %w", err)
		}
		return nil
	})
}

// GetReactivatable returns notifications deactivated since the given time
// whose deactivation timestamp equals their creation timestamp within the
// inaccuracy window: created and expired without ever being refreshed.
func (r *notificationRepository) GetReactivatable(ctx context.Context, triggerID uint, since time.Time, inaccuracy time.Duration) ([]entities.Notification, error) {
	var candidates []entities.Notification
	err := r.db.WithContext(ctx).
		Where("trigger_id = ? AND is_active = ? AND deactivated_at >= ?", triggerID, false, since).
		Order("id ASC").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reactivatable notifications: %w", err)
	}

	var out []entities.Notification
	for i := range candidates {
		n := &candidates[i]
		if n.DeactivatedAt == nil {
			continue
		}
		delta := n.DeactivatedAt.Sub(n.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= inaccuracy {
			out = append(out, *n)
		}
	}
	return out, nil
}

// DeleteByIDs hard-deletes notifications.
func (r *notificationRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Delete(&entities.Notification{}, ids)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
