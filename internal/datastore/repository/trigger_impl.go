package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/watchgrid/triggerd/internal/condlang"
	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// triggerRepository implements TriggerRepository.
type triggerRepository struct {
	db *gorm.DB
}

// NewTriggerRepository creates a new TriggerRepository.
func NewTriggerRepository(db *gorm.DB) TriggerRepository {
	return &triggerRepository{db: db}
}

// CreateTrigger creates a trigger and attaches the given endpoints.
func (r *triggerRepository) CreateTrigger(ctx context.Context, trigger *entities.Trigger, endpointIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trigger).Error; err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
		if len(endpointIDs) == 0 {
			return nil
		}
		var endpoints []entities.Endpoint
		if err := tx.Find(&endpoints, endpointIDs).Error; err != nil {
			return fmt.Errorf("failed to load endpoints: %w", err)
		}
		if len(endpoints) != len(endpointIDs) {
			return fmt.Errorf("failed to attach endpoints: %d of %d found", len(endpoints), len(endpointIDs))
		}
		if err := tx.Model(trigger).Association("Endpoints").Append(&endpoints); err != nil {
			return fmt.Errorf("failed to attach endpoints: %w", err)
		}
		return nil
	})
}

// GetTrigger returns a single trigger with its endpoints.
// Returns ErrTriggerNotFound if the trigger does not exist.
func (r *triggerRepository) GetTrigger(ctx context.Context, id uint) (*entities.Trigger, error) {
	var trigger entities.Trigger
	if err := r.db.WithContext(ctx).Preload("Endpoints").First(&trigger, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTriggerNotFound
		}
		return nil, fmt.Errorf("failed to get trigger %d: %w", id, err)
	}
	return &trigger, nil
}

// UpdateTriggerMeta replaces the trigger's meta document under a row lock so
// concurrent builder updates cannot interleave.
func (r *triggerRepository) UpdateTriggerMeta(ctx context.Context, id uint, meta entities.TriggerMeta) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trigger entities.Trigger
		if err := lockForUpdate(tx).First(&trigger, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTriggerNotFound
			}
			return fmt.Errorf("failed to lock trigger %d: %w", id, err)
		}
		trigger.Meta = meta
		if err := tx.Save(&trigger).Error; err != nil {
			return fmt.Errorf("failed to update trigger meta: %w", err)
		}
		return nil
	})
}

// SetTriggerActive enables or disables a trigger.
func (r *triggerRepository) SetTriggerActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).Model(&entities.Trigger{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle trigger %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTriggerNotFound
	}
	return nil
}

// DeleteTrigger detaches endpoints, deactivates the trigger's notifications
// and deletes the trigger row.
func (r *triggerRepository) DeleteTrigger(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trigger entities.Trigger
		if err := tx.First(&trigger, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTriggerNotFound
			}
			return fmt.Errorf("failed to get trigger %d: %w", id, err)
		}
		if err := tx.Model(&trigger).Association("Endpoints").Clear(); err != nil {
			return fmt.Errorf("failed to detach endpoints: %w", err)
		}
		now := time.Now()
		if err := tx.Model(&entities.Notification{}).
			Where("trigger_id = ? AND is_active = ?", id, true).
			Updates(map[string]any{"is_active": false, "deactivated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to deactivate notifications: %w", err)
		}
		if err := tx.Delete(&trigger).Error; err != nil {
			return fmt.Errorf("failed to delete trigger %d: %w", id, err)
		}
		return nil
	})
}

// ListActiveTriggers returns the active triggers of a workspace with their
// endpoints preloaded.
func (r *triggerRepository) ListActiveTriggers(ctx context.Context, workspaceID string) ([]entities.Trigger, error) {
	var triggers []entities.Trigger
	err := r.db.WithContext(ctx).Preload("Endpoints").
		Where("workspace_id = ? AND is_active = ?", workspaceID, true).
		Order("id ASC").Find(&triggers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active triggers: %w", err)
	}
	return triggers, nil
}

// ListWorkspaceIDs returns the distinct workspaces that have active triggers.
func (r *triggerRepository) ListWorkspaceIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entities.Trigger{}).
		Where("is_active = ?", true).
		Distinct("workspace_id").Order("workspace_id ASC").Pluck("workspace_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace ids: %w", err)
	}
	return ids, nil
}

// ListTriggersReferencing scans active triggers' condition languages for a
// target or place reference. Meta is an opaque JSON column, so the scan
// parses each document instead of filtering in SQL.
func (r *triggerRepository) ListTriggersReferencing(ctx context.Context, uuid string) ([]entities.Trigger, error) {
	var triggers []entities.Trigger
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").Find(&triggers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}

	var matched []entities.Trigger
	for i := range triggers {
		parser, err := condlang.NewParser(triggers[i].Meta.ConditionLanguage)
		if err != nil {
			// Corrupted meta must not hide other triggers from the caller.
			continue
		}
		if parser.HasTarget(uuid) || parser.HasPlace(uuid) {
			matched = append(matched, triggers[i])
		}
	}
	return matched, nil
}
