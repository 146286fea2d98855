// Package repository provides datastore access for triggers and
// notifications in the interface-plus-gorm-implementation style.
package repository

import (
	"context"
	"errors"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// ErrTriggerNotFound is returned when a trigger does not exist.
var ErrTriggerNotFound = errors.New("trigger not found")

// TriggerRepository handles trigger CRUD and the reverse lookups needed by
// cascade-delete hooks.
type TriggerRepository interface {
	// CRUD
	CreateTrigger(ctx context.Context, trigger *entities.Trigger, endpointIDs []uint) error
	GetTrigger(ctx context.Context, id uint) (*entities.Trigger, error)
	UpdateTriggerMeta(ctx context.Context, id uint, meta entities.TriggerMeta) error
	SetTriggerActive(ctx context.Context, id uint, active bool) error
	// DeleteTrigger detaches endpoints and deactivates (not deletes) the
	// trigger's notifications before removing the trigger itself.
	DeleteTrigger(ctx context.Context, id uint) error

	// Scheduler queries
	ListActiveTriggers(ctx context.Context, workspaceID string) ([]entities.Trigger, error)
	ListWorkspaceIDs(ctx context.Context) ([]string, error)

	// ListTriggersReferencing returns active triggers whose condition
	// language references the given uuid as a target or place. Used when a
	// label, profile or location is removed.
	ListTriggersReferencing(ctx context.Context, uuid string) ([]entities.Trigger, error)
}
