// Package entities defines the persisted records of the trigger engine.
// Trigger and Notification meta are free-form JSON documents; field names
// and nesting are part of the storage contract and must not change without
// a migration of persisted documents.
package entities

import (
	"time"

	"github.com/watchgrid/triggerd/internal/condlang"
)

// NotificationParams holds per-trigger notification tuning, most notably
// the lifetime. Extension fields round-trip untouched; updates shallow-merge
// rather than replace.
type NotificationParams map[string]any

// ParamLifetime is the key of the notification lifetime, in seconds.
const ParamLifetime = "lifetime"

// Lifetime returns the configured notification lifetime, or 0 if unset.
func (p NotificationParams) Lifetime() time.Duration {
	switch v := p[ParamLifetime].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		// JSON numbers decode as float64
		return time.Duration(int64(v)) * time.Second
	default:
		return 0
	}
}

// Merge shallow-merges src into p, overwriting existing keys.
func (p NotificationParams) Merge(src NotificationParams) {
	for k, v := range src {
		p[k] = v
	}
}

// TriggerMeta is the trigger's JSON meta document.
type TriggerMeta struct {
	NotificationParams NotificationParams         `json:"notification_params"`
	ConditionLanguage  condlang.ConditionLanguage `json:"condition_language"`
}

// Trigger is a persisted rule: a condition over detection events plus the
// endpoints to notify when it holds.
type Trigger struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	WorkspaceID string      `gorm:"size:36;not null;index" json:"workspace_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Meta        TriggerMeta `gorm:"serializer:json" json:"meta"`
	IsActive    bool        `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	Endpoints   []Endpoint  `gorm:"many2many:trigger_endpoints" json:"endpoints"`
}

// TableName returns the table name for GORM.
func (Trigger) TableName() string {
	return "triggers"
}

// Lifetime returns the trigger's configured notification lifetime.
func (t *Trigger) Lifetime() time.Duration {
	return t.Meta.NotificationParams.Lifetime()
}
