package entities

import "time"

// SendingStatus is the per-endpoint delivery state of a notification.
type SendingStatus string

const (
	SendingPending  SendingStatus = "pending"
	SendingSuccess  SendingStatus = "success"
	SendingFailed   SendingStatus = "failed"
	SendingRetrying SendingStatus = "retrying"
)

// TriggerRef embeds the owning trigger's id in notification meta.
type TriggerRef struct {
	ID uint `json:"id"`
}

// NotificationMeta is the notification's JSON meta document.
type NotificationMeta struct {
	Type                 string                 `json:"type"`
	Trigger              TriggerRef             `json:"trigger"`
	CameraID             string                 `json:"camera"`
	ProfileID            string                 `json:"profile,omitempty"`
	ActivityID           string                 `json:"activity,omitempty"`
	MatchedProfileGroups []string               `json:"matched_profile_groups,omitempty"`
	FaceBestShotID       string                 `json:"face_best_shot,omitempty"`
	BodyBestShotID       string                 `json:"body_best_shot,omitempty"`
	Limit                *int                   `json:"limit,omitempty"`
	CurrentCount         *int                   `json:"current_count,omitempty"`
	Statuses             map[uint]SendingStatus `json:"statuses,omitempty"`
}

// Notification records a fired trigger condition for one target. It stays
// active while the condition keeps holding and is deprecated, never deleted,
// once the condition has lapsed for the trigger's lifetime.
//
// TriggerID and ProfileID duplicate meta fields as indexed columns so the
// lifecycle queries stay on plain indexes instead of JSON extraction.
type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	WorkspaceID   string           `gorm:"size:36;not null;index" json:"workspace_id"`
	TriggerID     uint             `gorm:"not null;index:idx_notifications_trigger_active,priority:1" json:"trigger_id"`
	ProfileID     string           `gorm:"size:36;default:'';index" json:"profile_id"`
	Meta          NotificationMeta `gorm:"serializer:json" json:"meta"`
	IsActive      bool             `gorm:"not null;index:idx_notifications_trigger_active,priority:2" json:"is_active"`
	IsViewed      bool             `gorm:"not null;default:false" json:"is_viewed"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"creation_date"`
	LastModified  time.Time        `gorm:"index" json:"last_modified"`
	DeactivatedAt *time.Time       `json:"deactivated_at,omitempty"`
}

// TableName returns the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}
