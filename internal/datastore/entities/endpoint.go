package entities

// Endpoint types define the delivery destinations a trigger can notify.
const (
	EndpointTypeEmail        = "Email"
	EndpointTypeWebhook      = "Webhook"
	EndpointTypeWebInterface = "WebInterface"
	EndpointTypeBot          = "Bot"
)

// Endpoint is a delivery destination for fired notifications. Meta carries
// type-specific settings (address, webhook URL, service URL, chat id).
type Endpoint struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	WorkspaceID string         `gorm:"size:36;not null;index" json:"workspace_id"`
	Type        string         `gorm:"size:20;not null" json:"type"`
	Meta        map[string]any `gorm:"serializer:json" json:"meta"`
}

// TableName returns the table name for GORM.
func (Endpoint) TableName() string {
	return "endpoints"
}
