package models

// AuditLog records ledger mutations for after-the-fact inspection.
type AuditLog struct {
	Base
	OwnerID      string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `gorm:"type:uuid" json:"resource_id"`
	Changes      string `json:"changes,omitempty"`
}
