package model

import "time"

// AuditLog is one append-only subscription audit row.
type AuditLog struct {
	ID              uint64            `gorm:"primaryKey;column:audit_log_id"`
	OrgID           string            `gorm:"column:org_id;size:64;index:idx_audit_org_created"`
	EventType       string            `gorm:"column:event_type;size:64;index"`
	Details         map[string]string `gorm:"column:details;serializer:json"`
	PreviousStatus  string            `gorm:"column:previous_status;size:16"`
	NewStatus       string            `gorm:"column:new_status;size:16"`
	PerformedBy     string            `gorm:"column:performed_by;size:64"`
	PerformedByRole string            `gorm:"column:performed_by_role;size:32"`
	CreatedAt       time.Time         `gorm:"column:created_at;index:idx_audit_org_created"`
}

func (AuditLog) TableName() string { return "subscription_audit_log" }
