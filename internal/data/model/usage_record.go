package model

import "time"

// UsageRecord is one per-period usage counter row.
type UsageRecord struct {
	ID             uint64    `gorm:"primaryKey;column:usage_record_id"`
	SubscriptionID uint64    `gorm:"column:subscription_id;index:idx_usage_period,unique"`
	OrgID          string    `gorm:"column:org_id;size:64;index"`
	PeriodStart    time.Time `gorm:"column:period_start;index:idx_usage_period,unique"`
	PeriodEnd      time.Time `gorm:"column:period_end"`
	PeriodType     string    `gorm:"column:period_type;size:16;index:idx_usage_period,unique"`
	EmailsSent     int64     `gorm:"column:emails_sent;default:0"`
	PushSent       int64     `gorm:"column:push_sent;default:0"`
	EventsCreated  int64     `gorm:"column:events_created;default:0"`
	StorageUsedMB  int64     `gorm:"column:storage_used_mb;default:0"`
	APIRequests    int64     `gorm:"column:api_requests;default:0"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (UsageRecord) TableName() string { return "usage_record" }
