package model

import "time"

// Plan is one subscription plan row. Included feature codes are stored as a
// JSON array; per-feature overrides live in plan_feature rows.
type Plan struct {
	ID                uint64    `gorm:"primaryKey;column:plan_id"`
	Code              string    `gorm:"column:code;uniqueIndex;size:64"`
	Name              string    `gorm:"column:name"`
	Description       string    `gorm:"column:description"`
	PriceMonthly      float64   `gorm:"column:price_monthly"`
	PriceYearly       float64   `gorm:"column:price_yearly"`
	Currency          string    `gorm:"column:currency;size:8"`
	MaxUsers          int       `gorm:"column:max_users"`
	MaxStorageMB      int       `gorm:"column:max_storage_mb"`
	MaxEventsPerMonth int       `gorm:"column:max_events_per_month"`
	MaxEmailsPerMonth int       `gorm:"column:max_emails_per_month"`
	MaxPushPerMonth   int       `gorm:"column:max_push_per_month"`
	TrialDays         int       `gorm:"column:trial_days"`
	GracePeriodDays   int       `gorm:"column:grace_period_days"`
	IncludedFeatures  []string  `gorm:"column:included_features;serializer:json"`
	IsActive          bool      `gorm:"column:is_active;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (Plan) TableName() string { return "plan" }

// PlanFeature is one per-plan feature override row.
type PlanFeature struct {
	ID          uint64 `gorm:"primaryKey;column:plan_feature_id"`
	PlanID      uint64 `gorm:"column:plan_id;index:idx_plan_feature,unique"`
	FeatureCode string `gorm:"column:feature_code;size:64;index:idx_plan_feature,unique"`
	IsEnabled   bool   `gorm:"column:is_enabled"`
	Limit       *int   `gorm:"column:feature_limit"`
	LimitType   string `gorm:"column:limit_type;size:32"`
}

func (PlanFeature) TableName() string { return "plan_feature" }
