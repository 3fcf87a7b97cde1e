package model

import "time"

// OrganizationFeature is one per-organization feature entitlement row.
type OrganizationFeature struct {
	ID               uint64     `gorm:"primaryKey;column:org_feature_id"`
	OrgID            string     `gorm:"column:org_id;size:64;index:idx_org_feature,unique"`
	FeatureCode      string     `gorm:"column:feature_code;size:64;index:idx_org_feature,unique"`
	IsEnabled        bool       `gorm:"column:is_enabled"`
	EnabledAt        *time.Time `gorm:"column:enabled_at"`
	DisabledAt       *time.Time `gorm:"column:disabled_at"`
	DisableReason    string     `gorm:"column:disable_reason"`
	CustomLimit      *int       `gorm:"column:custom_limit"`
	CustomLimitType  string     `gorm:"column:custom_limit_type;size:32"`
	IsPurchasedAddOn bool       `gorm:"column:is_purchased_add_on;default:false"`
	AddOnExpiresAt   *time.Time `gorm:"column:add_on_expires_at"`
	LastModifiedBy   string     `gorm:"column:last_modified_by;size:64"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (OrganizationFeature) TableName() string { return "organization_feature" }
