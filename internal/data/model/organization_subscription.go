package model

import "time"

// OrganizationSubscription is the single subscription row per organization.
type OrganizationSubscription struct {
	ID                 uint64     `gorm:"primaryKey;column:subscription_id"`
	OrgID              string     `gorm:"column:org_id;size:64;uniqueIndex"`
	PlanCode           string     `gorm:"column:plan_code;size:64"`
	Status             string     `gorm:"column:status;size:16;index"`
	BillingCycle       string     `gorm:"column:billing_cycle;size:16"`
	CurrentPeriodStart time.Time  `gorm:"column:current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"column:current_period_end;index"`
	TrialEndsAt        *time.Time `gorm:"column:trial_ends_at"`
	GracePeriodEndsAt  *time.Time `gorm:"column:grace_period_ends_at;index"`
	AutoRenew          bool       `gorm:"column:auto_renew;default:true"`
	CustomMaxUsers     *int       `gorm:"column:custom_max_users"`
	CustomMaxStorageMB *int       `gorm:"column:custom_max_storage_mb"`
	LastPaymentID      *string    `gorm:"column:last_payment_id;size:128"`
	LastPaymentAmount  *float64   `gorm:"column:last_payment_amount"`
	NextBillingDate    *time.Time `gorm:"column:next_billing_date"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (OrganizationSubscription) TableName() string { return "organization_subscription" }
