package model

import "time"

// PaymentRequest is one two-phase payment workflow row.
type PaymentRequest struct {
	ID                   string    `gorm:"primaryKey;column:payment_request_id;size:36"`
	OrgID                string    `gorm:"column:org_id;size:64;index"`
	SubscriptionID       uint64    `gorm:"column:subscription_id;index"`
	RequestType          string    `gorm:"column:request_type;size:16"`
	RequestedPlanCode    string    `gorm:"column:requested_plan_code;size:64"`
	RequestedAddOns      []string  `gorm:"column:requested_add_ons;serializer:json"`
	Amount               float64   `gorm:"column:amount"`
	Currency             string    `gorm:"column:currency;size:8"`
	BillingCycle         string    `gorm:"column:billing_cycle;size:16"`
	Status               string    `gorm:"column:status;size:16;index"`
	RequestedBy          string    `gorm:"column:requested_by;size:64"`
	RespondedBy          string    `gorm:"column:responded_by;size:64"`
	ResponseNote         string    `gorm:"column:response_note"`
	PaymentTransactionID string    `gorm:"column:payment_transaction_id;size:128"`
	ExpiresAt            time.Time `gorm:"column:expires_at;index"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (PaymentRequest) TableName() string { return "payment_request" }
