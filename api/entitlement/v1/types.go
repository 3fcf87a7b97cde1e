// Package v1 defines the request and reply payloads of the HTTP surface.
package v1

import "time"

// Feature is the catalog view of one feature.
type Feature struct {
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Category          string  `json:"category,omitempty"`
	IsCore            bool    `json:"isCore"`
	IsPremium         bool    `json:"isPremium"`
	IsAddOn           bool    `json:"isAddOn"`
	AddOnPriceMonthly float64 `json:"addOnPriceMonthly,omitempty"`
	AddOnPriceYearly  float64 `json:"addOnPriceYearly,omitempty"`
	IsActive          bool    `json:"isActive"`
}

// CreateFeatureRequest creates a catalog feature.
type CreateFeatureRequest struct {
	Code              string  `json:"code" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	IsCore            bool    `json:"isCore"`
	IsPremium         bool    `json:"isPremium"`
	IsAddOn           bool    `json:"isAddOn"`
	AddOnPriceMonthly float64 `json:"addOnPriceMonthly" validate:"gte=0"`
	AddOnPriceYearly  float64 `json:"addOnPriceYearly" validate:"gte=0"`
}

// UpdateFeatureRequest updates mutable feature fields.
type UpdateFeatureRequest struct {
	Name              string  `json:"name" validate:"required"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	IsCore            bool    `json:"isCore"`
	IsPremium         bool    `json:"isPremium"`
	IsAddOn           bool    `json:"isAddOn"`
	AddOnPriceMonthly float64 `json:"addOnPriceMonthly" validate:"gte=0"`
	AddOnPriceYearly  float64 `json:"addOnPriceYearly" validate:"gte=0"`
	IsActive          bool    `json:"isActive"`
}

// ListFeaturesReply lists catalog features.
type ListFeaturesReply struct {
	Features []*Feature `json:"features"`
}

// PlanLimits is the per-plan quota block.
type PlanLimits struct {
	MaxUsers          int `json:"maxUsers" validate:"gte=0"`
	MaxStorageMB      int `json:"maxStorageMb" validate:"gte=0"`
	MaxEventsPerMonth int `json:"maxEventsPerMonth" validate:"gte=0"`
	MaxEmailsPerMonth int `json:"maxEmailsPerMonth" validate:"gte=0"`
	MaxPushPerMonth   int `json:"maxPushPerMonth" validate:"gte=0"`
}

// PlanFeatureOverride adjusts one feature inside a plan.
type PlanFeatureOverride struct {
	FeatureCode string `json:"featureCode" validate:"required"`
	IsEnabled   bool   `json:"isEnabled"`
	Limit       *int   `json:"limit,omitempty"`
	LimitType   string `json:"limitType,omitempty"`
}

// Plan is the catalog view of one plan.
type Plan struct {
	Code             string                 `json:"code"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	PriceMonthly     float64                `json:"priceMonthly"`
	PriceYearly      float64                `json:"priceYearly"`
	Currency         string                 `json:"currency"`
	Limits           PlanLimits             `json:"limits"`
	TrialDays        int                    `json:"trialDays"`
	GracePeriodDays  int                    `json:"gracePeriodDays"`
	IncludedFeatures []string               `json:"includedFeatures"`
	Overrides        []*PlanFeatureOverride `json:"overrides,omitempty"`
	IsActive         bool                   `json:"isActive"`
}

// CreatePlanRequest creates a plan.
type CreatePlanRequest struct {
	Code             string     `json:"code" validate:"required"`
	Name             string     `json:"name" validate:"required"`
	Description      string     `json:"description"`
	PriceMonthly     float64    `json:"priceMonthly" validate:"gte=0"`
	PriceYearly      float64    `json:"priceYearly" validate:"gte=0"`
	Currency         string     `json:"currency"`
	Limits           PlanLimits `json:"limits"`
	TrialDays        int        `json:"trialDays" validate:"gte=0"`
	GracePeriodDays  int        `json:"gracePeriodDays" validate:"gte=0"`
	IncludedFeatures []string   `json:"includedFeatures"`
}

// UpdatePlanRequest updates mutable plan fields.
type UpdatePlanRequest struct {
	Name             string     `json:"name" validate:"required"`
	Description      string     `json:"description"`
	PriceMonthly     float64    `json:"priceMonthly" validate:"gte=0"`
	PriceYearly      float64    `json:"priceYearly" validate:"gte=0"`
	Currency         string     `json:"currency"`
	Limits           PlanLimits `json:"limits"`
	TrialDays        int        `json:"trialDays" validate:"gte=0"`
	GracePeriodDays  int        `json:"gracePeriodDays" validate:"gte=0"`
	IncludedFeatures []string   `json:"includedFeatures"`
	IsActive         bool       `json:"isActive"`
}

// SetPlanFeaturesRequest replaces a plan's override set.
type SetPlanFeaturesRequest struct {
	Overrides []*PlanFeatureOverride `json:"overrides" validate:"dive"`
}

// ListPlansReply lists catalog plans.
type ListPlansReply struct {
	Plans []*Plan `json:"plans"`
}

// FeatureStatus is the resolved entitlement view for one org feature.
type FeatureStatus struct {
	Code            string     `json:"code"`
	Name            string     `json:"name,omitempty"`
	IsEnabled       bool       `json:"isEnabled"`
	IsCore          bool       `json:"isCore"`
	IsPremium       bool       `json:"isPremium"`
	IsAddOn         bool       `json:"isAddOn"`
	CustomLimit     *int       `json:"customLimit,omitempty"`
	CustomLimitType string     `json:"customLimitType,omitempty"`
	AddOnExpiresAt  *time.Time `json:"addOnExpiresAt,omitempty"`
}

// ListOrgFeaturesReply lists an organization's resolved features.
type ListOrgFeaturesReply struct {
	OrgID    string           `json:"orgId"`
	Features []*FeatureStatus `json:"features"`
}

// SetOrgFeatureRequest toggles or limits one org feature.
type SetOrgFeatureRequest struct {
	IsEnabled *bool  `json:"isEnabled,omitempty"`
	Reason    string `json:"reason"`
	Limit     *int   `json:"limit,omitempty"`
	LimitType string `json:"limitType"`
}

// PurchaseAddOnRequest enables a purchased add-on until the given time.
type PurchaseAddOnRequest struct {
	ExpiresAt time.Time `json:"expiresAt" validate:"required"`
}

// Subscription is the lifecycle view of an organization's subscription.
type Subscription struct {
	ID                 uint64     `json:"id"`
	OrgID              string     `json:"orgId"`
	PlanCode           string     `json:"planCode"`
	Status             string     `json:"status"`
	BillingCycle       string     `json:"billingCycle"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty"`
	GracePeriodEndsAt  *time.Time `json:"gracePeriodEndsAt,omitempty"`
	AutoRenew          bool       `json:"autoRenew"`
	NextBillingDate    *time.Time `json:"nextBillingDate,omitempty"`
}

// CreateSubscriptionRequest onboards an organization.
type CreateSubscriptionRequest struct {
	PlanCode     string `json:"planCode" validate:"required"`
	BillingCycle string `json:"billingCycle" validate:"required,oneof=MONTHLY QUARTERLY YEARLY"`
}

// ActivateSubscriptionRequest carries the payment confirmation reference.
type ActivateSubscriptionRequest struct {
	TransactionID string  `json:"transactionId" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	InvoiceURL    string  `json:"invoiceUrl"`
}

// ChangePlanRequest moves the subscription to another plan.
type ChangePlanRequest struct {
	PlanCode string `json:"planCode" validate:"required"`
}

// ReasonRequest carries an optional operator reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ListExpiringReply pages subscriptions ending within the window.
type ListExpiringReply struct {
	Subscriptions []*Subscription `json:"subscriptions"`
	Total         int             `json:"total"`
	Page          int             `json:"page"`
	PageSize      int             `json:"pageSize"`
}

// PaymentRequest is the workflow view of one payment request.
type PaymentRequest struct {
	ID                   string    `json:"id"`
	OrgID                string    `json:"orgId"`
	SubscriptionID       uint64    `json:"subscriptionId"`
	RequestType          string    `json:"requestType"`
	RequestedPlanCode    string    `json:"requestedPlanCode,omitempty"`
	RequestedAddOns      []string  `json:"requestedAddOns,omitempty"`
	Amount               float64   `json:"amount"`
	Currency             string    `json:"currency"`
	BillingCycle         string    `json:"billingCycle"`
	Status               string    `json:"status"`
	RequestedBy          string    `json:"requestedBy"`
	RespondedBy          string    `json:"respondedBy,omitempty"`
	ResponseNote         string    `json:"responseNote,omitempty"`
	PaymentTransactionID string    `json:"paymentTransactionId,omitempty"`
	ExpiresAt            time.Time `json:"expiresAt"`
	CreatedAt            time.Time `json:"createdAt"`
}

// CreatePaymentRequestRequest opens a payment request.
type CreatePaymentRequestRequest struct {
	OrgID             string   `json:"orgId" validate:"required"`
	RequestType       string   `json:"requestType" validate:"required,oneof=RENEWAL UPGRADE ADD_ON"`
	RequestedPlanCode string   `json:"requestedPlanCode"`
	RequestedAddOns   []string `json:"requestedAddOns"`
	Amount            float64  `json:"amount" validate:"gte=0"`
	Currency          string   `json:"currency"`
	BillingCycle      string   `json:"billingCycle" validate:"omitempty,oneof=MONTHLY QUARTERLY YEARLY"`
}

// RespondPaymentRequestRequest approves or rejects a pending request.
type RespondPaymentRequestRequest struct {
	Note string `json:"note"`
}

// MarkPaidRequest records the gateway transaction for an approved request.
type MarkPaidRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
}

// ListPaymentRequestsReply lists payment requests.
type ListPaymentRequestsReply struct {
	Requests []*PaymentRequest `json:"requests"`
}

// RecordUsageRequest increments usage counters for the current periods.
type RecordUsageRequest struct {
	EmailsSent    int64 `json:"emailsSent" validate:"gte=0"`
	PushSent      int64 `json:"pushSent" validate:"gte=0"`
	EventsCreated int64 `json:"eventsCreated" validate:"gte=0"`
	StorageUsedMB int64 `json:"storageUsedMb" validate:"gte=0"`
	APIRequests   int64 `json:"apiRequests" validate:"gte=0"`
}

// UsageReply is the current bucket's counters.
type UsageReply struct {
	OrgID         string    `json:"orgId"`
	PeriodType    string    `json:"periodType"`
	PeriodStart   time.Time `json:"periodStart"`
	PeriodEnd     time.Time `json:"periodEnd"`
	EmailsSent    int64     `json:"emailsSent"`
	PushSent      int64     `json:"pushSent"`
	EventsCreated int64     `json:"eventsCreated"`
	StorageUsedMB int64     `json:"storageUsedMb"`
	APIRequests   int64     `json:"apiRequests"`
}

// AuditEntry is one audit trail row.
type AuditEntry struct {
	ID              uint64            `json:"id"`
	OrgID           string            `json:"orgId"`
	EventType       string            `json:"eventType"`
	Details         map[string]string `json:"details,omitempty"`
	PreviousStatus  string            `json:"previousStatus,omitempty"`
	NewStatus       string            `json:"newStatus,omitempty"`
	PerformedBy     string            `json:"performedBy"`
	PerformedByRole string            `json:"performedByRole,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// ListAuditReply pages the audit trail.
type ListAuditReply struct {
	Entries  []*AuditEntry `json:"entries"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// SuccessReply is the generic mutation acknowledgement.
type SuccessReply struct {
	Success bool `json:"success"`
}
