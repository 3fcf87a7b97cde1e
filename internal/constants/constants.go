package constants

import (
	"fmt"
	"time"
)

// Cache TTL classes. Entitlement decisions tolerate at most
// EntitlementCacheTTL of staleness after a missed invalidation.
const (
	// EntitlementCacheTTL caps per-organization feature decisions.
	EntitlementCacheTTL = 5 * time.Minute
	// SubscriptionCacheTTL caps cached subscription reads.
	SubscriptionCacheTTL = 5 * time.Minute
	// CatalogCacheTTL caps feature/plan catalog reads. Catalog data changes rarely.
	CatalogCacheTTL = time.Hour
	// CacheJitterMaxSeconds randomizes expiry to avoid stampedes.
	CacheJitterMaxSeconds = 120
)

// Cache key namespaces. Invalidation is pattern-based, so every key a
// namespace owns must share its prefix.
const (
	catalogNamespace      = "catalog"
	orgFeatureNamespace   = "features:org"
	subscriptionNamespace = "subscription:org"
)

// CatalogKey returns the cache key for a single catalog entry.
func CatalogKey(kind, code string) string {
	return fmt.Sprintf("%s:%s:%s", catalogNamespace, kind, code)
}

// CatalogListKey returns the cache key for a catalog listing.
func CatalogListKey(kind string, includeInactive bool) string {
	return fmt.Sprintf("%s:%s:list:%t", catalogNamespace, kind, includeInactive)
}

// CatalogPattern matches every catalog cache key.
func CatalogPattern() string { return catalogNamespace + ":*" }

// OrgFeatureKey returns the cache key for one (organization, feature) decision.
func OrgFeatureKey(orgID, code string) string {
	return fmt.Sprintf("%s:%s:%s", orgFeatureNamespace, orgID, code)
}

// OrgFeatureListKey returns the cache key for an organization's full feature list.
func OrgFeatureListKey(orgID string) string {
	return fmt.Sprintf("%s:%s:all", orgFeatureNamespace, orgID)
}

// OrgFeaturePattern matches every cached decision for one organization.
func OrgFeaturePattern(orgID string) string {
	return fmt.Sprintf("%s:%s:*", orgFeatureNamespace, orgID)
}

// SubscriptionKey returns the cache key for an organization's subscription.
func SubscriptionKey(orgID string) string {
	return fmt.Sprintf("%s:%s", subscriptionNamespace, orgID)
}

// Pagination defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Billing cycle period lengths in days.
const (
	MonthlyCycleDays   = 30
	QuarterlyCycleDays = 90
	YearlyCycleDays    = 365
)

// Payment request defaults.
const (
	// DefaultPaymentRequestExpiryDays bounds how long a PENDING request stays actionable.
	DefaultPaymentRequestExpiryDays = 7
	// DefaultAutoRenewDaysBefore is how far ahead of period end the sweeper
	// raises renewal payment requests for auto-renewing subscriptions.
	DefaultAutoRenewDaysBefore = 3
)

// Sweep locking. Overlapping sweep runs are already idempotent; the lock
// only avoids wasted duplicate scans across replicas.
const (
	SweepLockExpiration = 10 * time.Minute
	SweepLockRetries    = 1
)

// SweepLockKey returns the redsync key guarding one sweep job.
func SweepLockKey(job string) string { return "sweep:lock:" + job }

// Audit event types.
const (
	AuditSubscriptionCreated     = "subscription_created"
	AuditSubscriptionActivated   = "subscription_activated"
	AuditSubscriptionRenewed     = "subscription_renewed"
	AuditPlanChanged             = "plan_changed"
	AuditSubscriptionCancelled   = "subscription_cancelled"
	AuditSubscriptionSuspended   = "subscription_suspended"
	AuditSubscriptionReactivated = "subscription_reactivated"
	AuditSubscriptionGraced      = "subscription_grace_period"
	AuditSubscriptionExpired     = "subscription_expired"
	AuditFeatureToggled          = "feature_toggled"
	AuditFeatureLimitSet         = "feature_limit_set"
	AuditAddOnPurchased          = "addon_purchased"
	AuditEntitlementsInitialized = "entitlements_initialized"
	AuditPaymentRequestCreated   = "payment_request_created"
	AuditPaymentRequestApproved  = "payment_request_approved"
	AuditPaymentRequestRejected  = "payment_request_rejected"
	AuditPaymentRequestPaid      = "payment_request_paid"
	AuditPaymentRequestExpired   = "payment_request_expired"
)

// SystemActor marks audit entries written by the sweeper rather than a person.
const SystemActor = "SYSTEM"
