// Package errors defines the service's error taxonomy on top of kratos
// errors. Business-rule violations are raised here at the point of
// detection and rendered by the HTTP error encoder without translation.
package errors

import (
	"fmt"
	"net/http"

	"github.com/go-kratos/kratos/v2/errors"
)

// Reasons surfaced in error bodies. Clients switch on these.
const (
	ReasonFeatureNotFound        = "FEATURE_NOT_FOUND"
	ReasonPlanNotFound           = "PLAN_NOT_FOUND"
	ReasonSubscriptionNotFound   = "SUBSCRIPTION_NOT_FOUND"
	ReasonPaymentRequestNotFound = "PAYMENT_REQUEST_NOT_FOUND"
	ReasonFeatureDisabled        = "FEATURE_DISABLED"
	ReasonUpgradeRequired        = "UPGRADE_REQUIRED"
	ReasonSubscriptionInactive   = "SUBSCRIPTION_INACTIVE"
	ReasonLimitExceeded          = "LIMIT_EXCEEDED"
	ReasonConflict               = "CONFLICT"
	ReasonInvalidArgument        = "INVALID_ARGUMENT"
	ReasonInternal               = "INTERNAL"
)

// FeatureNotFound reports an unknown feature code.
func FeatureNotFound(code string) *errors.Error {
	return errors.NotFound(ReasonFeatureNotFound, fmt.Sprintf("feature %s not found", code)).
		WithMetadata(map[string]string{"feature": code})
}

// PlanNotFound reports an unknown plan code.
func PlanNotFound(code string) *errors.Error {
	return errors.NotFound(ReasonPlanNotFound, fmt.Sprintf("plan %s not found", code))
}

// SubscriptionNotFound reports an organization without a subscription.
func SubscriptionNotFound(orgID string) *errors.Error {
	return errors.NotFound(ReasonSubscriptionNotFound, fmt.Sprintf("no subscription for organization %s", orgID))
}

// PaymentRequestNotFound reports an unknown payment request.
func PaymentRequestNotFound(id string) *errors.Error {
	return errors.NotFound(ReasonPaymentRequestNotFound, fmt.Sprintf("payment request %s not found", id))
}

// FeatureDisabled reports a feature the organization is not entitled to.
// Premium and add-on features carry an upgrade hint for the client.
func FeatureDisabled(code, name string, isPremium, isAddOn bool) *errors.Error {
	md := map[string]string{
		"feature":     code,
		"featureName": name,
	}
	if isPremium || isAddOn {
		md["isPremium"] = fmt.Sprintf("%t", isPremium)
		md["isAddOn"] = fmt.Sprintf("%t", isAddOn)
		md["upgradeRequired"] = "true"
		return errors.Forbidden(ReasonUpgradeRequired, fmt.Sprintf("feature %s requires an upgrade", code)).WithMetadata(md)
	}
	md["isDisabled"] = "true"
	return errors.Forbidden(ReasonFeatureDisabled, fmt.Sprintf("feature %s is disabled", code)).WithMetadata(md)
}

// SubscriptionInactive reports a subscription outside the allowed statuses.
// Rendered as 402 Payment Required.
func SubscriptionInactive(status, message string) *errors.Error {
	return errors.New(http.StatusPaymentRequired, ReasonSubscriptionInactive, message).
		WithMetadata(map[string]string{"status": status})
}

// LimitExceeded reports plan-limit exhaustion. Rendered as 429.
func LimitExceeded(code, limitType string, limit, current int) *errors.Error {
	return errors.New(http.StatusTooManyRequests, ReasonLimitExceeded,
		fmt.Sprintf("feature %s limit reached (%d/%d)", code, current, limit)).
		WithMetadata(map[string]string{
			"feature":         code,
			"limit":           fmt.Sprintf("%d", limit),
			"limitType":       limitType,
			"currentUsage":    fmt.Sprintf("%d", current),
			"upgradeRequired": "true",
		})
}

// Conflict reports a business-rule violation such as disabling a core
// feature or double-onboarding an organization.
func Conflict(message string) *errors.Error {
	return errors.Conflict(ReasonConflict, message)
}

// BadRequest reports an invalid request payload or missing context.
func BadRequest(message string) *errors.Error {
	return errors.BadRequest(ReasonInvalidArgument, message)
}

// Internal reports an unexpected downstream or store failure.
func Internal(message string) *errors.Error {
	return errors.InternalServer(ReasonInternal, message)
}
