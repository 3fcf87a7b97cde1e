package server

import (
	"context"
	"encoding/json"
	"net/http"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// FeatureAccess is attached to the request context by RequireFeature.
type FeatureAccess struct {
	Code      biz.FeatureCode
	HasAccess bool
}

// FeatureLimit is attached to the request context by CheckFeatureLimit.
type FeatureLimit struct {
	Code         biz.FeatureCode
	Limit        int
	CurrentUsage int64
	Remaining    int64
}

type featureAccessKey struct{}
type featureLimitKey struct{}

// FeatureAccessFromContext returns the feature grant recorded by RequireFeature.
func FeatureAccessFromContext(ctx context.Context) (*FeatureAccess, bool) {
	fa, ok := ctx.Value(featureAccessKey{}).(*FeatureAccess)
	return fa, ok
}

// FeatureLimitFromContext returns the limit info recorded by CheckFeatureLimit.
func FeatureLimitFromContext(ctx context.Context) (*FeatureLimit, bool) {
	fl, ok := ctx.Value(featureLimitKey{}).(*FeatureLimit)
	return fl, ok
}

// UsageGetter reads the caller's current consumption for a limited feature.
type UsageGetter func(r *http.Request) (int64, error)

// RequireFeature gates a route on the organization's entitlement to one
// feature. Developers pass unconditionally. With optional set, requests
// lacking organization context pass through ungated.
func RequireFeature(ents *biz.EntitlementUsecase, code biz.FeatureCode, optional bool) khttp.FilterFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if auth.IsDeveloper(ctx) {
				next.ServeHTTP(w, r)
				return
			}
			orgID, ok := auth.OrgIDFromContext(ctx)
			if !ok || orgID == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				writeFilterError(w, errs.BadRequest("organization context is required"))
				return
			}

			st, err := ents.GetFeatureStatus(ctx, orgID, code)
			if err != nil {
				writeFilterError(w, err)
				return
			}
			if !st.IsEnabled {
				writeFilterError(w, errs.FeatureDisabled(code.String(), st.Name, st.IsPremium, st.IsAddOn))
				return
			}

			ctx = context.WithValue(ctx, featureAccessKey{}, &FeatureAccess{Code: code, HasAccess: true})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CheckFeatureLimit gates a route on a feature's custom usage limit.
// Features without a custom limit pass unbounded.
func CheckFeatureLimit(ents *biz.EntitlementUsecase, code biz.FeatureCode, usage UsageGetter) khttp.FilterFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if auth.IsDeveloper(ctx) {
				next.ServeHTTP(w, r)
				return
			}
			orgID, ok := auth.OrgIDFromContext(ctx)
			if !ok || orgID == "" {
				writeFilterError(w, errs.BadRequest("organization context is required"))
				return
			}

			st, err := ents.GetFeatureStatus(ctx, orgID, code)
			if err != nil {
				writeFilterError(w, err)
				return
			}
			if !st.IsEnabled {
				writeFilterError(w, errs.FeatureDisabled(code.String(), st.Name, st.IsPremium, st.IsAddOn))
				return
			}
			if st.CustomLimit == nil {
				next.ServeHTTP(w, r)
				return
			}

			current, err := usage(r)
			if err != nil {
				writeFilterError(w, err)
				return
			}
			limit := *st.CustomLimit
			if current >= int64(limit) {
				writeFilterError(w, errs.LimitExceeded(code.String(), st.CustomLimitType, limit, int(current)))
				return
			}

			ctx = context.WithValue(ctx, featureLimitKey{}, &FeatureLimit{
				Code:         code,
				Limit:        limit,
				CurrentUsage: current,
				Remaining:    int64(limit) - current,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActiveSubscription gates a route on the subscription being in an
// entitled status.
func RequireActiveSubscription(subs *biz.SubscriptionUsecase) khttp.FilterFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if auth.IsDeveloper(ctx) {
				next.ServeHTTP(w, r)
				return
			}
			orgID, ok := auth.OrgIDFromContext(ctx)
			if !ok || orgID == "" {
				writeFilterError(w, errs.BadRequest("organization context is required"))
				return
			}

			sub, err := subs.GetSubscription(ctx, orgID)
			if err != nil {
				writeFilterError(w, err)
				return
			}
			if !sub.Status.Entitled() {
				writeFilterError(w, errs.SubscriptionInactive(string(sub.Status), subscriptionBlockMessage(sub.Status)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func subscriptionBlockMessage(status biz.SubscriptionStatus) string {
	switch status {
	case biz.StatusExpired:
		return "Your subscription has expired. Renew to regain access."
	case biz.StatusSuspended:
		return "Your subscription is suspended. Contact support to restore access."
	case biz.StatusCancelled:
		return "Your subscription was cancelled. Reactivate it to regain access."
	default:
		return "Your subscription does not allow this action."
	}
}

// writeFilterError renders usecase errors raised inside a filter, where the
// framework error encoder is not in play.
func writeFilterError(w http.ResponseWriter, err error) {
	se := kerrors.FromError(err)
	status := http.StatusInternalServerError
	if se.Code >= 100 && se.Code < 600 {
		status = int(se.Code)
	}
	body := map[string]any{
		"code":    status,
		"reason":  se.Reason,
		"message": se.Message,
	}
	if len(se.Metadata) > 0 {
		body["metadata"] = se.Metadata
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
