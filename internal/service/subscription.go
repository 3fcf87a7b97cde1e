package service

import (
	"net/http"
	"strconv"

	khttp "github.com/go-kratos/kratos/v2/transport/http"

	v1 "github.com/alumnet-cloud/entitlement-service/api/entitlement/v1"
	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
)

// SubscriptionService exposes the subscription lifecycle plus the audit
// trail, which doubles as the subscription history timeline.
type SubscriptionService struct {
	subs  *biz.SubscriptionUsecase
	audit *biz.AuditUsecase
}

// NewSubscriptionService creates the subscription service.
func NewSubscriptionService(subs *biz.SubscriptionUsecase, audit *biz.AuditUsecase) *SubscriptionService {
	return &SubscriptionService{subs: subs, audit: audit}
}

// RegisterRoutes mounts the subscription routes.
func (s *SubscriptionService) RegisterRoutes(r *khttp.Router) {
	r.GET("/orgs/{org_id}/subscription", s.GetSubscription)
	r.POST("/orgs/{org_id}/subscription", s.CreateSubscription)
	r.POST("/orgs/{org_id}/subscription/activate", s.ActivateSubscription)
	r.POST("/orgs/{org_id}/subscription/change-plan", s.ChangePlan)
	r.POST("/orgs/{org_id}/subscription/cancel", s.CancelSubscription)
	r.POST("/orgs/{org_id}/subscription/suspend", s.SuspendSubscription)
	r.POST("/orgs/{org_id}/subscription/reactivate", s.ReactivateSubscription)
	r.GET("/orgs/{org_id}/audit", s.ListAudit)
	r.GET("/subscriptions/expiring", s.ListExpiring)
}

func (s *SubscriptionService) GetSubscription(ctx khttp.Context) error {
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	sub, err := s.subs.GetSubscription(ctx, orgID)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) CreateSubscription(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	var req v1.CreateSubscriptionRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	sub, err := s.subs.CreateSubscription(ctx, orgID, biz.PlanCode(req.PlanCode), biz.BillingCycle(req.BillingCycle), actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) ActivateSubscription(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	var req v1.ActivateSubscriptionRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	sub, err := s.subs.ActivateSubscription(ctx, orgID, &biz.PaymentConfirmation{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		InvoiceURL:    req.InvoiceURL,
	}, actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) ChangePlan(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	var req v1.ChangePlanRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	sub, err := s.subs.ChangePlan(ctx, orgID, biz.PlanCode(req.PlanCode), actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) CancelSubscription(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator, auth.RoleOrgAdmin); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	var req v1.ReasonRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	sub, err := s.subs.CancelSubscription(ctx, orgID, req.Reason, actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) SuspendSubscription(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	var req v1.ReasonRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	sub, err := s.subs.SuspendSubscription(ctx, orgID, req.Reason, actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) ReactivateSubscription(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	sub, err := s.subs.ReactivateSubscription(ctx, orgID, actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toSubscriptionReply(sub))
}

func (s *SubscriptionService) ListAudit(ctx khttp.Context) error {
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	page, pageSize := pageParams(ctx)
	entries, total, err := s.audit.List(ctx, orgID, page, pageSize)
	if err != nil {
		return err
	}
	out := make([]*v1.AuditEntry, len(entries))
	for i, e := range entries {
		out[i] = &v1.AuditEntry{
			ID:              e.ID,
			OrgID:           e.OrgID,
			EventType:       e.EventType,
			Details:         e.Details,
			PreviousStatus:  e.PreviousStatus,
			NewStatus:       e.NewStatus,
			PerformedBy:     e.PerformedBy,
			PerformedByRole: e.PerformedByRole,
			CreatedAt:       e.CreatedAt,
		}
	}
	return ctx.Result(http.StatusOK, &v1.ListAuditReply{
		Entries:  out,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *SubscriptionService) ListExpiring(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	days, _ := strconv.Atoi(ctx.Query().Get("days"))
	if days < 1 {
		days = 7
	}
	page, pageSize := pageParams(ctx)
	subs, total, err := s.subs.ListExpiring(ctx, days, page, pageSize)
	if err != nil {
		return err
	}
	out := make([]*v1.Subscription, len(subs))
	for i, sub := range subs {
		out[i] = toSubscriptionReply(sub)
	}
	return ctx.Result(http.StatusOK, &v1.ListExpiringReply{
		Subscriptions: out,
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	})
}

func toSubscriptionReply(sub *biz.Subscription) *v1.Subscription {
	return &v1.Subscription{
		ID:                 sub.ID,
		OrgID:              sub.OrgID,
		PlanCode:           sub.PlanCode.String(),
		Status:             string(sub.Status),
		BillingCycle:       string(sub.BillingCycle),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		TrialEndsAt:        sub.TrialEndsAt,
		GracePeriodEndsAt:  sub.GracePeriodEndsAt,
		AutoRenew:          sub.AutoRenew,
		NextBillingDate:    sub.NextBillingDate,
	}
}
