package service

import (
	"net/http"

	khttp "github.com/go-kratos/kratos/v2/transport/http"

	v1 "github.com/alumnet-cloud/entitlement-service/api/entitlement/v1"
	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// PaymentService exposes the two-phase payment request workflow.
type PaymentService struct {
	payments *biz.PaymentRequestUsecase
}

// NewPaymentService creates the payment request service.
func NewPaymentService(payments *biz.PaymentRequestUsecase) *PaymentService {
	return &PaymentService{payments: payments}
}

// RegisterRoutes mounts the payment request routes.
func (s *PaymentService) RegisterRoutes(r *khttp.Router) {
	r.POST("/payment-requests", s.CreatePaymentRequest)
	r.GET("/payment-requests/pending", s.ListPending)
	r.GET("/payment-requests/{id}", s.GetPaymentRequest)
	r.POST("/payment-requests/{id}/approve", s.Approve)
	r.POST("/payment-requests/{id}/reject", s.Reject)
	r.POST("/payment-requests/{id}/paid", s.MarkPaid)
}

func (s *PaymentService) CreatePaymentRequest(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator, auth.RoleOrgAdmin); err != nil {
		return err
	}
	var req v1.CreatePaymentRequestRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	if err := auth.CheckOrgAccess(ctx, req.OrgID); err != nil {
		return err
	}
	addOns := make([]biz.FeatureCode, len(req.RequestedAddOns))
	for i, c := range req.RequestedAddOns {
		addOns[i] = biz.FeatureCode(c)
	}
	created, err := s.payments.CreatePaymentRequest(ctx, &biz.CreatePaymentRequestInput{
		OrgID:             req.OrgID,
		RequestType:       biz.PaymentRequestType(req.RequestType),
		RequestedPlanCode: biz.PlanCode(req.RequestedPlanCode),
		RequestedAddOns:   addOns,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Cycle:             biz.BillingCycle(req.BillingCycle),
		RequestedBy:       actor(ctx),
	})
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPaymentRequestReply(created))
}

func (s *PaymentService) ListPending(ctx khttp.Context) error {
	orgID := ctx.Query().Get("org_id")
	if orgID == "" {
		return errs.BadRequest("org_id query parameter is required")
	}
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	reqs, err := s.payments.GetPendingPaymentRequests(ctx, orgID)
	if err != nil {
		return err
	}
	out := make([]*v1.PaymentRequest, len(reqs))
	for i, r := range reqs {
		out[i] = toPaymentRequestReply(r)
	}
	return ctx.Result(http.StatusOK, &v1.ListPaymentRequestsReply{Requests: out})
}

func (s *PaymentService) GetPaymentRequest(ctx khttp.Context) error {
	req, err := s.payments.GetPaymentRequest(ctx, ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	if err := auth.CheckOrgAccess(ctx, req.OrgID); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPaymentRequestReply(req))
}

func (s *PaymentService) Approve(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	var req v1.RespondPaymentRequestRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	updated, err := s.payments.ApprovePaymentRequest(ctx, ctx.Vars().Get("id"), actor(ctx), req.Note)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPaymentRequestReply(updated))
}

func (s *PaymentService) Reject(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	var req v1.RespondPaymentRequestRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	updated, err := s.payments.RejectPaymentRequest(ctx, ctx.Vars().Get("id"), actor(ctx), req.Note)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPaymentRequestReply(updated))
}

func (s *PaymentService) MarkPaid(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	var req v1.MarkPaidRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	updated, err := s.payments.MarkPaymentRequestPaid(ctx, ctx.Vars().Get("id"), req.TransactionID, actor(ctx))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPaymentRequestReply(updated))
}

func toPaymentRequestReply(r *biz.PaymentRequest) *v1.PaymentRequest {
	addOns := make([]string, len(r.RequestedAddOns))
	for i, c := range r.RequestedAddOns {
		addOns[i] = c.String()
	}
	return &v1.PaymentRequest{
		ID:                   r.ID,
		OrgID:                r.OrgID,
		SubscriptionID:       r.SubscriptionID,
		RequestType:          string(r.RequestType),
		RequestedPlanCode:    r.RequestedPlanCode.String(),
		RequestedAddOns:      addOns,
		Amount:               r.Amount,
		Currency:             r.Currency,
		BillingCycle:         string(r.BillingCycle),
		Status:               string(r.Status),
		RequestedBy:          r.RequestedBy,
		RespondedBy:          r.RespondedBy,
		ResponseNote:         r.ResponseNote,
		PaymentTransactionID: r.PaymentTransactionID,
		ExpiresAt:            r.ExpiresAt,
		CreatedAt:            r.CreatedAt,
	}
}
