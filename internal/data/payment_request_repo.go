package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/data/model"
)

type paymentRequestRepo struct {
	data *Data
	log  *log.Helper
}

// NewPaymentRequestRepo creates the payment request store.
func NewPaymentRequestRepo(data *Data, logger log.Logger) biz.PaymentRequestRepo {
	return &paymentRequestRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *paymentRequestRepo) CreatePaymentRequest(ctx context.Context, req *biz.PaymentRequest) error {
	if err := r.data.DB(ctx).Create(toPaymentRequestModel(req)).Error; err != nil {
		r.log.Errorf("failed to create payment request %s: %v", req.ID, err)
		return err
	}
	return nil
}

func (r *paymentRequestRepo) GetPaymentRequest(ctx context.Context, id string) (*biz.PaymentRequest, error) {
	var m model.PaymentRequest
	err := r.data.DB(ctx).Where("payment_request_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("failed to get payment request %s: %v", id, err)
		return nil, err
	}
	return toPaymentRequestBiz(&m), nil
}

func (r *paymentRequestRepo) UpdatePaymentRequest(ctx context.Context, req *biz.PaymentRequest) error {
	if err := r.data.DB(ctx).Save(toPaymentRequestModel(req)).Error; err != nil {
		r.log.Errorf("failed to update payment request %s: %v", req.ID, err)
		return err
	}
	return nil
}

func (r *paymentRequestRepo) ListPendingPaymentRequests(ctx context.Context, orgID string) ([]*biz.PaymentRequest, error) {
	var models []model.PaymentRequest
	err := r.data.DB(ctx).
		Where("org_id = ? AND status = ?", orgID, string(biz.RequestPending)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list pending payment requests for org %s: %v", orgID, err)
		return nil, err
	}
	return toPaymentRequestList(models), nil
}

func (r *paymentRequestRepo) ListLapsedPending(ctx context.Context, now time.Time) ([]*biz.PaymentRequest, error) {
	var models []model.PaymentRequest
	err := r.data.DB(ctx).
		Where("status = ? AND expires_at < ?", string(biz.RequestPending), now).
		Order("expires_at").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list lapsed payment requests: %v", err)
		return nil, err
	}
	return toPaymentRequestList(models), nil
}

func (r *paymentRequestRepo) HasOpenRequest(ctx context.Context, subscriptionID uint64, t biz.PaymentRequestType) (bool, error) {
	var count int64
	err := r.data.DB(ctx).Model(&model.PaymentRequest{}).
		Where("subscription_id = ? AND request_type = ? AND status IN ?",
			subscriptionID, string(t),
			[]string{string(biz.RequestPending), string(biz.RequestApproved)}).
		Count(&count).Error
	if err != nil {
		r.log.Errorf("failed to count open requests for subscription %d: %v", subscriptionID, err)
		return false, err
	}
	return count > 0, nil
}

func toPaymentRequestList(models []model.PaymentRequest) []*biz.PaymentRequest {
	reqs := make([]*biz.PaymentRequest, len(models))
	for i := range models {
		reqs[i] = toPaymentRequestBiz(&models[i])
	}
	return reqs
}

func toPaymentRequestModel(req *biz.PaymentRequest) *model.PaymentRequest {
	addOns := make([]string, len(req.RequestedAddOns))
	for i, c := range req.RequestedAddOns {
		addOns[i] = c.String()
	}
	return &model.PaymentRequest{
		ID:                   req.ID,
		OrgID:                req.OrgID,
		SubscriptionID:       req.SubscriptionID,
		RequestType:          string(req.RequestType),
		RequestedPlanCode:    req.RequestedPlanCode.String(),
		RequestedAddOns:      addOns,
		Amount:               req.Amount,
		Currency:             req.Currency,
		BillingCycle:         string(req.BillingCycle),
		Status:               string(req.Status),
		RequestedBy:          req.RequestedBy,
		RespondedBy:          req.RespondedBy,
		ResponseNote:         req.ResponseNote,
		PaymentTransactionID: req.PaymentTransactionID,
		ExpiresAt:            req.ExpiresAt,
		CreatedAt:            req.CreatedAt,
		UpdatedAt:            req.UpdatedAt,
	}
}

func toPaymentRequestBiz(m *model.PaymentRequest) *biz.PaymentRequest {
	addOns := make([]biz.FeatureCode, len(m.RequestedAddOns))
	for i, c := range m.RequestedAddOns {
		addOns[i] = biz.FeatureCode(c)
	}
	return &biz.PaymentRequest{
		ID:                   m.ID,
		OrgID:                m.OrgID,
		SubscriptionID:       m.SubscriptionID,
		RequestType:          biz.PaymentRequestType(m.RequestType),
		RequestedPlanCode:    biz.PlanCode(m.RequestedPlanCode),
		RequestedAddOns:      addOns,
		Amount:               m.Amount,
		Currency:             m.Currency,
		BillingCycle:         biz.BillingCycle(m.BillingCycle),
		Status:               biz.PaymentRequestStatus(m.Status),
		RequestedBy:          m.RequestedBy,
		RespondedBy:          m.RespondedBy,
		ResponseNote:         m.ResponseNote,
		PaymentTransactionID: m.PaymentTransactionID,
		ExpiresAt:            m.ExpiresAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
