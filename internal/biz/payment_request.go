package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// PaymentRequestType dispatches what happens when the request is paid.
type PaymentRequestType string

const (
	RequestRenewal PaymentRequestType = "RENEWAL"
	RequestUpgrade PaymentRequestType = "UPGRADE"
	RequestAddOn   PaymentRequestType = "ADD_ON"
)

// Valid reports whether the type is one of the known values.
func (t PaymentRequestType) Valid() bool {
	switch t {
	case RequestRenewal, RequestUpgrade, RequestAddOn:
		return true
	}
	return false
}

// PaymentRequestStatus is the workflow state.
type PaymentRequestStatus string

const (
	RequestPending  PaymentRequestStatus = "PENDING"
	RequestApproved PaymentRequestStatus = "APPROVED"
	RequestRejected PaymentRequestStatus = "REJECTED"
	RequestPaid     PaymentRequestStatus = "PAID"
	RequestExpired  PaymentRequestStatus = "EXPIRED"
)

// PaymentRequest mediates a plan change, renewal or add-on purchase that
// needs a second party's approval before the subscription is touched.
// Approval is a business decision; payment is an external gateway
// confirmation. The record tolerates an approved-but-unpaid state
// indefinitely without side effects on the live subscription.
type PaymentRequest struct {
	ID                   string
	OrgID                string
	SubscriptionID       uint64
	RequestType          PaymentRequestType
	RequestedPlanCode    PlanCode
	RequestedAddOns      []FeatureCode
	Amount               float64
	Currency             string
	BillingCycle         BillingCycle
	Status               PaymentRequestStatus
	RequestedBy          string
	RespondedBy          string
	ResponseNote         string
	PaymentTransactionID string
	ExpiresAt            time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// EffectiveStatus folds lazy expiry into the stored status: a PENDING
// request past its deadline is inert for every consumer, written back or not.
func (r *PaymentRequest) EffectiveStatus(now time.Time) PaymentRequestStatus {
	if r.Status == RequestPending && now.After(r.ExpiresAt) {
		return RequestExpired
	}
	return r.Status
}

// PaymentRequestRepo is the payment request store.
type PaymentRequestRepo interface {
	CreatePaymentRequest(ctx context.Context, r *PaymentRequest) error
	// GetPaymentRequest returns (nil, nil) when the id is unknown.
	GetPaymentRequest(ctx context.Context, id string) (*PaymentRequest, error)
	UpdatePaymentRequest(ctx context.Context, r *PaymentRequest) error
	// ListPendingPaymentRequests returns stored-PENDING requests for the
	// organization; callers still filter on effective status.
	ListPendingPaymentRequests(ctx context.Context, orgID string) ([]*PaymentRequest, error)
	// ListLapsedPending returns stored-PENDING requests past their deadline.
	ListLapsedPending(ctx context.Context, now time.Time) ([]*PaymentRequest, error)
	// HasOpenRequest reports whether a PENDING or APPROVED request of the
	// given type already exists for the subscription.
	HasOpenRequest(ctx context.Context, subscriptionID uint64, t PaymentRequestType) (bool, error)
}

// CreatePaymentRequestInput carries the requester's intent.
type CreatePaymentRequestInput struct {
	OrgID             string
	RequestType       PaymentRequestType
	RequestedPlanCode PlanCode
	RequestedAddOns   []FeatureCode
	// Amount overrides the derived price when > 0.
	Amount      float64
	Currency    string
	Cycle       BillingCycle
	RequestedBy string
	// ExpiryDays overrides the configured window when > 0.
	ExpiryDays int
}

// PaymentRequestUsecase runs the two-phase approve/pay workflow.
type PaymentRequestUsecase struct {
	repo       PaymentRequestRepo
	subs       *SubscriptionUsecase
	plans      *PlanUsecase
	features   *FeatureUsecase
	ents       *EntitlementUsecase
	gateway    PaymentGateway
	audit      *AuditUsecase
	expiryDays int
	currency   string
	now        func() time.Time
	log        *log.Helper
}

// NewPaymentRequestUsecase creates the payment request usecase.
func NewPaymentRequestUsecase(repo PaymentRequestRepo, subs *SubscriptionUsecase, plans *PlanUsecase, features *FeatureUsecase, ents *EntitlementUsecase, gateway PaymentGateway, audit *AuditUsecase, c *conf.Bootstrap, logger log.Logger) *PaymentRequestUsecase {
	currency := "EUR"
	if c.Billing != nil && c.Billing.Currency != "" {
		currency = c.Billing.Currency
	}
	return &PaymentRequestUsecase{
		repo:       repo,
		subs:       subs,
		plans:      plans,
		features:   features,
		ents:       ents,
		gateway:    gateway,
		audit:      audit,
		expiryDays: c.PaymentRequestExpiryDays(constants.DefaultPaymentRequestExpiryDays),
		currency:   currency,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.NewHelper(logger),
	}
}

// CreatePaymentRequest opens a request. The amount defaults to the target
// plan's price for the billing cycle; add-on requests price from the add-on
// catalog entries.
func (uc *PaymentRequestUsecase) CreatePaymentRequest(ctx context.Context, in *CreatePaymentRequestInput) (*PaymentRequest, error) {
	if !in.RequestType.Valid() {
		return nil, errs.BadRequest("unknown payment request type " + string(in.RequestType))
	}
	sub, err := uc.subs.GetSubscription(ctx, in.OrgID)
	if err != nil {
		return nil, err
	}

	cycle := in.Cycle
	if cycle == "" {
		cycle = sub.BillingCycle
	}
	if !cycle.Valid() {
		return nil, errs.BadRequest("unknown billing cycle " + string(cycle))
	}
	if err := uc.validateTarget(ctx, in); err != nil {
		return nil, err
	}

	amount := in.Amount
	if amount <= 0 {
		amount, err = uc.deriveAmount(ctx, sub, in, cycle)
		if err != nil {
			return nil, err
		}
	}

	now := uc.now()
	expiryDays := in.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = uc.expiryDays
	}
	currency := in.Currency
	if currency == "" {
		currency = uc.currency
	}
	req := &PaymentRequest{
		ID:                uuid.New().String(),
		OrgID:             in.OrgID,
		SubscriptionID:    sub.ID,
		RequestType:       in.RequestType,
		RequestedPlanCode: in.RequestedPlanCode,
		RequestedAddOns:   in.RequestedAddOns,
		Amount:            amount,
		Currency:          currency,
		BillingCycle:      cycle,
		Status:            RequestPending,
		RequestedBy:       in.RequestedBy,
		ExpiresAt:         now.AddDate(0, 0, expiryDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.CreatePaymentRequest(ctx, req); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     in.OrgID,
		EventType: constants.AuditPaymentRequestCreated,
		Details: map[string]string{
			"requestId": req.ID,
			"type":      string(req.RequestType),
			"amount":    fmt.Sprintf("%.2f %s", req.Amount, req.Currency),
			"expiresAt": req.ExpiresAt.Format(time.RFC3339),
		},
		PerformedBy: in.RequestedBy,
	})
	return req, nil
}

// validateTarget checks the request names a usable target before it is
// priced or stored. An explicit amount does not bypass it.
func (uc *PaymentRequestUsecase) validateTarget(ctx context.Context, in *CreatePaymentRequestInput) error {
	switch in.RequestType {
	case RequestUpgrade:
		if in.RequestedPlanCode == "" {
			return errs.BadRequest("upgrade request needs a target plan")
		}
		plan, err := uc.plans.GetPlan(ctx, in.RequestedPlanCode)
		if err != nil {
			return err
		}
		if plan == nil {
			return errs.PlanNotFound(in.RequestedPlanCode.String())
		}
	case RequestAddOn:
		if len(in.RequestedAddOns) == 0 {
			return errs.BadRequest("add-on request needs at least one feature")
		}
		for _, code := range in.RequestedAddOns {
			f, err := uc.features.GetFeature(ctx, code)
			if err != nil {
				return err
			}
			if f == nil {
				return errs.FeatureNotFound(code.String())
			}
			if !f.IsAddOn {
				return errs.Conflict("feature " + code.String() + " is not purchasable as an add-on")
			}
		}
	}
	return nil
}

func (uc *PaymentRequestUsecase) deriveAmount(ctx context.Context, sub *Subscription, in *CreatePaymentRequestInput, cycle BillingCycle) (float64, error) {
	switch in.RequestType {
	case RequestAddOn:
		var total float64
		for _, code := range in.RequestedAddOns {
			f, err := uc.features.GetFeature(ctx, code)
			if err != nil {
				return 0, err
			}
			if f == nil {
				return 0, errs.FeatureNotFound(code.String())
			}
			if !f.IsAddOn {
				return 0, errs.Conflict("feature " + code.String() + " is not purchasable as an add-on")
			}
			if cycle == CycleYearly {
				total += f.AddOnPriceYearly
			} else {
				total += f.AddOnPriceMonthly * float64(cycle.Days()/constants.MonthlyCycleDays)
			}
		}
		return total, nil
	case RequestUpgrade:
		if in.RequestedPlanCode == "" {
			return 0, errs.BadRequest("upgrade request needs a target plan")
		}
		plan, err := uc.plans.GetPlan(ctx, in.RequestedPlanCode)
		if err != nil {
			return 0, err
		}
		if plan == nil {
			return 0, errs.PlanNotFound(in.RequestedPlanCode.String())
		}
		return plan.PriceFor(cycle), nil
	default: // RENEWAL prices the current plan
		plan, err := uc.plans.GetPlan(ctx, sub.PlanCode)
		if err != nil {
			return 0, err
		}
		if plan == nil {
			return 0, errs.PlanNotFound(sub.PlanCode.String())
		}
		return plan.PriceFor(cycle), nil
	}
}

// GetPaymentRequest returns one request with lazy expiry applied.
func (uc *PaymentRequestUsecase) GetPaymentRequest(ctx context.Context, id string) (*PaymentRequest, error) {
	req, err := uc.repo.GetPaymentRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.PaymentRequestNotFound(id)
	}
	req.Status = req.EffectiveStatus(uc.now())
	return req, nil
}

// GetPendingPaymentRequests lists actionable requests for an organization.
// Requests past their deadline are excluded even when the stored status
// still reads PENDING.
func (uc *PaymentRequestUsecase) GetPendingPaymentRequests(ctx context.Context, orgID string) ([]*PaymentRequest, error) {
	rows, err := uc.repo.ListPendingPaymentRequests(ctx, orgID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	out := rows[:0]
	for _, r := range rows {
		if r.EffectiveStatus(now) == RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

// ApprovePaymentRequest flips PENDING to APPROVED and records the responder.
// It deliberately does not touch the subscription: entitlement changes only
// happen at MarkPaymentRequestPaid.
func (uc *PaymentRequestUsecase) ApprovePaymentRequest(ctx context.Context, id, responder, note string) (*PaymentRequest, error) {
	return uc.respond(ctx, id, responder, note, RequestApproved, constants.AuditPaymentRequestApproved)
}

// RejectPaymentRequest flips PENDING to REJECTED. Immutable afterwards.
func (uc *PaymentRequestUsecase) RejectPaymentRequest(ctx context.Context, id, responder, note string) (*PaymentRequest, error) {
	return uc.respond(ctx, id, responder, note, RequestRejected, constants.AuditPaymentRequestRejected)
}

func (uc *PaymentRequestUsecase) respond(ctx context.Context, id, responder, note string, to PaymentRequestStatus, event string) (*PaymentRequest, error) {
	req, err := uc.repo.GetPaymentRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.PaymentRequestNotFound(id)
	}
	now := uc.now()
	if st := req.EffectiveStatus(now); st != RequestPending {
		return nil, errs.Conflict(fmt.Sprintf("payment request %s is %s, not PENDING", id, st))
	}
	req.Status = to
	req.RespondedBy = responder
	req.ResponseNote = note
	req.UpdatedAt = now
	if err := uc.repo.UpdatePaymentRequest(ctx, req); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     req.OrgID,
		EventType: event,
		Details: map[string]string{
			"requestId": id,
			"note":      note,
		},
		PerformedBy: responder,
	})
	return req, nil
}

// MarkPaymentRequestPaid records the gateway confirmation and applies the
// requested change: RENEWAL activates, UPGRADE changes plan then activates,
// ADD_ON enables the purchased features with a cycle-long expiry. PAID is
// written only after the change is applied; a failed dispatch leaves the
// request APPROVED and retryable.
func (uc *PaymentRequestUsecase) MarkPaymentRequestPaid(ctx context.Context, id, transactionID, actor string) (*PaymentRequest, error) {
	req, err := uc.repo.GetPaymentRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.PaymentRequestNotFound(id)
	}
	now := uc.now()
	if st := req.EffectiveStatus(now); st != RequestApproved {
		return nil, errs.Conflict(fmt.Sprintf("payment request %s is %s, not APPROVED", id, st))
	}

	confirmation, err := uc.gateway.VerifyTransaction(ctx, transactionID)
	if err != nil {
		uc.log.Errorf("payment gateway verification failed for %s: %v", transactionID, err)
		return nil, err
	}

	switch req.RequestType {
	case RequestUpgrade:
		if _, err := uc.subs.ChangePlan(ctx, req.OrgID, req.RequestedPlanCode, actor); err != nil {
			return nil, err
		}
		if _, err := uc.subs.ActivateSubscription(ctx, req.OrgID, confirmation, actor); err != nil {
			return nil, err
		}
	case RequestAddOn:
		expiresAt := now.AddDate(0, 0, req.BillingCycle.Days())
		for _, code := range req.RequestedAddOns {
			if err := uc.ents.PurchaseAddOn(ctx, req.OrgID, code, expiresAt, actor); err != nil {
				return nil, err
			}
		}
	default: // RENEWAL
		if _, err := uc.subs.ActivateSubscription(ctx, req.OrgID, confirmation, actor); err != nil {
			return nil, err
		}
	}

	req.Status = RequestPaid
	req.PaymentTransactionID = confirmation.TransactionID
	req.UpdatedAt = now
	if err := uc.repo.UpdatePaymentRequest(ctx, req); err != nil {
		return nil, err
	}

	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     req.OrgID,
		EventType: constants.AuditPaymentRequestPaid,
		Details: map[string]string{
			"requestId":     id,
			"type":          string(req.RequestType),
			"transactionId": confirmation.TransactionID,
			"invoiceUrl":    confirmation.InvoiceURL,
		},
		PerformedBy: actor,
	})
	return req, nil
}

// ExpireLapsedRequests writes EXPIRED back for PENDING requests past their
// deadline. Read paths already treat them as expired; this keeps the stored
// rows honest and emits the audit trail. Returns scanned and expired counts
// plus per-row failures.
func (uc *PaymentRequestUsecase) ExpireLapsedRequests(ctx context.Context) (int, int, []string) {
	now := uc.now()
	rows, err := uc.repo.ListLapsedPending(ctx, now)
	if err != nil {
		return 0, 0, []string{fmt.Sprintf("list lapsed requests: %v", err)}
	}
	var (
		expired int
		errors  []string
	)
	for _, r := range rows {
		r.Status = RequestExpired
		r.UpdatedAt = now
		if err := uc.repo.UpdatePaymentRequest(ctx, r); err != nil {
			errors = append(errors, fmt.Sprintf("request %s: %v", r.ID, err))
			continue
		}
		expired++
		uc.audit.Record(ctx, &AuditEntry{
			OrgID:     r.OrgID,
			EventType: constants.AuditPaymentRequestExpired,
			Details: map[string]string{
				"requestId": r.ID,
				"type":      string(r.RequestType),
				"expiredAt": r.ExpiresAt.Format(time.RFC3339),
			},
			PerformedBy: constants.SystemActor,
		})
	}
	return len(rows), expired, errors
}
