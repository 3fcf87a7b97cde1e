package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

func paymentTestEnv(t *testing.T) (*testEnv, time.Time) {
	t.Helper()
	e := newTestEnv(t)
	e.seedCatalog(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e.setNow(now)
	e.seedSubscription(t, "org-1", planBasic, StatusActive, now.AddDate(0, 0, 20))
	return e, now
}

func TestCreatePaymentRequest_DerivesRenewalAmount(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	assert.Equal(t, 19.90, req.Amount)
	assert.Equal(t, "EUR", req.Currency)
	assert.Equal(t, CycleMonthly, req.BillingCycle, "cycle defaults to the subscription's")
	assert.Equal(t, RequestPending, req.Status)
	assert.Equal(t, now.AddDate(0, 0, 7), req.ExpiresAt)
	assert.NotEmpty(t, req.ID)
}

func TestCreatePaymentRequest_CycleAmounts(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		Cycle:       CycleQuarterly,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	assert.InDelta(t, 3*19.90, req.Amount, 1e-9, "quarterly bills three monthly periods")

	req, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		Cycle:       CycleYearly,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	assert.Equal(t, 199.0, req.Amount)
}

func TestCreatePaymentRequest_UpgradeAmount(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:             "org-1",
		RequestType:       RequestUpgrade,
		RequestedPlanCode: planPro,
		RequestedBy:       "admin@test",
	})
	require.NoError(t, err)
	assert.Equal(t, 49.90, req.Amount)

	_, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestUpgrade,
		RequestedBy: "admin@test",
	})
	require.Error(t, err, "upgrade without a target plan")
	assert.True(t, kerrors.IsBadRequest(err))
}

func TestCreatePaymentRequest_AddOnAmount(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:           "org-1",
		RequestType:     RequestAddOn,
		RequestedAddOns: []FeatureCode{codeJobBoard},
		Cycle:           CycleYearly,
		RequestedBy:     "admin@test",
	})
	require.NoError(t, err)
	assert.Equal(t, 99.0, req.Amount)

	// Non-add-on features cannot be bought.
	_, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:           "org-1",
		RequestType:     RequestAddOn,
		RequestedAddOns: []FeatureCode{codeNews},
		RequestedBy:     "admin@test",
	})
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))
}

func TestApprove_DoesNotTouchSubscription(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	before, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)

	approved, err := e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "looks right")
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, approved.Status)
	assert.Equal(t, "owner@test", approved.RespondedBy)

	after, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.CurrentPeriodEnd, after.CurrentPeriodEnd)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestRespond_OnlyPendingIsActionable(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.NoError(t, err)

	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))
	_, err = e.payUC.RejectPaymentRequest(ctx, req.ID, "owner@test", "changed my mind")
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))

	// A lapsed PENDING request is expired for responders even before the
	// sweeper writes the status back.
	lapsed, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	e.setNow(now.AddDate(0, 0, 8))
	_, err = e.payUC.ApprovePaymentRequest(ctx, lapsed.ID, "owner@test", "")
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))
	assert.Contains(t, err.Error(), string(RequestExpired))

	got, err := e.payUC.GetPaymentRequest(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestExpired, got.Status)
}

func TestMarkPaid_Renewal(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.NoError(t, err)

	paid, err := e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-42", "owner@test")
	require.NoError(t, err)
	assert.Equal(t, RequestPaid, paid.Status)
	assert.Equal(t, "tx-42", paid.PaymentTransactionID)
	assert.Equal(t, 1, e.gateway.calls)

	sub, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.CurrentPeriodEnd)
	require.NotNil(t, sub.LastPaymentID)
	assert.Equal(t, "tx-42", *sub.LastPaymentID)

	entry := e.waitAudit(t, constants.AuditPaymentRequestPaid)
	assert.Equal(t, req.ID, entry.Details["requestId"])
}

func TestMarkPaid_UpgradeChangesPlanThenActivates(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:             "org-1",
		RequestType:       RequestUpgrade,
		RequestedPlanCode: planPro,
		RequestedBy:       "admin@test",
	})
	require.NoError(t, err)
	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.NoError(t, err)
	_, err = e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-43", "owner@test")
	require.NoError(t, err)

	sub, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, planPro, sub.PlanCode)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.CurrentPeriodEnd)

	// The upgraded plan's features resolve immediately.
	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeAnalytics)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)
}

func TestMarkPaid_AddOnEnablesWithCycleExpiry(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:           "org-1",
		RequestType:     RequestAddOn,
		RequestedAddOns: []FeatureCode{codeJobBoard},
		RequestedBy:     "admin@test",
	})
	require.NoError(t, err)
	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.NoError(t, err)
	_, err = e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-44", "owner@test")
	require.NoError(t, err)

	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeJobBoard)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)
	require.NotNil(t, st.AddOnExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 30), *st.AddOnExpiresAt)

	// The subscription period itself is untouched by an add-on purchase.
	sub, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 20), sub.CurrentPeriodEnd)
}

func TestMarkPaid_RequiresApproval(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)

	_, err = e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-45", "owner@test")
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))
	assert.Equal(t, 0, e.gateway.calls, "gateway is not consulted before approval")
}

func TestMarkPaid_GatewayFailureLeavesRequestApproved(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.NoError(t, err)

	e.gateway.err = errors.New("gateway unreachable")
	_, err = e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-46", "owner@test")
	require.Error(t, err)

	got, err := e.payUC.GetPaymentRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, got.Status)

	sub, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Nil(t, sub.LastPaymentID)
}

func TestMarkPaid_DispatchFailureLeavesRequestRetryable(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	req, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	_, err = e.payUC.ApprovePaymentRequest(ctx, req.ID, "owner@test", "")
	require.NoError(t, err)

	e.subs.updateErr = errors.New("db down")
	_, err = e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-47", "owner@test")
	require.Error(t, err)
	assert.Equal(t, 1, e.gateway.calls)

	// The request must not read PAID while the subscription is untouched.
	got, err := e.payUC.GetPaymentRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, got.Status)
	assert.Empty(t, got.PaymentTransactionID)

	sub, err := e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 20), sub.CurrentPeriodEnd)
	assert.Nil(t, sub.LastPaymentID)

	// Once the store recovers the same request is payable.
	e.subs.updateErr = nil
	paid, err := e.payUC.MarkPaymentRequestPaid(ctx, req.ID, "tx-47", "owner@test")
	require.NoError(t, err)
	assert.Equal(t, RequestPaid, paid.Status)
	assert.Equal(t, "tx-47", paid.PaymentTransactionID)

	sub, err = e.subs.GetSubscription(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.CurrentPeriodEnd)
}

func TestCreatePaymentRequest_ValidatesTargetWithExplicitAmount(t *testing.T) {
	e, _ := paymentTestEnv(t)
	ctx := context.Background()

	// An explicit amount must not bypass target validation.
	_, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:             "org-1",
		RequestType:       RequestUpgrade,
		RequestedPlanCode: PlanCode("GHOST_PLAN"),
		Amount:            10,
		RequestedBy:       "admin@test",
	})
	require.Error(t, err)
	assert.True(t, kerrors.IsNotFound(err))

	_, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestUpgrade,
		Amount:      10,
		RequestedBy: "admin@test",
	})
	require.Error(t, err)
	assert.True(t, kerrors.IsBadRequest(err))

	_, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:           "org-1",
		RequestType:     RequestAddOn,
		RequestedAddOns: []FeatureCode{codeNews},
		Amount:          10,
		RequestedBy:     "admin@test",
	})
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))

	// An add-on request with nothing to purchase is rejected outright.
	_, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestAddOn,
		RequestedBy: "admin@test",
	})
	require.Error(t, err)
	assert.True(t, kerrors.IsBadRequest(err))
}

func TestGetPendingPaymentRequests_ExcludesLapsed(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	fresh, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
		ExpiryDays:  14,
	})
	require.NoError(t, err)
	_, err = e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:             "org-1",
		RequestType:       RequestUpgrade,
		RequestedPlanCode: planPro,
		RequestedBy:       "admin@test",
	})
	require.NoError(t, err)

	e.setNow(now.AddDate(0, 0, 8))
	pending, err := e.payUC.GetPendingPaymentRequests(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)
}

func TestExpireLapsedRequests_PartialFailure(t *testing.T) {
	e, now := paymentTestEnv(t)
	ctx := context.Background()

	first, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:       "org-1",
		RequestType: RequestRenewal,
		RequestedBy: "admin@test",
	})
	require.NoError(t, err)
	second, err := e.payUC.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
		OrgID:             "org-1",
		RequestType:       RequestUpgrade,
		RequestedPlanCode: planPro,
		RequestedBy:       "admin@test",
	})
	require.NoError(t, err)

	e.pays.updateErr[second.ID] = errors.New("deadlock")
	e.setNow(now.AddDate(0, 0, 8))

	scanned, expired, errs := e.payUC.ExpireLapsedRequests(ctx)
	assert.Equal(t, 2, scanned)
	assert.Equal(t, 1, expired)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], second.ID)

	got, err := e.pays.GetPaymentRequest(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestExpired, got.Status)
}
