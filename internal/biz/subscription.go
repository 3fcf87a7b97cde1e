package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// SubscriptionStatus is the lifecycle state of an organization's subscription.
type SubscriptionStatus string

const (
	StatusTrial       SubscriptionStatus = "TRIAL"
	StatusActive      SubscriptionStatus = "ACTIVE"
	StatusGracePeriod SubscriptionStatus = "GRACE_PERIOD"
	StatusExpired     SubscriptionStatus = "EXPIRED"
	StatusSuspended   SubscriptionStatus = "SUSPENDED"
	StatusCancelled   SubscriptionStatus = "CANCELLED"
)

// Entitled reports whether the status still grants access to the product.
func (s SubscriptionStatus) Entitled() bool {
	switch s {
	case StatusTrial, StatusActive, StatusGracePeriod:
		return true
	}
	return false
}

// Subscription is the per-organization state machine record. Exactly one
// per organization; created at onboarding, never deleted.
type Subscription struct {
	ID                 uint64
	OrgID              string
	PlanCode           PlanCode
	Status             SubscriptionStatus
	BillingCycle       BillingCycle
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	TrialEndsAt        *time.Time
	GracePeriodEndsAt  *time.Time
	AutoRenew          bool
	CustomMaxUsers     *int
	CustomMaxStorageMB *int
	LastPaymentID      *string
	LastPaymentAmount  *float64
	NextBillingDate    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SubscriptionRepo is the subscription store. Status transitions issued by
// the sweeper go through TransitionStatus, a compare-and-swap on the prior
// status, so overlapping sweeps re-applying a transition are no-ops.
type SubscriptionRepo interface {
	CreateSubscription(ctx context.Context, s *Subscription) error
	// GetSubscription returns (nil, nil) when the organization has none.
	GetSubscription(ctx context.Context, orgID string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	// TransitionStatus applies from→to with optional grace deadline iff the
	// row still holds the expected prior status. Returns whether it applied.
	TransitionStatus(ctx context.Context, id uint64, from, to SubscriptionStatus, graceEndsAt *time.Time) (bool, error)
	// ListLapsed returns TRIAL/ACTIVE subscriptions whose current period has
	// ended before now.
	ListLapsed(ctx context.Context, now time.Time) ([]*Subscription, error)
	// ListGraceExpired returns GRACE_PERIOD subscriptions whose grace
	// deadline has passed.
	ListGraceExpired(ctx context.Context, now time.Time) ([]*Subscription, error)
	// ListExpiring pages ACTIVE subscriptions ending within the window.
	ListExpiring(ctx context.Context, now time.Time, days, page, pageSize int) ([]*Subscription, int, error)
	// ListAutoRenewDue returns ACTIVE auto-renew subscriptions ending within
	// the lead window.
	ListAutoRenewDue(ctx context.Context, now time.Time, days int) ([]*Subscription, error)
}

// SubscriptionUsecase drives the subscription state machine. Within one
// transition the store writes are transactional; the cache is invalidated
// after commit, so a concurrent reader can serve a pre-transition decision
// for at most the entitlement TTL. That bounded staleness is accepted and
// documented rather than closed with a second invalidation protocol.
type SubscriptionUsecase struct {
	repo  SubscriptionRepo
	plans *PlanUsecase
	ents  *EntitlementUsecase
	cache Cache
	tm    Transaction
	audit *AuditUsecase
	ttl   time.Duration
	now   func() time.Time
	log   *log.Helper
}

// NewSubscriptionUsecase creates the subscription usecase.
func NewSubscriptionUsecase(repo SubscriptionRepo, plans *PlanUsecase, ents *EntitlementUsecase, cache Cache, tm Transaction, audit *AuditUsecase, c *conf.Bootstrap, logger log.Logger) *SubscriptionUsecase {
	return &SubscriptionUsecase{
		repo:  repo,
		plans: plans,
		ents:  ents,
		cache: cache,
		tm:    tm,
		audit: audit,
		ttl:   c.SubscriptionCacheTTL(constants.SubscriptionCacheTTL),
		now:   func() time.Time { return time.Now().UTC() },
		log:   log.NewHelper(logger),
	}
}

// CreateSubscription onboards an organization: status TRIAL, trial deadline
// from the plan, entitlements initialized from the plan.
func (uc *SubscriptionUsecase) CreateSubscription(ctx context.Context, orgID string, planCode PlanCode, cycle BillingCycle, actor string) (*Subscription, error) {
	if !cycle.Valid() {
		return nil, errs.BadRequest("unknown billing cycle " + string(cycle))
	}
	plan, err := uc.plans.GetPlan(ctx, planCode)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, errs.PlanNotFound(planCode.String())
	}
	existing, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.Conflict("organization " + orgID + " already has a subscription")
	}

	now := uc.now()
	trialEnd := now.AddDate(0, 0, plan.TrialDays)
	sub := &Subscription{
		OrgID:              orgID,
		PlanCode:           planCode,
		Status:             StatusTrial,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   trialEnd,
		TrialEndsAt:        &trialEnd,
		AutoRenew:          true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	var seeded int
	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.repo.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		seeded, err = uc.ents.seedOrganizationFeatures(ctx, orgID, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, orgID)
	uc.ents.auditSeeded(ctx, orgID, plan, seeded)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     orgID,
		EventType: constants.AuditSubscriptionCreated,
		NewStatus: string(StatusTrial),
		Details: map[string]string{
			"plan":        planCode.String(),
			"cycle":       string(cycle),
			"trialEndsAt": trialEnd.Format(time.RFC3339),
		},
		PerformedBy: actor,
	})
	return sub, nil
}

// GetSubscription returns the organization's subscription, cache-aside.
func (uc *SubscriptionUsecase) GetSubscription(ctx context.Context, orgID string) (*Subscription, error) {
	key := constants.SubscriptionKey(orgID)
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var s Subscription
		if err := json.Unmarshal([]byte(cached), &s); err == nil {
			return &s, nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("subscription cache read failed for %s: %v", key, err)
	}

	sub, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}
	if raw, err := json.Marshal(sub); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("subscription cache write failed for %s: %v", key, err)
		}
	}
	return sub, nil
}

// ActivateSubscription applies a successful payment: the current period is
// restarted from now and sized by the billing cycle (30/90/365 days).
func (uc *SubscriptionUsecase) ActivateSubscription(ctx context.Context, orgID string, payment *PaymentConfirmation, actor string) (*Subscription, error) {
	sub, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}
	switch sub.Status {
	case StatusTrial, StatusActive, StatusGracePeriod, StatusExpired:
	default:
		return nil, errs.Conflict(fmt.Sprintf("cannot activate subscription in status %s", sub.Status))
	}

	prev := sub.Status
	now := uc.now()
	periodEnd := now.AddDate(0, 0, sub.BillingCycle.Days())
	sub.Status = StatusActive
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = periodEnd
	sub.TrialEndsAt = nil
	sub.GracePeriodEndsAt = nil
	sub.NextBillingDate = &periodEnd
	if payment != nil {
		sub.LastPaymentID = &payment.TransactionID
		sub.LastPaymentAmount = &payment.Amount
	}
	sub.UpdatedAt = now

	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		return uc.repo.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, orgID)

	event := constants.AuditSubscriptionActivated
	if prev == StatusActive {
		event = constants.AuditSubscriptionRenewed
	}
	details := map[string]string{
		"plan":      sub.PlanCode.String(),
		"cycle":     string(sub.BillingCycle),
		"periodEnd": periodEnd.Format(time.RFC3339),
	}
	if payment != nil {
		details["transactionId"] = payment.TransactionID
		details["amount"] = fmt.Sprintf("%.2f", payment.Amount)
	}
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:          orgID,
		EventType:      event,
		PreviousStatus: string(prev),
		NewStatus:      string(StatusActive),
		Details:        details,
		PerformedBy:    actor,
	})
	return sub, nil
}

// ChangePlan moves the organization to a new plan. Per-organization custom
// limits are cleared so the new plan's defaults apply, and the entitlement
// set is rebuilt wholesale in the same transaction as the plan swap: the
// effective set must always be explained by "current plan + explicit
// add-ons", never by a plan code committed without its rows.
func (uc *SubscriptionUsecase) ChangePlan(ctx context.Context, orgID string, newPlanCode PlanCode, actor string) (*Subscription, error) {
	plan, err := uc.plans.GetPlan(ctx, newPlanCode)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, errs.PlanNotFound(newPlanCode.String())
	}
	sub, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}

	prevPlan := sub.PlanCode
	now := uc.now()
	sub.PlanCode = newPlanCode
	sub.CustomMaxUsers = nil
	sub.CustomMaxStorageMB = nil
	sub.UpdatedAt = now

	var seeded int
	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		seeded, err = uc.ents.seedOrganizationFeatures(ctx, orgID, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, orgID)
	uc.ents.auditSeeded(ctx, orgID, plan, seeded)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     orgID,
		EventType: constants.AuditPlanChanged,
		Details: map[string]string{
			"previousPlan": prevPlan.String(),
			"newPlan":      newPlanCode.String(),
		},
		PerformedBy: actor,
	})
	return sub, nil
}

// CancelSubscription turns off auto-renew and marks the subscription
// cancelled. Terminal unless explicitly reactivated.
func (uc *SubscriptionUsecase) CancelSubscription(ctx context.Context, orgID, reason, actor string) (*Subscription, error) {
	sub, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}
	switch sub.Status {
	case StatusExpired, StatusCancelled:
		return nil, errs.Conflict(fmt.Sprintf("cannot cancel subscription in status %s", sub.Status))
	}

	prev := sub.Status
	now := uc.now()
	sub.Status = StatusCancelled
	sub.AutoRenew = false
	sub.NextBillingDate = nil
	sub.UpdatedAt = now
	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		return uc.repo.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, orgID)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:          orgID,
		EventType:      constants.AuditSubscriptionCancelled,
		PreviousStatus: string(prev),
		NewStatus:      string(StatusCancelled),
		Details:        map[string]string{"reason": reason},
		PerformedBy:    actor,
	})
	return sub, nil
}

// SuspendSubscription is the administrative override, independent of time.
// The rest of the system honors it by blocking non-essential requests.
func (uc *SubscriptionUsecase) SuspendSubscription(ctx context.Context, orgID, reason, actor string) (*Subscription, error) {
	sub, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}
	switch sub.Status {
	case StatusSuspended, StatusExpired, StatusCancelled:
		return nil, errs.Conflict(fmt.Sprintf("cannot suspend subscription in status %s", sub.Status))
	}

	prev := sub.Status
	sub.Status = StatusSuspended
	sub.UpdatedAt = uc.now()
	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		return uc.repo.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, orgID)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:          orgID,
		EventType:      constants.AuditSubscriptionSuspended,
		PreviousStatus: string(prev),
		NewStatus:      string(StatusSuspended),
		Details:        map[string]string{"reason": reason},
		PerformedBy:    actor,
	})
	return sub, nil
}

// ReactivateSubscription lifts a suspension or cancellation. The outcome is
// decided by re-checking the period boundary: back to ACTIVE while the paid
// period still runs, otherwise EXPIRED pending a renewal payment.
func (uc *SubscriptionUsecase) ReactivateSubscription(ctx context.Context, orgID, actor string) (*Subscription, error) {
	sub, err := uc.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}
	switch sub.Status {
	case StatusSuspended, StatusCancelled:
	default:
		return nil, errs.Conflict(fmt.Sprintf("cannot reactivate subscription in status %s", sub.Status))
	}

	prev := sub.Status
	now := uc.now()
	if now.After(sub.CurrentPeriodEnd) {
		sub.Status = StatusExpired
	} else {
		sub.Status = StatusActive
		if prev == StatusCancelled {
			sub.AutoRenew = true
		}
	}
	sub.UpdatedAt = now
	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		return uc.repo.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, orgID)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:          orgID,
		EventType:      constants.AuditSubscriptionReactivated,
		PreviousStatus: string(prev),
		NewStatus:      string(sub.Status),
		PerformedBy:    actor,
	})
	return sub, nil
}

// ListExpiring pages ACTIVE subscriptions whose period ends within the
// window; the sweeper's reminder job consumes it.
func (uc *SubscriptionUsecase) ListExpiring(ctx context.Context, days, page, pageSize int) ([]*Subscription, int, error) {
	if days < 1 || days > 30 {
		days = 7
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return uc.repo.ListExpiring(ctx, uc.now(), days, page, pageSize)
}

// invalidate clears the subscription key and the organization's entitlement
// namespace. Runs after the store commit; staleness is TTL-bounded.
func (uc *SubscriptionUsecase) invalidate(ctx context.Context, orgID string) {
	if err := uc.cache.Delete(ctx, constants.SubscriptionKey(orgID)); err != nil {
		uc.log.Errorf("failed to invalidate subscription cache for org %s: %v", orgID, err)
	}
	uc.ents.InvalidateOrganization(ctx, orgID)
}
