package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

// SweepReport summarizes one sweep run. Per-subscription failures are
// collected and never abort the batch.
type SweepReport struct {
	Job          string
	Skipped      bool
	Scanned      int
	Transitioned int
	Errors       []string
}

func (r *SweepReport) fail(id string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", id, err))
}

// SweepUsecase advances time-driven subscription states. Each job takes a
// distributed lock so replicas skip instead of double-scanning; the
// transitions themselves are compare-and-swap guarded, so an overlapping
// run that slips past the lock is still harmless.
type SweepUsecase struct {
	subs          SubscriptionRepo
	plans         *PlanUsecase
	ents          *EntitlementUsecase
	payments      *PaymentRequestUsecase
	cache         Cache
	audit         *AuditUsecase
	rs            *redsync.Redsync
	autoRenewDays int
	reminderDays  int
	now           func() time.Time
	log           *log.Helper
}

// NewSweepUsecase creates the lifecycle sweeper.
func NewSweepUsecase(subs SubscriptionRepo, plans *PlanUsecase, ents *EntitlementUsecase, payments *PaymentRequestUsecase, cache Cache, audit *AuditUsecase, rs *redsync.Redsync, c *conf.Bootstrap, logger log.Logger) *SweepUsecase {
	reminderDays := 7
	if c.Sweep != nil && c.Sweep.ReminderDaysBefore > 0 {
		reminderDays = c.Sweep.ReminderDaysBefore
	}
	return &SweepUsecase{
		subs:          subs,
		plans:         plans,
		ents:          ents,
		payments:      payments,
		cache:         cache,
		audit:         audit,
		rs:            rs,
		autoRenewDays: c.AutoRenewDaysBefore(constants.DefaultAutoRenewDaysBefore),
		reminderDays:  reminderDays,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log.NewHelper(logger),
	}
}

// SweepExpiredPeriods moves TRIAL and ACTIVE subscriptions whose period has
// ended into GRACE_PERIOD, or straight to EXPIRED once the grace window has
// also elapsed (or the plan grants none).
func (uc *SweepUsecase) SweepExpiredPeriods(ctx context.Context) *SweepReport {
	report := &SweepReport{Job: "expired_periods"}
	release, ok := uc.acquire(ctx, report)
	if !ok {
		return report
	}
	defer release()
	now := uc.now()
	rows, err := uc.subs.ListLapsed(ctx, now)
	if err != nil {
		report.fail("list", err)
		return report
	}
	report.Scanned = len(rows)
	for _, sub := range rows {
		plan, err := uc.plans.GetPlan(ctx, sub.PlanCode)
		if err != nil {
			report.fail(sub.OrgID, err)
			continue
		}
		if plan == nil {
			report.fail(sub.OrgID, fmt.Errorf("plan %s not found", sub.PlanCode))
			continue
		}

		graceEnd := sub.CurrentPeriodEnd.AddDate(0, 0, plan.GracePeriodDays)
		to := StatusExpired
		var graceEndsAt *time.Time
		event := constants.AuditSubscriptionExpired
		if plan.GracePeriodDays > 0 && !now.After(graceEnd) {
			to = StatusGracePeriod
			graceEndsAt = &graceEnd
			event = constants.AuditSubscriptionGraced
		}

		applied, err := uc.subs.TransitionStatus(ctx, sub.ID, sub.Status, to, graceEndsAt)
		if err != nil {
			report.fail(sub.OrgID, err)
			continue
		}
		if !applied {
			// Already moved by a concurrent run or an explicit operation.
			continue
		}
		report.Transitioned++
		uc.invalidate(ctx, sub.OrgID)
		details := map[string]string{"periodEnd": sub.CurrentPeriodEnd.Format(time.RFC3339)}
		if graceEndsAt != nil {
			details["gracePeriodEndsAt"] = graceEndsAt.Format(time.RFC3339)
		}
		uc.audit.Record(ctx, &AuditEntry{
			OrgID:          sub.OrgID,
			EventType:      event,
			PreviousStatus: string(sub.Status),
			NewStatus:      string(to),
			Details:        details,
			PerformedBy:    constants.SystemActor,
		})
	}
	return report
}

// SweepGraceExpirations expires GRACE_PERIOD subscriptions whose grace
// deadline has passed.
func (uc *SweepUsecase) SweepGraceExpirations(ctx context.Context) *SweepReport {
	report := &SweepReport{Job: "grace_expirations"}
	release, ok := uc.acquire(ctx, report)
	if !ok {
		return report
	}
	defer release()
	now := uc.now()
	rows, err := uc.subs.ListGraceExpired(ctx, now)
	if err != nil {
		report.fail("list", err)
		return report
	}
	report.Scanned = len(rows)
	for _, sub := range rows {
		applied, err := uc.subs.TransitionStatus(ctx, sub.ID, StatusGracePeriod, StatusExpired, nil)
		if err != nil {
			report.fail(sub.OrgID, err)
			continue
		}
		if !applied {
			continue
		}
		report.Transitioned++
		uc.invalidate(ctx, sub.OrgID)
		uc.audit.Record(ctx, &AuditEntry{
			OrgID:          sub.OrgID,
			EventType:      constants.AuditSubscriptionExpired,
			PreviousStatus: string(StatusGracePeriod),
			NewStatus:      string(StatusExpired),
			PerformedBy:    constants.SystemActor,
		})
	}
	return report
}

// SweepExpiredPaymentRequests writes EXPIRED back onto lapsed PENDING
// requests. Readers already treat them as inert; this is hygiene.
func (uc *SweepUsecase) SweepExpiredPaymentRequests(ctx context.Context) *SweepReport {
	report := &SweepReport{Job: "expired_payment_requests"}
	release, ok := uc.acquire(ctx, report)
	if !ok {
		return report
	}
	defer release()
	scanned, expired, errs := uc.payments.ExpireLapsedRequests(ctx)
	report.Scanned = scanned
	report.Transitioned = expired
	report.Errors = errs
	return report
}

// SweepAutoRenewals raises RENEWAL payment requests for auto-renewing
// subscriptions entering their last days. Idempotent: a subscription with
// an open renewal request is skipped.
func (uc *SweepUsecase) SweepAutoRenewals(ctx context.Context) *SweepReport {
	report := &SweepReport{Job: "auto_renewals"}
	release, ok := uc.acquire(ctx, report)
	if !ok {
		return report
	}
	defer release()
	rows, err := uc.subs.ListAutoRenewDue(ctx, uc.now(), uc.autoRenewDays)
	if err != nil {
		report.fail("list", err)
		return report
	}
	report.Scanned = len(rows)
	for _, sub := range rows {
		open, err := uc.payments.repo.HasOpenRequest(ctx, sub.ID, RequestRenewal)
		if err != nil {
			report.fail(sub.OrgID, err)
			continue
		}
		if open {
			continue
		}
		_, err = uc.payments.CreatePaymentRequest(ctx, &CreatePaymentRequestInput{
			OrgID:       sub.OrgID,
			RequestType: RequestRenewal,
			Cycle:       sub.BillingCycle,
			RequestedBy: constants.SystemActor,
		})
		if err != nil {
			report.fail(sub.OrgID, err)
			continue
		}
		report.Transitioned++
	}
	return report
}

// SweepRenewalReminders logs upcoming expiries. Notification delivery is an
// external collaborator; this job only surfaces the worklist.
func (uc *SweepUsecase) SweepRenewalReminders(ctx context.Context) *SweepReport {
	report := &SweepReport{Job: "renewal_reminders"}
	release, ok := uc.acquire(ctx, report)
	if !ok {
		return report
	}
	defer release()
	rows, _, err := uc.subs.ListExpiring(ctx, uc.now(), uc.reminderDays, 1, constants.MaxPageSize)
	if err != nil {
		report.fail("list", err)
		return report
	}
	report.Scanned = len(rows)
	for _, sub := range rows {
		uc.log.Infof("renewal reminder: org %s plan %s expires at %s",
			sub.OrgID, sub.PlanCode, sub.CurrentPeriodEnd.Format(time.RFC3339))
	}
	return report
}

// acquire takes the job's distributed lock; on contention the run is
// skipped. The returned release is a no-op when locking is disabled.
func (uc *SweepUsecase) acquire(ctx context.Context, report *SweepReport) (func(), bool) {
	if uc.rs == nil {
		return func() {}, true
	}
	mutex := uc.rs.NewMutex(
		constants.SweepLockKey(report.Job),
		redsync.WithExpiry(constants.SweepLockExpiration),
		redsync.WithTries(constants.SweepLockRetries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		uc.log.Infof("sweep %s skipped: lock busy", report.Job)
		report.Skipped = true
		return nil, false
	}
	return func() {
		if _, err := mutex.Unlock(); err != nil {
			uc.log.Warnf("failed to unlock sweep %s: %v", report.Job, err)
		}
	}, true
}

func (uc *SweepUsecase) invalidate(ctx context.Context, orgID string) {
	if err := uc.cache.Delete(ctx, constants.SubscriptionKey(orgID)); err != nil {
		uc.log.Errorf("failed to invalidate subscription cache for org %s: %v", orgID, err)
	}
	uc.ents.InvalidateOrganization(ctx, orgID)
}
