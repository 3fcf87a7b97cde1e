package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// PeriodType buckets usage by calendar period.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
)

// Valid reports whether the period type is known.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodDaily, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Bucket returns the period boundaries containing t, in UTC: start of day,
// first of month, or January 1st.
func (p PeriodType) Bucket(t time.Time) (start, end time.Time) {
	t = t.UTC()
	switch p {
	case PeriodYearly:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	case PeriodMonthly:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
}

// UsageDelta is an additive set of metric increments. Increments are applied
// atomically at the store layer so concurrent writers cannot lose updates.
type UsageDelta struct {
	EmailsSent    int64
	PushSent      int64
	EventsCreated int64
	StorageUsedMB int64
	APIRequests   int64
}

// UsageRecord is one per-period counter row, unique per
// (subscription, period start, period type).
type UsageRecord struct {
	ID             uint64
	SubscriptionID uint64
	OrgID          string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	PeriodType     PeriodType
	EmailsSent     int64
	PushSent       int64
	EventsCreated  int64
	StorageUsedMB  int64
	APIRequests    int64
	UpdatedAt      time.Time
}

// UsageRepo is the usage store. Increment must be an atomic upsert:
// create-on-miss, column increments otherwise.
type UsageRepo interface {
	Increment(ctx context.Context, rec *UsageRecord, delta UsageDelta) error
	// Get returns (nil, nil) when no row exists for the bucket yet.
	Get(ctx context.Context, subscriptionID uint64, periodType PeriodType, periodStart time.Time) (*UsageRecord, error)
}

// UsageUsecase meters per-period consumption for plan-limit enforcement.
type UsageUsecase struct {
	repo UsageRepo
	subs SubscriptionRepo
	now  func() time.Time
	log  *log.Helper
}

// NewUsageUsecase creates the usage meter.
func NewUsageUsecase(repo UsageRepo, subs SubscriptionRepo, logger log.Logger) *UsageUsecase {
	return &UsageUsecase{
		repo: repo,
		subs: subs,
		now:  func() time.Time { return time.Now().UTC() },
		log:  log.NewHelper(logger),
	}
}

// RecordUsage applies the delta to the organization's daily, monthly and
// yearly buckets for the current instant.
func (uc *UsageUsecase) RecordUsage(ctx context.Context, orgID string, delta UsageDelta) error {
	sub, err := uc.subs.GetSubscription(ctx, orgID)
	if err != nil {
		return err
	}
	if sub == nil {
		return errs.SubscriptionNotFound(orgID)
	}
	now := uc.now()
	for _, pt := range []PeriodType{PeriodDaily, PeriodMonthly, PeriodYearly} {
		start, end := pt.Bucket(now)
		rec := &UsageRecord{
			SubscriptionID: sub.ID,
			OrgID:          orgID,
			PeriodStart:    start,
			PeriodEnd:      end,
			PeriodType:     pt,
			UpdatedAt:      now,
		}
		if err := uc.repo.Increment(ctx, rec, delta); err != nil {
			return err
		}
	}
	return nil
}

// GetUsage returns the current bucket for the period type; a zero-valued
// record when nothing has been metered yet.
func (uc *UsageUsecase) GetUsage(ctx context.Context, orgID string, periodType PeriodType) (*UsageRecord, error) {
	if !periodType.Valid() {
		periodType = PeriodMonthly
	}
	sub, err := uc.subs.GetSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errs.SubscriptionNotFound(orgID)
	}
	start, end := periodType.Bucket(uc.now())
	rec, err := uc.repo.Get(ctx, sub.ID, periodType, start)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &UsageRecord{
			SubscriptionID: sub.ID,
			OrgID:          orgID,
			PeriodStart:    start,
			PeriodEnd:      end,
			PeriodType:     periodType,
		}
	}
	return rec, nil
}
