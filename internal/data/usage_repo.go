package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/data/model"
)

type usageRepo struct {
	data *Data
	log  *log.Helper
}

// NewUsageRepo creates the usage counter store.
func NewUsageRepo(data *Data, logger log.Logger) biz.UsageRepo {
	return &usageRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Increment upserts the bucket row and adds the delta to its counters in one
// statement, so concurrent writers never lose updates.
func (r *usageRepo) Increment(ctx context.Context, rec *biz.UsageRecord, delta biz.UsageDelta) error {
	m := &model.UsageRecord{
		SubscriptionID: rec.SubscriptionID,
		OrgID:          rec.OrgID,
		PeriodStart:    rec.PeriodStart,
		PeriodEnd:      rec.PeriodEnd,
		PeriodType:     string(rec.PeriodType),
		EmailsSent:     delta.EmailsSent,
		PushSent:       delta.PushSent,
		EventsCreated:  delta.EventsCreated,
		StorageUsedMB:  delta.StorageUsedMB,
		APIRequests:    delta.APIRequests,
		UpdatedAt:      time.Now().UTC(),
	}
	err := r.data.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subscription_id"}, {Name: "period_start"}, {Name: "period_type"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"emails_sent":     gorm.Expr("emails_sent + ?", delta.EmailsSent),
			"push_sent":       gorm.Expr("push_sent + ?", delta.PushSent),
			"events_created":  gorm.Expr("events_created + ?", delta.EventsCreated),
			"storage_used_mb": gorm.Expr("storage_used_mb + ?", delta.StorageUsedMB),
			"api_requests":    gorm.Expr("api_requests + ?", delta.APIRequests),
			"updated_at":      m.UpdatedAt,
		}),
	}).Create(m).Error
	if err != nil {
		r.log.Errorf("failed to increment usage for subscription %d: %v", rec.SubscriptionID, err)
		return err
	}
	return nil
}

func (r *usageRepo) Get(ctx context.Context, subscriptionID uint64, periodType biz.PeriodType, periodStart time.Time) (*biz.UsageRecord, error) {
	var m model.UsageRecord
	err := r.data.DB(ctx).
		Where("subscription_id = ? AND period_type = ? AND period_start = ?",
			subscriptionID, string(periodType), periodStart).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("failed to get usage for subscription %d: %v", subscriptionID, err)
		return nil, err
	}
	return &biz.UsageRecord{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		OrgID:          m.OrgID,
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		PeriodType:     biz.PeriodType(m.PeriodType),
		EmailsSent:     m.EmailsSent,
		PushSent:       m.PushSent,
		EventsCreated:  m.EventsCreated,
		StorageUsedMB:  m.StorageUsedMB,
		APIRequests:    m.APIRequests,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
