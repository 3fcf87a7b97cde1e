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

type subscriptionRepo struct {
	data *Data
	log  *log.Helper
}

// NewSubscriptionRepo creates the subscription store.
func NewSubscriptionRepo(data *Data, logger log.Logger) biz.SubscriptionRepo {
	return &subscriptionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *subscriptionRepo) CreateSubscription(ctx context.Context, s *biz.Subscription) error {
	m := toSubscriptionModel(s)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("failed to create subscription for org %s: %v", s.OrgID, err)
		return err
	}
	s.ID = m.ID
	return nil
}

func (r *subscriptionRepo) GetSubscription(ctx context.Context, orgID string) (*biz.Subscription, error) {
	var m model.OrganizationSubscription
	err := r.data.DB(ctx).Where("org_id = ?", orgID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("failed to get subscription for org %s: %v", orgID, err)
		return nil, err
	}
	return toSubscriptionBiz(&m), nil
}

func (r *subscriptionRepo) UpdateSubscription(ctx context.Context, s *biz.Subscription) error {
	m := toSubscriptionModel(s)
	if err := r.data.DB(ctx).Save(m).Error; err != nil {
		r.log.Errorf("failed to update subscription %d: %v", s.ID, err)
		return err
	}
	return nil
}

// TransitionStatus performs a compare-and-swap on the stored status. A
// RowsAffected of zero means another writer moved the row first.
func (r *subscriptionRepo) TransitionStatus(ctx context.Context, id uint64, from, to biz.SubscriptionStatus, graceEndsAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":               string(to),
		"grace_period_ends_at": graceEndsAt,
		"updated_at":           time.Now().UTC(),
	}
	res := r.data.DB(ctx).Model(&model.OrganizationSubscription{}).
		Where("subscription_id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		r.log.Errorf("failed to transition subscription %d %s->%s: %v", id, from, to, res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepo) ListLapsed(ctx context.Context, now time.Time) ([]*biz.Subscription, error) {
	var models []model.OrganizationSubscription
	err := r.data.DB(ctx).
		Where("status IN ? AND current_period_end < ?",
			[]string{string(biz.StatusTrial), string(biz.StatusActive)}, now).
		Order("current_period_end").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list lapsed subscriptions: %v", err)
		return nil, err
	}
	return toSubscriptionList(models), nil
}

func (r *subscriptionRepo) ListGraceExpired(ctx context.Context, now time.Time) ([]*biz.Subscription, error) {
	var models []model.OrganizationSubscription
	err := r.data.DB(ctx).
		Where("status = ? AND grace_period_ends_at IS NOT NULL AND grace_period_ends_at < ?",
			string(biz.StatusGracePeriod), now).
		Order("grace_period_ends_at").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list grace-expired subscriptions: %v", err)
		return nil, err
	}
	return toSubscriptionList(models), nil
}

func (r *subscriptionRepo) ListExpiring(ctx context.Context, now time.Time, days, page, pageSize int) ([]*biz.Subscription, int, error) {
	until := now.AddDate(0, 0, days)
	base := r.data.DB(ctx).Model(&model.OrganizationSubscription{}).
		Where("status = ? AND current_period_end BETWEEN ? AND ?", string(biz.StatusActive), now, until)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		r.log.Errorf("failed to count expiring subscriptions: %v", err)
		return nil, 0, err
	}

	var models []model.OrganizationSubscription
	err := r.data.DB(ctx).
		Where("status = ? AND current_period_end BETWEEN ? AND ?", string(biz.StatusActive), now, until).
		Order("current_period_end").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list expiring subscriptions: %v", err)
		return nil, 0, err
	}
	return toSubscriptionList(models), int(total), nil
}

func (r *subscriptionRepo) ListAutoRenewDue(ctx context.Context, now time.Time, days int) ([]*biz.Subscription, error) {
	until := now.AddDate(0, 0, days)
	var models []model.OrganizationSubscription
	err := r.data.DB(ctx).
		Where("status = ? AND auto_renew = ? AND current_period_end BETWEEN ? AND ?",
			string(biz.StatusActive), true, now, until).
		Order("current_period_end").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list auto-renew-due subscriptions: %v", err)
		return nil, err
	}
	return toSubscriptionList(models), nil
}

func toSubscriptionList(models []model.OrganizationSubscription) []*biz.Subscription {
	subs := make([]*biz.Subscription, len(models))
	for i := range models {
		subs[i] = toSubscriptionBiz(&models[i])
	}
	return subs
}

func toSubscriptionModel(s *biz.Subscription) *model.OrganizationSubscription {
	return &model.OrganizationSubscription{
		ID:                 s.ID,
		OrgID:              s.OrgID,
		PlanCode:           s.PlanCode.String(),
		Status:             string(s.Status),
		BillingCycle:       string(s.BillingCycle),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		TrialEndsAt:        s.TrialEndsAt,
		GracePeriodEndsAt:  s.GracePeriodEndsAt,
		AutoRenew:          s.AutoRenew,
		CustomMaxUsers:     s.CustomMaxUsers,
		CustomMaxStorageMB: s.CustomMaxStorageMB,
		LastPaymentID:      s.LastPaymentID,
		LastPaymentAmount:  s.LastPaymentAmount,
		NextBillingDate:    s.NextBillingDate,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func toSubscriptionBiz(m *model.OrganizationSubscription) *biz.Subscription {
	return &biz.Subscription{
		ID:                 m.ID,
		OrgID:              m.OrgID,
		PlanCode:           biz.PlanCode(m.PlanCode),
		Status:             biz.SubscriptionStatus(m.Status),
		BillingCycle:       biz.BillingCycle(m.BillingCycle),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		TrialEndsAt:        m.TrialEndsAt,
		GracePeriodEndsAt:  m.GracePeriodEndsAt,
		AutoRenew:          m.AutoRenew,
		CustomMaxUsers:     m.CustomMaxUsers,
		CustomMaxStorageMB: m.CustomMaxStorageMB,
		LastPaymentID:      m.LastPaymentID,
		LastPaymentAmount:  m.LastPaymentAmount,
		NextBillingDate:    m.NextBillingDate,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
