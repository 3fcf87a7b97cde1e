package data

import (
	"context"
	"errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/data/model"
)

type planRepo struct {
	data *Data
	log  *log.Helper
}

// NewPlanRepo creates the plan catalog repo.
func NewPlanRepo(data *Data, logger log.Logger) biz.PlanRepo {
	return &planRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *planRepo) CreatePlan(ctx context.Context, p *biz.Plan) error {
	m := toPlanModel(p)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("failed to create plan %s: %v", p.Code, err)
		return err
	}
	p.ID = m.ID
	return nil
}

func (r *planRepo) UpdatePlan(ctx context.Context, p *biz.Plan) error {
	m := toPlanModel(p)
	if err := r.data.DB(ctx).Save(m).Error; err != nil {
		r.log.Errorf("failed to update plan %s: %v", p.Code, err)
		return err
	}
	return nil
}

func (r *planRepo) GetPlan(ctx context.Context, code biz.PlanCode) (*biz.Plan, error) {
	var m model.Plan
	err := r.data.DB(ctx).Where("code = ?", code.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("failed to get plan %s: %v", code, err)
		return nil, err
	}
	overrides, err := r.loadOverrides(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return toPlanBiz(&m, overrides), nil
}

func (r *planRepo) ListPlans(ctx context.Context, includeInactive bool) ([]*biz.Plan, error) {
	q := r.data.DB(ctx).Order("price_monthly")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var models []model.Plan
	if err := q.Find(&models).Error; err != nil {
		r.log.Errorf("failed to list plans: %v", err)
		return nil, err
	}
	plans := make([]*biz.Plan, len(models))
	for i := range models {
		overrides, err := r.loadOverrides(ctx, models[i].ID)
		if err != nil {
			return nil, err
		}
		plans[i] = toPlanBiz(&models[i], overrides)
	}
	return plans, nil
}

// ReplacePlanFeatures swaps the plan's override set wholesale.
func (r *planRepo) ReplacePlanFeatures(ctx context.Context, code biz.PlanCode, overrides []*biz.PlanFeatureOverride) error {
	var m model.Plan
	err := r.data.DB(ctx).Where("code = ?", code.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gorm.ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	return r.data.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", m.ID).Delete(&model.PlanFeature{}).Error; err != nil {
			return err
		}
		if len(overrides) == 0 {
			return nil
		}
		rows := make([]*model.PlanFeature, len(overrides))
		for i, o := range overrides {
			rows[i] = &model.PlanFeature{
				PlanID:      m.ID,
				FeatureCode: o.FeatureCode.String(),
				IsEnabled:   o.IsEnabled,
				Limit:       o.Limit,
				LimitType:   o.LimitType,
			}
		}
		return tx.Create(rows).Error
	})
}

func (r *planRepo) loadOverrides(ctx context.Context, planID uint64) ([]*model.PlanFeature, error) {
	var rows []*model.PlanFeature
	if err := r.data.DB(ctx).Where("plan_id = ?", planID).Find(&rows).Error; err != nil {
		r.log.Errorf("failed to load plan %d overrides: %v", planID, err)
		return nil, err
	}
	return rows, nil
}

func toPlanModel(p *biz.Plan) *model.Plan {
	included := make([]string, len(p.IncludedFeatures))
	for i, c := range p.IncludedFeatures {
		included[i] = c.String()
	}
	return &model.Plan{
		ID:                p.ID,
		Code:              p.Code.String(),
		Name:              p.Name,
		Description:       p.Description,
		PriceMonthly:      p.PriceMonthly,
		PriceYearly:       p.PriceYearly,
		Currency:          p.Currency,
		MaxUsers:          p.Limits.MaxUsers,
		MaxStorageMB:      p.Limits.MaxStorageMB,
		MaxEventsPerMonth: p.Limits.MaxEventsPerMonth,
		MaxEmailsPerMonth: p.Limits.MaxEmailsPerMonth,
		MaxPushPerMonth:   p.Limits.MaxPushPerMonth,
		TrialDays:         p.TrialDays,
		GracePeriodDays:   p.GracePeriodDays,
		IncludedFeatures:  included,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toPlanBiz(m *model.Plan, overrideRows []*model.PlanFeature) *biz.Plan {
	included := make([]biz.FeatureCode, len(m.IncludedFeatures))
	for i, c := range m.IncludedFeatures {
		included[i] = biz.FeatureCode(c)
	}
	overrides := make(map[biz.FeatureCode]*biz.PlanFeatureOverride, len(overrideRows))
	for _, row := range overrideRows {
		code := biz.FeatureCode(row.FeatureCode)
		overrides[code] = &biz.PlanFeatureOverride{
			FeatureCode: code,
			IsEnabled:   row.IsEnabled,
			Limit:       row.Limit,
			LimitType:   row.LimitType,
		}
	}
	return &biz.Plan{
		ID:           m.ID,
		Code:         biz.PlanCode(m.Code),
		Name:         m.Name,
		Description:  m.Description,
		PriceMonthly: m.PriceMonthly,
		PriceYearly:  m.PriceYearly,
		Currency:     m.Currency,
		Limits: biz.PlanLimits{
			MaxUsers:          m.MaxUsers,
			MaxStorageMB:      m.MaxStorageMB,
			MaxEventsPerMonth: m.MaxEventsPerMonth,
			MaxEmailsPerMonth: m.MaxEmailsPerMonth,
			MaxPushPerMonth:   m.MaxPushPerMonth,
		},
		TrialDays:        m.TrialDays,
		GracePeriodDays:  m.GracePeriodDays,
		IncludedFeatures: included,
		Overrides:        overrides,
		IsActive:         m.IsActive,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
