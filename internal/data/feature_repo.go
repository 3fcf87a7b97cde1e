package data

import (
	"context"
	"errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/data/model"
)

type featureRepo struct {
	data *Data
	log  *log.Helper
}

// NewFeatureRepo creates the feature catalog repo.
func NewFeatureRepo(data *Data, logger log.Logger) biz.FeatureRepo {
	return &featureRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *featureRepo) CreateFeature(ctx context.Context, f *biz.Feature) error {
	m := toFeatureModel(f)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("failed to create feature %s: %v", f.Code, err)
		return err
	}
	f.ID = m.ID
	return nil
}

func (r *featureRepo) UpdateFeature(ctx context.Context, f *biz.Feature) error {
	m := toFeatureModel(f)
	if err := r.data.DB(ctx).Save(m).Error; err != nil {
		r.log.Errorf("failed to update feature %s: %v", f.Code, err)
		return err
	}
	return nil
}

func (r *featureRepo) GetFeature(ctx context.Context, code biz.FeatureCode) (*biz.Feature, error) {
	var m model.Feature
	err := r.data.DB(ctx).Where("code = ?", code.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("failed to get feature %s: %v", code, err)
		return nil, err
	}
	return toFeatureBiz(&m), nil
}

func (r *featureRepo) ListFeatures(ctx context.Context, includeInactive bool) ([]*biz.Feature, error) {
	q := r.data.DB(ctx).Order("category, code")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var models []model.Feature
	if err := q.Find(&models).Error; err != nil {
		r.log.Errorf("failed to list features: %v", err)
		return nil, err
	}
	features := make([]*biz.Feature, len(models))
	for i := range models {
		features[i] = toFeatureBiz(&models[i])
	}
	return features, nil
}

func toFeatureModel(f *biz.Feature) *model.Feature {
	return &model.Feature{
		ID:                f.ID,
		Code:              f.Code.String(),
		Name:              f.Name,
		Description:       f.Description,
		Category:          f.Category,
		IsCore:            f.IsCore,
		IsPremium:         f.IsPremium,
		IsAddOn:           f.IsAddOn,
		AddOnPriceMonthly: f.AddOnPriceMonthly,
		AddOnPriceYearly:  f.AddOnPriceYearly,
		IsActive:          f.IsActive,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

func toFeatureBiz(m *model.Feature) *biz.Feature {
	return &biz.Feature{
		ID:                m.ID,
		Code:              biz.FeatureCode(m.Code),
		Name:              m.Name,
		Description:       m.Description,
		Category:          m.Category,
		IsCore:            m.IsCore,
		IsPremium:         m.IsPremium,
		IsAddOn:           m.IsAddOn,
		AddOnPriceMonthly: m.AddOnPriceMonthly,
		AddOnPriceYearly:  m.AddOnPriceYearly,
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
