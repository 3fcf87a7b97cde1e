package data

import (
	"context"
	"errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/data/model"
)

type entitlementRepo struct {
	data *Data
	log  *log.Helper
}

// NewEntitlementRepo creates the per-organization feature store.
func NewEntitlementRepo(data *Data, logger log.Logger) biz.EntitlementRepo {
	return &entitlementRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *entitlementRepo) GetOrganizationFeature(ctx context.Context, orgID string, code biz.FeatureCode) (*biz.OrganizationFeature, error) {
	var m model.OrganizationFeature
	err := r.data.DB(ctx).
		Where("org_id = ? AND feature_code = ?", orgID, code.String()).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("failed to get feature %s for org %s: %v", code, orgID, err)
		return nil, err
	}
	return toOrgFeatureBiz(&m), nil
}

func (r *entitlementRepo) ListOrganizationFeatures(ctx context.Context, orgID string) ([]*biz.OrganizationFeature, error) {
	var models []model.OrganizationFeature
	if err := r.data.DB(ctx).Where("org_id = ?", orgID).Order("feature_code").Find(&models).Error; err != nil {
		r.log.Errorf("failed to list features for org %s: %v", orgID, err)
		return nil, err
	}
	rows := make([]*biz.OrganizationFeature, len(models))
	for i := range models {
		rows[i] = toOrgFeatureBiz(&models[i])
	}
	return rows, nil
}

// UpsertOrganizationFeature writes the row keyed by (org, feature), keeping
// the primary key stable when the row already exists.
func (r *entitlementRepo) UpsertOrganizationFeature(ctx context.Context, of *biz.OrganizationFeature) error {
	m := toOrgFeatureModel(of)
	err := r.data.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "feature_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_enabled", "enabled_at", "disabled_at", "disable_reason",
			"custom_limit", "custom_limit_type", "is_purchased_add_on",
			"add_on_expires_at", "last_modified_by", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		r.log.Errorf("failed to upsert feature %s for org %s: %v", of.FeatureCode, of.OrgID, err)
		return err
	}
	of.ID = m.ID
	return nil
}

func (r *entitlementRepo) ReplaceOrganizationFeatures(ctx context.Context, orgID string, rows []*biz.OrganizationFeature) error {
	db := r.data.DB(ctx)
	if err := db.Where("org_id = ?", orgID).Delete(&model.OrganizationFeature{}).Error; err != nil {
		r.log.Errorf("failed to clear features for org %s: %v", orgID, err)
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	models := make([]*model.OrganizationFeature, len(rows))
	for i, of := range rows {
		models[i] = toOrgFeatureModel(of)
	}
	if err := db.Create(models).Error; err != nil {
		r.log.Errorf("failed to write features for org %s: %v", orgID, err)
		return err
	}
	return nil
}

func toOrgFeatureModel(of *biz.OrganizationFeature) *model.OrganizationFeature {
	return &model.OrganizationFeature{
		ID:               of.ID,
		OrgID:            of.OrgID,
		FeatureCode:      of.FeatureCode.String(),
		IsEnabled:        of.IsEnabled,
		EnabledAt:        of.EnabledAt,
		DisabledAt:       of.DisabledAt,
		DisableReason:    of.DisableReason,
		CustomLimit:      of.CustomLimit,
		CustomLimitType:  of.CustomLimitType,
		IsPurchasedAddOn: of.IsPurchasedAddOn,
		AddOnExpiresAt:   of.AddOnExpiresAt,
		LastModifiedBy:   of.LastModifiedBy,
		UpdatedAt:        of.UpdatedAt,
	}
}

func toOrgFeatureBiz(m *model.OrganizationFeature) *biz.OrganizationFeature {
	return &biz.OrganizationFeature{
		ID:               m.ID,
		OrgID:            m.OrgID,
		FeatureCode:      biz.FeatureCode(m.FeatureCode),
		IsEnabled:        m.IsEnabled,
		EnabledAt:        m.EnabledAt,
		DisabledAt:       m.DisabledAt,
		DisableReason:    m.DisableReason,
		CustomLimit:      m.CustomLimit,
		CustomLimitType:  m.CustomLimitType,
		IsPurchasedAddOn: m.IsPurchasedAddOn,
		AddOnExpiresAt:   m.AddOnExpiresAt,
		LastModifiedBy:   m.LastModifiedBy,
		UpdatedAt:        m.UpdatedAt,
	}
}
