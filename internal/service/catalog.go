package service

import (
	"net/http"

	khttp "github.com/go-kratos/kratos/v2/transport/http"

	v1 "github.com/alumnet-cloud/entitlement-service/api/entitlement/v1"
	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
)

// CatalogService exposes the feature and plan catalogs. Writes are restricted
// to platform operators.
type CatalogService struct {
	features *biz.FeatureUsecase
	plans    *biz.PlanUsecase
}

// NewCatalogService creates the catalog service.
func NewCatalogService(features *biz.FeatureUsecase, plans *biz.PlanUsecase) *CatalogService {
	return &CatalogService{features: features, plans: plans}
}

// RegisterRoutes mounts the catalog routes.
func (s *CatalogService) RegisterRoutes(r *khttp.Router) {
	r.GET("/features", s.ListFeatures)
	r.POST("/features", s.CreateFeature)
	r.PUT("/features/{code}", s.UpdateFeature)
	r.DELETE("/features/{code}", s.DeactivateFeature)

	r.GET("/plans", s.ListPlans)
	r.POST("/plans", s.CreatePlan)
	r.GET("/plans/{code}", s.GetPlan)
	r.PUT("/plans/{code}", s.UpdatePlan)
	r.PUT("/plans/{code}/features", s.SetPlanFeatures)
	r.DELETE("/plans/{code}", s.DeactivatePlan)
}

func (s *CatalogService) ListFeatures(ctx khttp.Context) error {
	includeInactive := ctx.Query().Get("includeInactive") == "true"
	features, err := s.features.ListFeatures(ctx, includeInactive)
	if err != nil {
		return err
	}
	out := make([]*v1.Feature, len(features))
	for i, f := range features {
		out[i] = toFeatureReply(f)
	}
	return ctx.Result(http.StatusOK, &v1.ListFeaturesReply{Features: out})
}

func (s *CatalogService) CreateFeature(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	var req v1.CreateFeatureRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	f := &biz.Feature{
		Code:              biz.FeatureCode(req.Code),
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		IsCore:            req.IsCore,
		IsPremium:         req.IsPremium,
		IsAddOn:           req.IsAddOn,
		AddOnPriceMonthly: req.AddOnPriceMonthly,
		AddOnPriceYearly:  req.AddOnPriceYearly,
		IsActive:          true,
	}
	if err := s.features.CreateFeature(ctx, f); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toFeatureReply(f))
}

func (s *CatalogService) UpdateFeature(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	code := ctx.Vars().Get("code")
	var req v1.UpdateFeatureRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	f := &biz.Feature{
		Code:              biz.FeatureCode(code),
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		IsCore:            req.IsCore,
		IsPremium:         req.IsPremium,
		IsAddOn:           req.IsAddOn,
		AddOnPriceMonthly: req.AddOnPriceMonthly,
		AddOnPriceYearly:  req.AddOnPriceYearly,
		IsActive:          req.IsActive,
	}
	if err := s.features.UpdateFeature(ctx, f); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toFeatureReply(f))
}

func (s *CatalogService) DeactivateFeature(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	code := ctx.Vars().Get("code")
	if err := s.features.DeactivateFeature(ctx, biz.FeatureCode(code)); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &v1.SuccessReply{Success: true})
}

func (s *CatalogService) ListPlans(ctx khttp.Context) error {
	includeInactive := ctx.Query().Get("includeInactive") == "true"
	plans, err := s.plans.ListPlans(ctx, includeInactive)
	if err != nil {
		return err
	}
	out := make([]*v1.Plan, len(plans))
	for i, p := range plans {
		out[i] = toPlanReply(p)
	}
	return ctx.Result(http.StatusOK, &v1.ListPlansReply{Plans: out})
}

func (s *CatalogService) GetPlan(ctx khttp.Context) error {
	plan, err := s.plans.GetPlan(ctx, biz.PlanCode(ctx.Vars().Get("code")))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPlanReply(plan))
}

func (s *CatalogService) CreatePlan(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	var req v1.CreatePlanRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	p := &biz.Plan{
		Code:             biz.PlanCode(req.Code),
		Name:             req.Name,
		Description:      req.Description,
		PriceMonthly:     req.PriceMonthly,
		PriceYearly:      req.PriceYearly,
		Currency:         req.Currency,
		Limits:           toPlanLimits(req.Limits),
		TrialDays:        req.TrialDays,
		GracePeriodDays:  req.GracePeriodDays,
		IncludedFeatures: toFeatureCodes(req.IncludedFeatures),
		IsActive:         true,
	}
	if err := s.plans.CreatePlan(ctx, p); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPlanReply(p))
}

func (s *CatalogService) UpdatePlan(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	code := ctx.Vars().Get("code")
	var req v1.UpdatePlanRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	p := &biz.Plan{
		Code:             biz.PlanCode(code),
		Name:             req.Name,
		Description:      req.Description,
		PriceMonthly:     req.PriceMonthly,
		PriceYearly:      req.PriceYearly,
		Currency:         req.Currency,
		Limits:           toPlanLimits(req.Limits),
		TrialDays:        req.TrialDays,
		GracePeriodDays:  req.GracePeriodDays,
		IncludedFeatures: toFeatureCodes(req.IncludedFeatures),
		IsActive:         req.IsActive,
	}
	if err := s.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toPlanReply(p))
}

func (s *CatalogService) SetPlanFeatures(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	code := ctx.Vars().Get("code")
	var req v1.SetPlanFeaturesRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	overrides := make([]*biz.PlanFeatureOverride, len(req.Overrides))
	for i, o := range req.Overrides {
		overrides[i] = &biz.PlanFeatureOverride{
			FeatureCode: biz.FeatureCode(o.FeatureCode),
			IsEnabled:   o.IsEnabled,
			Limit:       o.Limit,
			LimitType:   o.LimitType,
		}
	}
	if err := s.plans.SetPlanFeatures(ctx, biz.PlanCode(code), overrides); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &v1.SuccessReply{Success: true})
}

func (s *CatalogService) DeactivatePlan(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	if err := s.plans.DeactivatePlan(ctx, biz.PlanCode(ctx.Vars().Get("code"))); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &v1.SuccessReply{Success: true})
}

func toFeatureReply(f *biz.Feature) *v1.Feature {
	return &v1.Feature{
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
	}
}

func toPlanReply(p *biz.Plan) *v1.Plan {
	included := make([]string, len(p.IncludedFeatures))
	for i, c := range p.IncludedFeatures {
		included[i] = c.String()
	}
	overrides := make([]*v1.PlanFeatureOverride, 0, len(p.Overrides))
	for _, o := range p.Overrides {
		overrides = append(overrides, &v1.PlanFeatureOverride{
			FeatureCode: o.FeatureCode.String(),
			IsEnabled:   o.IsEnabled,
			Limit:       o.Limit,
			LimitType:   o.LimitType,
		})
	}
	return &v1.Plan{
		Code:         p.Code.String(),
		Name:         p.Name,
		Description:  p.Description,
		PriceMonthly: p.PriceMonthly,
		PriceYearly:  p.PriceYearly,
		Currency:     p.Currency,
		Limits: v1.PlanLimits{
			MaxUsers:          p.Limits.MaxUsers,
			MaxStorageMB:      p.Limits.MaxStorageMB,
			MaxEventsPerMonth: p.Limits.MaxEventsPerMonth,
			MaxEmailsPerMonth: p.Limits.MaxEmailsPerMonth,
			MaxPushPerMonth:   p.Limits.MaxPushPerMonth,
		},
		TrialDays:        p.TrialDays,
		GracePeriodDays:  p.GracePeriodDays,
		IncludedFeatures: included,
		Overrides:        overrides,
		IsActive:         p.IsActive,
	}
}

func toPlanLimits(l v1.PlanLimits) biz.PlanLimits {
	return biz.PlanLimits{
		MaxUsers:          l.MaxUsers,
		MaxStorageMB:      l.MaxStorageMB,
		MaxEventsPerMonth: l.MaxEventsPerMonth,
		MaxEmailsPerMonth: l.MaxEmailsPerMonth,
		MaxPushPerMonth:   l.MaxPushPerMonth,
	}
}

func toFeatureCodes(codes []string) []biz.FeatureCode {
	out := make([]biz.FeatureCode, len(codes))
	for i, c := range codes {
		out[i] = biz.FeatureCode(c)
	}
	return out
}
