package service

import (
	"net/http"

	khttp "github.com/go-kratos/kratos/v2/transport/http"

	v1 "github.com/alumnet-cloud/entitlement-service/api/entitlement/v1"
	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// EntitlementService exposes per-organization feature state.
type EntitlementService struct {
	ents *biz.EntitlementUsecase
}

// NewEntitlementService creates the entitlement service.
func NewEntitlementService(ents *biz.EntitlementUsecase) *EntitlementService {
	return &EntitlementService{ents: ents}
}

// RegisterRoutes mounts the org feature routes.
func (s *EntitlementService) RegisterRoutes(r *khttp.Router) {
	r.GET("/orgs/{org_id}/features", s.ListOrgFeatures)
	r.GET("/orgs/{org_id}/features/{code}", s.GetOrgFeature)
	r.PUT("/orgs/{org_id}/features/{code}", s.SetOrgFeature)
	r.POST("/orgs/{org_id}/features/{code}/addon", s.PurchaseAddOn)
}

func (s *EntitlementService) ListOrgFeatures(ctx khttp.Context) error {
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	features, err := s.ents.GetOrganizationFeatures(ctx, orgID)
	if err != nil {
		return err
	}
	out := make([]*v1.FeatureStatus, len(features))
	for i, st := range features {
		out[i] = toFeatureStatusReply(st)
	}
	return ctx.Result(http.StatusOK, &v1.ListOrgFeaturesReply{OrgID: orgID, Features: out})
}

func (s *EntitlementService) GetOrgFeature(ctx khttp.Context) error {
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	st, err := s.ents.GetFeatureStatus(ctx, orgID, biz.FeatureCode(ctx.Vars().Get("code")))
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, toFeatureStatusReply(st))
}

// SetOrgFeature toggles the feature, adjusts its limit, or both.
func (s *EntitlementService) SetOrgFeature(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	code := biz.FeatureCode(ctx.Vars().Get("code"))
	var req v1.SetOrgFeatureRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	if req.IsEnabled == nil && req.Limit == nil {
		return errs.BadRequest("nothing to change: set isEnabled or limit")
	}
	if req.IsEnabled != nil {
		if err := s.ents.SetFeatureState(ctx, orgID, code, *req.IsEnabled, req.Reason, actor(ctx)); err != nil {
			return err
		}
	}
	if req.Limit != nil {
		if err := s.ents.SetFeatureLimit(ctx, orgID, code, *req.Limit, req.LimitType, actor(ctx)); err != nil {
			return err
		}
	}
	return ctx.Result(http.StatusOK, &v1.SuccessReply{Success: true})
}

func (s *EntitlementService) PurchaseAddOn(ctx khttp.Context) error {
	if err := auth.RequireRole(ctx, auth.RolePlatformOperator, auth.RoleOrgAdmin); err != nil {
		return err
	}
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	var req v1.PurchaseAddOnRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	code := biz.FeatureCode(ctx.Vars().Get("code"))
	if err := s.ents.PurchaseAddOn(ctx, orgID, code, req.ExpiresAt, actor(ctx)); err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &v1.SuccessReply{Success: true})
}

func toFeatureStatusReply(st *biz.FeatureStatus) *v1.FeatureStatus {
	return &v1.FeatureStatus{
		Code:            st.Code.String(),
		Name:            st.Name,
		IsEnabled:       st.IsEnabled,
		IsCore:          st.IsCore,
		IsPremium:       st.IsPremium,
		IsAddOn:         st.IsAddOn,
		CustomLimit:     st.CustomLimit,
		CustomLimitType: st.CustomLimitType,
		AddOnExpiresAt:  st.AddOnExpiresAt,
	}
}
