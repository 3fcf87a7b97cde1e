package service

import (
	"net/http"

	khttp "github.com/go-kratos/kratos/v2/transport/http"

	v1 "github.com/alumnet-cloud/entitlement-service/api/entitlement/v1"
	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// UsageService exposes the usage meter.
type UsageService struct {
	usage *biz.UsageUsecase
}

// NewUsageService creates the usage service.
func NewUsageService(usage *biz.UsageUsecase) *UsageService {
	return &UsageService{usage: usage}
}

// RegisterRoutes mounts the usage routes. Recording requires an entitled
// subscription; the filter is attached in the server wiring.
func (s *UsageService) RegisterRoutes(r *khttp.Router, recordFilters ...khttp.FilterFunc) {
	r.POST("/orgs/{org_id}/usage", s.RecordUsage, recordFilters...)
	r.GET("/orgs/{org_id}/usage", s.GetUsage)
}

func (s *UsageService) RecordUsage(ctx khttp.Context) error {
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	var req v1.RecordUsageRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	err := s.usage.RecordUsage(ctx, orgID, biz.UsageDelta{
		EmailsSent:    req.EmailsSent,
		PushSent:      req.PushSent,
		EventsCreated: req.EventsCreated,
		StorageUsedMB: req.StorageUsedMB,
		APIRequests:   req.APIRequests,
	})
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &v1.SuccessReply{Success: true})
}

func (s *UsageService) GetUsage(ctx khttp.Context) error {
	orgID := ctx.Vars().Get("org_id")
	if err := auth.CheckOrgAccess(ctx, orgID); err != nil {
		return err
	}
	periodType := biz.PeriodType(ctx.Query().Get("period"))
	if periodType == "" {
		periodType = biz.PeriodMonthly
	}
	if !periodType.Valid() {
		return errs.BadRequest("unknown period type " + string(periodType))
	}
	rec, err := s.usage.GetUsage(ctx, orgID, periodType)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &v1.UsageReply{
		OrgID:         orgID,
		PeriodType:    string(rec.PeriodType),
		PeriodStart:   rec.PeriodStart,
		PeriodEnd:     rec.PeriodEnd,
		EmailsSent:    rec.EmailsSent,
		PushSent:      rec.PushSent,
		EventsCreated: rec.EventsCreated,
		StorageUsedMB: rec.StorageUsedMB,
		APIRequests:   rec.APIRequests,
	})
}
