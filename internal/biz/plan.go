package biz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// PlanCode identifies a plan. Same closed-enumeration treatment as FeatureCode.
type PlanCode string

// Valid reports whether the code has the canonical shape.
func (c PlanCode) Valid() bool { return FeatureCode(c).Valid() }

func (c PlanCode) String() string { return string(c) }

// BillingCycle is the subscription billing period.
type BillingCycle string

const (
	CycleMonthly   BillingCycle = "MONTHLY"
	CycleQuarterly BillingCycle = "QUARTERLY"
	CycleYearly    BillingCycle = "YEARLY"
)

// Valid reports whether the cycle is one of the known values.
func (c BillingCycle) Valid() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleYearly:
		return true
	}
	return false
}

// Days returns the period length the cycle grants on renewal.
func (c BillingCycle) Days() int {
	switch c {
	case CycleYearly:
		return constants.YearlyCycleDays
	case CycleQuarterly:
		return constants.QuarterlyCycleDays
	default:
		return constants.MonthlyCycleDays
	}
}

// PlanLimits are the numeric quotas a plan grants.
type PlanLimits struct {
	MaxUsers          int
	MaxStorageMB      int
	MaxEventsPerMonth int
	MaxEmailsPerMonth int
	MaxPushPerMonth   int
}

// PlanFeatureOverride adjusts one feature's grant within a plan, beyond
// plain inclusion. Overrides for a plan are always replaced wholesale.
type PlanFeatureOverride struct {
	FeatureCode FeatureCode
	IsEnabled   bool
	Limit       *int
	LimitType   string
}

// Plan is a named bundle of included features and limits.
type Plan struct {
	ID               uint64
	Code             PlanCode
	Name             string
	Description      string
	PriceMonthly     float64
	PriceYearly      float64
	Currency         string
	Limits           PlanLimits
	TrialDays        int
	GracePeriodDays  int
	IncludedFeatures []FeatureCode
	Overrides        map[FeatureCode]*PlanFeatureOverride
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Includes reports whether the plan grants the feature by membership alone.
func (p *Plan) Includes(code FeatureCode) bool {
	for _, c := range p.IncludedFeatures {
		if c == code {
			return true
		}
	}
	return false
}

// PriceFor returns the plan price for one period of the given cycle.
// Quarterly is billed as three monthly periods.
func (p *Plan) PriceFor(cycle BillingCycle) float64 {
	switch cycle {
	case CycleYearly:
		return p.PriceYearly
	case CycleQuarterly:
		return p.PriceMonthly * 3
	default:
		return p.PriceMonthly
	}
}

// PlanRepo is the plan catalog store.
type PlanRepo interface {
	CreatePlan(ctx context.Context, p *Plan) error
	UpdatePlan(ctx context.Context, p *Plan) error
	// GetPlan returns (nil, nil) when the code is unknown. Overrides are loaded.
	GetPlan(ctx context.Context, code PlanCode) (*Plan, error)
	ListPlans(ctx context.Context, includeInactive bool) ([]*Plan, error)
	// ReplacePlanFeatures deletes all prior overrides for the plan and
	// inserts the given set, in one transaction.
	ReplacePlanFeatures(ctx context.Context, code PlanCode, overrides []*PlanFeatureOverride) error
}

// PlanUsecase manages the plan catalog. Plans referenced by subscriptions
// are never destructively deleted; the surface only offers deactivation.
type PlanUsecase struct {
	repo     PlanRepo
	features FeatureRepo
	cache    Cache
	ttl      time.Duration
	log      *log.Helper
}

// NewPlanUsecase creates the plan catalog usecase.
func NewPlanUsecase(repo PlanRepo, features FeatureRepo, cache Cache, c *conf.Bootstrap, logger log.Logger) *PlanUsecase {
	return &PlanUsecase{
		repo:     repo,
		features: features,
		cache:    cache,
		ttl:      c.CatalogCacheTTL(constants.CatalogCacheTTL),
		log:      log.NewHelper(logger),
	}
}

// CreatePlan registers a new plan. Included feature codes must exist in the
// feature catalog.
func (uc *PlanUsecase) CreatePlan(ctx context.Context, p *Plan) error {
	if !p.Code.Valid() {
		return errs.BadRequest("plan code must match ^[A-Z][A-Z0-9_]*$")
	}
	existing, err := uc.repo.GetPlan(ctx, p.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return errs.Conflict("plan " + p.Code.String() + " already exists")
	}
	if err := uc.checkFeatureCodes(ctx, p.IncludedFeatures); err != nil {
		return err
	}
	p.IsActive = true
	if err := uc.repo.CreatePlan(ctx, p); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// UpdatePlan updates mutable fields of a plan.
func (uc *PlanUsecase) UpdatePlan(ctx context.Context, p *Plan) error {
	existing, err := uc.repo.GetPlan(ctx, p.Code)
	if err != nil {
		return err
	}
	if existing == nil {
		return errs.PlanNotFound(p.Code.String())
	}
	if err := uc.checkFeatureCodes(ctx, p.IncludedFeatures); err != nil {
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	if err := uc.repo.UpdatePlan(ctx, p); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// DeactivatePlan retires a plan.
func (uc *PlanUsecase) DeactivatePlan(ctx context.Context, code PlanCode) error {
	p, err := uc.repo.GetPlan(ctx, code)
	if err != nil {
		return err
	}
	if p == nil {
		return errs.PlanNotFound(code.String())
	}
	p.IsActive = false
	if err := uc.repo.UpdatePlan(ctx, p); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// SetPlanFeatures replaces the plan's feature overrides wholesale.
// Delete-then-insert, never a merge: orphaned overrides from retired
// features must not silently persist.
func (uc *PlanUsecase) SetPlanFeatures(ctx context.Context, code PlanCode, overrides []*PlanFeatureOverride) error {
	p, err := uc.repo.GetPlan(ctx, code)
	if err != nil {
		return err
	}
	if p == nil {
		return errs.PlanNotFound(code.String())
	}
	codes := make([]FeatureCode, len(overrides))
	for i, o := range overrides {
		codes[i] = o.FeatureCode
	}
	if err := uc.checkFeatureCodes(ctx, codes); err != nil {
		return err
	}
	if err := uc.repo.ReplacePlanFeatures(ctx, code, overrides); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// GetPlan returns one plan, cache-aside.
func (uc *PlanUsecase) GetPlan(ctx context.Context, code PlanCode) (*Plan, error) {
	key := constants.CatalogKey("plan", code.String())
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var p Plan
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("catalog cache read failed for %s: %v", key, err)
	}

	p, err := uc.repo.GetPlan(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("catalog cache write failed for %s: %v", key, err)
		}
	}
	return p, nil
}

// ListPlans returns the plan catalog, cache-aside.
func (uc *PlanUsecase) ListPlans(ctx context.Context, includeInactive bool) ([]*Plan, error) {
	key := constants.CatalogListKey("plan", includeInactive)
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var ps []*Plan
		if err := json.Unmarshal([]byte(cached), &ps); err == nil {
			return ps, nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("catalog cache read failed for %s: %v", key, err)
	}

	ps, err := uc.repo.ListPlans(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(ps); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("catalog cache write failed for %s: %v", key, err)
		}
	}
	return ps, nil
}

func (uc *PlanUsecase) checkFeatureCodes(ctx context.Context, codes []FeatureCode) error {
	for _, code := range codes {
		f, err := uc.features.GetFeature(ctx, code)
		if err != nil {
			return err
		}
		if f == nil {
			return errs.FeatureNotFound(code.String())
		}
	}
	return nil
}

func (uc *PlanUsecase) invalidateCatalog(ctx context.Context) {
	if err := uc.cache.DeletePattern(ctx, constants.CatalogPattern()); err != nil {
		uc.log.Errorf("failed to invalidate catalog cache: %v", err)
	}
}
