package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// OrganizationFeature is the per-organization entitlement record for one
// feature. The set is bulk-replaced on every plan change so that the
// effective entitlements are always "current plan + explicit add-ons",
// never residue from a prior plan.
type OrganizationFeature struct {
	ID               uint64
	OrgID            string
	FeatureCode      FeatureCode
	IsEnabled        bool
	EnabledAt        *time.Time
	DisabledAt       *time.Time
	DisableReason    string
	CustomLimit      *int
	CustomLimitType  string
	IsPurchasedAddOn bool
	AddOnExpiresAt   *time.Time
	LastModifiedBy   string
	UpdatedAt        time.Time
}

// FeatureStatus is the resolved view handed to middleware and clients.
type FeatureStatus struct {
	Code            FeatureCode
	Name            string
	Exists          bool
	IsEnabled       bool
	IsCore          bool
	IsPremium       bool
	IsAddOn         bool
	CustomLimit     *int
	CustomLimitType string
	AddOnExpiresAt  *time.Time
}

// EntitlementRepo is the entitlement store.
type EntitlementRepo interface {
	// GetOrganizationFeature returns (nil, nil) when no record exists.
	GetOrganizationFeature(ctx context.Context, orgID string, code FeatureCode) (*OrganizationFeature, error)
	ListOrganizationFeatures(ctx context.Context, orgID string) ([]*OrganizationFeature, error)
	UpsertOrganizationFeature(ctx context.Context, of *OrganizationFeature) error
	// ReplaceOrganizationFeatures deletes every row for the organization and
	// inserts the given set. Callers wrap it in a transaction.
	ReplaceOrganizationFeatures(ctx context.Context, orgID string, rows []*OrganizationFeature) error
}

// EntitlementUsecase answers "does organization X have feature Y".
//
// Resolution is cached per (org, feature) with a short TTL. Cache failures
// fall through to the store (fail-open on cache); a missing entitlement row
// resolves to denied (fail-closed on absence). A denied feature that reads
// "allowed" is a billing-integrity bug, so every mutation invalidates the
// organization's cache namespace before returning.
type EntitlementUsecase struct {
	repo     EntitlementRepo
	features *FeatureUsecase
	cache    Cache
	tm       Transaction
	audit    *AuditUsecase
	ttl      time.Duration
	now      func() time.Time
	log      *log.Helper
}

// NewEntitlementUsecase creates the entitlement resolver.
func NewEntitlementUsecase(repo EntitlementRepo, features *FeatureUsecase, cache Cache, tm Transaction, audit *AuditUsecase, c *conf.Bootstrap, logger log.Logger) *EntitlementUsecase {
	return &EntitlementUsecase{
		repo:     repo,
		features: features,
		cache:    cache,
		tm:       tm,
		audit:    audit,
		ttl:      c.FeatureCacheTTL(constants.EntitlementCacheTTL),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.NewHelper(logger),
	}
}

// HasFeatureAccess resolves a single feature to allow/deny.
func (uc *EntitlementUsecase) HasFeatureAccess(ctx context.Context, orgID string, code FeatureCode) (bool, error) {
	status, err := uc.GetFeatureStatus(ctx, orgID, code)
	if err != nil {
		return false, err
	}
	return status.IsEnabled, nil
}

// GetFeatureStatus resolves one feature for one organization.
func (uc *EntitlementUsecase) GetFeatureStatus(ctx context.Context, orgID string, code FeatureCode) (*FeatureStatus, error) {
	key := constants.OrgFeatureKey(orgID, code.String())
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var st FeatureStatus
		if err := json.Unmarshal([]byte(cached), &st); err == nil {
			return uc.applyAddOnExpiry(&st), nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("entitlement cache read failed for %s: %v", key, err)
	}

	st, err := uc.resolve(ctx, orgID, code)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(st); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("entitlement cache write failed for %s: %v", key, err)
		}
	}
	return uc.applyAddOnExpiry(st), nil
}

// GetOrganizationFeatures resolves every catalog feature for the organization.
func (uc *EntitlementUsecase) GetOrganizationFeatures(ctx context.Context, orgID string) ([]*FeatureStatus, error) {
	key := constants.OrgFeatureListKey(orgID)
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var sts []*FeatureStatus
		if err := json.Unmarshal([]byte(cached), &sts); err == nil {
			for i, st := range sts {
				sts[i] = uc.applyAddOnExpiry(st)
			}
			return sts, nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("entitlement cache read failed for %s: %v", key, err)
	}

	catalog, err := uc.features.ListFeatures(ctx, false)
	if err != nil {
		return nil, err
	}
	rows, err := uc.repo.ListOrganizationFeatures(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[FeatureCode]*OrganizationFeature, len(rows))
	for _, r := range rows {
		byCode[r.FeatureCode] = r
	}
	sts := make([]*FeatureStatus, len(catalog))
	for i, f := range catalog {
		sts[i] = statusFromRecord(f, byCode[f.Code])
	}
	if raw, err := json.Marshal(sts); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("entitlement cache write failed for %s: %v", key, err)
		}
	}
	for i, st := range sts {
		sts[i] = uc.applyAddOnExpiry(st)
	}
	return sts, nil
}

// resolve reads the authoritative stores. Core features short-circuit to
// allowed without touching the entitlement store.
func (uc *EntitlementUsecase) resolve(ctx context.Context, orgID string, code FeatureCode) (*FeatureStatus, error) {
	f, err := uc.features.GetFeature(ctx, code)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errs.FeatureNotFound(code.String())
	}
	if f.IsCore {
		return &FeatureStatus{Code: f.Code, Name: f.Name, Exists: true, IsEnabled: true, IsCore: true}, nil
	}
	row, err := uc.repo.GetOrganizationFeature(ctx, orgID, code)
	if err != nil {
		return nil, err
	}
	return statusFromRecord(f, row), nil
}

// applyAddOnExpiry enforces add-on expiry at read time. No background job
// is needed to turn an expired add-on off; a cached pre-expiry status still
// denies once the instant passes.
func (uc *EntitlementUsecase) applyAddOnExpiry(st *FeatureStatus) *FeatureStatus {
	if st.IsEnabled && st.AddOnExpiresAt != nil && !uc.now().Before(*st.AddOnExpiresAt) {
		clone := *st
		clone.IsEnabled = false
		return &clone
	}
	return st
}

func statusFromRecord(f *Feature, row *OrganizationFeature) *FeatureStatus {
	st := &FeatureStatus{
		Code:      f.Code,
		Name:      f.Name,
		IsCore:    f.IsCore,
		IsPremium: f.IsPremium,
		IsAddOn:   f.IsAddOn,
	}
	if f.IsCore {
		st.Exists = true
		st.IsEnabled = true
		return st
	}
	if row == nil {
		return st
	}
	st.Exists = true
	st.IsEnabled = row.IsEnabled
	st.CustomLimit = row.CustomLimit
	st.CustomLimitType = row.CustomLimitType
	if row.IsPurchasedAddOn {
		st.AddOnExpiresAt = row.AddOnExpiresAt
	}
	return st
}

// SetFeatureState toggles a feature for an organization. Disabling a core
// feature is rejected, never silently ignored.
func (uc *EntitlementUsecase) SetFeatureState(ctx context.Context, orgID string, code FeatureCode, enabled bool, reason, actor string) error {
	f, err := uc.features.GetFeature(ctx, code)
	if err != nil {
		return err
	}
	if f == nil {
		return errs.FeatureNotFound(code.String())
	}
	if f.IsCore && !enabled {
		return errs.Conflict("core feature " + code.String() + " cannot be disabled")
	}
	row, err := uc.repo.GetOrganizationFeature(ctx, orgID, code)
	if err != nil {
		return err
	}
	now := uc.now()
	if row == nil {
		row = &OrganizationFeature{OrgID: orgID, FeatureCode: code}
	}
	row.IsEnabled = enabled
	row.LastModifiedBy = actor
	if enabled {
		row.EnabledAt = &now
		row.DisabledAt = nil
		row.DisableReason = ""
	} else {
		row.DisabledAt = &now
		row.DisableReason = reason
	}
	if err := uc.repo.UpsertOrganizationFeature(ctx, row); err != nil {
		return err
	}
	uc.invalidateOrg(ctx, orgID)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     orgID,
		EventType: constants.AuditFeatureToggled,
		Details: map[string]string{
			"feature": code.String(),
			"enabled": fmt.Sprintf("%t", enabled),
			"reason":  reason,
		},
		PerformedBy: actor,
	})
	return nil
}

// SetFeatureLimit sets a per-organization custom limit for a feature.
func (uc *EntitlementUsecase) SetFeatureLimit(ctx context.Context, orgID string, code FeatureCode, limit int, limitType, actor string) error {
	f, err := uc.features.GetFeature(ctx, code)
	if err != nil {
		return err
	}
	if f == nil {
		return errs.FeatureNotFound(code.String())
	}
	row, err := uc.repo.GetOrganizationFeature(ctx, orgID, code)
	if err != nil {
		return err
	}
	if row == nil {
		row = &OrganizationFeature{OrgID: orgID, FeatureCode: code}
	}
	row.CustomLimit = &limit
	row.CustomLimitType = limitType
	row.LastModifiedBy = actor
	if err := uc.repo.UpsertOrganizationFeature(ctx, row); err != nil {
		return err
	}
	uc.invalidateOrg(ctx, orgID)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     orgID,
		EventType: constants.AuditFeatureLimitSet,
		Details: map[string]string{
			"feature":   code.String(),
			"limit":     fmt.Sprintf("%d", limit),
			"limitType": limitType,
		},
		PerformedBy: actor,
	})
	return nil
}

// PurchaseAddOn marks a feature as a purchased add-on with its own expiry.
func (uc *EntitlementUsecase) PurchaseAddOn(ctx context.Context, orgID string, code FeatureCode, expiresAt time.Time, actor string) error {
	f, err := uc.features.GetFeature(ctx, code)
	if err != nil {
		return err
	}
	if f == nil {
		return errs.FeatureNotFound(code.String())
	}
	if !f.IsAddOn {
		return errs.Conflict("feature " + code.String() + " is not purchasable as an add-on")
	}
	row, err := uc.repo.GetOrganizationFeature(ctx, orgID, code)
	if err != nil {
		return err
	}
	now := uc.now()
	if row == nil {
		row = &OrganizationFeature{OrgID: orgID, FeatureCode: code}
	}
	row.IsEnabled = true
	row.EnabledAt = &now
	row.DisabledAt = nil
	row.DisableReason = ""
	row.IsPurchasedAddOn = true
	row.AddOnExpiresAt = &expiresAt
	row.LastModifiedBy = actor
	if err := uc.repo.UpsertOrganizationFeature(ctx, row); err != nil {
		return err
	}
	uc.invalidateOrg(ctx, orgID)
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     orgID,
		EventType: constants.AuditAddOnPurchased,
		Details: map[string]string{
			"feature":   code.String(),
			"expiresAt": expiresAt.Format(time.RFC3339),
		},
		PerformedBy: actor,
	})
	return nil
}

// InitializeOrganizationFeatures rebuilds the organization's entitlement set
// from a plan: full delete and recreate, one row per active catalog feature.
// Idempotent; running it twice with the same plan yields the same set.
// Invalidates the organization's cache namespace as its final step.
func (uc *EntitlementUsecase) InitializeOrganizationFeatures(ctx context.Context, orgID string, plan *Plan) error {
	var seeded int
	err := uc.tm.Exec(ctx, func(ctx context.Context) error {
		var err error
		seeded, err = uc.seedOrganizationFeatures(ctx, orgID, plan)
		return err
	})
	if err != nil {
		return err
	}
	uc.invalidateOrg(ctx, orgID)
	uc.auditSeeded(ctx, orgID, plan, seeded)
	return nil
}

// seedOrganizationFeatures writes the entitlement rows for a plan on the
// caller's transaction, so a subscription write and its entitlement rebuild
// commit or roll back together. Cache invalidation and audit stay with the
// caller, after commit.
func (uc *EntitlementUsecase) seedOrganizationFeatures(ctx context.Context, orgID string, plan *Plan) (int, error) {
	catalog, err := uc.features.ListFeatures(ctx, false)
	if err != nil {
		return 0, err
	}
	now := uc.now()
	rows := make([]*OrganizationFeature, 0, len(catalog))
	for _, f := range catalog {
		override := plan.Overrides[f.Code]
		enabled := f.IsCore || plan.Includes(f.Code) || (override != nil && override.IsEnabled)
		row := &OrganizationFeature{
			OrgID:          orgID,
			FeatureCode:    f.Code,
			IsEnabled:      enabled,
			LastModifiedBy: constants.SystemActor,
		}
		if enabled {
			row.EnabledAt = &now
		}
		if override != nil {
			row.CustomLimit = override.Limit
			row.CustomLimitType = override.LimitType
		}
		rows = append(rows, row)
	}
	if err := uc.repo.ReplaceOrganizationFeatures(ctx, orgID, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (uc *EntitlementUsecase) auditSeeded(ctx context.Context, orgID string, plan *Plan, seeded int) {
	uc.audit.Record(ctx, &AuditEntry{
		OrgID:     orgID,
		EventType: constants.AuditEntitlementsInitialized,
		Details: map[string]string{
			"plan":     plan.Code.String(),
			"features": fmt.Sprintf("%d", seeded),
		},
		PerformedBy: constants.SystemActor,
	})
}

// InvalidateOrganization clears every cached decision for the organization.
func (uc *EntitlementUsecase) InvalidateOrganization(ctx context.Context, orgID string) {
	uc.invalidateOrg(ctx, orgID)
}

func (uc *EntitlementUsecase) invalidateOrg(ctx context.Context, orgID string) {
	if err := uc.cache.DeletePattern(ctx, constants.OrgFeaturePattern(orgID)); err != nil {
		uc.log.Errorf("failed to invalidate entitlement cache for org %s: %v", orgID, err)
	}
}
