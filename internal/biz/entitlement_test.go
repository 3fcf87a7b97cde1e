package biz

import (
	"context"
	"testing"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

func TestGetFeatureStatus_CoreAlwaysEnabled(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	// No entitlement row exists for the org at all.
	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeDirectory)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)
	assert.True(t, st.IsCore)
	assert.True(t, st.Exists)
}

func TestGetFeatureStatus_AbsentRowDenied(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeAnalytics)
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.False(t, st.IsEnabled)
	assert.True(t, st.IsPremium)

	ok, err := e.entUC.HasFeatureAccess(ctx, "org-1", codeAnalytics)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetFeatureStatus_UnknownFeature(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	_, err := e.entUC.GetFeatureStatus(context.Background(), "org-1", "NO_SUCH_FEATURE")
	require.Error(t, err)
	assert.True(t, kerrors.IsNotFound(err))
}

func TestGetFeatureStatus_CacheFailOpen(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()
	e.cache.failGet = true
	e.cache.failSet = true

	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeDirectory)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)
}

func TestAddOnExpiryBoundary(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := base.AddDate(0, 1, 0)
	e.setNow(base)
	require.NoError(t, e.entUC.PurchaseAddOn(ctx, "org-1", codeJobBoard, expiry, "admin@test"))

	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeJobBoard)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)
	require.NotNil(t, st.AddOnExpiresAt)

	// One second before the deadline still passes.
	e.setNow(expiry.Add(-time.Second))
	st, err = e.entUC.GetFeatureStatus(ctx, "org-1", codeJobBoard)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)

	// At the deadline the cached pre-expiry status must already deny.
	e.setNow(expiry)
	st, err = e.entUC.GetFeatureStatus(ctx, "org-1", codeJobBoard)
	require.NoError(t, err)
	assert.False(t, st.IsEnabled)
}

func TestPurchaseAddOn_NonAddOnRejected(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	err := e.entUC.PurchaseAddOn(context.Background(), "org-1", codeNews, time.Now().AddDate(0, 1, 0), "admin@test")
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))
}

func TestSetFeatureState_CoreDisableRejected(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	err := e.entUC.SetFeatureState(context.Background(), "org-1", codeDirectory, false, "abuse", "admin@test")
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))
}

func TestSetFeatureState_InvalidatesBeforeReturn(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()
	orgID := "org-1"

	require.NoError(t, e.entUC.SetFeatureState(ctx, orgID, codeNews, true, "", "admin@test"))
	st, err := e.entUC.GetFeatureStatus(ctx, orgID, codeNews)
	require.NoError(t, err)
	require.True(t, st.IsEnabled)
	require.True(t, e.cache.has(constants.OrgFeatureKey(orgID, codeNews.String())))

	require.NoError(t, e.entUC.SetFeatureState(ctx, orgID, codeNews, false, "nonpayment", "admin@test"))

	// The cached allow decision is gone by the time the call returns.
	assert.False(t, e.cache.has(constants.OrgFeatureKey(orgID, codeNews.String())))
	assert.True(t, e.cache.deletedPattern(constants.OrgFeaturePattern(orgID)))

	st, err = e.entUC.GetFeatureStatus(ctx, orgID, codeNews)
	require.NoError(t, err)
	assert.False(t, st.IsEnabled)

	entry := e.waitAudit(t, constants.AuditFeatureToggled)
	assert.Equal(t, orgID, entry.OrgID)
	assert.Equal(t, "nonpayment", entry.Details["reason"])
}

func TestSetFeatureLimit(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	require.NoError(t, e.entUC.SetFeatureLimit(ctx, "org-1", codeNews, 500, "emails_per_month", "admin@test"))

	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeNews)
	require.NoError(t, err)
	require.NotNil(t, st.CustomLimit)
	assert.Equal(t, 500, *st.CustomLimit)
	assert.Equal(t, "emails_per_month", st.CustomLimitType)
}

func TestInitializeOrganizationFeatures_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()
	orgID := "org-1"

	plan, err := e.planUC.GetPlan(ctx, planBasic)
	require.NoError(t, err)

	require.NoError(t, e.entUC.InitializeOrganizationFeatures(ctx, orgID, plan))
	first := e.ents.count(orgID)
	require.NoError(t, e.entUC.InitializeOrganizationFeatures(ctx, orgID, plan))
	assert.Equal(t, first, e.ents.count(orgID))

	// Core and included features resolve enabled, the rest denied.
	for code, want := range map[FeatureCode]bool{
		codeDirectory: true,
		codeNews:      true,
		codeAnalytics: false,
		codeJobBoard:  false,
	} {
		st, err := e.entUC.GetFeatureStatus(ctx, orgID, code)
		require.NoError(t, err)
		assert.Equal(t, want, st.IsEnabled, "feature %s", code)
	}
}

func TestInitializeOrganizationFeatures_AppliesOverrides(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	limit := 200
	require.NoError(t, e.planUC.SetPlanFeatures(ctx, planBasic, []*PlanFeatureOverride{
		{FeatureCode: codeAnalytics, IsEnabled: true},
		{FeatureCode: codeNews, IsEnabled: true, Limit: &limit, LimitType: "emails_per_month"},
	}))
	plan, err := e.planUC.GetPlan(ctx, planBasic)
	require.NoError(t, err)
	require.NoError(t, e.entUC.InitializeOrganizationFeatures(ctx, "org-1", plan))

	st, err := e.entUC.GetFeatureStatus(ctx, "org-1", codeAnalytics)
	require.NoError(t, err)
	assert.True(t, st.IsEnabled)

	st, err = e.entUC.GetFeatureStatus(ctx, "org-1", codeNews)
	require.NoError(t, err)
	require.NotNil(t, st.CustomLimit)
	assert.Equal(t, limit, *st.CustomLimit)
}

func TestGetOrganizationFeatures_CoversCatalog(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	plan, err := e.planUC.GetPlan(ctx, planPro)
	require.NoError(t, err)
	require.NoError(t, e.entUC.InitializeOrganizationFeatures(ctx, "org-1", plan))

	sts, err := e.entUC.GetOrganizationFeatures(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, sts, 4)
	enabled := map[FeatureCode]bool{}
	for _, st := range sts {
		enabled[st.Code] = st.IsEnabled
	}
	assert.True(t, enabled[codeDirectory])
	assert.True(t, enabled[codeNews])
	assert.True(t, enabled[codeAnalytics])
	assert.False(t, enabled[codeJobBoard])
}
