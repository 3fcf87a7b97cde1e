package biz

import (
	"context"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureCodeValid(t *testing.T) {
	assert.True(t, FeatureCode("JOB_BOARD").Valid())
	assert.True(t, FeatureCode("A").Valid())
	assert.True(t, FeatureCode("V2_EXPORT").Valid())
	assert.False(t, FeatureCode("job_board").Valid())
	assert.False(t, FeatureCode("2FAST").Valid())
	assert.False(t, FeatureCode("").Valid())
	assert.False(t, FeatureCode("JOB-BOARD").Valid())
}

func TestCreateFeature_Rules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	err := e.featureUC.CreateFeature(ctx, &Feature{Code: "bad code", Name: "x"})
	require.Error(t, err)
	assert.True(t, kerrors.IsBadRequest(err))

	err = e.featureUC.CreateFeature(ctx, &Feature{Code: "MENTORING", Name: "Mentoring", IsCore: true, IsAddOn: true})
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err), "core and add-on are mutually exclusive")

	require.NoError(t, e.featureUC.CreateFeature(ctx, &Feature{Code: "MENTORING", Name: "Mentoring"}))
	err = e.featureUC.CreateFeature(ctx, &Feature{Code: "MENTORING", Name: "Mentoring again"})
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))

	f, err := e.featureUC.GetFeature(ctx, "MENTORING")
	require.NoError(t, err)
	assert.True(t, f.IsActive, "new features start active")
}

func TestUpdateFeature_CoreDemotionRejected(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	err := e.featureUC.UpdateFeature(ctx, &Feature{Code: codeDirectory, Name: "Directory", IsCore: false})
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err))

	err = e.featureUC.UpdateFeature(ctx, &Feature{Code: "NO_SUCH", Name: "x"})
	require.Error(t, err)
	assert.True(t, kerrors.IsNotFound(err))
}

func TestDeactivateFeature(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	err := e.featureUC.DeactivateFeature(ctx, codeDirectory)
	require.Error(t, err)
	assert.True(t, kerrors.IsConflict(err), "core features cannot be retired")

	require.NoError(t, e.featureUC.DeactivateFeature(ctx, codeJobBoard))
	active, err := e.featureUC.ListFeatures(ctx, false)
	require.NoError(t, err)
	all, err := e.featureUC.ListFeatures(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 3)
	assert.Len(t, all, 4, "deactivated features stay resolvable")
}

func TestListFeatures_WriteInvalidatesCatalogCache(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	ctx := context.Background()

	before, err := e.featureUC.ListFeatures(ctx, false)
	require.NoError(t, err)

	require.NoError(t, e.featureUC.CreateFeature(ctx, &Feature{Code: "MENTORING", Name: "Mentoring"}))

	after, err := e.featureUC.ListFeatures(ctx, false)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1, "stale catalog listing must not be served")
}
