package biz

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// FeatureCode identifies a gate-able product capability. Codes are validated
// at the catalog boundary; business logic never threads free-form strings.
type FeatureCode string

var featureCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)

// Valid reports whether the code has the canonical shape.
func (c FeatureCode) Valid() bool { return featureCodePattern.MatchString(string(c)) }

func (c FeatureCode) String() string { return string(c) }

// Feature is a catalog entry. Features are never deleted, only deactivated,
// so historical entitlement and audit rows keep resolving.
type Feature struct {
	ID                uint64
	Code              FeatureCode
	Name              string
	Description       string
	Category          string
	IsCore            bool
	IsPremium         bool
	IsAddOn           bool
	AddOnPriceMonthly float64
	AddOnPriceYearly  float64
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FeatureRepo is the feature catalog store.
type FeatureRepo interface {
	CreateFeature(ctx context.Context, f *Feature) error
	UpdateFeature(ctx context.Context, f *Feature) error
	// GetFeature returns (nil, nil) when the code is unknown.
	GetFeature(ctx context.Context, code FeatureCode) (*Feature, error)
	ListFeatures(ctx context.Context, includeInactive bool) ([]*Feature, error)
}

// FeatureUsecase manages the feature catalog. Reads are cached in the
// catalog namespace; every write invalidates the whole namespace because
// the plan/feature matrix is a cross-cut of all entries.
type FeatureUsecase struct {
	repo  FeatureRepo
	cache Cache
	ttl   time.Duration
	log   *log.Helper
}

// NewFeatureUsecase creates the feature catalog usecase.
func NewFeatureUsecase(repo FeatureRepo, cache Cache, c *conf.Bootstrap, logger log.Logger) *FeatureUsecase {
	return &FeatureUsecase{
		repo:  repo,
		cache: cache,
		ttl:   c.CatalogCacheTTL(constants.CatalogCacheTTL),
		log:   log.NewHelper(logger),
	}
}

// CreateFeature registers a new catalog entry.
func (uc *FeatureUsecase) CreateFeature(ctx context.Context, f *Feature) error {
	if !f.Code.Valid() {
		return errs.BadRequest("feature code must match ^[A-Z][A-Z0-9_]*$")
	}
	if f.IsCore && f.IsAddOn {
		return errs.Conflict("a core feature cannot also be an add-on")
	}
	existing, err := uc.repo.GetFeature(ctx, f.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return errs.Conflict("feature " + f.Code.String() + " already exists")
	}
	f.IsActive = true
	if err := uc.repo.CreateFeature(ctx, f); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// UpdateFeature updates mutable fields of a catalog entry.
func (uc *FeatureUsecase) UpdateFeature(ctx context.Context, f *Feature) error {
	existing, err := uc.repo.GetFeature(ctx, f.Code)
	if err != nil {
		return err
	}
	if existing == nil {
		return errs.FeatureNotFound(f.Code.String())
	}
	if existing.IsCore && !f.IsCore {
		return errs.Conflict("cannot demote core feature " + f.Code.String())
	}
	f.ID = existing.ID
	f.CreatedAt = existing.CreatedAt
	if err := uc.repo.UpdateFeature(ctx, f); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// DeactivateFeature retires a feature without deleting it.
func (uc *FeatureUsecase) DeactivateFeature(ctx context.Context, code FeatureCode) error {
	f, err := uc.repo.GetFeature(ctx, code)
	if err != nil {
		return err
	}
	if f == nil {
		return errs.FeatureNotFound(code.String())
	}
	if f.IsCore {
		return errs.Conflict("cannot deactivate core feature " + code.String())
	}
	f.IsActive = false
	if err := uc.repo.UpdateFeature(ctx, f); err != nil {
		return err
	}
	uc.invalidateCatalog(ctx)
	return nil
}

// GetFeature returns one catalog entry, cache-aside.
func (uc *FeatureUsecase) GetFeature(ctx context.Context, code FeatureCode) (*Feature, error) {
	key := constants.CatalogKey("feature", code.String())
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var f Feature
		if err := json.Unmarshal([]byte(cached), &f); err == nil {
			return &f, nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("catalog cache read failed for %s: %v", key, err)
	}

	f, err := uc.repo.GetFeature(ctx, code)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if raw, err := json.Marshal(f); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("catalog cache write failed for %s: %v", key, err)
		}
	}
	return f, nil
}

// ListFeatures returns the catalog, cache-aside.
func (uc *FeatureUsecase) ListFeatures(ctx context.Context, includeInactive bool) ([]*Feature, error) {
	key := constants.CatalogListKey("feature", includeInactive)
	if cached, err := uc.cache.Get(ctx, key); err == nil {
		var fs []*Feature
		if err := json.Unmarshal([]byte(cached), &fs); err == nil {
			return fs, nil
		}
	} else if err != ErrCacheMiss {
		uc.log.Warnf("catalog cache read failed for %s: %v", key, err)
	}

	fs, err := uc.repo.ListFeatures(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(fs); err == nil {
		if err := uc.cache.Set(ctx, key, string(raw), uc.ttl); err != nil {
			uc.log.Warnf("catalog cache write failed for %s: %v", key, err)
		}
	}
	return fs, nil
}

func (uc *FeatureUsecase) invalidateCatalog(ctx context.Context) {
	if err := uc.cache.DeletePattern(ctx, constants.CatalogPattern()); err != nil {
		uc.log.Errorf("failed to invalidate catalog cache: %v", err)
	}
}
