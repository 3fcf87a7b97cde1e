package service

import (
	"strconv"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/go-playground/validator/v10"
	"github.com/google/wire"

	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewCatalogService,
	NewEntitlementService,
	NewSubscriptionService,
	NewPaymentService,
	NewUsageService,
)

var validate = validator.New()

// bindAndValidate decodes the JSON body and runs struct validation.
func bindAndValidate(ctx khttp.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return errs.BadRequest("malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return errs.BadRequest(err.Error())
	}
	return nil
}

// actor returns the acting user id, empty when the request is anonymous.
func actor(ctx khttp.Context) string {
	userID, _ := auth.UserIDFromContext(ctx)
	return userID
}

// pageParams reads page/pageSize query parameters with sane defaults.
func pageParams(ctx khttp.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.Query().Get("page"))
	pageSize, _ = strconv.Atoi(ctx.Query().Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
