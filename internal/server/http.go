package server

import (
	"encoding/json"
	stdhttp "net/http"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"

	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/service"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Bootstrap,
	catalog *service.CatalogService,
	ents *service.EntitlementService,
	subs *service.SubscriptionService,
	payments *service.PaymentService,
	usage *service.UsageService,
	subsUC *biz.SubscriptionUsecase,
	logger log.Logger,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.Filter(identityFilter),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	if d, err := time.ParseDuration(c.Server.Http.Timeout); err == nil && d > 0 {
		opts = append(opts, http.Timeout(d))
	}
	srv := http.NewServer(opts...)

	r := srv.Route("/v1")
	catalog.RegisterRoutes(r)
	ents.RegisterRoutes(r)
	subs.RegisterRoutes(r)
	payments.RegisterRoutes(r)
	usage.RegisterRoutes(r, RequireActiveSubscription(subsUC))

	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, map[string]string{
			"service": "entitlement-service",
			"status":  "ok",
		})
	})

	return srv
}

// identityFilter lifts the gateway-injected identity headers onto the
// request context.
func identityFilter(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		orgID := r.Header.Get("X-Org-Id")
		userID := r.Header.Get("X-User-Id")
		role := auth.Role(r.Header.Get("X-User-Role"))
		if orgID != "" || userID != "" || role != "" {
			r = r.WithContext(auth.WithIdentity(r.Context(), orgID, userID, role))
		}
		next.ServeHTTP(w, r)
	})
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		if se.Code >= 100 && se.Code < 600 {
			status = int(se.Code)
		}
		response["code"] = status
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
