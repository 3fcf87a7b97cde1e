//go:build wireinject
// +build wireinject

package main

import (
	"os"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/data"
)

// SweepApp bundles what the sweeper binary needs.
type SweepApp struct {
	sweep  *biz.SweepUsecase
	logger log.Logger
}

// wireApp init the sweeper application.
func wireApp(*conf.Bootstrap) (*SweepApp, func(), error) {
	panic(wire.Build(
		newLogger,
		data.ProviderSet,
		biz.ProviderSet,
		wire.Struct(new(SweepApp), "*"),
	))
}

func newLogger(*conf.Bootstrap) log.Logger {
	return log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "entitlement-sweeper",
	)
}
