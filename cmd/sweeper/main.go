package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/conf"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	if err := bc.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}

	app, cleanup, err := wireApp(&bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	helper := log.NewHelper(app.logger)

	jobTimeout := 5 * time.Minute
	if bc.Sweep != nil {
		if d, err := time.ParseDuration(bc.Sweep.JobTimeout); err == nil && d > 0 {
			jobTimeout = d
		}
	}

	scheduler := cron.New(cron.WithSeconds())

	jobs := []struct {
		name     string
		schedule string
		fallback string
		run      func(context.Context) *biz.SweepReport
	}{
		{"period-expiry", sweepSchedule(&bc, func(s *conf.Sweep) string { return s.ExpirySchedule }), "0 0 2 * * *", app.sweep.SweepExpiredPeriods},
		{"grace-expiry", sweepSchedule(&bc, func(s *conf.Sweep) string { return s.GraceSchedule }), "0 30 2 * * *", app.sweep.SweepGraceExpirations},
		{"payment-request-expiry", sweepSchedule(&bc, func(s *conf.Sweep) string { return s.PaymentExpirySchedule }), "0 0 3 * * *", app.sweep.SweepExpiredPaymentRequests},
		{"auto-renewal", sweepSchedule(&bc, func(s *conf.Sweep) string { return s.AutoRenewSchedule }), "0 30 3 * * *", app.sweep.SweepAutoRenewals},
		{"renewal-reminder", sweepSchedule(&bc, func(s *conf.Sweep) string { return s.ReminderSchedule }), "0 0 10 * * *", app.sweep.SweepRenewalReminders},
	}

	for _, job := range jobs {
		job := job
		schedule := job.schedule
		if schedule == "" {
			schedule = job.fallback
		}
		_, err := scheduler.AddFunc(schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			report := job.run(ctx)
			if report.Skipped {
				helper.Infof("sweep %s skipped: another instance holds the lock", job.name)
				return
			}
			helper.Infof("sweep %s done: scanned=%d transitioned=%d errors=%d",
				job.name, report.Scanned, report.Transitioned, len(report.Errors))
			for _, e := range report.Errors {
				helper.Warnf("sweep %s: %s", job.name, e)
			}
		})
		if err != nil {
			panic(fmt.Sprintf("failed to schedule %s: %v", job.name, err))
		}
		helper.Infof("scheduled sweep %s at %q", job.name, schedule)
	}

	scheduler.Start()
	helper.Info("sweeper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	helper.Info("shutting down gracefully...")
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		helper.Info("sweep jobs stopped")
	case <-time.After(30 * time.Second):
		helper.Warn("sweep jobs forced to stop after timeout")
	}
}

func sweepSchedule(bc *conf.Bootstrap, pick func(*conf.Sweep) string) string {
	if bc.Sweep == nil {
		return ""
	}
	return pick(bc.Sweep)
}
