package conf

import (
	"fmt"
	"time"
)

type Bootstrap struct {
	Server      *Server      `yaml:"server" json:"server"`
	Data        *Data        `yaml:"data" json:"data"`
	Billing     *Billing     `yaml:"billing" json:"billing"`
	Entitlement *Entitlement `yaml:"entitlement" json:"entitlement"`
	Sweep       *Sweep       `yaml:"sweep" json:"sweep"`
	Log         *Log         `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver          string `yaml:"driver" json:"driver"`
		Source          string `yaml:"source" json:"source"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
		DialTimeout  string `yaml:"dial_timeout" json:"dial_timeout"`
		PoolSize     int32  `yaml:"pool_size" json:"pool_size"`
		MinIdleConns int32  `yaml:"min_idle_conns" json:"min_idle_conns"`
	} `yaml:"redis" json:"redis"`
}

type Billing struct {
	// PaymentGatewayAddr is the base URL of the external payment gateway
	// used to verify transaction confirmations before trusting them.
	PaymentGatewayAddr string `yaml:"payment_gateway_addr" json:"payment_gateway_addr"`
	Currency           string `yaml:"currency" json:"currency"`
	// PaymentRequestExpiryDays bounds how long a pending request stays actionable.
	PaymentRequestExpiryDays int `yaml:"payment_request_expiry_days" json:"payment_request_expiry_days"`
	// AutoRenewDaysBefore is how far ahead of period end the sweeper raises
	// renewal payment requests for auto-renewing subscriptions.
	AutoRenewDaysBefore int `yaml:"auto_renew_days_before" json:"auto_renew_days_before"`
}

type Entitlement struct {
	FeatureCacheTTL      string `yaml:"feature_cache_ttl" json:"feature_cache_ttl"`
	CatalogCacheTTL      string `yaml:"catalog_cache_ttl" json:"catalog_cache_ttl"`
	SubscriptionCacheTTL string `yaml:"subscription_cache_ttl" json:"subscription_cache_ttl"`
}

type Sweep struct {
	// Cron specs with seconds field, robfig/cron/v3 syntax.
	ExpirySchedule        string `yaml:"expiry_schedule" json:"expiry_schedule"`
	GraceSchedule         string `yaml:"grace_schedule" json:"grace_schedule"`
	PaymentExpirySchedule string `yaml:"payment_expiry_schedule" json:"payment_expiry_schedule"`
	AutoRenewSchedule     string `yaml:"auto_renew_schedule" json:"auto_renew_schedule"`
	ReminderSchedule      string `yaml:"reminder_schedule" json:"reminder_schedule"`
	ReminderDaysBefore    int    `yaml:"reminder_days_before" json:"reminder_days_before"`
	JobTimeout            string `yaml:"job_timeout" json:"job_timeout"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// Validate validates the configuration.
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Billing == nil {
		return fmt.Errorf("billing configuration is required")
	}
	if b.Billing.PaymentGatewayAddr == "" {
		return fmt.Errorf("billing.payment_gateway_addr is required")
	}
	return nil
}

// FeatureCacheTTL returns the entitlement decision TTL, falling back to the default class.
func (b *Bootstrap) FeatureCacheTTL(fallback time.Duration) time.Duration {
	if b.Entitlement != nil {
		if d, err := time.ParseDuration(b.Entitlement.FeatureCacheTTL); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// CatalogCacheTTL returns the catalog TTL, falling back to the default class.
func (b *Bootstrap) CatalogCacheTTL(fallback time.Duration) time.Duration {
	if b.Entitlement != nil {
		if d, err := time.ParseDuration(b.Entitlement.CatalogCacheTTL); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// SubscriptionCacheTTL returns the subscription read TTL, falling back to the default class.
func (b *Bootstrap) SubscriptionCacheTTL(fallback time.Duration) time.Duration {
	if b.Entitlement != nil {
		if d, err := time.ParseDuration(b.Entitlement.SubscriptionCacheTTL); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// PaymentRequestExpiryDays returns the configured expiry window in days.
func (b *Bootstrap) PaymentRequestExpiryDays(fallback int) int {
	if b.Billing != nil && b.Billing.PaymentRequestExpiryDays > 0 {
		return b.Billing.PaymentRequestExpiryDays
	}
	return fallback
}

// AutoRenewDaysBefore returns the auto-renew lead time in days.
func (b *Bootstrap) AutoRenewDaysBefore(fallback int) int {
	if b.Billing != nil && b.Billing.AutoRenewDaysBefore > 0 {
		return b.Billing.AutoRenewDaysBefore
	}
	return fallback
}
