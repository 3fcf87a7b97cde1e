package biz

import (
	"context"
	"errors"
	"time"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewFeatureUsecase,
	NewPlanUsecase,
	NewEntitlementUsecase,
	NewSubscriptionUsecase,
	NewPaymentRequestUsecase,
	NewUsageUsecase,
	NewSweepUsecase,
	NewAuditUsecase,
)

// Transaction runs fn inside a store transaction; every repo call made with
// the derived context joins it.
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// ErrCacheMiss is returned by Cache.Get when the key is absent. It is the
// only cache error callers may branch on; all others are treated as a cache
// outage and fall through to the authoritative store.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the injected cache port. Values are serialized JSON. Pattern
// deletion is the namespace-invalidation primitive: a mutation must clear
// the affected namespace before the mutating call returns.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// PaymentConfirmation is the opaque receipt handed back by the external
// payment gateway.
type PaymentConfirmation struct {
	TransactionID string
	Amount        float64
	InvoiceURL    string
}

// PaymentGateway verifies an operator-supplied transaction against the
// external gateway before the confirmation is trusted.
type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, transactionID string) (*PaymentConfirmation, error)
}
