package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"

	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

// In-memory ports for usecase tests. They keep the same contracts as the
// gorm-backed repos: (nil, nil) on not-found, clones on read so callers
// never share a row with the store.

type memCache struct {
	mu       sync.Mutex
	data     map[string]string
	failGet  bool
	failSet  bool
	patterns []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string]string{}}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return "", errors.New("cache down")
	}
	v, ok := c.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("cache down")
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *memCache) deletedPattern(pattern string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

type memFeatureRepo struct {
	mu     sync.Mutex
	rows   map[FeatureCode]*Feature
	nextID uint64
}

func newMemFeatureRepo() *memFeatureRepo {
	return &memFeatureRepo{rows: map[FeatureCode]*Feature{}}
}

func (r *memFeatureRepo) CreateFeature(_ context.Context, f *Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	c := *f
	r.rows[f.Code] = &c
	return nil
}

func (r *memFeatureRepo) UpdateFeature(_ context.Context, f *Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *f
	r.rows[f.Code] = &c
	return nil
}

func (r *memFeatureRepo) GetFeature(_ context.Context, code FeatureCode) (*Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[code]
	if !ok {
		return nil, nil
	}
	c := *f
	return &c, nil
}

func (r *memFeatureRepo) ListFeatures(_ context.Context, includeInactive bool) ([]*Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Feature
	for _, f := range r.rows {
		if !includeInactive && !f.IsActive {
			continue
		}
		c := *f
		out = append(out, &c)
	}
	return out, nil
}

type memPlanRepo struct {
	mu     sync.Mutex
	rows   map[PlanCode]*Plan
	nextID uint64
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{rows: map[PlanCode]*Plan{}}
}

func clonePlan(p *Plan) *Plan {
	c := *p
	c.IncludedFeatures = append([]FeatureCode(nil), p.IncludedFeatures...)
	if p.Overrides != nil {
		c.Overrides = make(map[FeatureCode]*PlanFeatureOverride, len(p.Overrides))
		for k, v := range p.Overrides {
			o := *v
			c.Overrides[k] = &o
		}
	}
	return &c
}

func (r *memPlanRepo) CreatePlan(_ context.Context, p *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.rows[p.Code] = clonePlan(p)
	return nil
}

func (r *memPlanRepo) UpdatePlan(_ context.Context, p *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.Code] = clonePlan(p)
	return nil
}

func (r *memPlanRepo) GetPlan(_ context.Context, code PlanCode) (*Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[code]
	if !ok {
		return nil, nil
	}
	return clonePlan(p), nil
}

func (r *memPlanRepo) ListPlans(_ context.Context, includeInactive bool) ([]*Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Plan
	for _, p := range r.rows {
		if !includeInactive && !p.IsActive {
			continue
		}
		out = append(out, clonePlan(p))
	}
	return out, nil
}

func (r *memPlanRepo) ReplacePlanFeatures(_ context.Context, code PlanCode, overrides []*PlanFeatureOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[code]
	if !ok {
		return fmt.Errorf("plan %s not found", code)
	}
	p.Overrides = make(map[FeatureCode]*PlanFeatureOverride, len(overrides))
	for _, o := range overrides {
		c := *o
		p.Overrides[o.FeatureCode] = &c
	}
	return nil
}

type memEntitlementRepo struct {
	mu         sync.Mutex
	rows       map[string]*OrganizationFeature
	nextID     uint64
	replaceErr error
	// lastReplaceScope records the fakeTx scope of the latest Replace call.
	lastReplaceScope int
}

func newMemEntitlementRepo() *memEntitlementRepo {
	return &memEntitlementRepo{rows: map[string]*OrganizationFeature{}}
}

func entKey(orgID string, code FeatureCode) string { return orgID + "/" + string(code) }

func (r *memEntitlementRepo) GetOrganizationFeature(_ context.Context, orgID string, code FeatureCode) (*OrganizationFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	of, ok := r.rows[entKey(orgID, code)]
	if !ok {
		return nil, nil
	}
	c := *of
	return &c, nil
}

func (r *memEntitlementRepo) ListOrganizationFeatures(_ context.Context, orgID string) ([]*OrganizationFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OrganizationFeature
	for _, of := range r.rows {
		if of.OrgID == orgID {
			c := *of
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memEntitlementRepo) UpsertOrganizationFeature(_ context.Context, of *OrganizationFeature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entKey(of.OrgID, of.FeatureCode)
	if prev, ok := r.rows[key]; ok {
		of.ID = prev.ID
	} else {
		r.nextID++
		of.ID = r.nextID
	}
	c := *of
	r.rows[key] = &c
	return nil
}

func (r *memEntitlementRepo) ReplaceOrganizationFeatures(ctx context.Context, orgID string, rows []*OrganizationFeature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.lastReplaceScope = txScope(ctx)
	for key, of := range r.rows {
		if of.OrgID == orgID {
			delete(r.rows, key)
		}
	}
	for _, of := range rows {
		r.nextID++
		of.ID = r.nextID
		c := *of
		r.rows[entKey(of.OrgID, of.FeatureCode)] = &c
	}
	return nil
}

func (r *memEntitlementRepo) count(orgID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, of := range r.rows {
		if of.OrgID == orgID {
			n++
		}
	}
	return n
}

type memSubscriptionRepo struct {
	mu     sync.Mutex
	byOrg  map[string]*Subscription
	nextID uint64
	gets   int
	// afterList runs once after a List call returns its snapshot, before
	// the caller acts on it. Used to race a concurrent transition.
	afterList func()
	updateErr error
	// lastWriteScope records the fakeTx scope of the latest create/update.
	lastWriteScope int
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{byOrg: map[string]*Subscription{}}
}

func cloneSubscription(s *Subscription) *Subscription {
	c := *s
	return &c
}

func (r *memSubscriptionRepo) CreateSubscription(ctx context.Context, s *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byOrg[s.OrgID]; ok {
		return fmt.Errorf("duplicate subscription for org %s", s.OrgID)
	}
	r.nextID++
	s.ID = r.nextID
	r.lastWriteScope = txScope(ctx)
	r.byOrg[s.OrgID] = cloneSubscription(s)
	return nil
}

func (r *memSubscriptionRepo) GetSubscription(_ context.Context, orgID string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	s, ok := r.byOrg[orgID]
	if !ok {
		return nil, nil
	}
	return cloneSubscription(s), nil
}

func (r *memSubscriptionRepo) UpdateSubscription(ctx context.Context, s *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.lastWriteScope = txScope(ctx)
	r.byOrg[s.OrgID] = cloneSubscription(s)
	return nil
}

func (r *memSubscriptionRepo) TransitionStatus(_ context.Context, id uint64, from, to SubscriptionStatus, graceEndsAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byOrg {
		if s.ID != id || s.Status != from {
			continue
		}
		s.Status = to
		s.GracePeriodEndsAt = graceEndsAt
		s.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (r *memSubscriptionRepo) ListLapsed(_ context.Context, now time.Time) ([]*Subscription, error) {
	r.mu.Lock()
	var out []*Subscription
	for _, s := range r.byOrg {
		if (s.Status == StatusTrial || s.Status == StatusActive) && s.CurrentPeriodEnd.Before(now) {
			out = append(out, cloneSubscription(s))
		}
	}
	r.mu.Unlock()
	if r.afterList != nil {
		r.afterList()
	}
	return out, nil
}

func (r *memSubscriptionRepo) ListGraceExpired(_ context.Context, now time.Time) ([]*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Subscription
	for _, s := range r.byOrg {
		if s.Status == StatusGracePeriod && s.GracePeriodEndsAt != nil && s.GracePeriodEndsAt.Before(now) {
			out = append(out, cloneSubscription(s))
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) ListExpiring(_ context.Context, now time.Time, days, page, pageSize int) ([]*Subscription, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := now.AddDate(0, 0, days)
	var all []*Subscription
	for _, s := range r.byOrg {
		if s.Status == StatusActive && !s.CurrentPeriodEnd.Before(now) && !s.CurrentPeriodEnd.After(cutoff) {
			all = append(all, cloneSubscription(s))
		}
	}
	total := len(all)
	lo := (page - 1) * pageSize
	if lo >= total {
		return nil, total, nil
	}
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	return all[lo:hi], total, nil
}

func (r *memSubscriptionRepo) ListAutoRenewDue(_ context.Context, now time.Time, days int) ([]*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := now.AddDate(0, 0, days)
	var out []*Subscription
	for _, s := range r.byOrg {
		if s.Status == StatusActive && s.AutoRenew && !s.CurrentPeriodEnd.Before(now) && !s.CurrentPeriodEnd.After(cutoff) {
			out = append(out, cloneSubscription(s))
		}
	}
	return out, nil
}

type memPaymentRequestRepo struct {
	mu        sync.Mutex
	rows      map[string]*PaymentRequest
	order     []string
	updateErr map[string]error
}

func newMemPaymentRequestRepo() *memPaymentRequestRepo {
	return &memPaymentRequestRepo{rows: map[string]*PaymentRequest{}, updateErr: map[string]error{}}
}

func clonePaymentRequest(r *PaymentRequest) *PaymentRequest {
	c := *r
	c.RequestedAddOns = append([]FeatureCode(nil), r.RequestedAddOns...)
	return &c
}

func (r *memPaymentRequestRepo) CreatePaymentRequest(_ context.Context, req *PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[req.ID] = clonePaymentRequest(req)
	r.order = append(r.order, req.ID)
	return nil
}

func (r *memPaymentRequestRepo) GetPaymentRequest(_ context.Context, id string) (*PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return clonePaymentRequest(req), nil
}

func (r *memPaymentRequestRepo) UpdatePaymentRequest(_ context.Context, req *PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[req.ID]; err != nil {
		return err
	}
	r.rows[req.ID] = clonePaymentRequest(req)
	return nil
}

func (r *memPaymentRequestRepo) ListPendingPaymentRequests(_ context.Context, orgID string) ([]*PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*PaymentRequest
	for _, id := range r.order {
		req := r.rows[id]
		if req.OrgID == orgID && req.Status == RequestPending {
			out = append(out, clonePaymentRequest(req))
		}
	}
	return out, nil
}

func (r *memPaymentRequestRepo) ListLapsedPending(_ context.Context, now time.Time) ([]*PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*PaymentRequest
	for _, id := range r.order {
		req := r.rows[id]
		if req.Status == RequestPending && now.After(req.ExpiresAt) {
			out = append(out, clonePaymentRequest(req))
		}
	}
	return out, nil
}

func (r *memPaymentRequestRepo) HasOpenRequest(_ context.Context, subscriptionID uint64, t PaymentRequestType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.rows {
		if req.SubscriptionID == subscriptionID && req.RequestType == t &&
			(req.Status == RequestPending || req.Status == RequestApproved) {
			return true, nil
		}
	}
	return false, nil
}

type memUsageRepo struct {
	mu   sync.Mutex
	rows map[string]*UsageRecord
}

func newMemUsageRepo() *memUsageRepo {
	return &memUsageRepo{rows: map[string]*UsageRecord{}}
}

func usageKey(subID uint64, pt PeriodType, start time.Time) string {
	return fmt.Sprintf("%d/%s/%d", subID, pt, start.Unix())
}

func (r *memUsageRepo) Increment(_ context.Context, rec *UsageRecord, delta UsageDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := usageKey(rec.SubscriptionID, rec.PeriodType, rec.PeriodStart)
	row, ok := r.rows[key]
	if !ok {
		c := *rec
		row = &c
		r.rows[key] = row
	}
	row.EmailsSent += delta.EmailsSent
	row.PushSent += delta.PushSent
	row.EventsCreated += delta.EventsCreated
	row.StorageUsedMB += delta.StorageUsedMB
	row.APIRequests += delta.APIRequests
	row.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *memUsageRepo) Get(_ context.Context, subscriptionID uint64, periodType PeriodType, periodStart time.Time) (*UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[usageKey(subscriptionID, periodType, periodStart)]
	if !ok {
		return nil, nil
	}
	c := *row
	return &c, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*AuditEntry
}

func (r *memAuditRepo) Append(_ context.Context, e *AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	r.entries = append(r.entries, &c)
	return nil
}

func (r *memAuditRepo) List(_ context.Context, orgID string, page, pageSize int) ([]*AuditEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].OrgID == orgID {
			c := *r.entries[i]
			all = append(all, &c)
		}
	}
	total := len(all)
	lo := (page - 1) * pageSize
	if lo >= total {
		return nil, total, nil
	}
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	return all[lo:hi], total, nil
}

func (r *memAuditRepo) last(eventType string) *AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EventType == eventType {
			return r.entries[i]
		}
	}
	return nil
}

// fakeTx stamps each Exec callback with a scope id on the context, so tests
// can assert two writes happened inside the same transaction.
type fakeTx struct{ calls int }

type txScopeKey struct{}

func (t *fakeTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(context.WithValue(ctx, txScopeKey{}, t.calls))
}

func txScope(ctx context.Context) int {
	scope, _ := ctx.Value(txScopeKey{}).(int)
	return scope
}

type fakeGateway struct {
	confirmation *PaymentConfirmation
	err          error
	calls        int
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, transactionID string) (*PaymentConfirmation, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.confirmation != nil {
		return g.confirmation, nil
	}
	return &PaymentConfirmation{TransactionID: transactionID, Amount: 49.90}, nil
}

// testEnv wires the full usecase graph on in-memory ports with a
// controllable clock.
type testEnv struct {
	cache     *memCache
	features  *memFeatureRepo
	plans     *memPlanRepo
	ents      *memEntitlementRepo
	subs      *memSubscriptionRepo
	pays      *memPaymentRequestRepo
	usage     *memUsageRepo
	auditRepo *memAuditRepo
	gateway   *fakeGateway
	tx        *fakeTx

	featureUC *FeatureUsecase
	planUC    *PlanUsecase
	entUC     *EntitlementUsecase
	subUC     *SubscriptionUsecase
	payUC     *PaymentRequestUsecase
	usageUC   *UsageUsecase
	sweepUC   *SweepUsecase
	auditUC   *AuditUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	cfg := &conf.Bootstrap{}

	e := &testEnv{
		cache:     newMemCache(),
		features:  newMemFeatureRepo(),
		plans:     newMemPlanRepo(),
		ents:      newMemEntitlementRepo(),
		subs:      newMemSubscriptionRepo(),
		pays:      newMemPaymentRequestRepo(),
		usage:     newMemUsageRepo(),
		auditRepo: &memAuditRepo{},
		gateway:   &fakeGateway{},
	}

	auditUC, cleanup := NewAuditUsecase(e.auditRepo, logger)
	t.Cleanup(cleanup)
	e.auditUC = auditUC

	e.tx = &fakeTx{}
	tx := e.tx
	e.featureUC = NewFeatureUsecase(e.features, e.cache, cfg, logger)
	e.planUC = NewPlanUsecase(e.plans, e.features, e.cache, cfg, logger)
	e.entUC = NewEntitlementUsecase(e.ents, e.featureUC, e.cache, tx, auditUC, cfg, logger)
	e.subUC = NewSubscriptionUsecase(e.subs, e.planUC, e.entUC, e.cache, tx, auditUC, cfg, logger)
	e.payUC = NewPaymentRequestUsecase(e.pays, e.subUC, e.planUC, e.featureUC, e.entUC, e.gateway, auditUC, cfg, logger)
	e.usageUC = NewUsageUsecase(e.usage, e.subs, logger)
	e.sweepUC = NewSweepUsecase(e.subs, e.planUC, e.entUC, e.payUC, e.cache, auditUC, nil, cfg, logger)
	return e
}

// setNow pins every usecase clock to the given instant.
func (e *testEnv) setNow(at time.Time) {
	clock := func() time.Time { return at }
	e.entUC.now = clock
	e.subUC.now = clock
	e.payUC.now = clock
	e.usageUC.now = clock
	e.sweepUC.now = clock
	e.auditUC.now = clock
}

// waitAudit blocks until the async audit writer has persisted an entry of
// the given event type.
func (e *testEnv) waitAudit(t *testing.T, eventType string) *AuditEntry {
	t.Helper()
	var found *AuditEntry
	require.Eventually(t, func() bool {
		found = e.auditRepo.last(eventType)
		return found != nil
	}, 2*time.Second, 2*time.Millisecond, "no %s audit entry", eventType)
	return found
}

// Standard catalog used across tests: one core, one plan-gated, one premium
// and one purchasable add-on feature, plus a basic and a pro plan.
const (
	codeDirectory = FeatureCode("MEMBER_DIRECTORY")
	codeNews      = FeatureCode("NEWSLETTER")
	codeAnalytics = FeatureCode("EVENT_ANALYTICS")
	codeJobBoard  = FeatureCode("JOB_BOARD")

	planBasic = PlanCode("BASIC")
	planPro   = PlanCode("PRO")
)

func (e *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, f := range []*Feature{
		{Code: codeDirectory, Name: "Member directory", IsCore: true},
		{Code: codeNews, Name: "Newsletter"},
		{Code: codeAnalytics, Name: "Event analytics", IsPremium: true},
		{Code: codeJobBoard, Name: "Job board", IsAddOn: true, AddOnPriceMonthly: 9.90, AddOnPriceYearly: 99},
	} {
		require.NoError(t, e.featureUC.CreateFeature(ctx, f))
	}
	for _, p := range []*Plan{
		{
			Code:             planBasic,
			Name:             "Basic",
			PriceMonthly:     19.90,
			PriceYearly:      199,
			Currency:         "EUR",
			TrialDays:        14,
			GracePeriodDays:  7,
			IncludedFeatures: []FeatureCode{codeNews},
		},
		{
			Code:             planPro,
			Name:             "Pro",
			PriceMonthly:     49.90,
			PriceYearly:      499,
			Currency:         "EUR",
			TrialDays:        14,
			GracePeriodDays:  14,
			IncludedFeatures: []FeatureCode{codeNews, codeAnalytics},
		},
	} {
		require.NoError(t, e.planUC.CreatePlan(ctx, p))
	}
}

// seedSubscription onboards an org and forces it into the given state.
func (e *testEnv) seedSubscription(t *testing.T, orgID string, plan PlanCode, status SubscriptionStatus, periodEnd time.Time) *Subscription {
	t.Helper()
	ctx := context.Background()
	sub, err := e.subUC.CreateSubscription(ctx, orgID, plan, CycleMonthly, "ops@test")
	require.NoError(t, err)
	sub.Status = status
	sub.CurrentPeriodEnd = periodEnd
	if status != StatusTrial {
		sub.TrialEndsAt = nil
	}
	require.NoError(t, e.subs.UpdateSubscription(ctx, sub))
	require.NoError(t, e.cache.Delete(ctx, constants.SubscriptionKey(orgID)))
	return sub
}
