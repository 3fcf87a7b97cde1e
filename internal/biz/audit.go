package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/auth"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

// AuditEntry is one append-only record of a lifecycle or entitlement
// mutation. OrgID is "SYSTEM" for sweeper-driven transitions.
type AuditEntry struct {
	ID              uint64
	OrgID           string
	EventType       string
	Details         map[string]string
	PreviousStatus  string
	NewStatus       string
	PerformedBy     string
	PerformedByRole string
	CreatedAt       time.Time
}

// AuditRepo is the append-only audit store.
type AuditRepo interface {
	Append(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, orgID string, page, pageSize int) ([]*AuditEntry, int, error)
}

const auditQueueSize = 256

// AuditUsecase writes the audit trail as an explicit fire-and-forget side
// channel: entries go through a bounded queue drained by one background
// writer. A full queue or a failed write is logged and dropped; audit
// unavailability never blocks or unwinds a business operation.
type AuditUsecase struct {
	repo  AuditRepo
	queue chan *AuditEntry
	done  chan struct{}
	now   func() time.Time
	log   *log.Helper
}

// NewAuditUsecase creates the audit writer and starts its drain goroutine.
// The returned cleanup stops the writer after flushing queued entries.
func NewAuditUsecase(repo AuditRepo, logger log.Logger) (*AuditUsecase, func()) {
	uc := &AuditUsecase{
		repo:  repo,
		queue: make(chan *AuditEntry, auditQueueSize),
		done:  make(chan struct{}),
		now:   func() time.Time { return time.Now().UTC() },
		log:   log.NewHelper(logger),
	}
	go uc.drain()
	cleanup := func() {
		close(uc.queue)
		<-uc.done
	}
	return uc, cleanup
}

// Record enqueues an entry without blocking the caller. The actor role is
// read from the request identity when the caller did not set one.
func (uc *AuditUsecase) Record(ctx context.Context, e *AuditEntry) {
	if e.OrgID == "" {
		e.OrgID = constants.SystemActor
	}
	if e.PerformedBy == "" {
		e.PerformedBy = constants.SystemActor
	}
	if e.PerformedByRole == "" {
		if role, ok := auth.RoleFromContext(ctx); ok {
			e.PerformedByRole = string(role)
		} else if e.PerformedBy == constants.SystemActor {
			e.PerformedByRole = constants.SystemActor
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = uc.now()
	}
	select {
	case uc.queue <- e:
	default:
		uc.log.Errorf("audit queue full, dropping %s for org %s", e.EventType, e.OrgID)
	}
}

// List pages through an organization's audit trail, newest first.
func (uc *AuditUsecase) List(ctx context.Context, orgID string, page, pageSize int) ([]*AuditEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return uc.repo.List(ctx, orgID, page, pageSize)
}

func (uc *AuditUsecase) drain() {
	defer close(uc.done)
	for e := range uc.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := uc.repo.Append(ctx, e); err != nil {
			uc.log.Errorf("audit write failed for %s/%s: %v", e.OrgID, e.EventType, err)
		}
		cancel()
	}
}
