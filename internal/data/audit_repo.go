package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/data/model"
)

type auditRepo struct {
	data *Data
	log  *log.Helper
}

// NewAuditRepo creates the append-only audit store.
func NewAuditRepo(data *Data, logger log.Logger) biz.AuditRepo {
	return &auditRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *auditRepo) Append(ctx context.Context, e *biz.AuditEntry) error {
	m := &model.AuditLog{
		OrgID:           e.OrgID,
		EventType:       e.EventType,
		Details:         e.Details,
		PreviousStatus:  e.PreviousStatus,
		NewStatus:       e.NewStatus,
		PerformedBy:     e.PerformedBy,
		PerformedByRole: e.PerformedByRole,
		CreatedAt:       e.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("failed to append audit entry %s for org %s: %v", e.EventType, e.OrgID, err)
		return err
	}
	e.ID = m.ID
	return nil
}

func (r *auditRepo) List(ctx context.Context, orgID string, page, pageSize int) ([]*biz.AuditEntry, int, error) {
	var total int64
	if err := r.data.DB(ctx).Model(&model.AuditLog{}).
		Where("org_id = ?", orgID).Count(&total).Error; err != nil {
		r.log.Errorf("failed to count audit entries for org %s: %v", orgID, err)
		return nil, 0, err
	}

	var models []model.AuditLog
	err := r.data.DB(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC, audit_log_id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		r.log.Errorf("failed to list audit entries for org %s: %v", orgID, err)
		return nil, 0, err
	}

	entries := make([]*biz.AuditEntry, len(models))
	for i, m := range models {
		entries[i] = &biz.AuditEntry{
			ID:              m.ID,
			OrgID:           m.OrgID,
			EventType:       m.EventType,
			Details:         m.Details,
			PreviousStatus:  m.PreviousStatus,
			NewStatus:       m.NewStatus,
			PerformedBy:     m.PerformedBy,
			PerformedByRole: m.PerformedByRole,
			CreatedAt:       m.CreatedAt,
		}
	}
	return entries, int(total), nil
}
