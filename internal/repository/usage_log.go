package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamgate/access-server-go/internal/model"
)

// UsageLogRepository is the append-only audit trail. Rows are written
// by the generator and validator and never updated.
type UsageLogRepository interface {
	Append(ctx context.Context, params model.AppendUsageLogParams) error
	FindRecent(ctx context.Context, limit int) ([]model.UsageLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type usageLogRepo struct {
	db *sqlx.DB
}

// NewUsageLogRepository creates a new usage log repository
func NewUsageLogRepository(db *sqlx.DB) UsageLogRepository {
	return &usageLogRepo{db: db}
}

func (r *usageLogRepo) Append(ctx context.Context, params model.AppendUsageLogParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_logs (code, action, details, ip)
		VALUES ($1, $2, $3, $4)
	`, params.Code, params.Action, params.Details, params.IP)
	return err
}

func (r *usageLogRepo) FindRecent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	logs := []model.UsageLog{}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM usage_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteOlderThan prunes audit rows past the retention window.
func (r *usageLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM usage_logs WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
