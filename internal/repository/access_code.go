package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/model"
)

// AccessCodeRepository handles access code data operations.
//
// Find* methods return (nil, nil) when no row matches. ConsumeUse is
// the store's atomic conditional update: it increments the usage
// counter and flips the active flag in one statement, so two racing
// redemptions of the last allowed use cannot both succeed.
type AccessCodeRepository interface {
	Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error)
	FindByCode(ctx context.Context, code string) (*model.AccessCode, error)
	FindActive(ctx context.Context, limit int) ([]model.AccessCode, error)
	ConsumeUse(ctx context.Context, code, usedBy string, now time.Time) (*model.AccessCode, error)
	MarkUsed(ctx context.Context, code, usedBy string, deactivate bool, now time.Time) error
	Deactivate(ctx context.Context, code string) (bool, error)
	ExpireActive(ctx context.Context, now time.Time) ([]string, error)
}

type accessCodeRepo struct {
	db *sqlx.DB
}

// NewAccessCodeRepository creates a new access code repository
func NewAccessCodeRepository(db *sqlx.DB) AccessCodeRepository {
	return &accessCodeRepo{db: db}
}

// pq error code for a column that does not exist in the schema
const pqUndefinedColumn = "42703"

// Create inserts a new code. If the insert fails because the optional
// usage-tracking columns are missing from the schema, it is retried
// once without them (legacy schema fallback).
func (r *accessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		INSERT INTO access_codes (code, expires_at, prefix, auto_expire_on_use, max_uses, current_uses, is_active)
		VALUES ($1, $2, $3, $4, $5, 0, TRUE)
		RETURNING *
	`, params.Code, params.ExpiresAt, params.Prefix, params.AutoExpireOnUse, params.MaxUses)
	if err == nil {
		return &code, nil
	}

	if !isUndefinedColumn(err) {
		return nil, err
	}

	log.Warn().Str("code", params.Code).Msg("usage-tracking columns missing, retrying insert in legacy mode")

	err = r.db.GetContext(ctx, &code, `
		INSERT INTO access_codes (code, expires_at, prefix, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING *
	`, params.Code, params.ExpiresAt, params.Prefix)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// FindByCode finds a code regardless of its active or expiry state.
func (r *accessCodeRepo) FindByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `
		SELECT * FROM access_codes WHERE code = $1
	`, code)
	return HandleNotFound(&ac, err)
}

// FindActive lists active codes, newest first.
func (r *accessCodeRepo) FindActive(ctx context.Context, limit int) ([]model.AccessCode, error) {
	codes := []model.AccessCode{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM access_codes
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ConsumeUse atomically records one use. The guard clauses mirror the
// validator's decision: the row must be active, unexpired, and under
// its cap. Returns (nil, nil) when the guard rejects the update, which
// the caller treats as losing the race for the last allowed use.
func (r *accessCodeRepo) ConsumeUse(ctx context.Context, code, usedBy string, now time.Time) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `
		UPDATE access_codes
		SET current_uses = current_uses + 1,
		    used_at = $2,
		    used_by = $3,
		    is_active = CASE
		        WHEN max_uses IS NOT NULL THEN current_uses + 1 < max_uses
		        ELSE NOT COALESCE(auto_expire_on_use, TRUE)
		    END
		WHERE code = $1
		  AND is_active
		  AND expires_at > $4
		  AND (max_uses IS NULL OR current_uses < max_uses)
		RETURNING *
	`, code, now, usedBy, now)
	return HandleNotFound(&ac, err)
}

// MarkUsed records a use without touching the usage-cap columns.
// This is the legacy-schema path; the deactivation decision is made by
// the caller from the reuse policy.
func (r *accessCodeRepo) MarkUsed(ctx context.Context, code, usedBy string, deactivate bool, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_codes
		SET used_at = $2, used_by = $3, is_active = NOT $4
		WHERE code = $1
	`, code, now, usedBy, deactivate)
	return err
}

// Deactivate unconditionally clears the active flag. Returns whether a
// row with that code exists.
func (r *accessCodeRepo) Deactivate(ctx context.Context, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE access_codes SET is_active = FALSE WHERE code = $1
	`, code)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ExpireActive deactivates all active codes whose expiry has passed and
// returns the affected codes.
func (r *accessCodeRepo) ExpireActive(ctx context.Context, now time.Time) ([]string, error) {
	codes := []string{}
	err := r.db.SelectContext(ctx, &codes, `
		UPDATE access_codes
		SET is_active = FALSE
		WHERE is_active AND expires_at < $1
		RETURNING code
	`, now)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUndefinedColumn
}
