package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS bulletin_validation_audits (
	id UUID PRIMARY KEY,
	teacher_id TEXT NOT NULL,
	class_id TEXT NOT NULL,
	student_id TEXT,
	period_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	created_count INTEGER NOT NULL,
	updated_count INTEGER NOT NULL,
	failed BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT,
	executed_at TIMESTAMPTZ NOT NULL
)`

// ValidationAuditRepository records executed bulk validations in Postgres.
type ValidationAuditRepository struct {
	db *sqlx.DB
}

// NewValidationAuditRepository constructs the repository.
func NewValidationAuditRepository(db *sqlx.DB) *ValidationAuditRepository {
	return &ValidationAuditRepository{db: db}
}

// EnsureSchema creates the audit table when missing.
func (r *ValidationAuditRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAuditTable); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

// Insert stores an audit row, assigning an id when missing.
func (r *ValidationAuditRepository) Insert(ctx context.Context, audit *models.ValidationAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	const query = `INSERT INTO bulletin_validation_audits
(id, teacher_id, class_id, student_id, period_id, scope, created_count, updated_count, failed, error_message, executed_at)
VALUES (:id, :teacher_id, :class_id, :student_id, :period_id, :scope, :created_count, :updated_count, :failed, :error_message, :executed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("insert validation audit: %w", err)
	}
	return nil
}

// ListByPeriod returns the most recent audits of a period, newest first.
func (r *ValidationAuditRepository) ListByPeriod(ctx context.Context, periodID string, limit int) ([]models.ValidationAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, teacher_id, class_id, student_id, period_id, scope, created_count, updated_count, failed, error_message, executed_at
FROM bulletin_validation_audits
WHERE period_id = $1
ORDER BY executed_at DESC
LIMIT $2`
	var audits []models.ValidationAudit
	if err := r.db.SelectContext(ctx, &audits, query, periodID, limit); err != nil {
		return nil, fmt.Errorf("list validation audits: %w", err)
	}
	return audits, nil
}
