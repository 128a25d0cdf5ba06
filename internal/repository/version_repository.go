package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examdesk/colloquium-api/internal/models"
)

const versionColumns = `id, name, status, published_at, created_at, updated_at`

// VersionRepository manages persistence for schedule versions.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs a VersionRepository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create inserts a new draft version.
func (r *VersionRepository) Create(ctx context.Context, version *models.ScheduleVersion) error {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.Status == "" {
		version.Status = models.VersionStatusDraft
	}
	now := time.Now().UTC()
	version.CreatedAt = now
	version.UpdatedAt = now

	const query = `INSERT INTO schedule_versions (id, name, status, published_at, created_at, updated_at)
		VALUES (:id, :name, :status, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

// FindByID returns a version by identifier.
func (r *VersionRepository) FindByID(ctx context.Context, id string) (*models.ScheduleVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_versions WHERE id = $1 LIMIT 1`, versionColumns)
	var version models.ScheduleVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find version by id: %w", err)
	}
	return &version, nil
}

// List returns all versions, newest first.
func (r *VersionRepository) List(ctx context.Context) ([]models.ScheduleVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_versions ORDER BY created_at DESC`, versionColumns)
	var versions []models.ScheduleVersion
	if err := r.db.SelectContext(ctx, &versions, query); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// Publish promotes one version and demotes every other published version in
// the same transaction, keeping at most one published at a time.
func (r *VersionRepository) Publish(ctx context.Context, id string, publishedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE schedule_versions SET status = $1, published_at = NULL, updated_at = $2 WHERE status = $3 AND id <> $4`,
		models.VersionStatusDraft, publishedAt, models.VersionStatusPublished, id); err != nil {
		return fmt.Errorf("demote published versions: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE schedule_versions SET status = $1, published_at = $2, updated_at = $2 WHERE id = $3`,
		models.VersionStatusPublished, publishedAt, id)
	if err != nil {
		return fmt.Errorf("publish version: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	return nil
}
