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

// SettingsRepository manages the schedule configuration and room mappings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetScheduleConfig returns the single stored configuration row.
func (r *SettingsRepository) GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error) {
	const query = `SELECT id, days, rooms, day_start, day_end, bachelor_minutes, master_minutes, updated_at FROM schedule_config ORDER BY updated_at DESC LIMIT 1`
	var cfg models.ScheduleConfig
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get schedule config: %w", err)
	}
	return &cfg, nil
}

// UpsertScheduleConfig replaces the stored configuration.
func (r *SettingsRepository) UpsertScheduleConfig(ctx context.Context, cfg *models.ScheduleConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO schedule_config (id, days, rooms, day_start, day_end, bachelor_minutes, master_minutes, updated_at)
		VALUES (:id, :days, :rooms, :day_start, :day_end, :bachelor_minutes, :master_minutes, :updated_at)
		ON CONFLICT (id) DO UPDATE SET days = EXCLUDED.days, rooms = EXCLUDED.rooms, day_start = EXCLUDED.day_start, day_end = EXCLUDED.day_end, bachelor_minutes = EXCLUDED.bachelor_minutes, master_minutes = EXCLUDED.master_minutes, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert schedule config: %w", err)
	}
	return nil
}

// ListRoomMappings returns all competence-area room mappings.
func (r *SettingsRepository) ListRoomMappings(ctx context.Context) ([]models.RoomMapping, error) {
	const query = `SELECT id, competence_area, rooms, created_at FROM room_mappings ORDER BY competence_area`
	var mappings []models.RoomMapping
	if err := r.db.SelectContext(ctx, &mappings, query); err != nil {
		return nil, fmt.Errorf("list room mappings: %w", err)
	}
	return mappings, nil
}

// UpsertRoomMapping creates or replaces the mapping for one competence area.
func (r *SettingsRepository) UpsertRoomMapping(ctx context.Context, mapping *models.RoomMapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO room_mappings (id, competence_area, rooms, created_at)
		VALUES (:id, :competence_area, :rooms, :created_at)
		ON CONFLICT (competence_area) DO UPDATE SET rooms = EXCLUDED.rooms`
	if _, err := r.db.NamedExecContext(ctx, query, mapping); err != nil {
		return fmt.Errorf("upsert room mapping: %w", err)
	}
	return nil
}

// DeleteRoomMapping removes the mapping for one competence area.
func (r *SettingsRepository) DeleteRoomMapping(ctx context.Context, competenceArea string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM room_mappings WHERE competence_area = $1`, competenceArea)
	if err != nil {
		return fmt.Errorf("delete room mapping: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
