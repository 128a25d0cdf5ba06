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

const eventColumns = `id, version_id, exam_id, day, room, start_time, end_time, protocolist_id, status, cancel_reason, cancelled_at, team, duration, created_at, updated_at`

const insertEventQuery = `INSERT INTO scheduled_events (id, version_id, exam_id, day, room, start_time, end_time, protocolist_id, status, cancel_reason, cancelled_at, team, duration, created_at, updated_at)
	VALUES (:id, :version_id, :exam_id, :day, :room, :start_time, :end_time, :protocolist_id, :status, :cancel_reason, :cancelled_at, :team, :duration, :created_at, :updated_at)`

// EventRepository manages persistence for scheduled events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListByVersion returns all events of a schedule version in slot order.
func (r *EventRepository) ListByVersion(ctx context.Context, versionID string) ([]models.ScheduledEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM scheduled_events WHERE version_id = $1 ORDER BY day, start_time, room`, eventColumns)
	var events []models.ScheduledEvent
	if err := r.db.SelectContext(ctx, &events, query, versionID); err != nil {
		return nil, fmt.Errorf("list events by version: %w", err)
	}
	return events, nil
}

// FindByID returns one event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM scheduled_events WHERE id = $1 LIMIT 1`, eventColumns)
	var event models.ScheduledEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// Create inserts one event.
func (r *EventRepository) Create(ctx context.Context, event *models.ScheduledEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	if _, err := r.db.NamedExecContext(ctx, insertEventQuery, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// ReplaceForVersion atomically swaps a version's events for a freshly
// generated set. Regeneration replaces the plan wholesale.
func (r *EventRepository) ReplaceForVersion(ctx context.Context, versionID string, events []models.ScheduledEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace events: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_events WHERE version_id = $1`, versionID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	now := time.Now().UTC()
	for i := range events {
		event := &events[i]
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		event.VersionID = versionID
		event.CreatedAt = now
		event.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertEventQuery, event); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace events: %w", err)
	}
	return nil
}

// UpdateSlot moves an event to a new day, room, and time.
func (r *EventRepository) UpdateSlot(ctx context.Context, id, day, room, startTime, endTime string) error {
	const query = `UPDATE scheduled_events SET day = $2, room = $3, start_time = $4, end_time = $5, updated_at = $6 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, day, room, startTime, endTime, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update event slot: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateProtocolist reassigns protocol duty for an event.
func (r *EventRepository) UpdateProtocolist(ctx context.Context, id, protocolistID string) error {
	const query = `UPDATE scheduled_events SET protocolist_id = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, protocolistID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update event protocolist: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cancel marks an event cancelled with a reason.
func (r *EventRepository) Cancel(ctx context.Context, id, reason string, cancelledAt time.Time) error {
	const query = `UPDATE scheduled_events SET status = $2, cancel_reason = $3, cancelled_at = $4, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, models.EventStatusCancelled, reason, cancelledAt)
	if err != nil {
		return fmt.Errorf("cancel event: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
