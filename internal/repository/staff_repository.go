package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/examdesk/colloquium-api/internal/models"
)

const staffColumns = `id, name, competence_areas, employment, protocol_excluded, availability, created_at, updated_at`

// StaffRepository manages persistence for staff members.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create inserts a new staff member.
func (r *StaffRepository) Create(ctx context.Context, member *models.StaffMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	const query = `INSERT INTO staff_members (id, name, competence_areas, employment, protocol_excluded, availability, created_at, updated_at)
		VALUES (:id, :name, :competence_areas, :employment, :protocol_excluded, :availability, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("create staff member: %w", err)
	}
	return nil
}

// FindByID returns a staff member by identifier.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members WHERE id = $1 LIMIT 1`, staffColumns)
	var member models.StaffMember
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff member by id: %w", err)
	}
	return &member, nil
}

// ListAll returns every staff member in stable order.
func (r *StaffRepository) ListAll(ctx context.Context) ([]models.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members ORDER BY id`, staffColumns)
	var members []models.StaffMember
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("list staff members: %w", err)
	}
	return members, nil
}

// List returns staff matching filters along with total count.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, int, error) {
	base := "FROM staff_members WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Employment != "" {
		conditions = append(conditions, fmt.Sprintf("employment = $%d", len(args)+1))
		args = append(args, filter.Employment)
	}
	if filter.ProtocolEligible != nil {
		if *filter.ProtocolEligible {
			conditions = append(conditions, "employment = 'INTERNAL' AND protocol_excluded = FALSE")
		} else {
			conditions = append(conditions, "(employment <> 'INTERNAL' OR protocol_excluded = TRUE)")
		}
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY name, id LIMIT %d OFFSET %d", staffColumns, base, size, offset)
	var members []models.StaffMember
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff members: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) " + base
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff members: %w", err)
	}
	return members, total, nil
}

// Update persists the editable staff fields.
func (r *StaffRepository) Update(ctx context.Context, member *models.StaffMember) error {
	member.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff_members SET name = :name, competence_areas = :competence_areas, employment = :employment, protocol_excluded = :protocol_excluded, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, member)
	if err != nil {
		return fmt.Errorf("update staff member: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateAvailability replaces the stored availability override.
func (r *StaffRepository) UpdateAvailability(ctx context.Context, id string, availability types.JSONText, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE staff_members SET availability = $2, updated_at = $3 WHERE id = $1`, id, availability, updatedAt)
	if err != nil {
		return fmt.Errorf("update staff availability: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a staff member.
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM staff_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff member: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
