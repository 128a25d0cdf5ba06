package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examdesk/colloquium-api/internal/models"
)

const examColumns = `id, student_name, degree, competence_area, integrated, examiner_a_id, examiner_b_id, team, team_examiner_ids, team_student_names, duration_override, merged_from_ids, created_at, updated_at`

// ExamRepository manages persistence for exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Create inserts a new exam, generating its id when absent.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (id, student_name, degree, competence_area, integrated, examiner_a_id, examiner_b_id, team, team_examiner_ids, team_student_names, duration_override, merged_from_ids, created_at, updated_at)
		VALUES (:id, :student_name, :degree, :competence_area, :integrated, :examiner_a_id, :examiner_b_id, :team, :team_examiner_ids, :team_student_names, :duration_override, :merged_from_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// FindByID returns an exam by identifier.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams WHERE id = $1 LIMIT 1`, examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam by id: %w", err)
	}
	return &exam, nil
}

// ListAll returns every exam, ordered by creation for stable planning input.
func (r *ExamRepository) ListAll(ctx context.Context) ([]models.Exam, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams ORDER BY created_at, id`, examColumns)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// List returns exams matching filters along with total count.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	base := "FROM exams WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Degree != "" {
		conditions = append(conditions, fmt.Sprintf("degree = $%d", len(args)+1))
		args = append(args, filter.Degree)
	}
	if filter.CompetenceArea != "" {
		conditions = append(conditions, fmt.Sprintf("competence_area = $%d", len(args)+1))
		args = append(args, filter.CompetenceArea)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(student_name) LIKE $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY student_name, id LIMIT %d OFFSET %d", examColumns, base, size, offset)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) " + base
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// Update persists the editable exam fields.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET student_name = :student_name, competence_area = :competence_area, integrated = :integrated, examiner_a_id = :examiner_a_id, examiner_b_id = :examiner_b_id, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, exam)
	if err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
