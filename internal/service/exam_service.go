package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

type examRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type examStaffLookup interface {
	FindByID(ctx context.Context, id string) (*models.StaffMember, error)
}

// ExamService manages the exam collection.
type ExamService struct {
	exams     examRepository
	staff     examStaffLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(exams examRepository, staff examStaffLookup, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{exams: exams, staff: staff, validator: validate, logger: logger}
}

// Create registers one colloquium. Both examiners must exist on the roster
// and be distinct; bachelor exams must carry a competence area.
func (s *ExamService) Create(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if err := s.checkExaminers(ctx, req.ExaminerAID, req.ExaminerBID); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		StudentName:    req.StudentName,
		Degree:         models.Degree(req.Degree),
		CompetenceArea: req.CompetenceArea,
		Integrated:     req.Integrated,
		ExaminerAID:    req.ExaminerAID,
		ExaminerBID:    req.ExaminerBID,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	s.logger.Info("exam created", zap.String("exam_id", exam.ID), zap.String("degree", string(exam.Degree)))
	return exam, nil
}

// GetByID returns one exam.
func (s *ExamService) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// List returns exams matching the filter with pagination metadata.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, *models.Pagination, error) {
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return exams, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update mutates the editable fields of one exam. Synthetic team exams are
// read-only; they only exist as merge products.
func (s *ExamService) Update(ctx context.Context, id string, req dto.UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.Team {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "team exams cannot be edited")
	}

	if req.StudentName != nil {
		exam.StudentName = *req.StudentName
	}
	if req.CompetenceArea != nil {
		exam.CompetenceArea = *req.CompetenceArea
	}
	if req.Integrated != nil {
		exam.Integrated = *req.Integrated
	}
	if req.ExaminerAID != nil {
		exam.ExaminerAID = *req.ExaminerAID
	}
	if req.ExaminerBID != nil {
		exam.ExaminerBID = *req.ExaminerBID
	}
	if exam.Degree == models.DegreeBachelor && exam.CompetenceArea == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bachelor exams require a competence area")
	}
	if err := s.checkExaminers(ctx, exam.ExaminerAID, exam.ExaminerBID); err != nil {
		return nil, err
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes one exam.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	s.logger.Info("exam deleted", zap.String("exam_id", id))
	return nil
}

func (s *ExamService) checkExaminers(ctx context.Context, examinerA, examinerB string) error {
	if examinerA == examinerB {
		return appErrors.Clone(appErrors.ErrValidation, "an exam needs two distinct examiners")
	}
	for _, id := range []string{examinerA, examinerB} {
		if _, err := s.staff.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "examiner is not on the staff roster")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
		}
	}
	return nil
}
