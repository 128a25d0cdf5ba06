package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

const (
	importStaffSheet = "Staff"
	importExamSheet  = "Exams"
)

type importStaffRepository interface {
	ListAll(ctx context.Context) ([]models.StaffMember, error)
	Create(ctx context.Context, member *models.StaffMember) error
}

type importExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
}

// ImportService ingests the registrar's spreadsheet: a Staff sheet and an
// Exams sheet with fixed column layouts. Examiners are referenced by name and
// resolved against the roster, imported rows included.
type ImportService struct {
	staff  importStaffRepository
	exams  importExamRepository
	logger *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(staff importStaffRepository, exams importExamRepository, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{staff: staff, exams: exams, logger: logger}
}

// ImportWorkbook reads one XLSX upload and creates the staff and exams it
// describes. Rows that cannot be resolved are skipped and reported, never
// aborting the whole upload.
func (s *ImportService) ImportWorkbook(ctx context.Context, r io.Reader) (*dto.ImportSummary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is not a readable workbook")
	}
	defer f.Close()

	summary := &dto.ImportSummary{}
	namesToID, err := s.rosterNames(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.importStaff(ctx, f, namesToID, summary); err != nil {
		return nil, err
	}
	if err := s.importExams(ctx, f, namesToID, summary); err != nil {
		return nil, err
	}

	s.logger.Info("workbook imported",
		zap.Int("exams_created", summary.ExamsCreated),
		zap.Int("staff_created", summary.StaffCreated),
		zap.Int("skipped", len(summary.Skipped)))
	return summary, nil
}

func (s *ImportService) rosterNames(ctx context.Context) (map[string]string, error) {
	members, err := s.staff.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[normalizeName(m.Name)] = m.ID
	}
	return names, nil
}

// importStaff reads the Staff sheet: Name, CompetenceAreas (semicolon
// separated), Employment, ProtocolExcluded.
func (s *ImportService) importStaff(ctx context.Context, f *excelize.File, namesToID map[string]string, summary *dto.ImportSummary) error {
	rows, err := f.GetRows(importStaffSheet)
	if err != nil {
		// The sheet is optional; a workbook may carry exams only.
		return nil
	}
	for i, row := range rows {
		if i == 0 || isEmptyRow(row) {
			continue
		}
		name := cell(row, 0)
		if name == "" {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("staff row %d: missing name", i+1))
			continue
		}
		if _, exists := namesToID[normalizeName(name)]; exists {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("staff row %d: %s already on the roster", i+1, name))
			continue
		}
		employment, ok := parseEmployment(cell(row, 2))
		if !ok {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("staff row %d: unknown employment %q", i+1, cell(row, 2)))
			continue
		}

		member := &models.StaffMember{
			Name:             name,
			CompetenceAreas:  splitAreas(cell(row, 1)),
			Employment:       employment,
			ProtocolExcluded: parseFlag(cell(row, 3)),
		}
		if err := s.staff.Create(ctx, member); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff member")
		}
		namesToID[normalizeName(name)] = member.ID
		summary.StaffCreated++
	}
	return nil
}

// importExams reads the Exams sheet: StudentName, Degree, CompetenceArea,
// ExaminerA, ExaminerB. A competence area containing "integrat" marks the
// exam as integrated.
func (s *ImportService) importExams(ctx context.Context, f *excelize.File, namesToID map[string]string, summary *dto.ImportSummary) error {
	rows, err := f.GetRows(importExamSheet)
	if err != nil {
		return nil
	}
	for i, row := range rows {
		if i == 0 || isEmptyRow(row) {
			continue
		}
		student := cell(row, 0)
		if student == "" {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("exam row %d: missing student name", i+1))
			continue
		}
		degree, ok := parseDegree(cell(row, 1))
		if !ok {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("exam row %d: unknown degree %q", i+1, cell(row, 1)))
			continue
		}
		area := cell(row, 2)
		if degree == models.DegreeBachelor && area == "" {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("exam row %d: bachelor exam without competence area", i+1))
			continue
		}

		examinerA, okA := namesToID[normalizeName(cell(row, 3))]
		examinerB, okB := namesToID[normalizeName(cell(row, 4))]
		if !okA || !okB {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("exam row %d: examiner not on the roster", i+1))
			continue
		}
		if examinerA == examinerB {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("exam row %d: examiners must be distinct", i+1))
			continue
		}

		exam := &models.Exam{
			StudentName:    student,
			Degree:         degree,
			CompetenceArea: area,
			Integrated:     strings.Contains(strings.ToLower(area), "integrat"),
			ExaminerAID:    examinerA,
			ExaminerBID:    examinerB,
		}
		if err := s.exams.Create(ctx, exam); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
		}
		summary.ExamsCreated++
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func splitAreas(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	areas := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			areas = append(areas, trimmed)
		}
	}
	return areas
}

func parseEmployment(raw string) (models.EmploymentKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "INTERNAL", "":
		return models.EmploymentInternal, true
	case "EXTERNAL":
		return models.EmploymentExternal, true
	case "ADJUNCT":
		return models.EmploymentAdjunct, true
	}
	return "", false
}

func parseDegree(raw string) (models.Degree, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BACHELOR":
		return models.DegreeBachelor, true
	case "MASTER":
		return models.DegreeMaster, true
	}
	return "", false
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "1", "x":
		return true
	}
	return false
}
