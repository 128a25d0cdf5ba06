package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/models"
	"github.com/examdesk/colloquium-api/pkg/export"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportFile is one rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportVersionLookup interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleVersion, error)
}

type exportEventLookup interface {
	ListByVersion(ctx context.Context, versionID string) ([]models.ScheduledEvent, error)
}

type exportExamLookup interface {
	ListAll(ctx context.Context) ([]models.Exam, error)
}

type exportStaffLookup interface {
	ListAll(ctx context.Context) ([]models.StaffMember, error)
}

// ExportConfig tunes export rendering.
type ExportConfig struct {
	PDFTitle string
}

// ExportService renders a version's plan as CSV, XLSX, or PDF.
type ExportService struct {
	versions exportVersionLookup
	events   exportEventLookup
	exams    exportExamLookup
	staff    exportStaffLookup
	csv      csvRenderer
	xlsx     xlsxRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(versions exportVersionLookup, events exportEventLookup, exams exportExamLookup, staff exportStaffLookup, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, xlsx xlsxRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PDFTitle == "" {
		cfg.PDFTitle = "Colloquium Plan"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		versions: versions,
		events:   events,
		exams:    exams,
		staff:    staff,
		csv:      csv,
		xlsx:     xlsx,
		pdf:      pdf,
		logger:   logger,
		cfg:      cfg,
	}
}

var planExportHeaders = []string{"Day", "Start", "End", "Room", "Student(s)", "Degree", "Team", "Examiners", "Protocolist", "Status"}

// ExportPlan renders the active events of one version in the requested format.
func (s *ExportService) ExportPlan(ctx context.Context, versionID string, format ExportFormat) (*ExportFile, error) {
	version, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule version not found")
	}

	dataset, err := s.buildPlanDataset(ctx, versionID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s: %s", s.cfg.PDFTitle, version.Name)
	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, "Plan")
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("plan_%s_%s.%s", sanitizeFilename(version.Name), time.Now().UTC().Format("20060102_150405"), format)
	s.logger.Info("plan exported", zap.String("version_id", versionID), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return &ExportFile{Filename: filename, ContentType: contentType, Data: payload}, nil
}

func (s *ExportService) buildPlanDataset(ctx context.Context, versionID string) (export.Dataset, error) {
	events, err := s.events.ListByVersion(ctx, versionID)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	staff, err := s.staff.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}

	examsByID := make(map[string]*models.Exam, len(exams))
	for i := range exams {
		examsByID[exams[i].ID] = &exams[i]
	}
	namesByID := make(map[string]string, len(staff))
	for i := range staff {
		namesByID[staff[i].ID] = staff[i].Name
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Day != events[j].Day {
			return events[i].Day < events[j].Day
		}
		if events[i].StartTime != events[j].StartTime {
			return events[i].StartTime < events[j].StartTime
		}
		return events[i].Room < events[j].Room
	})

	rows := make([]map[string]string, 0, len(events))
	for i := range events {
		ev := &events[i]
		if !ev.Active() {
			continue
		}
		row := map[string]string{
			"Day":         ev.Day,
			"Start":       ev.StartTime,
			"End":         ev.EndTime,
			"Room":        ev.Room,
			"Team":        boolLabel(ev.Team),
			"Protocolist": staffLabel(namesByID, ev.ProtocolistID),
			"Status":      string(ev.Status),
		}
		if exam := examsByID[ev.ExamID]; exam != nil {
			row["Student(s)"] = exam.StudentName
			row["Degree"] = string(exam.Degree)
			names := make([]string, 0, 4)
			for _, id := range exam.Examiners() {
				names = append(names, staffLabel(namesByID, id))
			}
			row["Examiners"] = strings.Join(names, ", ")
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: planExportHeaders, Rows: rows}, nil
}

func staffLabel(namesByID map[string]string, id string) string {
	if name, ok := namesByID[id]; ok {
		return name
	}
	return id
}

func boolLabel(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
