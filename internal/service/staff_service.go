package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/engine"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

type staffRepository interface {
	Create(ctx context.Context, member *models.StaffMember) error
	FindByID(ctx context.Context, id string) (*models.StaffMember, error)
	List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, int, error)
	Update(ctx context.Context, member *models.StaffMember) error
	UpdateAvailability(ctx context.Context, id string, availability types.JSONText, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type staffSettingsLookup interface {
	GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error)
}

// StaffService manages the staff roster and availability overrides.
type StaffService struct {
	staff     staffRepository
	settings  staffSettingsLookup
	validator *validator.Validate
	logger    *zap.Logger
	options   SchedulerOptions
}

// NewStaffService constructs a StaffService.
func NewStaffService(staff staffRepository, settings staffSettingsLookup, validate *validator.Validate, logger *zap.Logger, options SchedulerOptions) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{staff: staff, settings: settings, validator: validate, logger: logger, options: options}
}

// Create registers one staff member.
func (s *StaffService) Create(ctx context.Context, req dto.CreateStaffRequest) (*models.StaffMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	member := &models.StaffMember{
		Name:             req.Name,
		CompetenceAreas:  req.CompetenceAreas,
		Employment:       models.EmploymentKind(req.Employment),
		ProtocolExcluded: req.ProtocolExcluded,
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff member")
	}
	s.logger.Info("staff member created", zap.String("staff_id", member.ID), zap.String("employment", string(member.Employment)))
	return member, nil
}

// GetByID returns one staff member.
func (s *StaffService) GetByID(ctx context.Context, id string) (*models.StaffMember, error) {
	member, err := s.staff.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	return member, nil
}

// List returns staff matching the filter with pagination metadata.
func (s *StaffService) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, *models.Pagination, error) {
	members, total, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return members, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update mutates the editable staff fields.
func (s *StaffService) Update(ctx context.Context, id string, req dto.UpdateStaffRequest) (*models.StaffMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		member.Name = *req.Name
	}
	if req.CompetenceAreas != nil {
		member.CompetenceAreas = req.CompetenceAreas
	}
	if req.Employment != nil {
		member.Employment = models.EmploymentKind(*req.Employment)
	}
	if req.ProtocolExcluded != nil {
		member.ProtocolExcluded = *req.ProtocolExcluded
	}

	if err := s.staff.Update(ctx, member); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update staff member")
	}
	return member, nil
}

// UpdateAvailability replaces the availability override. An empty payload
// clears every restriction.
func (s *StaffService) UpdateAvailability(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*models.StaffMember, error) {
	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	override := models.AvailabilityOverride{Days: req.Days, DayWindows: req.DayWindows, Blocks: req.Blocks}
	var payload types.JSONText
	if !override.IsEmpty() {
		raw, err := json.Marshal(override)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
		}
		payload = raw
	}

	now := time.Now().UTC()
	if err := s.staff.UpdateAvailability(ctx, id, payload, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}

	member.Availability = payload
	member.UpdatedAt = now
	return member, nil
}

// CheckAvailability answers the what-if question for one slot against the
// current planning window.
func (s *StaffService) CheckAvailability(ctx context.Context, id string, req dto.AvailabilityCheckRequest) (*dto.AvailabilityCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}

	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sc, err := s.settings.GetScheduleConfig(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no schedule configuration defined")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule config")
	}
	engineCfg, err := engine.NewConfig(*sc, s.options.engineOverrides())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "schedule configuration is not usable")
	}

	available, err := engine.IsStaffAvailableForSlot(member, req.Day, req.StartTime, req.DurationMinutes, engineCfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot")
	}

	start, err := engine.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	return &dto.AvailabilityCheckResponse{
		StaffID:   member.ID,
		Day:       req.Day,
		StartTime: start.String(),
		EndTime:   start.Add(req.DurationMinutes).String(),
		Available: available,
	}, nil
}

// Delete removes a staff member from the roster.
func (s *StaffService) Delete(ctx context.Context, id string) error {
	if err := s.staff.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete staff member")
	}
	s.logger.Info("staff member deleted", zap.String("staff_id", id))
	return nil
}
