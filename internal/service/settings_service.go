package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/engine"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

type settingsRepository interface {
	GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error)
	UpsertScheduleConfig(ctx context.Context, cfg *models.ScheduleConfig) error
	ListRoomMappings(ctx context.Context) ([]models.RoomMapping, error)
	UpsertRoomMapping(ctx context.Context, mapping *models.RoomMapping) error
	DeleteRoomMapping(ctx context.Context, competenceArea string) error
}

// SettingsService manages the planning parameters and room mappings.
type SettingsService struct {
	settings  settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
	options   SchedulerOptions
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(settings settingsRepository, validate *validator.Validate, logger *zap.Logger, options SchedulerOptions) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SettingsService{settings: settings, validator: validate, logger: logger, options: options}
}

// GetScheduleConfig returns the current planning parameters.
func (s *SettingsService) GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error) {
	cfg, err := s.settings.GetScheduleConfig(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule configuration defined")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule config")
	}
	return cfg, nil
}

// UpdateScheduleConfig replaces the planning parameters after checking they
// form a usable planning window.
func (s *SettingsService) UpdateScheduleConfig(ctx context.Context, req dto.UpdateScheduleConfigRequest) (*models.ScheduleConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid config payload")
	}

	cfg := &models.ScheduleConfig{
		Days:            req.Days,
		Rooms:           req.Rooms,
		DayStart:        req.DayStart,
		DayEnd:          req.DayEnd,
		BachelorMinutes: req.BachelorMinutes,
		MasterMinutes:   req.MasterMinutes,
	}
	if _, err := engine.NewConfig(*cfg, s.options.engineOverrides()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "configuration does not form a usable planning window")
	}

	if existing, err := s.settings.GetScheduleConfig(ctx); err == nil {
		cfg.ID = existing.ID
	}
	if err := s.settings.UpsertScheduleConfig(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule config")
	}
	s.logger.Info("schedule config updated", zap.Int("days", len(cfg.Days)), zap.Int("rooms", len(cfg.Rooms)))
	return cfg, nil
}

// ListRoomMappings returns every competence-area room mapping.
func (s *SettingsService) ListRoomMappings(ctx context.Context) ([]models.RoomMapping, error) {
	mappings, err := s.settings.ListRoomMappings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room mappings")
	}
	return mappings, nil
}

// UpsertRoomMapping creates or replaces the mapping for one competence area.
// Mapped rooms must be part of the configured room set.
func (s *SettingsService) UpsertRoomMapping(ctx context.Context, req dto.RoomMappingRequest) (*models.RoomMapping, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mapping payload")
	}

	if cfg, err := s.settings.GetScheduleConfig(ctx); err == nil {
		known := make(map[string]bool, len(cfg.Rooms))
		for _, room := range cfg.Rooms {
			known[room] = true
		}
		for _, room := range req.Rooms {
			if !known[room] {
				return nil, appErrors.Clone(appErrors.ErrValidation, "mapping references a room outside the configured room set")
			}
		}
	}

	mapping := &models.RoomMapping{CompetenceArea: req.CompetenceArea, Rooms: req.Rooms}
	if err := s.settings.UpsertRoomMapping(ctx, mapping); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store room mapping")
	}
	return mapping, nil
}

// DeleteRoomMapping removes the mapping for one competence area.
func (s *SettingsService) DeleteRoomMapping(ctx context.Context, competenceArea string) error {
	if err := s.settings.DeleteRoomMapping(ctx, competenceArea); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room mapping not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room mapping")
	}
	return nil
}
