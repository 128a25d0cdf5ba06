package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/engine"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

type planExamRepository interface {
	ListAll(ctx context.Context) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type planStaffRepository interface {
	ListAll(ctx context.Context) ([]models.StaffMember, error)
	FindByID(ctx context.Context, id string) (*models.StaffMember, error)
}

type planSettingsRepository interface {
	GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error)
	ListRoomMappings(ctx context.Context) ([]models.RoomMapping, error)
}

type planEventRepository interface {
	ListByVersion(ctx context.Context, versionID string) ([]models.ScheduledEvent, error)
	FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error)
	ReplaceForVersion(ctx context.Context, versionID string, events []models.ScheduledEvent) error
	UpdateSlot(ctx context.Context, id, day, room, startTime, endTime string) error
	UpdateProtocolist(ctx context.Context, id, protocolistID string) error
	Cancel(ctx context.Context, id, reason string, cancelledAt time.Time) error
}

type planVersionRepository interface {
	Create(ctx context.Context, version *models.ScheduleVersion) error
	FindByID(ctx context.Context, id string) (*models.ScheduleVersion, error)
	List(ctx context.Context) ([]models.ScheduleVersion, error)
	Publish(ctx context.Context, id string, publishedAt time.Time) error
}

type planCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SchedulerOptions tunes the engine knobs and the plan read-model cache.
type SchedulerOptions struct {
	CacheTTL            time.Duration
	BreakMinutes        int
	GapToleranceMinutes int
	MaxConsecutive      int
	ScanStepMinutes     int
	MergeStepMinutes    int
	MaxAlternatives     int
}

func (o SchedulerOptions) engineOverrides() engine.Overrides {
	return engine.Overrides{
		BreakMinutes:        o.BreakMinutes,
		GapToleranceMinutes: o.GapToleranceMinutes,
		MaxConsecutive:      o.MaxConsecutive,
		ScanStepMinutes:     o.ScanStepMinutes,
		MergeStepMinutes:    o.MergeStepMinutes,
		MaxAlternatives:     o.MaxAlternatives,
	}
}

// PlanService orchestrates planning runs and event mutations for schedule
// versions. A mutex serializes every write against the event collection since
// the engine's conflict checks assume a consistent snapshot.
type PlanService struct {
	exams     planExamRepository
	staff     planStaffRepository
	settings  planSettingsRepository
	events    planEventRepository
	versions  planVersionRepository
	cache     planCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	options   SchedulerOptions

	mu sync.Mutex
}

// NewPlanService constructs a PlanService.
func NewPlanService(exams planExamRepository, staff planStaffRepository, settings planSettingsRepository, events planEventRepository, versions planVersionRepository, cache planCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, options SchedulerOptions) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if options.CacheTTL <= 0 {
		options.CacheTTL = 10 * time.Minute
	}
	return &PlanService{
		exams:     exams,
		staff:     staff,
		settings:  settings,
		events:    events,
		versions:  versions,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		options:   options,
	}
}

// CreateVersion opens a new draft version.
func (s *PlanService) CreateVersion(ctx context.Context, req dto.CreateVersionRequest) (*models.ScheduleVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid version payload")
	}
	version := &models.ScheduleVersion{Name: req.Name, Status: models.VersionStatusDraft}
	if err := s.versions.Create(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create version")
	}
	return version, nil
}

// ListVersions returns all schedule versions.
func (s *PlanService) ListVersions(ctx context.Context) ([]models.ScheduleVersion, error) {
	versions, err := s.versions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return versions, nil
}

// Generate recomputes the full plan for a draft version, replacing its events
// wholesale. Unplaceable exams do not fail the run; they come back as
// error-severity conflict reports.
func (s *PlanService) Generate(ctx context.Context, versionID string) (*dto.PlanResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.findVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status == models.VersionStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrPublished, "published versions cannot be regenerated")
	}

	inputs, err := s.loadPlanningInputs(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := engine.GenerateSchedule(inputs.exams, inputs.staff, inputs.mappings, inputs.config, versionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "planning inputs are not usable")
	}
	elapsed := time.Since(start)

	if err := s.events.ReplaceForVersion(ctx, versionID, result.Events); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store generated events")
	}

	unplaced := 0
	for _, c := range result.Conflicts {
		if c.Severity == models.SeverityError {
			unplaced++
		}
	}
	s.metrics.ObserveSchedulingRun(elapsed, len(result.Events), unplaced)
	s.logger.Info("schedule generated",
		zap.String("version_id", versionID),
		zap.Int("events", len(result.Events)),
		zap.Int("unplaced", unplaced),
		zap.Duration("elapsed", elapsed))

	response := &dto.PlanResponse{Version: *version, Events: result.Events, Conflicts: result.Conflicts}
	s.cachePlan(ctx, versionID, response)
	return response, nil
}

// GetPlan returns a version with its events, served from cache when fresh.
// Conflict reports only survive in the cached read model; they are an output
// of the last run, not stored facts.
func (s *PlanService) GetPlan(ctx context.Context, versionID string) (*dto.PlanResponse, error) {
	if s.cache != nil {
		var cached dto.PlanResponse
		lookupStart := time.Now()
		err := s.cache.Get(ctx, planCacheKey(versionID), &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(lookupStart))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("plan cache lookup failed", zap.Error(err))
		}
	}

	version, err := s.findVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	response := &dto.PlanResponse{Version: *version, Events: events}
	s.cachePlan(ctx, versionID, response)
	return response, nil
}

// Publish promotes a version, demoting any other published one.
func (s *PlanService) Publish(ctx context.Context, versionID string) (*models.ScheduleVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.findVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status == models.VersionStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrPublished, "version is already published")
	}

	now := time.Now().UTC()
	if err := s.versions.Publish(ctx, versionID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish version")
	}
	s.invalidatePlan(ctx, versionID)

	version.Status = models.VersionStatusPublished
	version.PublishedAt = &now
	return version, nil
}

// CancelEvent marks one event cancelled; the slot becomes free for merges and
// reschedules.
func (s *PlanService) CancelEvent(ctx context.Context, eventID string, req dto.CancelEventRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.Active() {
		return appErrors.Clone(appErrors.ErrConflict, "event is already cancelled")
	}

	if err := s.events.Cancel(ctx, eventID, req.Reason, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel event")
	}
	s.invalidatePlan(ctx, event.VersionID)
	return nil
}

// RescheduleEvent moves one event to a new slot after re-validating every
// constraint for its own staff set.
func (s *PlanService) RescheduleEvent(ctx context.Context, eventID string, req dto.RescheduleEventRequest) (*models.ScheduledEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Active() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cancelled events cannot be rescheduled")
	}

	exam, err := s.exams.FindByID(ctx, event.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam of the event no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	snapshot, err := s.loadEngineSnapshot(ctx, event.VersionID)
	if err != nil {
		return nil, err
	}

	validation, err := engine.ValidateMergeSlot(engine.MergeRequest{
		Day:             req.Day,
		Room:            req.Room,
		StartTime:       req.StartTime,
		DurationMinutes: event.Duration,
		ExaminerIDs:     exam.Examiners(),
		ProtocolistID:   event.ProtocolistID,
		ExcludeEventIDs: []string{event.ID},
	}, snapshot.events, snapshot.examsByID, snapshot.roster, snapshot.config)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot")
	}
	if !validation.Valid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, validation.Conflicts[0].Message)
	}

	startClock, err := engine.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	endTime := startClock.Add(event.Duration).String()
	if err := s.events.UpdateSlot(ctx, event.ID, req.Day, req.Room, req.StartTime, endTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move event")
	}
	s.invalidatePlan(ctx, event.VersionID)

	event.Day = req.Day
	event.Room = req.Room
	event.StartTime = req.StartTime
	event.EndTime = endTime
	return event, nil
}

// ChangeProtocolist reassigns protocol duty for one event, enforcing the hard
// eligibility rules.
func (s *PlanService) ChangeProtocolist(ctx context.Context, eventID string, req dto.ChangeProtocolistRequest) (*models.ScheduledEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid protocolist payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Active() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cancelled events cannot be changed")
	}

	member, err := s.staff.FindByID(ctx, req.ProtocolistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if !member.ProtocolEligible() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "staff member is not eligible for protocol duty")
	}

	exam, err := s.exams.FindByID(ctx, event.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam of the event no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	for _, id := range exam.Examiners() {
		if id == member.ID {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "examiners cannot take protocol duty on their own session")
		}
	}

	snapshot, err := s.loadEngineSnapshot(ctx, event.VersionID)
	if err != nil {
		return nil, err
	}
	start, err := engine.ParseClock(event.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored event has a malformed start time")
	}
	end := start.Add(event.Duration)
	exclude := map[string]bool{event.ID: true}
	if !snapshot.roster.StaffAvailable(member.ID, event.Day, start, end, snapshot.config) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("%s is unavailable in the event window", member.Name))
	}
	if engineHasOverlap(member.ID, event, snapshot, exclude) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("%s already has an overlapping duty", member.Name))
	}

	if err := s.events.UpdateProtocolist(ctx, event.ID, member.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign protocolist")
	}
	s.invalidatePlan(ctx, event.VersionID)

	event.ProtocolistID = member.ID
	return event, nil
}

// engineSnapshot is one consistent set of planning inputs plus the version's
// current events.
type engineSnapshot struct {
	exams     []models.Exam
	examsByID map[string]*models.Exam
	staff     []models.StaffMember
	roster    *engine.Roster
	mappings  []models.RoomMapping
	config    engine.Config
	events    []models.ScheduledEvent
}

type planningInputs struct {
	exams    []models.Exam
	staff    []models.StaffMember
	mappings []models.RoomMapping
	config   engine.Config
}

func (s *PlanService) loadPlanningInputs(ctx context.Context) (*planningInputs, error) {
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

	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	staff, err := s.staff.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	mappings, err := s.settings.ListRoomMappings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room mappings")
	}

	return &planningInputs{exams: exams, staff: staff, mappings: mappings, config: engineCfg}, nil
}

func (s *PlanService) loadEngineSnapshot(ctx context.Context, versionID string) (*engineSnapshot, error) {
	inputs, err := s.loadPlanningInputs(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := engine.NewRoster(inputs.staff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "staff availability data is not usable")
	}
	events, err := s.events.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	examsByID := make(map[string]*models.Exam, len(inputs.exams))
	for i := range inputs.exams {
		examsByID[inputs.exams[i].ID] = &inputs.exams[i]
	}
	return &engineSnapshot{
		exams:     inputs.exams,
		examsByID: examsByID,
		staff:     inputs.staff,
		roster:    roster,
		mappings:  inputs.mappings,
		config:    inputs.config,
		events:    events,
	}, nil
}

func (s *PlanService) findVersion(ctx context.Context, id string) (*models.ScheduleVersion, error) {
	version, err := s.versions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}
	return version, nil
}

func (s *PlanService) findEvent(ctx context.Context, id string) (*models.ScheduledEvent, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *PlanService) cachePlan(ctx context.Context, versionID string, response *dto.PlanResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, planCacheKey(versionID), response, s.options.CacheTTL); err != nil {
		s.logger.Warn("failed to cache plan", zap.String("version_id", versionID), zap.Error(err))
	}
}

func (s *PlanService) invalidatePlan(ctx context.Context, versionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, planCacheKey(versionID)); err != nil {
		s.logger.Warn("failed to invalidate plan cache", zap.String("version_id", versionID), zap.Error(err))
	}
}

func planCacheKey(versionID string) string {
	return "plan:" + versionID
}

// engineHasOverlap checks whether the staff member has any duty overlapping
// the event's window, ignoring the event itself.
func engineHasOverlap(staffID string, event *models.ScheduledEvent, snapshot *engineSnapshot, exclude map[string]bool) bool {
	start, err := engine.ParseClock(event.StartTime)
	if err != nil {
		return false
	}
	validation, err := engine.ValidateMergeSlot(engine.MergeRequest{
		Day:             event.Day,
		Room:            event.Room,
		StartTime:       start.String(),
		DurationMinutes: event.Duration,
		ExaminerIDs:     nil,
		ProtocolistID:   staffID,
		ExcludeEventIDs: keys(exclude),
	}, snapshot.events, snapshot.examsByID, snapshot.roster, snapshot.config)
	if err != nil {
		return false
	}
	for _, c := range validation.Conflicts {
		if c.StaffID != nil && *c.StaffID == staffID {
			return true
		}
	}
	return false
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
