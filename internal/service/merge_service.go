package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/engine"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

type mergeExamRepository interface {
	ListAll(ctx context.Context) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
}

type mergeEventRepository interface {
	ListByVersion(ctx context.Context, versionID string) ([]models.ScheduledEvent, error)
	FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error)
	Create(ctx context.Context, event *models.ScheduledEvent) error
	UpdateSlot(ctx context.Context, id, day, room, startTime, endTime string) error
	Cancel(ctx context.Context, id, reason string, cancelledAt time.Time) error
}

const mergeCancelReason = "merged into team session"

// MergeService validates and commits the combination of two single sessions
// into one team session, including the post-merge gap repair.
type MergeService struct {
	exams     mergeExamRepository
	staff     planStaffRepository
	settings  planSettingsRepository
	events    mergeEventRepository
	cache     planCache
	validator *validator.Validate
	logger    *zap.Logger
	options   SchedulerOptions

	mu sync.Mutex
}

// NewMergeService constructs a MergeService.
func NewMergeService(exams mergeExamRepository, staff planStaffRepository, settings planSettingsRepository, events mergeEventRepository, cache planCache, validate *validator.Validate, logger *zap.Logger, options SchedulerOptions) *MergeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MergeService{
		exams:     exams,
		staff:     staff,
		settings:  settings,
		events:    events,
		cache:     cache,
		validator: validate,
		logger:    logger,
		options:   options,
	}
}

// mergeContext bundles everything a merge operation needs after the source
// events passed the structural checks.
type mergeContext struct {
	versionID string
	sourceA   *models.ScheduledEvent
	sourceB   *models.ScheduledEvent
	examA     *models.Exam
	examB     *models.Exam
	pool      []string
	duration  int
	request   engine.MergeRequest
	events    []models.ScheduledEvent
	examsByID map[string]*models.Exam
	roster    *engine.Roster
	config    engine.Config
}

// Validate checks whether the two source events can be merged at the
// requested slot.
func (s *MergeService) Validate(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*dto.MergeValidationResponse, error) {
	mc, err := s.prepare(ctx, versionID, req)
	if err != nil {
		return nil, err
	}
	v, err := engine.ValidateMergeSlot(mc.request, mc.events, mc.examsByID, mc.roster, mc.config)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot")
	}
	return &dto.MergeValidationResponse{Valid: v.Valid, Conflicts: v.Conflicts, Warnings: v.Warnings}, nil
}

// Alternatives lists up to the configured number of valid slots for the
// merge, preferring the requested day.
func (s *MergeService) Alternatives(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*dto.MergeAlternativesResponse, error) {
	mc, err := s.prepare(ctx, versionID, req)
	if err != nil {
		return nil, err
	}
	options, err := engine.FindAlternativeMergeSlots(mc.request, req.Day, mc.events, mc.examsByID, mc.roster, mc.config)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot")
	}
	out := make([]dto.MergeSlotOption, 0, len(options))
	for _, o := range options {
		out = append(out, dto.MergeSlotOption{Day: o.Day, Room: o.Room, StartTime: o.StartTime, EndTime: o.EndTime, Warnings: o.Warnings})
	}
	return &dto.MergeAlternativesResponse{Options: out}, nil
}

// Commit performs the merge: it creates the synthetic team exam, cancels both
// source events, schedules the merged session, and tries to pull a follower
// forward into the freed slot.
func (s *MergeService) Commit(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*dto.MergeCommitResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, err := s.prepare(ctx, versionID, req)
	if err != nil {
		return nil, err
	}
	v, err := engine.ValidateMergeSlot(mc.request, mc.events, mc.examsByID, mc.roster, mc.config)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot")
	}
	if !v.Valid {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, v.Conflicts[0].Message)
	}

	teamExam := s.buildTeamExam(mc)
	if err := s.exams.Create(ctx, teamExam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team exam")
	}

	now := time.Now().UTC()
	for _, src := range []*models.ScheduledEvent{mc.sourceA, mc.sourceB} {
		if err := s.events.Cancel(ctx, src.ID, mergeCancelReason, now); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel source event")
		}
	}

	start, _ := engine.ParseClock(req.StartTime)
	merged := &models.ScheduledEvent{
		ID:            uuid.NewString(),
		VersionID:     versionID,
		ExamID:        teamExam.ID,
		Day:           req.Day,
		Room:          req.Room,
		StartTime:     start.String(),
		EndTime:       start.Add(mc.duration).String(),
		ProtocolistID: mc.request.ProtocolistID,
		Status:        models.EventStatusScheduled,
		Team:          true,
		Duration:      mc.duration,
	}
	if err := s.events.Create(ctx, merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create merged event")
	}

	movedEvent, err := s.repairFreedSlot(ctx, mc, merged)
	if err != nil {
		s.logger.Warn("post-merge repair failed", zap.String("version_id", versionID), zap.Error(err))
	}

	s.invalidatePlan(ctx, versionID)
	s.logger.Info("merge committed",
		zap.String("version_id", versionID),
		zap.String("team_exam_id", teamExam.ID),
		zap.String("event_id", merged.ID),
		zap.Bool("follower_moved", movedEvent != nil))

	return &dto.MergeCommitResponse{Exam: *teamExam, Event: *merged, MovedEvent: movedEvent, Warnings: v.Warnings}, nil
}

// prepare validates the payload, loads both source events and their exams,
// enforces the structural merge rules, and assembles the engine inputs.
func (s *MergeService) prepare(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*mergeContext, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid merge payload")
	}
	if req.SourceEventIDs[0] == req.SourceEventIDs[1] {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "an event cannot be merged with itself")
	}

	sourceA, err := s.findSourceEvent(ctx, versionID, req.SourceEventIDs[0])
	if err != nil {
		return nil, err
	}
	sourceB, err := s.findSourceEvent(ctx, versionID, req.SourceEventIDs[1])
	if err != nil {
		return nil, err
	}

	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	examsByID := make(map[string]*models.Exam, len(exams))
	for i := range exams {
		examsByID[exams[i].ID] = &exams[i]
	}

	examA, examB := examsByID[sourceA.ExamID], examsByID[sourceB.ExamID]
	if examA == nil || examB == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam of a source event no longer exists")
	}
	if examA.Team || examB.Team {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "team sessions cannot be merged again")
	}
	if examA.Degree != examB.Degree {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "only exams of the same degree can be merged")
	}

	pool := dedupe(append(append([]string(nil), examA.Examiners()...), examB.Examiners()...))
	if len(pool) > 4 {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "combined examiner pool exceeds four members")
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

	staff, err := s.staff.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	roster, err := engine.NewRoster(staff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "staff availability data is not usable")
	}

	events, err := s.events.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	duration := examA.EffectiveDuration(sc.Durations()) * 2
	protocolist := req.ProtocolistID
	if protocolist == "" {
		protocolist = sourceA.ProtocolistID
	}
	if err := s.checkProtocolist(protocolist, pool, roster); err != nil {
		return nil, err
	}

	return &mergeContext{
		versionID: versionID,
		sourceA:   sourceA,
		sourceB:   sourceB,
		examA:     examA,
		examB:     examB,
		pool:      pool,
		duration:  duration,
		request: engine.MergeRequest{
			Day:             req.Day,
			Room:            req.Room,
			StartTime:       req.StartTime,
			DurationMinutes: duration,
			ExaminerIDs:     pool,
			ProtocolistID:   protocolist,
			ExcludeEventIDs: []string{sourceA.ID, sourceB.ID},
		},
		events:    events,
		examsByID: examsByID,
		roster:    roster,
		config:    engineCfg,
	}, nil
}

func (s *MergeService) findSourceEvent(ctx context.Context, versionID, id string) (*models.ScheduledEvent, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("event %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.VersionID != versionID {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "source events must belong to the requested version")
	}
	if !event.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "cancelled events cannot be merged")
	}
	if event.Team {
		return nil, appErrors.Clone(appErrors.ErrNotMergeable, "team sessions cannot be merged again")
	}
	return event, nil
}

func (s *MergeService) checkProtocolist(id string, pool []string, roster *engine.Roster) error {
	member := roster.Get(id)
	if member == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "protocolist is not on the staff roster")
	}
	if !member.ProtocolEligible() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "protocolist is not eligible for protocol duty")
	}
	for _, examiner := range pool {
		if examiner == id {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "an examiner of the merged session cannot take protocol duty")
		}
	}
	return nil
}

func (s *MergeService) buildTeamExam(mc *mergeContext) *models.Exam {
	names := []string{mc.examA.StudentName, mc.examB.StudentName}
	return &models.Exam{
		ID:               uuid.NewString(),
		StudentName:      strings.Join(names, " & "),
		Degree:           mc.examA.Degree,
		CompetenceArea:   mc.examA.CompetenceArea,
		Integrated:       mc.examA.Integrated || mc.examB.Integrated,
		ExaminerAID:      mc.examA.ExaminerAID,
		ExaminerBID:      mc.examA.ExaminerBID,
		Team:             true,
		TeamExaminerIDs:  mc.pool,
		TeamStudentNames: names,
		MergedFromIDs:    []string{mc.examA.ID, mc.examB.ID},
	}
}

// repairFreedSlot runs the gap repair on the earliest source slot the merged
// session does not reuse and persists the move when one validates.
func (s *MergeService) repairFreedSlot(ctx context.Context, mc *mergeContext, merged *models.ScheduledEvent) (*models.ScheduledEvent, error) {
	freed := freedSlots(mc, merged)
	if len(freed) == 0 {
		return nil, nil
	}

	// Rebuild the event list as it stands after the commit.
	after := make([]models.ScheduledEvent, 0, len(mc.events)+1)
	for _, ev := range mc.events {
		if ev.ID == mc.sourceA.ID || ev.ID == mc.sourceB.ID {
			ev.Status = models.EventStatusCancelled
		}
		after = append(after, ev)
	}
	after = append(after, *merged)
	mc.examsByID[merged.ExamID] = s.buildTeamExamView(mc, merged)

	moved, err := engine.ReoptimizeAfterMerge(freed[0], after, mc.examsByID, mc.roster, mc.config)
	if err != nil || moved == nil {
		return nil, err
	}
	if err := s.events.UpdateSlot(ctx, moved.ID, moved.Day, moved.Room, moved.StartTime, moved.EndTime); err != nil {
		return nil, err
	}
	return moved, nil
}

// buildTeamExamView returns the in-memory exam record matching the merged
// event so repair validation sees its examiner pool.
func (s *MergeService) buildTeamExamView(mc *mergeContext, merged *models.ScheduledEvent) *models.Exam {
	exam := s.buildTeamExam(mc)
	exam.ID = merged.ExamID
	return exam
}

// freedSlots lists the source slots the merged session does not occupy,
// earliest first.
func freedSlots(mc *mergeContext, merged *models.ScheduledEvent) []engine.FreedSlot {
	var freed []engine.FreedSlot
	for _, src := range []*models.ScheduledEvent{mc.sourceA, mc.sourceB} {
		if src.Day == merged.Day && src.Room == merged.Room && src.StartTime == merged.StartTime {
			continue
		}
		freed = append(freed, engine.FreedSlot{Day: src.Day, Room: src.Room, StartTime: src.StartTime})
	}
	sort.Slice(freed, func(i, j int) bool {
		if freed[i].Day != freed[j].Day {
			return freed[i].Day < freed[j].Day
		}
		if freed[i].StartTime != freed[j].StartTime {
			return freed[i].StartTime < freed[j].StartTime
		}
		return freed[i].Room < freed[j].Room
	})
	return freed
}

func (s *MergeService) invalidatePlan(ctx context.Context, versionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, planCacheKey(versionID)); err != nil {
		s.logger.Warn("failed to invalidate plan cache", zap.String("version_id", versionID), zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
