package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

type stubExamRepo struct {
	exams []models.Exam
	err   error
}

func (s *stubExamRepo) ListAll(ctx context.Context) ([]models.Exam, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Exam(nil), s.exams...), nil
}

func (s *stubExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.exams {
		if s.exams[i].ID == id {
			exam := s.exams[i]
			return &exam, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	if s.err != nil {
		return s.err
	}
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	s.exams = append(s.exams, *exam)
	return nil
}

func (s *stubExamRepo) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return append([]models.Exam(nil), s.exams...), len(s.exams), nil
}

func (s *stubExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	for i := range s.exams {
		if s.exams[i].ID == exam.ID {
			s.exams[i] = *exam
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubExamRepo) Delete(ctx context.Context, id string) error {
	for i := range s.exams {
		if s.exams[i].ID == id {
			s.exams = append(s.exams[:i], s.exams[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type stubStaffRepo struct {
	members []models.StaffMember
	err     error
}

func (s *stubStaffRepo) ListAll(ctx context.Context) ([]models.StaffMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.StaffMember(nil), s.members...), nil
}

func (s *stubStaffRepo) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.members {
		if s.members[i].ID == id {
			member := s.members[i]
			return &member, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubStaffRepo) Create(ctx context.Context, member *models.StaffMember) error {
	if s.err != nil {
		return s.err
	}
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	s.members = append(s.members, *member)
	return nil
}

func (s *stubStaffRepo) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return append([]models.StaffMember(nil), s.members...), len(s.members), nil
}

func (s *stubStaffRepo) Update(ctx context.Context, member *models.StaffMember) error {
	for i := range s.members {
		if s.members[i].ID == member.ID {
			s.members[i] = *member
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubStaffRepo) UpdateAvailability(ctx context.Context, id string, availability types.JSONText, updatedAt time.Time) error {
	for i := range s.members {
		if s.members[i].ID == id {
			s.members[i].Availability = availability
			s.members[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubStaffRepo) Delete(ctx context.Context, id string) error {
	for i := range s.members {
		if s.members[i].ID == id {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type stubSettingsRepo struct {
	config   *models.ScheduleConfig
	mappings []models.RoomMapping
	err      error
}

func (s *stubSettingsRepo) GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.config == nil {
		return nil, sql.ErrNoRows
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *stubSettingsRepo) UpsertScheduleConfig(ctx context.Context, cfg *models.ScheduleConfig) error {
	if s.err != nil {
		return s.err
	}
	s.config = cfg
	return nil
}

func (s *stubSettingsRepo) ListRoomMappings(ctx context.Context) ([]models.RoomMapping, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.RoomMapping(nil), s.mappings...), nil
}

func (s *stubSettingsRepo) UpsertRoomMapping(ctx context.Context, mapping *models.RoomMapping) error {
	for i := range s.mappings {
		if s.mappings[i].CompetenceArea == mapping.CompetenceArea {
			s.mappings[i] = *mapping
			return nil
		}
	}
	s.mappings = append(s.mappings, *mapping)
	return nil
}

func (s *stubSettingsRepo) DeleteRoomMapping(ctx context.Context, competenceArea string) error {
	for i := range s.mappings {
		if s.mappings[i].CompetenceArea == competenceArea {
			s.mappings = append(s.mappings[:i], s.mappings[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type stubEventRepo struct {
	events []models.ScheduledEvent
	err    error
}

func (s *stubEventRepo) ListByVersion(ctx context.Context, versionID string) ([]models.ScheduledEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.ScheduledEvent
	for _, ev := range s.events {
		if ev.VersionID == versionID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubEventRepo) FindByID(ctx context.Context, id string) (*models.ScheduledEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.events {
		if s.events[i].ID == id {
			ev := s.events[i]
			return &ev, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubEventRepo) Create(ctx context.Context, event *models.ScheduledEvent) error {
	if s.err != nil {
		return s.err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *stubEventRepo) ReplaceForVersion(ctx context.Context, versionID string, events []models.ScheduledEvent) error {
	if s.err != nil {
		return s.err
	}
	var kept []models.ScheduledEvent
	for _, ev := range s.events {
		if ev.VersionID != versionID {
			kept = append(kept, ev)
		}
	}
	for i := range events {
		events[i].VersionID = versionID
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		kept = append(kept, events[i])
	}
	s.events = kept
	return nil
}

func (s *stubEventRepo) UpdateSlot(ctx context.Context, id, day, room, startTime, endTime string) error {
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Day = day
			s.events[i].Room = room
			s.events[i].StartTime = startTime
			s.events[i].EndTime = endTime
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubEventRepo) UpdateProtocolist(ctx context.Context, id, protocolistID string) error {
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].ProtocolistID = protocolistID
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubEventRepo) Cancel(ctx context.Context, id, reason string, cancelledAt time.Time) error {
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Status = models.EventStatusCancelled
			s.events[i].CancelReason = &reason
			s.events[i].CancelledAt = &cancelledAt
			return nil
		}
	}
	return sql.ErrNoRows
}

type stubVersionRepo struct {
	versions []models.ScheduleVersion
	err      error
}

func (s *stubVersionRepo) Create(ctx context.Context, version *models.ScheduleVersion) error {
	if s.err != nil {
		return s.err
	}
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	s.versions = append(s.versions, *version)
	return nil
}

func (s *stubVersionRepo) FindByID(ctx context.Context, id string) (*models.ScheduleVersion, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.versions {
		if s.versions[i].ID == id {
			version := s.versions[i]
			return &version, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubVersionRepo) List(ctx context.Context) ([]models.ScheduleVersion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.ScheduleVersion(nil), s.versions...), nil
}

func (s *stubVersionRepo) Publish(ctx context.Context, id string, publishedAt time.Time) error {
	found := false
	for i := range s.versions {
		if s.versions[i].ID == id {
			s.versions[i].Status = models.VersionStatusPublished
			s.versions[i].PublishedAt = &publishedAt
			found = true
		} else if s.versions[i].Status == models.VersionStatusPublished {
			s.versions[i].Status = models.VersionStatusDraft
			s.versions[i].PublishedAt = nil
		}
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

type stubCache struct {
	data    map[string][]byte
	deleted []string
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (s *stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *stubCache) Delete(ctx context.Context, key string) error {
	delete(s.data, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func planScheduleConfig() *models.ScheduleConfig {
	return &models.ScheduleConfig{
		ID:              "cfg",
		Days:            []string{"2026-06-01", "2026-06-02"},
		Rooms:           []string{"R1", "R2"},
		DayStart:        "08:00",
		DayEnd:          "18:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	}
}

func internalMember(id, name string, areas ...string) models.StaffMember {
	return models.StaffMember{ID: id, Name: name, CompetenceAreas: areas, Employment: models.EmploymentInternal}
}

func planFixtureStaff() []models.StaffMember {
	return []models.StaffMember{
		internalMember("ex1", "Dr. Adler", "AI"),
		internalMember("ex2", "Dr. Brandt", "SE"),
		internalMember("ex3", "Dr. Curie", "AI"),
		internalMember("ex4", "Dr. Dorn", "SE"),
		internalMember("p1", "Dr. Ebert", "DB"),
		internalMember("p2", "Dr. Falk", "DB"),
		internalMember("ex5", "Dr. Gruen", "QA"),
		internalMember("ex6", "Dr. Holm", "QA"),
	}
}

func newTestPlanService(exams *stubExamRepo, staff *stubStaffRepo, settings *stubSettingsRepo, events *stubEventRepo, versions *stubVersionRepo, cache *stubCache) *PlanService {
	return NewPlanService(exams, staff, settings, events, versions, cache, NewMetricsService(), validator.New(), nil, SchedulerOptions{CacheTTL: time.Minute})
}

func TestPlanServiceGenerateStoresEvents(t *testing.T) {
	exams := &stubExamRepo{exams: []models.Exam{{
		ID: "x1", StudentName: "Alice", Degree: models.DegreeBachelor,
		CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2",
	}}}
	staff := &stubStaffRepo{members: planFixtureStaff()}
	settings := &stubSettingsRepo{
		config:   planScheduleConfig(),
		mappings: []models.RoomMapping{{ID: "m1", CompetenceArea: "AI", Rooms: []string{"R1"}}},
	}
	events := &stubEventRepo{}
	versions := &stubVersionRepo{versions: []models.ScheduleVersion{{ID: "v1", Name: "draft", Status: models.VersionStatusDraft}}}
	cache := newStubCache()

	service := newTestPlanService(exams, staff, settings, events, versions, cache)
	resp, err := service.Generate(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "v1", resp.Events[0].VersionID)
	assert.Empty(t, resp.Conflicts)

	stored, err := events.ListByVersion(context.Background(), "v1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Contains(t, cache.data, planCacheKey("v1"))
}

func TestPlanServiceGenerateRejectsPublished(t *testing.T) {
	versions := &stubVersionRepo{versions: []models.ScheduleVersion{{ID: "v1", Status: models.VersionStatusPublished}}}
	service := newTestPlanService(&stubExamRepo{}, &stubStaffRepo{}, &stubSettingsRepo{config: planScheduleConfig()}, &stubEventRepo{}, versions, newStubCache())

	_, err := service.Generate(context.Background(), "v1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPublished.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceGenerateRequiresConfig(t *testing.T) {
	versions := &stubVersionRepo{versions: []models.ScheduleVersion{{ID: "v1", Status: models.VersionStatusDraft}}}
	service := newTestPlanService(&stubExamRepo{}, &stubStaffRepo{}, &stubSettingsRepo{}, &stubEventRepo{}, versions, newStubCache())

	_, err := service.Generate(context.Background(), "v1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceGetPlanUsesCache(t *testing.T) {
	cache := newStubCache()
	cached := dto.PlanResponse{Version: models.ScheduleVersion{ID: "v1", Name: "cached"}}
	require.NoError(t, cache.Set(context.Background(), planCacheKey("v1"), cached, time.Minute))

	// The version repository erroring proves the cache short-circuits.
	versions := &stubVersionRepo{err: sql.ErrConnDone}
	service := newTestPlanService(&stubExamRepo{}, &stubStaffRepo{}, &stubSettingsRepo{}, &stubEventRepo{}, versions, cache)

	resp, err := service.GetPlan(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "cached", resp.Version.Name)
}

func TestPlanServicePublishRejectsRepublish(t *testing.T) {
	versions := &stubVersionRepo{versions: []models.ScheduleVersion{{ID: "v1", Status: models.VersionStatusPublished}}}
	service := newTestPlanService(&stubExamRepo{}, &stubStaffRepo{}, &stubSettingsRepo{}, &stubEventRepo{}, versions, newStubCache())

	_, err := service.Publish(context.Background(), "v1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPublished.Code, appErrors.FromError(err).Code)
}

func TestPlanServicePublishPromotesDraft(t *testing.T) {
	versions := &stubVersionRepo{versions: []models.ScheduleVersion{
		{ID: "v1", Status: models.VersionStatusPublished},
		{ID: "v2", Status: models.VersionStatusDraft},
	}}
	service := newTestPlanService(&stubExamRepo{}, &stubStaffRepo{}, &stubSettingsRepo{}, &stubEventRepo{}, versions, newStubCache())

	version, err := service.Publish(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusPublished, version.Status)

	demoted, err := versions.FindByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusDraft, demoted.Status)
}

func TestPlanServiceCancelEventTwice(t *testing.T) {
	events := &stubEventRepo{events: []models.ScheduledEvent{{
		ID: "e1", VersionID: "v1", ExamID: "x1", Day: "2026-06-01", Room: "R1",
		StartTime: "09:00", EndTime: "09:50", Status: models.EventStatusScheduled, Duration: 50,
	}}}
	service := newTestPlanService(&stubExamRepo{}, &stubStaffRepo{}, &stubSettingsRepo{}, events, &stubVersionRepo{}, newStubCache())

	require.NoError(t, service.CancelEvent(context.Background(), "e1", dto.CancelEventRequest{Reason: "student withdrew"}))
	err := service.CancelEvent(context.Background(), "e1", dto.CancelEventRequest{Reason: "again"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceRescheduleRejectsOccupiedRoom(t *testing.T) {
	exams := &stubExamRepo{exams: []models.Exam{
		{ID: "x1", StudentName: "Alice", Degree: models.DegreeBachelor, CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2"},
		{ID: "x2", StudentName: "Bob", Degree: models.DegreeBachelor, CompetenceArea: "SE", ExaminerAID: "ex3", ExaminerBID: "ex4"},
	}}
	events := &stubEventRepo{events: []models.ScheduledEvent{
		{ID: "e1", VersionID: "v1", ExamID: "x1", Day: "2026-06-01", Room: "R1", StartTime: "09:00", EndTime: "09:50", ProtocolistID: "p1", Status: models.EventStatusScheduled, Duration: 50},
		{ID: "e2", VersionID: "v1", ExamID: "x2", Day: "2026-06-01", Room: "R2", StartTime: "09:00", EndTime: "09:50", ProtocolistID: "p2", Status: models.EventStatusScheduled, Duration: 50},
	}}
	service := newTestPlanService(exams, &stubStaffRepo{members: planFixtureStaff()}, &stubSettingsRepo{config: planScheduleConfig()}, events, &stubVersionRepo{}, newStubCache())

	_, err := service.RescheduleEvent(context.Background(), "e1", dto.RescheduleEventRequest{Day: "2026-06-01", Room: "R2", StartTime: "09:20"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceRescheduleMovesEvent(t *testing.T) {
	exams := &stubExamRepo{exams: []models.Exam{
		{ID: "x1", StudentName: "Alice", Degree: models.DegreeBachelor, CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2"},
	}}
	events := &stubEventRepo{events: []models.ScheduledEvent{
		{ID: "e1", VersionID: "v1", ExamID: "x1", Day: "2026-06-01", Room: "R1", StartTime: "09:00", EndTime: "09:50", ProtocolistID: "p1", Status: models.EventStatusScheduled, Duration: 50},
	}}
	cache := newStubCache()
	service := newTestPlanService(exams, &stubStaffRepo{members: planFixtureStaff()}, &stubSettingsRepo{config: planScheduleConfig()}, events, &stubVersionRepo{}, cache)

	moved, err := service.RescheduleEvent(context.Background(), "e1", dto.RescheduleEventRequest{Day: "2026-06-02", Room: "R2", StartTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, "2026-06-02", moved.Day)
	assert.Equal(t, "10:50", moved.EndTime)

	stored, err := events.FindByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "R2", stored.Room)
	assert.Contains(t, cache.deleted, planCacheKey("v1"))
}

func TestPlanServiceChangeProtocolistRejectsExaminer(t *testing.T) {
	exams := &stubExamRepo{exams: []models.Exam{
		{ID: "x1", StudentName: "Alice", Degree: models.DegreeBachelor, CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2"},
	}}
	events := &stubEventRepo{events: []models.ScheduledEvent{
		{ID: "e1", VersionID: "v1", ExamID: "x1", Day: "2026-06-01", Room: "R1", StartTime: "09:00", EndTime: "09:50", ProtocolistID: "p1", Status: models.EventStatusScheduled, Duration: 50},
	}}
	service := newTestPlanService(exams, &stubStaffRepo{members: planFixtureStaff()}, &stubSettingsRepo{config: planScheduleConfig()}, events, &stubVersionRepo{}, newStubCache())

	_, err := service.ChangeProtocolist(context.Background(), "e1", dto.ChangeProtocolistRequest{ProtocolistID: "ex1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceChangeProtocolistReassigns(t *testing.T) {
	exams := &stubExamRepo{exams: []models.Exam{
		{ID: "x1", StudentName: "Alice", Degree: models.DegreeBachelor, CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2"},
	}}
	events := &stubEventRepo{events: []models.ScheduledEvent{
		{ID: "e1", VersionID: "v1", ExamID: "x1", Day: "2026-06-01", Room: "R1", StartTime: "09:00", EndTime: "09:50", ProtocolistID: "p1", Status: models.EventStatusScheduled, Duration: 50},
	}}
	service := newTestPlanService(exams, &stubStaffRepo{members: planFixtureStaff()}, &stubSettingsRepo{config: planScheduleConfig()}, events, &stubVersionRepo{}, newStubCache())

	updated, err := service.ChangeProtocolist(context.Background(), "e1", dto.ChangeProtocolistRequest{ProtocolistID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.ProtocolistID)

	stored, err := events.FindByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "p2", stored.ProtocolistID)
}
