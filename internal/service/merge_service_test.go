package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

func newTestMergeService(exams *stubExamRepo, staff *stubStaffRepo, settings *stubSettingsRepo, events *stubEventRepo, cache *stubCache) *MergeService {
	return NewMergeService(exams, staff, settings, events, cache, validator.New(), nil, SchedulerOptions{CacheTTL: time.Minute})
}

func mergeFixture() (*stubExamRepo, *stubStaffRepo, *stubSettingsRepo, *stubEventRepo) {
	exams := &stubExamRepo{exams: []models.Exam{
		{ID: "x1", StudentName: "Alice", Degree: models.DegreeBachelor, CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2"},
		{ID: "x2", StudentName: "Bob", Degree: models.DegreeBachelor, CompetenceArea: "SE", ExaminerAID: "ex3", ExaminerBID: "ex4"},
	}}
	staff := &stubStaffRepo{members: planFixtureStaff()}
	settings := &stubSettingsRepo{config: planScheduleConfig()}
	events := &stubEventRepo{events: []models.ScheduledEvent{
		{ID: "e1", VersionID: "v1", ExamID: "x1", Day: "2026-06-01", Room: "R1", StartTime: "09:00", EndTime: "09:50", ProtocolistID: "p1", Status: models.EventStatusScheduled, Duration: 50},
		{ID: "e2", VersionID: "v1", ExamID: "x2", Day: "2026-06-01", Room: "R1", StartTime: "10:00", EndTime: "10:50", ProtocolistID: "p1", Status: models.EventStatusScheduled, Duration: 50},
	}}
	return exams, staff, settings, events
}

func TestMergeServiceValidateAccepts(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	resp, err := service.Validate(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-01",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Conflicts)
}

func TestMergeServiceRejectsDifferentDegrees(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	exams.exams[1].Degree = models.DegreeMaster
	exams.exams[1].CompetenceArea = ""
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	_, err := service.Validate(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-01",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMergeable.Code, appErrors.FromError(err).Code)
}

func TestMergeServiceRejectsCancelledSource(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	events.events[0].Status = models.EventStatusCancelled
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	_, err := service.Validate(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-01",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMergeable.Code, appErrors.FromError(err).Code)
}

func TestMergeServiceRejectsSelfMerge(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	_, err := service.Validate(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e1"},
		Day:            "2026-06-01",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMergeable.Code, appErrors.FromError(err).Code)
}

func TestMergeServiceAlternativesPreferRequestedDay(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	resp, err := service.Alternatives(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-02",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Options)
	assert.Equal(t, "2026-06-02", resp.Options[0].Day)
}

func TestMergeServiceCommitCreatesTeamSession(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	cache := newStubCache()
	service := newTestMergeService(exams, staff, settings, events, cache)

	resp, err := service.Commit(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-01",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.NoError(t, err)

	assert.True(t, resp.Exam.Team)
	assert.ElementsMatch(t, []string{"ex1", "ex2", "ex3", "ex4"}, []string(resp.Exam.TeamExaminerIDs))
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, []string(resp.Exam.TeamStudentNames))
	assert.ElementsMatch(t, []string{"x1", "x2"}, []string(resp.Exam.MergedFromIDs))

	assert.Equal(t, "09:00", resp.Event.StartTime)
	assert.Equal(t, "10:40", resp.Event.EndTime)
	assert.Equal(t, 100, resp.Event.Duration)
	assert.Equal(t, "p1", resp.Event.ProtocolistID)
	assert.True(t, resp.Event.Team)

	for _, id := range []string{"e1", "e2"} {
		ev, err := events.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.EventStatusCancelled, ev.Status)
	}
	assert.Contains(t, cache.deleted, planCacheKey("v1"))
}

func TestMergeServiceCommitMovesFollowerIntoFreedSlot(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	exams.exams = append(exams.exams, models.Exam{
		ID: "x3", StudentName: "Cara", Degree: models.DegreeBachelor,
		CompetenceArea: "QA", ExaminerAID: "ex5", ExaminerBID: "ex6",
	})
	events.events = append(events.events, models.ScheduledEvent{
		ID: "e3", VersionID: "v1", ExamID: "x3", Day: "2026-06-01", Room: "R1",
		StartTime: "14:00", EndTime: "14:50", ProtocolistID: "p1",
		Status: models.EventStatusScheduled, Duration: 50,
	})
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	// Merging into R2 frees both R1 slots; the 14:00 follower moves to 09:00.
	resp, err := service.Commit(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-01",
		Room:           "R2",
		StartTime:      "09:00",
		ProtocolistID:  "p2",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.MovedEvent)
	assert.Equal(t, "e3", resp.MovedEvent.ID)
	assert.Equal(t, "09:00", resp.MovedEvent.StartTime)
	assert.Equal(t, "09:50", resp.MovedEvent.EndTime)

	stored, err := events.FindByID(context.Background(), "e3")
	require.NoError(t, err)
	assert.Equal(t, "09:00", stored.StartTime)
}

func TestMergeServiceCommitRejectsBusyExaminers(t *testing.T) {
	exams, staff, settings, events := mergeFixture()
	exams.exams = append(exams.exams, models.Exam{
		ID: "x3", StudentName: "Cara", Degree: models.DegreeBachelor,
		CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex3",
	})
	events.events = append(events.events, models.ScheduledEvent{
		ID: "e3", VersionID: "v1", ExamID: "x3", Day: "2026-06-01", Room: "R2",
		StartTime: "09:30", EndTime: "10:20", ProtocolistID: "p2",
		Status: models.EventStatusScheduled, Duration: 50,
	})
	service := newTestMergeService(exams, staff, settings, events, newStubCache())

	_, err := service.Commit(context.Background(), "v1", dto.MergeSlotRequest{
		SourceEventIDs: []string{"e1", "e2"},
		Day:            "2026-06-01",
		Room:           "R1",
		StartTime:      "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMergeable.Code, appErrors.FromError(err).Code)
}
