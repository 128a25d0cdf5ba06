package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/models"
)

func mergeFixture(t *testing.T) (Config, *Roster, []models.Exam, []models.ScheduledEvent) {
	t.Helper()
	cfg := threeDayConfig(t)
	roster := testRoster(t,
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("ex3", "Examiner Three", "Systems"),
		internalStaff("ex4", "Examiner Four", "Systems"),
		internalStaff("p1", "Protocolist One"),
		internalStaff("p2", "Protocolist Two"),
	)
	exams := []models.Exam{
		bachelorExam("x1", "A", "AI", "ex1", "ex2"),
		bachelorExam("x2", "B", "AI", "ex3", "ex4"),
	}
	events := []models.ScheduledEvent{
		scheduledEvent("e1", "x1", "2026-06-01", "R1", "09:00", "09:50", "p1"),
		scheduledEvent("e2", "x2", "2026-06-01", "R1", "10:00", "10:50", "p2"),
	}
	return cfg, roster, exams, events
}

func mergeRequest() MergeRequest {
	return MergeRequest{
		Day:             "2026-06-01",
		Room:            "R1",
		StartTime:       "09:00",
		DurationMinutes: 100,
		ExaminerIDs:     []string{"ex1", "ex2", "ex3", "ex4"},
		ProtocolistID:   "p1",
		ExcludeEventIDs: []string{"e1", "e2"},
	}
}

func TestValidateMergeSlotAccepts(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)

	v, err := ValidateMergeSlot(mergeRequest(), events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Conflicts)
	assert.Empty(t, v.Warnings)
}

func TestValidateMergeSlotRejectsPastDayEnd(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)
	req := mergeRequest()
	req.StartTime = "17:30"

	v, err := ValidateMergeSlot(req, events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	require.NotEmpty(t, v.Conflicts)
	assert.Contains(t, v.Conflicts[0].Message, "working day")
}

func TestValidateMergeSlotRejectsOccupiedRoom(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)
	exams = append(exams, bachelorExam("x3", "C", "AI", "ex1", "ex2"))
	// A third event in the target room that is not part of the merge.
	events = append(events, scheduledEvent("e3", "x3", "2026-06-01", "R1", "10:30", "11:20", "p2"))
	req := mergeRequest()

	v, err := ValidateMergeSlot(req, events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestValidateMergeSlotRejectsBusyExaminer(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)
	exams = append(exams, bachelorExam("x3", "C", "AI", "ex3", "ex4"))
	events = append(events, scheduledEvent("e3", "x3", "2026-06-01", "R2", "09:30", "10:20", "p2"))

	v, err := ValidateMergeSlot(mergeRequest(), events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	blocked := make(map[string]bool)
	for _, c := range v.Conflicts {
		require.NotNil(t, c.StaffID)
		blocked[*c.StaffID] = true
	}
	assert.True(t, blocked["ex3"])
	assert.True(t, blocked["ex4"])
}

func TestValidateMergeSlotRejectsUnavailableProtocolist(t *testing.T) {
	cfg, _, exams, events := mergeFixture(t)
	roster := testRoster(t,
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("ex3", "Examiner Three", "Systems"),
		internalStaff("ex4", "Examiner Four", "Systems"),
		withAvailability(t, internalStaff("p1", "Protocolist One"), models.AvailabilityOverride{
			Blocks: []models.UnavailableBlock{{Date: "2026-06-01", Start: "10:00", End: "11:00"}},
		}),
		internalStaff("p2", "Protocolist Two"),
	)

	v, err := ValidateMergeSlot(mergeRequest(), events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	require.Len(t, v.Conflicts, 1)
	require.NotNil(t, v.Conflicts[0].StaffID)
	assert.Equal(t, "p1", *v.Conflicts[0].StaffID)
}

func TestValidateMergeSlotBreakRuleIsWarningOnly(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)
	// Four chained sessions for p1 earlier the same day in another room.
	for i, span := range [][2]string{{"08:00", "08:30"}, {"08:30", "09:00"}, {"09:00", "09:30"}, {"09:30", "10:00"}} {
		id := string(rune('5' + i))
		exams = append(exams, bachelorExam("x"+id, "S"+id, "AI", "ex1", "ex2"))
		events = append(events, scheduledEvent("e"+id, "x"+id, "2026-06-01", "R2", span[0], span[1], "p1"))
	}
	req := mergeRequest()
	req.StartTime = "10:05"
	req.ExaminerIDs = []string{"ex3", "ex4"}

	v, err := ValidateMergeSlot(req, events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	require.Len(t, v.Warnings, 1)
	require.NotNil(t, v.Warnings[0].StaffID)
	assert.Equal(t, "p1", *v.Warnings[0].StaffID)
}

func TestValidateMergeSlotBadClock(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)
	req := mergeRequest()
	req.StartTime = "soon"

	_, err := ValidateMergeSlot(req, events, examIndex(exams), roster, cfg)
	assert.Error(t, err)
}

func TestFindAlternativeMergeSlotsPrefersRequestedDay(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)

	options, err := FindAlternativeMergeSlots(mergeRequest(), "2026-06-02", events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, options)
	assert.LessOrEqual(t, len(options), cfg.MaxAlternatives)
	assert.Equal(t, "2026-06-02", options[0].Day)

	for _, opt := range options {
		candidate := mergeRequest()
		candidate.Day = opt.Day
		candidate.Room = opt.Room
		candidate.StartTime = opt.StartTime
		v, err := ValidateMergeSlot(candidate, events, examIndex(exams), roster, cfg)
		require.NoError(t, err)
		assert.True(t, v.Valid)
	}
}

func TestFindAlternativeMergeSlotsCapped(t *testing.T) {
	cfg, roster, exams, events := mergeFixture(t)

	options, err := FindAlternativeMergeSlots(mergeRequest(), "2026-06-01", events, examIndex(exams), roster, cfg)
	require.NoError(t, err)
	assert.Len(t, options, cfg.MaxAlternatives)
}
