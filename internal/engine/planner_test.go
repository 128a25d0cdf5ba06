package engine

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/models"
)

func TestGenerateScheduleSingleExam(t *testing.T) {
	cfg := testConfig(t, models.ScheduleConfig{
		Days:            pq.StringArray{"2026-06-01"},
		Rooms:           pq.StringArray{"R1"},
		DayStart:        "09:00",
		DayEnd:          "10:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
	staff := []models.StaffMember{
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("p1", "Protocolist"),
	}
	exams := []models.Exam{bachelorExam("x1", "Student", "AI", "ex1", "ex2")}
	mappings := []models.RoomMapping{{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}}}

	result, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	ev := result.Events[0]
	assert.Equal(t, "x1", ev.ExamID)
	assert.Equal(t, "v1", ev.VersionID)
	assert.Equal(t, "2026-06-01", ev.Day)
	assert.Equal(t, "R1", ev.Room)
	assert.Equal(t, "09:00", ev.StartTime)
	assert.Equal(t, "09:50", ev.EndTime)
	assert.Equal(t, "p1", ev.ProtocolistID)
	assert.Equal(t, models.EventStatusScheduled, ev.Status)
	assert.Empty(t, result.Conflicts)
}

func TestGenerateScheduleUnplaceableWithoutRooms(t *testing.T) {
	cfg := threeDayConfig(t)
	staff := []models.StaffMember{
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("p1", "Protocolist"),
	}
	exams := []models.Exam{bachelorExam("x1", "Student", "AI", "ex1", "ex2")}

	result, err := GenerateSchedule(exams, staff, nil, cfg, "v1")
	require.NoError(t, err)
	assert.Empty(t, result.Events)

	var errorReports []models.ConflictReport
	for _, c := range result.Conflicts {
		if c.Severity == models.SeverityError {
			errorReports = append(errorReports, c)
		}
	}
	require.Len(t, errorReports, 1)
	require.NotNil(t, errorReports[0].ExamID)
	assert.Equal(t, "x1", *errorReports[0].ExamID)
}

func TestGenerateScheduleNamesBlockingStaff(t *testing.T) {
	cfg := testConfig(t, models.ScheduleConfig{
		Days:            pq.StringArray{"2026-06-01"},
		Rooms:           pq.StringArray{"R1"},
		DayStart:        "09:00",
		DayEnd:          "12:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
	blocked := withAvailability(t, internalStaff("ex1", "Blocked", "AI"), models.AvailabilityOverride{
		Blocks: []models.UnavailableBlock{{Date: "2026-06-01", Start: "09:00", End: "12:00"}},
	})
	staff := []models.StaffMember{
		blocked,
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("p1", "Protocolist"),
	}
	exams := []models.Exam{bachelorExam("x1", "Student", "AI", "ex1", "ex2")}
	mappings := []models.RoomMapping{{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}}}

	result, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)
	assert.Empty(t, result.Events)

	var report *models.ConflictReport
	for i := range result.Conflicts {
		if result.Conflicts[i].Severity == models.SeverityError {
			report = &result.Conflicts[i]
		}
	}
	require.NotNil(t, report)
	require.NotNil(t, report.StaffID)
	assert.Equal(t, "ex1", *report.StaffID)
}

func TestGenerateScheduleNoDoubleBooking(t *testing.T) {
	cfg := threeDayConfig(t)
	staff := []models.StaffMember{
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("ex3", "Examiner Three", "Systems"),
		internalStaff("p1", "Protocolist One"),
		internalStaff("p2", "Protocolist Two"),
	}
	// All exams share examiner ex1 so every placement competes for the same
	// person.
	exams := []models.Exam{
		bachelorExam("x1", "A", "AI", "ex1", "ex2"),
		bachelorExam("x2", "B", "AI", "ex1", "ex3"),
		bachelorExam("x3", "C", "Systems", "ex1", "ex2"),
		masterExam("x4", "D", "ex1", "ex3"),
	}
	mappings := []models.RoomMapping{
		{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}},
		{ID: "m2", CompetenceArea: "Systems", Rooms: pq.StringArray{"R2"}},
	}

	result, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)
	assert.Len(t, result.Events, 4)

	examsByID := examIndex(exams)
	for i := range result.Events {
		for j := i + 1; j < len(result.Events); j++ {
			a, b := &result.Events[i], &result.Events[j]
			if a.Day != b.Day {
				continue
			}
			aStart, aEnd := clock(t, a.StartTime), clock(t, a.EndTime)
			bStart, bEnd := clock(t, b.StartTime), clock(t, b.EndTime)
			if a.Room == b.Room {
				assert.False(t, overlaps(aStart, aEnd, bStart, bEnd),
					"room %s double-booked: %s and %s", a.Room, a.ExamID, b.ExamID)
			}
			for _, id := range append(examsByID[a.ExamID].Examiners(), a.ProtocolistID) {
				if eventInvolvesStaff(b, id, examsByID) {
					assert.False(t, overlaps(aStart, aEnd, bStart, bEnd),
						"staff %s double-booked: %s and %s", id, a.ExamID, b.ExamID)
				}
			}
		}
	}

	// Protocolists are internal, not excluded, and never examine their own
	// session.
	for i := range result.Events {
		ev := &result.Events[i]
		assert.NotContains(t, examsByID[ev.ExamID].Examiners(), ev.ProtocolistID)
	}
}

func TestGenerateScheduleDeterministic(t *testing.T) {
	cfg := threeDayConfig(t)
	staff := []models.StaffMember{
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "Systems"),
		internalStaff("p1", "Protocolist One"),
		internalStaff("p2", "Protocolist Two"),
	}
	exams := []models.Exam{
		bachelorExam("x1", "A", "AI", "ex1", "ex2"),
		bachelorExam("x2", "B", "Systems", "ex2", "ex1"),
		masterExam("x3", "C", "ex1", "ex2"),
	}
	mappings := []models.RoomMapping{
		{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}},
		{ID: "m2", CompetenceArea: "Systems", Rooms: pq.StringArray{"R2"}},
	}

	first, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)
	second, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)

	assert.Equal(t, placements(first.Events), placements(second.Events))
	assert.Equal(t, first.Conflicts, second.Conflicts)
}

func TestGenerateScheduleMasterPlacedFirst(t *testing.T) {
	cfg := testConfig(t, models.ScheduleConfig{
		Days:            pq.StringArray{"2026-06-01"},
		Rooms:           pq.StringArray{"R1"},
		DayStart:        "09:00",
		DayEnd:          "12:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
	staff := []models.StaffMember{
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("p1", "Protocolist One"),
		internalStaff("p2", "Protocolist Two"),
	}
	exams := []models.Exam{
		bachelorExam("x1", "A", "AI", "ex1", "ex2"),
		masterExam("x2", "B", "ex1", "ex2"),
	}
	mappings := []models.RoomMapping{{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}}}

	result, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)
	require.Len(t, result.Events, 2)

	byExam := make(map[string]models.ScheduledEvent)
	for _, ev := range result.Events {
		byExam[ev.ExamID] = ev
	}
	// The master colloquium got the first pick of the day.
	assert.Equal(t, "09:00", byExam["x2"].StartTime)
	assert.True(t, clock(t, byExam["x1"].StartTime) >= clock(t, byExam["x2"].EndTime))
}

func TestGenerateScheduleEmptyDayWarning(t *testing.T) {
	cfg := threeDayConfig(t)
	staff := []models.StaffMember{
		internalStaff("ex1", "Examiner One", "AI"),
		internalStaff("ex2", "Examiner Two", "AI"),
		internalStaff("p1", "Protocolist"),
	}
	exams := []models.Exam{bachelorExam("x1", "A", "AI", "ex1", "ex2")}
	mappings := []models.RoomMapping{{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}}}

	result, err := GenerateSchedule(exams, staff, mappings, cfg, "v1")
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	warnings := 0
	for _, c := range result.Conflicts {
		if c.Severity == models.SeverityWarning {
			warnings++
		}
	}
	// One exam fills one day of three, the other two are flagged.
	assert.Equal(t, 2, warnings)
}

func placements(events []models.ScheduledEvent) []string {
	keys := make([]string, 0, len(events))
	for i := range events {
		ev := &events[i]
		keys = append(keys, fmt.Sprintf("%s|%s|%s|%s|%s|%s",
			ev.ExamID, ev.Day, ev.Room, ev.StartTime, ev.EndTime, ev.ProtocolistID))
	}
	return keys
}
