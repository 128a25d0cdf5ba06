package engine

import (
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/models"
)

func testConfig(t *testing.T, sc models.ScheduleConfig) Config {
	t.Helper()
	cfg, err := NewConfig(sc, Overrides{})
	require.NoError(t, err)
	return cfg
}

func threeDayConfig(t *testing.T) Config {
	return testConfig(t, models.ScheduleConfig{
		Days:            pq.StringArray{"2026-06-01", "2026-06-02", "2026-06-03"},
		Rooms:           pq.StringArray{"R1", "R2"},
		DayStart:        "08:00",
		DayEnd:          "18:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
}

func internalStaff(id, name string, areas ...string) models.StaffMember {
	return models.StaffMember{
		ID:              id,
		Name:            name,
		Employment:      models.EmploymentInternal,
		CompetenceAreas: pq.StringArray(areas),
	}
}

func withAvailability(t *testing.T, member models.StaffMember, override models.AvailabilityOverride) models.StaffMember {
	t.Helper()
	raw, err := json.Marshal(override)
	require.NoError(t, err)
	member.Availability = types.JSONText(raw)
	return member
}

func testRoster(t *testing.T, staff ...models.StaffMember) *Roster {
	t.Helper()
	roster, err := NewRoster(staff)
	require.NoError(t, err)
	return roster
}

func clock(t *testing.T, raw string) Clock {
	t.Helper()
	c, err := ParseClock(raw)
	require.NoError(t, err)
	return c
}

func bachelorExam(id, student, area, examinerA, examinerB string) models.Exam {
	return models.Exam{
		ID:             id,
		StudentName:    student,
		Degree:         models.DegreeBachelor,
		CompetenceArea: area,
		ExaminerAID:    examinerA,
		ExaminerBID:    examinerB,
	}
}

func masterExam(id, student, examinerA, examinerB string) models.Exam {
	return models.Exam{
		ID:          id,
		StudentName: student,
		Degree:      models.DegreeMaster,
		ExaminerAID: examinerA,
		ExaminerBID: examinerB,
	}
}

func examIndex(exams []models.Exam) map[string]*models.Exam {
	byID := make(map[string]*models.Exam, len(exams))
	for i := range exams {
		byID[exams[i].ID] = &exams[i]
	}
	return byID
}

func scheduledEvent(id, examID, day, room, start, end, protocolistID string) models.ScheduledEvent {
	return models.ScheduledEvent{
		ID:            id,
		VersionID:     "v1",
		ExamID:        examID,
		Day:           day,
		Room:          room,
		StartTime:     start,
		EndTime:       end,
		ProtocolistID: protocolistID,
		Status:        models.EventStatusScheduled,
	}
}
