package engine

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/examdesk/colloquium-api/internal/models"
)

func testMappings() []models.RoomMapping {
	return []models.RoomMapping{
		{ID: "m1", CompetenceArea: "AI", Rooms: pq.StringArray{"R1"}},
		{ID: "m2", CompetenceArea: "Systems", Rooms: pq.StringArray{"R2"}},
	}
}

func TestRoomsForExamStrictMapping(t *testing.T) {
	cfg := threeDayConfig(t)
	roster := testRoster(t, internalStaff("ex1", "A", "AI"), internalStaff("ex2", "B", "Systems"))
	exam := bachelorExam("x1", "Student", "AI", "ex1", "ex2")

	rooms := RoomsForExam(&exam, testMappings(), roster, cfg)
	assert.Equal(t, []string{"R1"}, rooms)
}

func TestRoomsForExamUnmappedAreaFallsBackToUnion(t *testing.T) {
	cfg := threeDayConfig(t)
	roster := testRoster(t, internalStaff("ex1", "A", "AI"), internalStaff("ex2", "B", "Systems"))
	exam := bachelorExam("x1", "Student", "Databases", "ex1", "ex2")

	rooms := RoomsForExam(&exam, testMappings(), roster, cfg)
	assert.Equal(t, []string{"R1", "R2"}, rooms)
}

func TestRoomsForExamNoMappings(t *testing.T) {
	cfg := threeDayConfig(t)
	roster := testRoster(t, internalStaff("ex1", "A", "AI"), internalStaff("ex2", "B", "Systems"))
	exam := bachelorExam("x1", "Student", "AI", "ex1", "ex2")

	assert.Empty(t, RoomsForExam(&exam, nil, roster, cfg))
}

func TestRoomsForExamMasterFollowsExaminers(t *testing.T) {
	cfg := testConfig(t, models.ScheduleConfig{
		Days:            pq.StringArray{"2026-06-01"},
		Rooms:           pq.StringArray{"R1", "R2", "R3"},
		DayStart:        "08:00",
		DayEnd:          "18:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
	roster := testRoster(t, internalStaff("ex1", "A", "Systems"), internalStaff("ex2", "B", "AI"))
	exam := masterExam("x1", "Student", "ex1", "ex2")

	// Primary examiner's rooms first, then the second's, then all the rest.
	rooms := RoomsForExam(&exam, testMappings(), roster, cfg)
	assert.Equal(t, []string{"R2", "R1", "R3"}, rooms)
}

func TestRoomsForExamIntegratedFollowsExaminers(t *testing.T) {
	cfg := threeDayConfig(t)
	roster := testRoster(t, internalStaff("ex1", "A", "Systems"), internalStaff("ex2", "B", "Systems"))
	exam := bachelorExam("x1", "Student", "AI", "ex1", "ex2")
	exam.Integrated = true

	rooms := RoomsForExam(&exam, testMappings(), roster, cfg)
	assert.Equal(t, []string{"R2", "R1"}, rooms)
}
