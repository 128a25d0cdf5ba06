package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func examRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_name", "degree", "competence_area", "integrated",
		"examiner_a_id", "examiner_b_id", "team", "team_examiner_ids",
		"team_student_names", "duration_override", "merged_from_ids",
		"created_at", "updated_at",
	})
}

func TestExamRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	rows := examRows().
		AddRow("x1", "Alice", "BACHELOR", "AI", false, "ex1", "ex2", false, nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM exams ORDER BY created_at, id").WillReturnRows(rows)

	exams, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, models.DegreeBachelor, exams[0].Degree)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("INSERT INTO exams").
		WillReturnResult(sqlmock.NewResult(1, 1))

	exam := models.Exam{StudentName: "Alice", Degree: models.DegreeBachelor, CompetenceArea: "AI", ExaminerAID: "ex1", ExaminerBID: "ex2"}
	require.NoError(t, repo.Create(context.Background(), &exam))
	assert.NotEmpty(t, exam.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM exams WHERE id").
		WithArgs("missing").
		WillReturnRows(examRows())

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryReplaceForVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_events WHERE version_id = $1")).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO scheduled_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	events := []models.ScheduledEvent{{
		ExamID:        "x1",
		Day:           "2026-06-01",
		Room:          "R1",
		StartTime:     "09:00",
		EndTime:       "09:50",
		ProtocolistID: "p1",
		Status:        models.EventStatusScheduled,
		Duration:      50,
	}}
	require.NoError(t, repo.ReplaceForVersion(context.Background(), "v1", events))
	assert.Equal(t, "v1", events[0].VersionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionRepositoryPublishDemotesOthers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE schedule_versions SET status").
		WithArgs(models.VersionStatusDraft, now, models.VersionStatusPublished, "v2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedule_versions SET status").
		WithArgs(models.VersionStatusPublished, now, "v2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Publish(context.Background(), "v2", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
