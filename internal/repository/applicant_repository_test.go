package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhdskyprime/rekruitment/internal/models"
)

var applicantRowColumns = []string{"id", "seq", "participant_number", "national_id", "full_name", "birth_place", "birth_date", "gender",
	"address", "phone", "email", "education", "position", "photo_path", "session_id", "attendance_status", "attended_at",
	"created_at", "updated_at"}

func applicantRow(rows *sqlmock.Rows, id string, number interface{}) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, 1450, number, "3201010101010001", "Siti Aminah", "Bandung", now, "F",
		"Jl. Merdeka 1", "0812", "siti@example.com", "S1 Keperawatan", "Perawat", nil, nil, "absent", nil, now, now)
}

func documentRows(applicantID string, status models.DocumentStatus) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"applicant_id", "kind", "status", "reject_reason", "verified_by", "verified_at", "file_path"})
	for _, kind := range models.DocumentKinds {
		rows.AddRow(applicantID, string(kind), string(status), nil, nil, nil, nil)
	}
	return rows
}

func TestApplicantRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO applicants").WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(42))
	for range models.DocumentKinds {
		mock.ExpectExec("INSERT INTO applicant_documents").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	applicant := &models.Applicant{NationalID: "3201", FullName: "Budi", Position: "Perawat", BirthDate: time.Now()}
	require.NoError(t, repo.Create(context.Background(), applicant))
	assert.Equal(t, int64(42), applicant.Sequence)
	assert.NotEmpty(t, applicant.ID)
	assert.Len(t, applicant.Documents, models.DocumentCount)
	assert.Equal(t, models.AttendanceAbsent, applicant.AttendanceStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryCreateRollsBackOnDocumentFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO applicants").WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(1))
	mock.ExpectExec("INSERT INTO applicant_documents").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Applicant{NationalID: "3201", FullName: "Budi"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryFindByIDLoadsDocuments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectQuery(`FROM applicants a WHERE a.id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicantRow(sqlmock.NewRows(applicantRowColumns), "app-1", "25031002450"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM applicant_documents WHERE applicant_id = ANY($1)")).
		WillReturnRows(documentRows("app-1", models.DocumentValid))

	applicant, err := repo.FindByID(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, applicant.Documents, models.DocumentCount)
	assert.Equal(t, models.StatusVerified, applicant.Status())
	assert.Equal(t, "25031002450", *applicant.ParticipantNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryFindByIDMissingSlotsArePending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectQuery(`FROM applicants a WHERE a.id = \$1`).
		WillReturnRows(applicantRow(sqlmock.NewRows(applicantRowColumns), "app-1", nil))
	mock.ExpectQuery("FROM applicant_documents").
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id", "kind", "status", "reject_reason", "verified_by", "verified_at", "file_path"}).
			AddRow("app-1", string(models.DocumentDiploma), string(models.DocumentValid), nil, nil, nil, nil))

	applicant, err := repo.FindByID(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, applicant.Documents, models.DocumentCount)
	assert.Equal(t, models.DocumentValid, applicant.Documents[models.DocumentDiploma.Index()].Status)
	assert.Equal(t, models.DocumentPending, applicant.Documents[0].Status)
	assert.False(t, applicant.HasParticipantNumber())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectQuery("FROM applicants a WHERE").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryFindByParticipantNumberReturnsAllMatches(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	rows := sqlmock.NewRows(applicantRowColumns)
	applicantRow(rows, "a", "25031002450")
	applicantRow(rows, "b", "25031002450")
	mock.ExpectQuery(`WHERE a.participant_number = \$1 ORDER BY a.seq`).WithArgs("25031002450").WillReturnRows(rows)
	mock.ExpectQuery("FROM applicant_documents").WillReturnRows(documentRows("a", models.DocumentPending))

	applicants, err := repo.FindByParticipantNumber(context.Background(), "25031002450")
	require.NoError(t, err)
	assert.Len(t, applicants, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositorySetParticipantNumberOnlyOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	query := regexp.QuoteMeta("UPDATE applicants SET participant_number = $2, updated_at = $3 WHERE id = $1 AND participant_number IS NULL")
	mock.ExpectExec(query).WithArgs("app-1", "25031002450", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("app-1", "25031002999", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	set, err := repo.SetParticipantNumber(context.Background(), "app-1", "25031002450")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.SetParticipantNumber(context.Background(), "app-1", "25031002999")
	require.NoError(t, err)
	assert.False(t, set)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryNextScopedSequence(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (reg_date, position_code) DO UPDATE SET last_value = participant_counters.last_value + 1")).
		WithArgs("2025-03-10", "02").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	value, err := repo.NextScopedSequence(context.Background(), day, "02")
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryListFiltersByDerivedStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	status := models.StatusVerified
	mock.ExpectQuery(`FROM applicants a WHERE 1=1 AND \(SELECT CASE`).
		WithArgs(models.StatusVerified).
		WillReturnRows(applicantRow(sqlmock.NewRows(applicantRowColumns), "app-1", "25031002450"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM applicants a WHERE 1=1 AND \(SELECT CASE`).
		WithArgs(models.StatusVerified).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM applicant_documents").WillReturnRows(documentRows("app-1", models.DocumentValid))

	applicants, total, err := repo.List(context.Background(), models.ApplicantFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, applicants, 1)
	assert.Equal(t, models.StatusVerified, applicants[0].Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositorySaveDocumentUpserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	slot := &models.DocumentSlot{ApplicantID: "app-1", Kind: models.DocumentSTR}
	slot.Apply(models.DocumentInvalid, "", "verifier", time.Now())

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (applicant_id, kind)")).
		WithArgs("app-1", models.DocumentSTR, models.DocumentInvalid, slot.RejectReason, slot.VerifiedBy, slot.VerifiedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveDocument(context.Background(), slot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sessionLockRows(capacity int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "date", "start_time", "end_time", "location", "capacity", "created_at", "updated_at"}).
		AddRow("sess-1", "Sesi 1", now, "08:00", "10:00", "Aula", capacity, now, now)
}

func TestApplicantRepositoryAssignSessionWithinCapacity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM exam_sessions WHERE id = \$1 FOR UPDATE`).WithArgs("sess-1").WillReturnRows(sessionLockRows(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applicants WHERE session_id = $1 AND id <> $2")).
		WithArgs("sess-1", "app-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applicants SET session_id = $2")).
		WithArgs("app-1", "sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.AssignSession(context.Background(), "app-1", "sess-1", func(session models.ExamSession, occupied int) bool {
		return session.HasRoom(occupied)
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, 1, result.Occupied)
	assert.Equal(t, "Sesi 1", result.Session.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryAssignSessionFullIsNotApplied(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sessionLockRows(2))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	result, err := repo.AssignSession(context.Background(), "app-1", "sess-1", func(session models.ExamSession, occupied int) bool {
		return session.HasRoom(occupied)
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, 2, result.Occupied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryAssignSessionUnknownSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.AssignSession(context.Background(), "app-1", "missing", func(models.ExamSession, int) bool { return true })
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryMarkPresentIsConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	at := time.Now()
	query := regexp.QuoteMeta("WHERE id = $1 AND attendance_status = $4")
	mock.ExpectExec(query).WithArgs("app-1", models.AttendancePresent, at, models.AttendanceAbsent).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("app-1", models.AttendancePresent, at, models.AttendanceAbsent).WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkPresent(context.Background(), "app-1", at)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkPresent(context.Background(), "app-1", at)
	require.NoError(t, err)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryResetAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applicants SET attendance_status = $1, attended_at = NULL")).
		WithArgs(models.AttendanceAbsent, models.AttendancePresent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.ResetAttendance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
