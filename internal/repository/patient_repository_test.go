package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

func patientDetailRows() *sqlmock.Rows {
	now := time.Now()
	birth := time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "custom_patient_id", "first_name", "last_name", "sex", "birth_date",
		"age_months", "barangay_id", "contact_number", "date_of_admission", "archived_at",
		"created_at", "updated_at", "barangay_name",
	}).AddRow("p1", "PT-0001", "Maria", "Santos", "female", birth, 28, "b1", "", now, nil, now, now, "Poblacion")
}

func TestPatientListDetailsLiveOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients p JOIN barangays b ON b.id = p.barangay_id WHERE p.archived_at IS NULL")).
		WillReturnRows(patientDetailRows())

	live := false
	patients, err := repo.ListDetails(context.Background(), &live)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Poblacion", patients[0].BarangayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientFindByIDAttachesLatestAssessment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients p JOIN barangays b ON b.id = p.barangay_id WHERE p.id = $1")).
		WithArgs("p1").
		WillReturnRows(patientDetailRows())

	now := time.Now()
	assessmentRows := sqlmock.NewRows([]string{"id", "patient_id", "assessment_date", "weight_kg", "height_cm", "severity_label", "created_at"}).
		AddRow("a1", "p1", now, 11.2, 82.0, "", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE patient_id = $1")).
		WithArgs("p1").
		WillReturnRows(assessmentRows)

	detail, err := repo.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, detail.LatestAssessment)
	assert.Equal(t, "a1", detail.LatestAssessment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientExistsByCustomID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM patients WHERE custom_patient_id = $1 LIMIT 1")).
		WithArgs("PT-0001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCustomID(context.Background(), "PT-0001", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM patients WHERE custom_patient_id = $1 AND id <> $2 LIMIT 1")).
		WithArgs("PT-0001", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByCustomID(context.Background(), "PT-0001", "p1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPatientRepository(db)

	mock.ExpectExec("INSERT INTO patients").WillReturnResult(sqlmock.NewResult(1, 1))

	patient := &models.Patient{
		CustomPatientID: "PT-0001",
		FirstName:       "Maria",
		LastName:        "Santos",
		Sex:             "female",
		BirthDate:       time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
		BarangayID:      "b1",
		DateOfAdmission: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), patient)
	require.NoError(t, err)
	assert.NotEmpty(t, patient.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientSetArchived(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPatientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients SET archived_at = $2, updated_at = $2 WHERE id = $1")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetArchived(context.Background(), "p1", true))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients SET archived_at = NULL, updated_at = $2 WHERE id = $1")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetArchived(context.Background(), "p1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientDeleteRemovesAssessmentsFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPatientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assessments WHERE patient_id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM patients WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
