package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type mockPatientRepo struct {
	patients map[string]models.PatientDetail
	archived []string
	deleted  []string
	err      error
}

func (m *mockPatientRepo) ListDetails(ctx context.Context, archived *bool) ([]models.PatientDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	details := make([]models.PatientDetail, 0, len(m.patients))
	for _, p := range m.patients {
		if archived != nil && p.Archived() != *archived {
			continue
		}
		details = append(details, p)
	}
	return details, nil
}

func (m *mockPatientRepo) FindByID(ctx context.Context, id string) (*models.PatientDetail, error) {
	if p, ok := m.patients[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPatientRepo) ExistsByCustomID(ctx context.Context, customID string, excludeID string) (bool, error) {
	for _, p := range m.patients {
		if p.CustomPatientID == customID && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPatientRepo) Create(ctx context.Context, patient *models.Patient) error {
	if m.patients == nil {
		m.patients = make(map[string]models.PatientDetail)
	}
	if patient.ID == "" {
		patient.ID = "generated"
	}
	m.patients[patient.ID] = models.PatientDetail{Patient: *patient}
	return nil
}

func (m *mockPatientRepo) Update(ctx context.Context, patient *models.Patient) error {
	detail := m.patients[patient.ID]
	detail.Patient = *patient
	m.patients[patient.ID] = detail
	return nil
}

func (m *mockPatientRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	m.archived = append(m.archived, id)
	detail := m.patients[id]
	if archived {
		now := time.Now()
		detail.ArchivedAt = &now
	} else {
		detail.ArchivedAt = nil
	}
	m.patients[id] = detail
	return nil
}

func (m *mockPatientRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.patients, id)
	return nil
}

func patientDetail(id, customID, first, last, barangay string, archived bool) models.PatientDetail {
	detail := models.PatientDetail{
		Patient: models.Patient{
			ID:              id,
			CustomPatientID: customID,
			FirstName:       first,
			LastName:        last,
			Sex:             "female",
			BirthDate:       time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
			DateOfAdmission: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		BarangayName: barangay,
	}
	if archived {
		at := time.Now()
		detail.ArchivedAt = &at
	}
	return detail
}

func validCreateRequest() CreatePatientRequest {
	return CreatePatientRequest{
		CustomPatientID: "PT-0001",
		FirstName:       "Maria",
		LastName:        "Santos",
		Sex:             "female",
		BirthDate:       time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
		BarangayID:      "b1",
		DateOfAdmission: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPatientServiceCreate(t *testing.T) {
	repo := &mockPatientRepo{}
	svc := NewPatientService(repo, validator.New(), nil, nil, zap.NewNop())

	patient, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, patient.ID)
	// Apr 2023 to Sep 2025 is 28 whole months.
	assert.Equal(t, 28, patient.AgeMonths)
}

func TestPatientServiceCreateDuplicateCustomID(t *testing.T) {
	repo := &mockPatientRepo{patients: map[string]models.PatientDetail{
		"p1": patientDetail("p1", "PT-0001", "Ana", "Cruz", "Poblacion", false),
	}}
	svc := NewPatientService(repo, validator.New(), nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPatientServiceCreateInvalidSex(t *testing.T) {
	svc := NewPatientService(&mockPatientRepo{}, validator.New(), nil, nil, zap.NewNop())

	req := validCreateRequest()
	req.Sex = "other"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPatientServiceListFiltersAndPaginates(t *testing.T) {
	repo := &mockPatientRepo{patients: map[string]models.PatientDetail{
		"p1": patientDetail("p1", "PT-0001", "Maria", "Santos", "Poblacion", false),
		"p2": patientDetail("p2", "PT-0002", "Jose", "Cruz", "San Isidro", false),
		"p3": patientDetail("p3", "PT-0003", "Ana", "Reyes", "Poblacion", true),
	}}
	svc := NewPatientService(repo, validator.New(), nil, nil, zap.NewNop())

	live := false
	patients, pagination, err := svc.List(context.Background(), models.PatientFilter{
		Barangay: "Poblacion",
		Archived: &live,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "p1", patients[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	archived := true
	patients, _, err = svc.List(context.Background(), models.PatientFilter{Archived: &archived})
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "p3", patients[0].ID)
}

func TestPatientServiceListNegativePageSizeDisablesPagination(t *testing.T) {
	patients := make(map[string]models.PatientDetail)
	for _, id := range []string{"a", "b", "c"} {
		patients[id] = patientDetail(id, "PT-"+id, id, id, "Poblacion", false)
	}
	svc := NewPatientService(&mockPatientRepo{patients: patients}, validator.New(), nil, nil, zap.NewNop())

	out, pagination, err := svc.List(context.Background(), models.PatientFilter{PageSize: -1})
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 3, pagination.TotalCount)
}

func TestPatientServiceArchiveConflict(t *testing.T) {
	repo := &mockPatientRepo{patients: map[string]models.PatientDetail{
		"p1": patientDetail("p1", "PT-0001", "Ana", "Cruz", "Poblacion", true),
	}}
	svc := NewPatientService(repo, validator.New(), nil, nil, zap.NewNop())

	err := svc.Archive(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Unarchive(context.Background(), "p1"))
	assert.Contains(t, repo.archived, "p1")
}

func TestPatientServiceGetNotFound(t *testing.T) {
	svc := NewPatientService(&mockPatientRepo{}, validator.New(), nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPatientMutatorResolveOmitsUnknownIDs(t *testing.T) {
	repo := &mockPatientRepo{patients: map[string]models.PatientDetail{
		"p1": patientDetail("p1", "PT-0001", "Ana", "Cruz", "Poblacion", false),
	}}
	mutator := NewPatientMutator(repo)

	refs, err := mutator.Resolve(context.Background(), []string{"p1", "ghost"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Ana Cruz", refs[0].Name)
}

func TestPatientMutatorApply(t *testing.T) {
	repo := &mockPatientRepo{patients: map[string]models.PatientDetail{
		"live":     patientDetail("live", "PT-0001", "Ana", "Cruz", "Poblacion", false),
		"archived": patientDetail("archived", "PT-0002", "Ben", "Reyes", "Poblacion", true),
	}}
	mutator := NewPatientMutator(repo)
	ctx := context.Background()

	require.NoError(t, mutator.Apply(ctx, "live", models.BulkArchive))
	err := mutator.Apply(ctx, "live", models.BulkArchive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already archived")

	require.NoError(t, mutator.Apply(ctx, "archived", models.BulkRestore))

	require.NoError(t, mutator.Apply(ctx, "archived", models.BulkDelete))
	assert.Contains(t, repo.deleted, "archived")

	err = mutator.Apply(ctx, "ghost", models.BulkArchive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
