package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

// PatientRepository manages persistence for the patient registry.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository constructs a PatientRepository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientDetailColumns = `p.id, p.custom_patient_id, p.first_name, p.last_name, p.sex, p.birth_date,
        p.age_months, p.barangay_id, p.contact_number, p.date_of_admission, p.archived_at, p.created_at, p.updated_at,
        b.name AS barangay_name`

// ListDetails returns patients joined with their barangay. The archived flag
// scopes the registry view: nil means both, true only archived, false only live.
func (r *PatientRepository) ListDetails(ctx context.Context, archived *bool) ([]models.PatientDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients p JOIN barangays b ON b.id = p.barangay_id`, patientDetailColumns)
	args := []interface{}{}
	if archived != nil {
		if *archived {
			query += " WHERE p.archived_at IS NOT NULL"
		} else {
			query += " WHERE p.archived_at IS NULL"
		}
	}
	query += " ORDER BY p.last_name ASC, p.first_name ASC"

	var patients []models.PatientDetail
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// ListActiveRecords loads the analytics snapshot: every non-archived patient
// with its full measurement history in chronological order.
func (r *PatientRepository) ListActiveRecords(ctx context.Context) ([]models.PatientRecord, error) {
	details, err := r.ListDetails(ctx, boolPtr(false))
	if err != nil {
		return nil, err
	}

	const query = `SELECT a.id, a.patient_id, a.assessment_date, a.weight_kg, a.height_cm, a.severity_label, a.created_at
        FROM assessments a
        JOIN patients p ON p.id = a.patient_id
        WHERE p.archived_at IS NULL
        ORDER BY a.patient_id, a.assessment_date ASC, a.created_at ASC`
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}

	byPatient := make(map[string][]models.Assessment, len(details))
	for _, assessment := range assessments {
		byPatient[assessment.PatientID] = append(byPatient[assessment.PatientID], assessment)
	}

	records := make([]models.PatientRecord, 0, len(details))
	for _, detail := range details {
		records = append(records, models.PatientRecord{
			Patient:      detail.Patient,
			BarangayName: detail.BarangayName,
			Assessments:  byPatient[detail.ID],
		})
	}
	return records, nil
}

// FindRecord loads one patient with its full measurement history.
func (r *PatientRepository) FindRecord(ctx context.Context, id string) (*models.PatientRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients p JOIN barangays b ON b.id = p.barangay_id WHERE p.id = $1`, patientDetailColumns)
	var detail models.PatientDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}

	const historyQuery = `SELECT id, patient_id, assessment_date, weight_kg, height_cm, severity_label, created_at
        FROM assessments WHERE patient_id = $1
        ORDER BY assessment_date ASC, created_at ASC`
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, historyQuery, id); err != nil {
		return nil, fmt.Errorf("load assessment history: %w", err)
	}
	return &models.PatientRecord{
		Patient:      detail.Patient,
		BarangayName: detail.BarangayName,
		Assessments:  assessments,
	}, nil
}

// FindByID fetches one patient with barangay name and latest assessment.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.PatientDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients p JOIN barangays b ON b.id = p.barangay_id WHERE p.id = $1`, patientDetailColumns)
	var detail models.PatientDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}

	const latestQuery = `SELECT id, patient_id, assessment_date, weight_kg, height_cm, severity_label, created_at
        FROM assessments WHERE patient_id = $1
        ORDER BY assessment_date DESC, created_at DESC LIMIT 1`
	var latest models.Assessment
	err := r.db.GetContext(ctx, &latest, latestQuery, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load latest assessment: %w", err)
	}
	if err == nil {
		detail.LatestAssessment = &latest
	}
	return &detail, nil
}

// ExistsByCustomID checks whether the program-issued id is taken, optionally
// excluding a patient.
func (r *PatientRepository) ExistsByCustomID(ctx context.Context, customID string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM patients WHERE custom_patient_id = $1"
	args := []interface{}{customID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check custom patient id: %w", err)
	}
	return true, nil
}

// Create inserts a new patient record.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now
	const query = `INSERT INTO patients (id, custom_patient_id, first_name, last_name, sex, birth_date, age_months,
        barangay_id, contact_number, date_of_admission, archived_at, created_at, updated_at)
        VALUES (:id, :custom_patient_id, :first_name, :last_name, :sex, :birth_date, :age_months,
        :barangay_id, :contact_number, :date_of_admission, :archived_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// Update modifies an existing patient.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE patients SET custom_patient_id = :custom_patient_id, first_name = :first_name,
        last_name = :last_name, sex = :sex, birth_date = :birth_date, age_months = :age_months,
        barangay_id = :barangay_id, contact_number = :contact_number, date_of_admission = :date_of_admission,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// SetArchived moves a patient in or out of the archive.
func (r *PatientRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	now := time.Now().UTC()
	var query string
	if archived {
		query = `UPDATE patients SET archived_at = $2, updated_at = $2 WHERE id = $1`
	} else {
		query = `UPDATE patients SET archived_at = NULL, updated_at = $2 WHERE id = $1`
	}
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("archive patient: %w", err)
	}
	return nil
}

// Delete removes a patient and its assessments.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE patient_id = $1`, id); err != nil {
		return fmt.Errorf("delete patient assessments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }
