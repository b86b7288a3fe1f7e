package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

// AssessmentRepository manages persistence for clinical measurements.
// Assessments are append-only; there is no update path.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs an AssessmentRepository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// ListByPatient returns the patient's measurement history in chronological
// order, arrival order breaking same-day ties.
func (r *AssessmentRepository) ListByPatient(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	query := `SELECT id, patient_id, assessment_date, weight_kg, height_cm, severity_label, created_at
        FROM assessments WHERE patient_id = $1`
	args := []interface{}{filter.PatientID}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND assessment_date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND assessment_date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	query += " ORDER BY assessment_date ASC, created_at ASC"

	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// Create appends one measurement.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assessments (id, patient_id, assessment_date, weight_kg, height_cm, severity_label, created_at)
        VALUES (:id, :patient_id, :assessment_date, :weight_kg, :height_cm, :severity_label, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}
