package models

import (
	"math"
	"time"
)

// Assessment is one immutable clinical measurement for a patient. Records are
// never mutated after the assessment workflow creates them; history is ordered
// by assessment date with arrival order breaking same-day ties.
type Assessment struct {
	ID             string    `db:"id" json:"id"`
	PatientID      string    `db:"patient_id" json:"patient_id"`
	AssessmentDate time.Time `db:"assessment_date" json:"assessment_date"`
	WeightKg       float64   `db:"weight_kg" json:"weight_kg"`
	HeightCm       float64   `db:"height_cm" json:"height_cm"`
	// SeverityLabel carries the classification returned by the external
	// assessment API, when one was recorded. Empty means classify locally.
	SeverityLabel string    `db:"severity_label" json:"severity_label,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BMI derives weight / height² in metric units. It returns ok=false when the
// inputs cannot produce a finite BMI; such measurements are unclassifiable and
// belong in the data-quality bucket, not in category denominators.
func (a Assessment) BMI() (float64, bool) {
	if a.WeightKg <= 0 || a.HeightCm <= 0 {
		return 0, false
	}
	heightM := a.HeightCm / 100
	bmi := a.WeightKg / (heightM * heightM)
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return 0, false
	}
	return bmi, true
}

// AssessmentFilter scopes assessment listings.
type AssessmentFilter struct {
	PatientID string
	DateFrom  *time.Time
	DateTo    *time.Time
}
