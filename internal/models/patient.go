package models

import "time"

// Patient represents a program beneficiary stored in the patients table.
type Patient struct {
	ID              string     `db:"id" json:"id"`
	CustomPatientID string     `db:"custom_patient_id" json:"custom_patient_id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Sex             string     `db:"sex" json:"sex"`
	BirthDate       time.Time  `db:"birth_date" json:"birth_date"`
	AgeMonths       int        `db:"age_months" json:"age_months"`
	BarangayID      string     `db:"barangay_id" json:"barangay_id"`
	ContactNumber   string     `db:"contact_number" json:"contact_number"`
	DateOfAdmission time.Time  `db:"date_of_admission" json:"date_of_admission"`
	ArchivedAt      *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display.
func (p Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Archived reports whether the patient has been archived.
func (p Patient) Archived() bool {
	return p.ArchivedAt != nil
}

// PatientDetail joins a patient with its barangay name and latest assessment.
type PatientDetail struct {
	Patient
	BarangayName     string      `db:"barangay_name" json:"barangay_name"`
	LatestAssessment *Assessment `json:"latest_assessment,omitempty"`
}

// PatientRecord is the population snapshot the analytics engine folds over:
// identity plus the chronologically ordered measurement history.
type PatientRecord struct {
	Patient
	BarangayName string       `json:"barangay_name"`
	Assessments  []Assessment `json:"assessments"`
}

// Latest returns the most recent assessment, or nil when there is none.
// Assessments are kept in chronological order; same-date duplicates resolve
// by arrival order, so the last element wins.
func (p PatientRecord) Latest() *Assessment {
	if len(p.Assessments) == 0 {
		return nil
	}
	return &p.Assessments[len(p.Assessments)-1]
}

// PatientFilter captures filtering criteria for repository listings.
type PatientFilter struct {
	Search       string
	Barangay     string
	Sex          string
	AgeMonthsMin *int
	AgeMonthsMax *int
	Archived     *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
