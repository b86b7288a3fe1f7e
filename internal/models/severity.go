package models

// SeverityCategory is the closed set of nutrition severity classes.
type SeverityCategory string

const (
	SeverityNormal       SeverityCategory = "normal"
	SeverityUnderweight  SeverityCategory = "underweight"
	SeverityMalnourished SeverityCategory = "malnourished"
	SeveritySevere       SeverityCategory = "severe_malnourishment"
)

// AtRisk reports whether the category represents a patient needing intervention.
func (s SeverityCategory) AtRisk() bool {
	switch s {
	case SeverityUnderweight, SeverityMalnourished, SeveritySevere:
		return true
	}
	return false
}

// Valid reports whether the value is a known category.
func (s SeverityCategory) Valid() bool {
	switch s {
	case SeverityNormal, SeverityUnderweight, SeverityMalnourished, SeveritySevere:
		return true
	}
	return false
}

// SeverityThresholds carries the BMI cut-offs used for local classification.
// The underweight band (< Underweight) overlaps the malnourished band
// [Severe, Malnourished); which label wins inside the overlap is decided by
// the classifier's precedence order, not here.
type SeverityThresholds struct {
	Severe       float64 `json:"severe"`
	Underweight  float64 `json:"underweight"`
	Malnourished float64 `json:"malnourished"`
}

// DefaultSeverityThresholds returns the WHO adult BMI cut-offs the upstream
// assessment service applies.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{Severe: 16, Underweight: 17, Malnourished: 18.5}
}
