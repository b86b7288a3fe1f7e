package service

import (
	"github.com/nutricare-ph/nutricare-api/internal/models"
)

// TrendDetector derives a patient's longitudinal trend from the ordered
// measurement history. Pure; no I/O.
type TrendDetector struct {
	classifier *Classifier
}

// NewTrendDetector constructs a detector sharing the given classifier.
func NewTrendDetector(classifier *Classifier) *TrendDetector {
	if classifier == nil {
		classifier = NewClassifier(models.DefaultSeverityThresholds())
	}
	return &TrendDetector{classifier: classifier}
}

// Detect compares the first and last measurement in date order. Fewer than
// two measurements yields a stable trend with zero deltas. The label follows
// the strict sign of the BMI delta; exact equality means stable, with no
// dead band applied.
func (d *TrendDetector) Detect(p models.PatientRecord) models.TrendResult {
	result := models.TrendResult{
		PatientID:        p.ID,
		PatientName:      p.FullName(),
		Barangay:         p.BarangayName,
		Trend:            models.TrendStable,
		TotalAssessments: len(p.Assessments),
	}
	if len(p.Assessments) == 0 {
		return result
	}

	first := p.Assessments[0]
	last := p.Assessments[len(p.Assessments)-1]
	result.FirstAssessmentDate = first.AssessmentDate
	result.LastAssessmentDate = last.AssessmentDate
	result.InitialWeightKg = first.WeightKg
	result.CurrentWeightKg = last.WeightKg
	firstBMI, firstOK := first.BMI()
	lastBMI, lastOK := last.BMI()
	if firstOK {
		result.InitialBMI = firstBMI
	}
	if lastOK {
		result.CurrentBMI = lastBMI
	}
	if len(p.Assessments) < 2 {
		return result
	}

	result.WeightChange = last.WeightKg - first.WeightKg
	// Both endpoints need a usable BMI; otherwise the delta is meaningless
	// and the trend stays stable with a zero change.
	if !firstOK || !lastOK {
		return result
	}
	result.BMIChange = lastBMI - firstBMI
	switch {
	case result.BMIChange > 0:
		result.Trend = models.TrendImproving
	case result.BMIChange < 0:
		result.Trend = models.TrendDeclining
	default:
		result.Trend = models.TrendStable
	}
	return result
}

// RecoveredAt reports whether the measurement at index i marks a recovery:
// it classifies normal while the immediately preceding measurement
// classified at-risk. Unclassifiable measurements never count on either side.
func (d *TrendDetector) RecoveredAt(p models.PatientRecord, i int) bool {
	if i <= 0 || i >= len(p.Assessments) {
		return false
	}
	current, ok := d.classifier.Classify(p.Assessments[i])
	if !ok || current != models.SeverityNormal {
		return false
	}
	previous, ok := d.classifier.Classify(p.Assessments[i-1])
	if !ok {
		return false
	}
	return previous.AtRisk()
}

// LatestRecoveryIndex returns the index of the most recent recovery event in
// the history, or -1 when the patient has never recovered.
func (d *TrendDetector) LatestRecoveryIndex(p models.PatientRecord) int {
	for i := len(p.Assessments) - 1; i > 0; i-- {
		if d.RecoveredAt(p, i) {
			return i
		}
	}
	return -1
}
