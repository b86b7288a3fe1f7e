package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

// measurement returns an assessment at 100cm so the weight equals the BMI.
func measurement(date time.Time, bmi float64) models.Assessment {
	return models.Assessment{AssessmentDate: date, WeightKg: bmi, HeightCm: 100}
}

func record(name string, assessments ...models.Assessment) models.PatientRecord {
	return models.PatientRecord{
		Patient:      models.Patient{ID: "p1", FirstName: name},
		BarangayName: "San Isidro",
		Assessments:  assessments,
	}
}

func TestTrendDetectorImproving(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	result := d.Detect(record("Ana",
		measurement(base, 15.0),
		measurement(base.AddDate(0, 1, 0), 14.0),
		measurement(base.AddDate(0, 2, 0), 17.5),
	))
	assert.Equal(t, models.TrendImproving, result.Trend)
	assert.InDelta(t, 2.5, result.BMIChange, 1e-9)
	assert.InDelta(t, 2.5, result.WeightChange, 1e-9)
	assert.Equal(t, 3, result.TotalAssessments)
	assert.Equal(t, base, result.FirstAssessmentDate)
}

func TestTrendDetectorDeclining(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	result := d.Detect(record("Ben",
		measurement(base, 18.0),
		measurement(base.AddDate(0, 1, 0), 16.2),
	))
	assert.Equal(t, models.TrendDeclining, result.Trend)
}

func TestTrendDetectorExactEqualityIsStable(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	result := d.Detect(record("Carla",
		measurement(base, 17.0),
		measurement(base.AddDate(0, 1, 0), 16.0),
		measurement(base.AddDate(0, 2, 0), 17.0),
	))
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.Zero(t, result.BMIChange)
}

func TestTrendDetectorFewerThanTwoMeasurements(t *testing.T) {
	d := NewTrendDetector(nil)

	result := d.Detect(record("Dan"))
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.Zero(t, result.TotalAssessments)

	result = d.Detect(record("Dan", measurement(time.Now(), 15.0)))
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.Zero(t, result.WeightChange)
	assert.Equal(t, 1, result.TotalAssessments)
}

func TestTrendDetectorUnusableEndpointStaysStable(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	// Last measurement has no usable BMI (zero weight and height): the delta
	// must not be fabricated from a zero CurrentBMI.
	result := d.Detect(record("Fe",
		measurement(base, 18.0),
		models.Assessment{AssessmentDate: base.AddDate(0, 1, 0)},
	))
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.Zero(t, result.BMIChange)
	assert.InDelta(t, 18.0, result.InitialBMI, 1e-9)
	assert.Zero(t, result.CurrentBMI)

	// Same when the first measurement is the unusable one.
	result = d.Detect(record("Fe",
		models.Assessment{AssessmentDate: base},
		measurement(base.AddDate(0, 1, 0), 18.0),
	))
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.Zero(t, result.BMIChange)
}

func TestTrendDetectorRecoveredAt(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	p := record("Ella",
		measurement(base, 15.0),              // severe
		measurement(base.AddDate(0, 1, 0), 19.0), // normal: recovery
		measurement(base.AddDate(0, 2, 0), 20.0), // normal after normal: not a recovery
	)
	assert.False(t, d.RecoveredAt(p, 0))
	assert.True(t, d.RecoveredAt(p, 1))
	assert.False(t, d.RecoveredAt(p, 2))
	assert.Equal(t, 1, d.LatestRecoveryIndex(p))
}

func TestTrendDetectorUnclassifiableNeverCounts(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	p := record("Gail",
		measurement(base, 15.0),
		models.Assessment{AssessmentDate: base.AddDate(0, 1, 0)}, // no usable BMI
		measurement(base.AddDate(0, 2, 0), 19.0),
	)
	// The normal measurement follows an unclassifiable one, not an at-risk one.
	assert.False(t, d.RecoveredAt(p, 2))
	assert.Equal(t, -1, d.LatestRecoveryIndex(p))
}

func TestTrendDetectorNeverRecovered(t *testing.T) {
	d := NewTrendDetector(nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	p := record("Hugo",
		measurement(base, 15.0),
		measurement(base.AddDate(0, 1, 0), 16.5),
	)
	assert.Equal(t, -1, d.LatestRecoveryIndex(p))
}
