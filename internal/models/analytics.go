package models

import "time"

// TrendLabel classifies a patient's first-to-last BMI movement.
type TrendLabel string

const (
	TrendImproving TrendLabel = "improving"
	TrendStable    TrendLabel = "stable"
	TrendDeclining TrendLabel = "declining"
)

// TrendResult is recomputed on demand from a patient's measurement history;
// it is never persisted.
type TrendResult struct {
	PatientID           string     `json:"patient_id"`
	PatientName         string     `json:"patient_name"`
	Barangay            string     `json:"barangay"`
	FirstAssessmentDate time.Time  `json:"first_assessment_date"`
	LastAssessmentDate  time.Time  `json:"last_assessment_date"`
	InitialWeightKg     float64    `json:"initial_weight_kg"`
	CurrentWeightKg     float64    `json:"current_weight_kg"`
	WeightChange        float64    `json:"weight_change"`
	InitialBMI          float64    `json:"initial_bmi"`
	CurrentBMI          float64    `json:"current_bmi"`
	BMIChange           float64    `json:"bmi_change"`
	Trend               TrendLabel `json:"trend"`
	TotalAssessments    int        `json:"total_assessments"`
}

// CategoryCount pairs an absolute count with its integer percentage share.
type CategoryCount struct {
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// BarangayRiskRow summarises the at-risk caseload for one barangay.
type BarangayRiskRow struct {
	Barangay     string `json:"barangay"`
	Severe       int    `json:"severe"`
	Malnourished int    `json:"malnourished"`
	Underweight  int    `json:"underweight"`
	Total        int    `json:"total"`
	Priority     string `json:"priority"`
}

// Barangay priority labels, assigned by a strict chain: any severe case is
// Critical, otherwise any malnourished case is High, otherwise Medium.
const (
	PriorityCritical = "Critical"
	PriorityHigh     = "High"
	PriorityMedium   = "Medium"
)

// DistributionReport is the cross-sectional severity breakdown of the
// population, classified on each patient's latest measurement only.
type DistributionReport struct {
	Categories map[SeverityCategory]CategoryCount `json:"categories"`
	// Unclassified counts patients whose latest measurement has no usable
	// BMI and no external label; they stay out of category denominators but
	// are never silently dropped.
	Unclassified      int               `json:"unclassified"`
	Total             int               `json:"total"`
	BarangayBreakdown []BarangayRiskRow `json:"barangay_breakdown"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// BarangayProgressRow groups per-patient trends for one barangay.
type BarangayProgressRow struct {
	Barangay      string `json:"barangay"`
	TotalPatients int    `json:"total_patients"`
	Improving     int    `json:"improving"`
	Stable        int    `json:"stable"`
	Declining     int    `json:"declining"`
	Recovered     int    `json:"recovered"`
}

// ProgressReport is the longitudinal month-bucketed view over the trailing
// window, plus a full-history trend per active patient.
type ProgressReport struct {
	Months           []string              `json:"months"`
	Assessments      []int                 `json:"assessments"`
	Recovered        []int                 `json:"recovered"`
	TotalAssessments int                   `json:"total_assessments"`
	TotalRecovered   int                   `json:"total_recovered"`
	RecoveryRate     int                   `json:"recovery_rate"`
	PatientProgress  []TrendResult         `json:"patient_progress"`
	BarangayProgress []BarangayProgressRow `json:"barangay_progress"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// SystemMetrics represents system level counters captured from
// instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReportExports            uint64    `json:"report_exports"`
	AverageExportDurationMs  float64   `json:"average_export_duration_ms"`
	BulkItemsProcessed       uint64    `json:"bulk_items_processed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// BarangayMapPoint carries the per-barangay latest-classification counts used
// by the coverage map.
type BarangayMapPoint struct {
	BarangayID   string  `json:"barangay_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lng"`
	Severe       int     `json:"severe_count"`
	Malnourished int     `json:"malnourished_count"`
	Underweight  int     `json:"underweight_count"`
	Normal       int     `json:"normal_count"`
	Unknown      int     `json:"unknown_count"`
	PatientCount int     `json:"patient_count"`
}
