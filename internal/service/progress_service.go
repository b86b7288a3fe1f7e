package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type patientRecordFinder interface {
	FindRecord(ctx context.Context, id string) (*models.PatientRecord, error)
}

// ProgressServiceConfig tunes the longitudinal report.
type ProgressServiceConfig struct {
	WindowMonths int
	CacheTTL     time.Duration
}

// ProgressService builds the month-bucketed progress report over the trailing
// window plus a full-history trend per patient. Month buckets always span the
// whole window; months without activity stay present with zero counts.
type ProgressService struct {
	records  patientRecordSource
	finder   patientRecordFinder
	detector *TrendDetector
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      ProgressServiceConfig
}

// NewProgressService constructs a ProgressService with sane defaults.
func NewProgressService(records patientRecordSource, finder patientRecordFinder, detector *TrendDetector, cache *CacheService, logger *zap.Logger, cfg ProgressServiceConfig) *ProgressService {
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 6
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = NewTrendDetector(nil)
	}
	return &ProgressService{
		records:  records,
		finder:   finder,
		detector: detector,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

const progressCacheKey = "report:progress"

// monthLabel is the bucket label format, e.g. "Aug 2026".
const monthLabel = "Jan 2006"

// Report returns the progress report and indicates cache utilisation.
func (s *ProgressService) Report(ctx context.Context) (*models.ProgressReport, bool, error) {
	if s.cache != nil {
		var cached models.ProgressReport
		hit, err := s.cache.Get(ctx, progressCacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	records, err := s.records.ListActiveRecords(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to load patient records")
	}
	report := s.compose(records)
	if s.cache != nil {
		if err := s.cache.Set(ctx, progressCacheKey, report, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("progress cache write failed", zap.Error(err))
		}
	}
	return report, false, nil
}

func (s *ProgressService) compose(records []models.PatientRecord) *models.ProgressReport {
	now := s.now().UTC()
	windowStart := monthFloor(now).AddDate(0, -(s.cfg.WindowMonths - 1), 0)

	report := &models.ProgressReport{
		Months:           make([]string, s.cfg.WindowMonths),
		Assessments:      make([]int, s.cfg.WindowMonths),
		Recovered:        make([]int, s.cfg.WindowMonths),
		PatientProgress:  []models.TrendResult{},
		BarangayProgress: []models.BarangayProgressRow{},
		GeneratedAt:      now,
	}
	bucketIndex := make(map[string]int, s.cfg.WindowMonths)
	for i := 0; i < s.cfg.WindowMonths; i++ {
		label := windowStart.AddDate(0, i, 0).Format(monthLabel)
		report.Months[i] = label
		bucketIndex[label] = i
	}

	perBarangay := make(map[string]*models.BarangayProgressRow)
	for _, record := range records {
		inWindow := false
		for i, assessment := range record.Assessments {
			bucket, ok := bucketIndex[assessment.AssessmentDate.UTC().Format(monthLabel)]
			if !ok || assessment.AssessmentDate.UTC().Before(windowStart) {
				continue
			}
			inWindow = true
			report.Assessments[bucket]++
			report.TotalAssessments++
			if s.detector.RecoveredAt(record, i) {
				report.Recovered[bucket]++
				report.TotalRecovered++
			}
		}
		// Patients without a measurement in the window stay out of the
		// per-patient and per-barangay listings.
		if !inWindow {
			continue
		}

		trend := s.detector.Detect(record)
		report.PatientProgress = append(report.PatientProgress, trend)

		row, exists := perBarangay[record.BarangayName]
		if !exists {
			row = &models.BarangayProgressRow{Barangay: record.BarangayName}
			perBarangay[record.BarangayName] = row
		}
		row.TotalPatients++
		switch trend.Trend {
		case models.TrendImproving:
			row.Improving++
		case models.TrendDeclining:
			row.Declining++
		default:
			row.Stable++
		}
		if s.recoveredInWindow(record, windowStart) {
			row.Recovered++
		}
	}

	report.RecoveryRate = percentOf(report.TotalRecovered, report.TotalAssessments)

	sort.SliceStable(report.PatientProgress, func(i, j int) bool {
		return report.PatientProgress[i].PatientName < report.PatientProgress[j].PatientName
	})
	names := make([]string, 0, len(perBarangay))
	for name := range perBarangay {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.BarangayProgress = append(report.BarangayProgress, *perBarangay[name])
	}
	return report
}

// PatientTrend recomputes one patient's full-history trend on demand.
func (s *ProgressService) PatientTrend(ctx context.Context, id string) (*models.TrendResult, error) {
	if s.finder == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "record finder unavailable")
	}
	record, err := s.finder.FindRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient history")
	}
	trend := s.detector.Detect(*record)
	return &trend, nil
}

// recoveredInWindow reports whether the patient's most recent recovery event
// falls inside the trailing window.
func (s *ProgressService) recoveredInWindow(record models.PatientRecord, windowStart time.Time) bool {
	i := s.detector.LatestRecoveryIndex(record)
	if i < 0 {
		return false
	}
	return !record.Assessments[i].AssessmentDate.UTC().Before(windowStart)
}

// monthFloor truncates a time to the first instant of its month.
func monthFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
