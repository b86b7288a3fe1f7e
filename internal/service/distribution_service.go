package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type patientRecordSource interface {
	ListActiveRecords(ctx context.Context) ([]models.PatientRecord, error)
}

type barangayLister interface {
	List(ctx context.Context) ([]models.Barangay, error)
}

// DistributionServiceConfig tunes report composition.
type DistributionServiceConfig struct {
	CacheTTL time.Duration
}

// DistributionService builds the cross-sectional severity breakdown of the
// monitored population. Every patient is classified on the latest measurement
// only; historical measurements never influence the distribution.
type DistributionService struct {
	records    patientRecordSource
	barangays  barangayLister
	classifier *Classifier
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DistributionServiceConfig
}

// NewDistributionService constructs a DistributionService with sane defaults.
func NewDistributionService(records patientRecordSource, barangays barangayLister, classifier *Classifier, cache *CacheService, logger *zap.Logger, cfg DistributionServiceConfig) *DistributionService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = NewClassifier(models.DefaultSeverityThresholds())
	}
	return &DistributionService{
		records:    records,
		barangays:  barangays,
		classifier: classifier,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

const distributionCacheKey = "report:distribution"

// Report returns the severity distribution and indicates cache utilisation.
func (s *DistributionService) Report(ctx context.Context) (*models.DistributionReport, bool, error) {
	if s.cache != nil {
		var cached models.DistributionReport
		hit, err := s.cache.Get(ctx, distributionCacheKey, &cached)
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
		if err := s.cache.Set(ctx, distributionCacheKey, report, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("distribution cache write failed", zap.Error(err))
		}
	}
	return report, false, nil
}

func (s *DistributionService) compose(records []models.PatientRecord) *models.DistributionReport {
	report := &models.DistributionReport{
		Categories:        make(map[models.SeverityCategory]models.CategoryCount, 4),
		BarangayBreakdown: []models.BarangayRiskRow{},
		GeneratedAt:       s.now().UTC(),
	}
	for _, category := range []models.SeverityCategory{
		models.SeverityNormal,
		models.SeverityUnderweight,
		models.SeverityMalnourished,
		models.SeveritySevere,
	} {
		report.Categories[category] = models.CategoryCount{}
	}

	perBarangay := make(map[string]*models.BarangayRiskRow)
	classified := 0
	for _, record := range records {
		latest := record.Latest()
		if latest == nil {
			report.Unclassified++
			continue
		}
		category, ok := s.classifier.Classify(*latest)
		if !ok {
			report.Unclassified++
			continue
		}
		classified++
		count := report.Categories[category]
		count.Count++
		report.Categories[category] = count

		if !category.AtRisk() {
			continue
		}
		row, exists := perBarangay[record.BarangayName]
		if !exists {
			row = &models.BarangayRiskRow{Barangay: record.BarangayName}
			perBarangay[record.BarangayName] = row
		}
		switch category {
		case models.SeveritySevere:
			row.Severe++
		case models.SeverityMalnourished:
			row.Malnourished++
		case models.SeverityUnderweight:
			row.Underweight++
		}
		row.Total++
	}

	report.Total = classified + report.Unclassified
	for category, count := range report.Categories {
		count.Percentage = percentOf(count.Count, classified)
		report.Categories[category] = count
	}

	for _, row := range perBarangay {
		switch {
		case row.Severe > 0:
			row.Priority = models.PriorityCritical
		case row.Malnourished > 0:
			row.Priority = models.PriorityHigh
		default:
			row.Priority = models.PriorityMedium
		}
		report.BarangayBreakdown = append(report.BarangayBreakdown, *row)
	}
	sort.SliceStable(report.BarangayBreakdown, func(i, j int) bool {
		a, b := report.BarangayBreakdown[i], report.BarangayBreakdown[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Barangay < b.Barangay
	})
	return report
}

// MapData aggregates latest-measurement classifications per barangay for the
// coverage map. Barangays without coordinates are omitted.
func (s *DistributionService) MapData(ctx context.Context) ([]models.BarangayMapPoint, error) {
	barangays, err := s.barangays.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to list barangays")
	}
	records, err := s.records.ListActiveRecords(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to load patient records")
	}

	points := make(map[string]*models.BarangayMapPoint, len(barangays))
	order := make([]string, 0, len(barangays))
	for _, barangay := range barangays {
		if barangay.Latitude == nil || barangay.Longitude == nil {
			continue
		}
		points[barangay.Name] = &models.BarangayMapPoint{
			BarangayID: barangay.ID,
			Name:       barangay.Name,
			Latitude:   *barangay.Latitude,
			Longitude:  *barangay.Longitude,
		}
		order = append(order, barangay.Name)
	}

	for _, record := range records {
		point, ok := points[record.BarangayName]
		if !ok {
			continue
		}
		point.PatientCount++
		latest := record.Latest()
		if latest == nil {
			point.Unknown++
			continue
		}
		category, ok := s.classifier.Classify(*latest)
		if !ok {
			point.Unknown++
			continue
		}
		switch category {
		case models.SeveritySevere:
			point.Severe++
		case models.SeverityMalnourished:
			point.Malnourished++
		case models.SeverityUnderweight:
			point.Underweight++
		default:
			point.Normal++
		}
	}

	sort.Strings(order)
	result := make([]models.BarangayMapPoint, 0, len(order))
	for _, name := range order {
		result = append(result, *points[name])
	}
	return result, nil
}

// percentOf computes an integer percentage share, rounding half up.
func percentOf(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(whole)*100 + 0.5))
}
