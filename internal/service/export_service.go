package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	"github.com/nutricare-ph/nutricare-api/pkg/export"
	"github.com/nutricare-ph/nutricare-api/pkg/storage"
)

type distributionReporter interface {
	Report(ctx context.Context) (*models.DistributionReport, bool, error)
}

type progressReporter interface {
	Report(ctx context.Context) (*models.ProgressReport, bool, error)
}

type patientLister interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.PatientDetail, *models.Pagination, error)
}

type inventoryLister interface {
	List(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryItemStatus, *models.Pagination, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	distribution distributionReporter
	progress     progressReporter
	patients     patientLister
	inventory    inventoryLister
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Distribution distributionReporter
	Progress     progressReporter
	Patients     patientLister
	Inventory    inventoryLister
	Storage      fileStorage
	Signer       *storage.SignedURLSigner
	CSV          csvRenderer
	PDF          pdfRenderer
	Logger       *zap.Logger
	Config       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		distribution: params.Distribution,
		progress:     params.Progress,
		patients:     params.Patients,
		inventory:    params.Inventory,
		storage:      params.Storage,
		csv:          csv,
		pdf:          pdf,
		signer:       params.Signer,
		logger:       logger,
		cfg:          cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/reports/export/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(string(job.Type)), timestamp, job.Params.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeDistribution:
		return s.buildDistributionDataset(ctx)
	case models.ReportTypeProgress:
		return s.buildProgressDataset(ctx)
	case models.ReportTypePatients:
		return s.buildPatientDataset(ctx, job.Params)
	case models.ReportTypeInventory:
		return s.buildInventoryDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildDistributionDataset(ctx context.Context) (export.Dataset, string, error) {
	report, _, err := s.distribution.Report(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(report.Categories)+1)
	for _, category := range []models.SeverityCategory{
		models.SeveritySevere,
		models.SeverityMalnourished,
		models.SeverityUnderweight,
		models.SeverityNormal,
	} {
		count := report.Categories[category]
		rows = append(rows, map[string]string{
			"Category":       string(category),
			"Count":          fmt.Sprintf("%d", count.Count),
			"Percentage (%)": fmt.Sprintf("%d", count.Percentage),
		})
	}
	rows = append(rows, map[string]string{
		"Category":       "unclassified",
		"Count":          fmt.Sprintf("%d", report.Unclassified),
		"Percentage (%)": "",
	})
	dataset := export.Dataset{
		Headers: []string{"Category", "Count", "Percentage (%)"},
		Rows:    rows,
	}
	return dataset, "Malnutrition Distribution Report", nil
}

func (s *ExportService) buildProgressDataset(ctx context.Context) (export.Dataset, string, error) {
	report, _, err := s.progress.Report(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(report.Months))
	for i, month := range report.Months {
		rows = append(rows, map[string]string{
			"Month":       month,
			"Assessments": fmt.Sprintf("%d", report.Assessments[i]),
			"Recovered":   fmt.Sprintf("%d", report.Recovered[i]),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Month", "Assessments", "Recovered"},
		Rows:    rows,
	}
	return dataset, "Patient Progress Report", nil
}

func (s *ExportService) buildPatientDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.PatientFilter{PageSize: -1}
	if params.Barangay != nil {
		filter.Barangay = *params.Barangay
	}
	patients, _, err := s.patients.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(patients))
	for _, patient := range patients {
		severity := ""
		if patient.LatestAssessment != nil {
			severity = patient.LatestAssessment.SeverityLabel
		}
		rows = append(rows, map[string]string{
			"Patient ID": patient.CustomPatientID,
			"Name":       patient.FullName(),
			"Sex":        patient.Sex,
			"Age (mo)":   fmt.Sprintf("%d", patient.AgeMonths),
			"Barangay":   patient.BarangayName,
			"Severity":   severity,
			"Admitted":   patient.DateOfAdmission.Format("2006-01-02"),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Patient ID", "Name", "Sex", "Age (mo)", "Barangay", "Severity", "Admitted"},
		Rows:    rows,
	}
	return dataset, "Patient Registry Report", nil
}

func (s *ExportService) buildInventoryDataset(ctx context.Context) (export.Dataset, string, error) {
	items, _, err := s.inventory.List(ctx, models.InventoryFilter{PageSize: -1})
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		expiry := ""
		if item.ExpiryDate != nil {
			expiry = item.ExpiryDate.Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Item":      item.ItemName,
			"Category":  item.Category,
			"Quantity":  fmt.Sprintf("%d %s", item.Quantity, item.Unit),
			"Low Stock": fmt.Sprintf("%t", item.IsLowStock),
			"Expired":   fmt.Sprintf("%t", item.IsExpired),
			"Expiry":    expiry,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Item", "Category", "Quantity", "Low Stock", "Expired", "Expiry"},
		Rows:    rows,
	}
	return dataset, "Inventory Report", nil
}
