package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type patientRepository interface {
	ListDetails(ctx context.Context, archived *bool) ([]models.PatientDetail, error)
	FindByID(ctx context.Context, id string) (*models.PatientDetail, error)
	ExistsByCustomID(ctx context.Context, customID string, excludeID string) (bool, error)
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreatePatientRequest holds payload for registering patients.
type CreatePatientRequest struct {
	CustomPatientID string    `json:"custom_patient_id" validate:"required"`
	FirstName       string    `json:"first_name" validate:"required"`
	LastName        string    `json:"last_name" validate:"required"`
	Sex             string    `json:"sex" validate:"required,oneof=male female"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	BarangayID      string    `json:"barangay_id" validate:"required"`
	ContactNumber   string    `json:"contact_number"`
	DateOfAdmission time.Time `json:"date_of_admission" validate:"required"`
}

// UpdatePatientRequest holds payload for updating patients.
type UpdatePatientRequest struct {
	CustomPatientID string    `json:"custom_patient_id" validate:"required"`
	FirstName       string    `json:"first_name" validate:"required"`
	LastName        string    `json:"last_name" validate:"required"`
	Sex             string    `json:"sex" validate:"required,oneof=male female"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	BarangayID      string    `json:"barangay_id" validate:"required"`
	ContactNumber   string    `json:"contact_number"`
	DateOfAdmission time.Time `json:"date_of_admission" validate:"required"`
}

// PatientService handles patient registry use-cases. Listing always loads the
// scoped registry and filters in memory, so search, equality filters and
// pagination behave identically over live and archived views.
type PatientService struct {
	repo      patientRepository
	validator *validator.Validate
	cache     *CacheService
	audit     auditWriter
	logger    *zap.Logger
}

// NewPatientService constructs the patient service.
func NewPatientService(repo patientRepository, validate *validator.Validate, cache *CacheService, audit auditWriter, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, validator: validate, cache: cache, audit: audit, logger: logger}
}

func patientFieldIndex() FieldIndex[models.PatientDetail] {
	return FieldIndex[models.PatientDetail]{
		Text: map[string]func(models.PatientDetail) string{
			"name":              func(p models.PatientDetail) string { return p.FullName() },
			"custom_patient_id": func(p models.PatientDetail) string { return p.CustomPatientID },
			"barangay":          func(p models.PatientDetail) string { return p.BarangayName },
			"sex":               func(p models.PatientDetail) string { return p.Sex },
			"contact_number":    func(p models.PatientDetail) string { return p.ContactNumber },
		},
		Date: func(p models.PatientDetail) time.Time { return p.DateOfAdmission },
		Numeric: map[string]func(models.PatientDetail) float64{
			"age_months": func(p models.PatientDetail) float64 { return float64(p.AgeMonths) },
		},
	}
}

// List returns patients matching the filter plus pagination metadata.
func (s *PatientService) List(ctx context.Context, filter models.PatientFilter) ([]models.PatientDetail, *models.Pagination, error) {
	patients, err := s.repo.ListDetails(ctx, filter.Archived)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to list patients")
	}

	spec := FilterSpec{Search: filter.Search, Equals: map[string]string{}}
	if filter.Barangay != "" {
		spec.Equals["barangay"] = filter.Barangay
	}
	if filter.Sex != "" {
		spec.Equals["sex"] = filter.Sex
	}
	if filter.AgeMonthsMin != nil || filter.AgeMonthsMax != nil {
		spec.NumericField = "age_months"
		if filter.AgeMonthsMin != nil {
			min := float64(*filter.AgeMonthsMin)
			spec.NumericMin = &min
		}
		if filter.AgeMonthsMax != nil {
			max := float64(*filter.AgeMonthsMax)
			spec.NumericMax = &max
		}
	}
	matched := ApplyFilter(patients, spec, patientFieldIndex())

	// PageSize < 0 disables pagination (used by exports).
	if filter.PageSize < 0 {
		return matched, &models.Pagination{Page: 1, PageSize: len(matched), TotalCount: len(matched)}, nil
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size == 0 {
		size = 20
	}
	paged, total := Paginate(matched, page, size)
	return paged, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one patient with its latest assessment.
func (s *PatientService) Get(ctx context.Context, id string) (*models.PatientDetail, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Create registers a new patient.
func (s *PatientService) Create(ctx context.Context, req CreatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	exists, err := s.repo.ExistsByCustomID(ctx, req.CustomPatientID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate patient id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "patient id already used")
	}
	patient := &models.Patient{
		CustomPatientID: req.CustomPatientID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Sex:             req.Sex,
		BirthDate:       req.BirthDate,
		AgeMonths:       ageMonthsAt(req.BirthDate, req.DateOfAdmission),
		BarangayID:      req.BarangayID,
		ContactNumber:   req.ContactNumber,
		DateOfAdmission: req.DateOfAdmission,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}
	s.invalidateReports(ctx)
	s.writeAudit(ctx, models.AuditActionPatientCreate, patient.ID, patient.FullName())
	return patient, nil
}

// Update modifies an existing patient record.
func (s *PatientService) Update(ctx context.Context, id string, req UpdatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	exists, err := s.repo.ExistsByCustomID(ctx, req.CustomPatientID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate patient id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "patient id already used")
	}
	patient := detail.Patient
	patient.CustomPatientID = req.CustomPatientID
	patient.FirstName = req.FirstName
	patient.LastName = req.LastName
	patient.Sex = req.Sex
	patient.BirthDate = req.BirthDate
	patient.AgeMonths = ageMonthsAt(req.BirthDate, req.DateOfAdmission)
	patient.BarangayID = req.BarangayID
	patient.ContactNumber = req.ContactNumber
	patient.DateOfAdmission = req.DateOfAdmission
	if err := s.repo.Update(ctx, &patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update patient")
	}
	s.invalidateReports(ctx)
	s.writeAudit(ctx, models.AuditActionPatientUpdate, patient.ID, patient.FullName())
	return &patient, nil
}

// Archive moves a patient out of the active registry without deleting data.
func (s *PatientService) Archive(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, true)
}

// Unarchive restores an archived patient to the active registry.
func (s *PatientService) Unarchive(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, false)
}

func (s *PatientService) setArchived(ctx context.Context, id string, archived bool) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if detail.Archived() == archived {
		return appErrors.Clone(appErrors.ErrConflict, "patient already in requested state")
	}
	if err := s.repo.SetArchived(ctx, id, archived); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive patient")
	}
	s.invalidateReports(ctx)
	s.writeAudit(ctx, models.AuditActionPatientArchive, id, strconv.FormatBool(archived))
	return nil
}

func (s *PatientService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "report:*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

func (s *PatientService) writeAudit(ctx context.Context, action, resourceID, detail string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "patient",
		ResourceID: &resourceID,
		Detail:     detail,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist patient audit log", zap.Error(err))
	}
}

// ageMonthsAt computes whole months between birth and the reference date.
func ageMonthsAt(birth, at time.Time) int {
	if at.Before(birth) {
		return 0
	}
	months := (at.Year()-birth.Year())*12 + int(at.Month()) - int(birth.Month())
	if at.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// PatientMutator adapts the patient registry to bulk state transitions.
type PatientMutator struct {
	repo patientRepository
}

// NewPatientMutator wraps the repository for bulk coordination.
func NewPatientMutator(repo patientRepository) *PatientMutator {
	return &PatientMutator{repo: repo}
}

// Resolve returns refs for the known ids; unknown ids are omitted so the
// per-item mutation reports them.
func (m *PatientMutator) Resolve(ctx context.Context, ids []string) ([]EntityRef, error) {
	refs := make([]EntityRef, 0, len(ids))
	for _, id := range ids {
		detail, err := m.repo.FindByID(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, err
		}
		refs = append(refs, EntityRef{ID: detail.ID, Name: detail.FullName()})
	}
	return refs, nil
}

// Apply performs one state transition for one patient.
func (m *PatientMutator) Apply(ctx context.Context, id string, action models.BulkAction) error {
	detail, err := m.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("patient %s not found", id)
		}
		return err
	}
	switch action {
	case models.BulkArchive, models.BulkDeactivate:
		if detail.Archived() {
			return fmt.Errorf("patient %s already archived", id)
		}
		return m.repo.SetArchived(ctx, id, true)
	case models.BulkUnarchive, models.BulkRestore, models.BulkActivate:
		if !detail.Archived() {
			return fmt.Errorf("patient %s is not archived", id)
		}
		return m.repo.SetArchived(ctx, id, false)
	case models.BulkDelete:
		return m.repo.Delete(ctx, id)
	}
	return fmt.Errorf("unsupported action %s for patients", action)
}
