package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nutricare-ph/nutricare-api/internal/dto"
	"github.com/nutricare-ph/nutricare-api/internal/models"
	"github.com/nutricare-ph/nutricare-api/internal/service"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
	"github.com/nutricare-ph/nutricare-api/pkg/response"
)

// PatientHandler exposes the patient registry endpoints.
type PatientHandler struct {
	patients *service.PatientService
	bulk     *service.BulkService
	mutator  *service.PatientMutator
}

// NewPatientHandler constructs handler.
func NewPatientHandler(patients *service.PatientService, bulk *service.BulkService, mutator *service.PatientMutator) *PatientHandler {
	return &PatientHandler{patients: patients, bulk: bulk, mutator: mutator}
}

// List godoc
// @Summary List patients
// @Tags Patients
// @Produce json
// @Param search query string false "Name, patient id or barangay substring"
// @Param barangay query string false "Barangay name"
// @Param sex query string false "Sex"
// @Param archived query bool false "Archived view"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	filter := models.PatientFilter{
		Search:   c.Query("search"),
		Barangay: c.Query("barangay"),
		Sex:      c.Query("sex"),
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "pageSize", 20),
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "archived must be a boolean"))
			return
		}
		filter.Archived = &archived
	} else {
		live := false
		filter.Archived = &live
	}
	patients, pagination, err := h.patients.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Get godoc
// @Summary Patient detail with latest assessment
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /patients/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Create godoc
// @Summary Register a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body service.CreatePatientRequest true "Patient"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	var req service.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload"))
		return
	}
	patient, err := h.patients.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update godoc
// @Summary Update a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body service.UpdatePatientRequest true "Patient"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /patients/{id} [put]
func (h *PatientHandler) Update(c *gin.Context) {
	var req service.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid patient payload"))
		return
	}
	patient, err := h.patients.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Archive godoc
// @Summary Archive a patient
// @Tags Patients
// @Param id path string true "Patient ID"
// @Success 204
// @Security BearerAuth
// @Router /patients/{id}/archive [post]
func (h *PatientHandler) Archive(c *gin.Context) {
	if err := h.patients.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unarchive godoc
// @Summary Restore an archived patient
// @Tags Patients
// @Param id path string true "Patient ID"
// @Success 204
// @Security BearerAuth
// @Router /patients/{id}/unarchive [post]
func (h *PatientHandler) Unarchive(c *gin.Context) {
	if err := h.patients.Unarchive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkAction godoc
// @Summary Apply a state transition to a set of patients
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body dto.BulkActionRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /patients/bulk [post]
func (h *PatientHandler) BulkAction(c *gin.Context) {
	var req dto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload"))
		return
	}
	result, err := h.bulk.Apply(c.Request.Context(), h.mutator, models.SelectionSet{IDs: req.IDs}, req.Action, service.BulkOptions{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
