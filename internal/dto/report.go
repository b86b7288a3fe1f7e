package dto

import "github.com/nutricare-ph/nutricare-api/internal/models"

// ReportExportRequest orders an asynchronous report export.
type ReportExportRequest struct {
	Type     models.ReportType   `json:"type" binding:"required"`
	Format   models.ReportFormat `json:"format" binding:"required"`
	Barangay *string             `json:"barangay,omitempty"`
}
