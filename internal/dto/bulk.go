package dto

import "github.com/nutricare-ph/nutricare-api/internal/models"

// BulkActionRequest is the wire payload for batch state transitions.
type BulkActionRequest struct {
	Action models.BulkAction `json:"action" binding:"required"`
	IDs    []string          `json:"ids" binding:"required,min=1"`
}
