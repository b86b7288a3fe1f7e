package models

import "time"

// Audit actions recorded for mutating operations.
const (
	AuditActionPatientCreate  = "PATIENT_CREATE"
	AuditActionPatientUpdate  = "PATIENT_UPDATE"
	AuditActionPatientArchive = "PATIENT_ARCHIVE"
	AuditActionBulkAction     = "BULK_ACTION"
	AuditActionInventoryWrite = "INVENTORY_WRITE"
)

// AuditLog is an append-only trail entry for administrative mutations.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     string    `db:"detail" json:"detail"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
