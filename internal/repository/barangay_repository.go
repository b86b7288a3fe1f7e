package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

// BarangayRepository reads the barangay reference table.
type BarangayRepository struct {
	db *sqlx.DB
}

// NewBarangayRepository constructs a BarangayRepository.
func NewBarangayRepository(db *sqlx.DB) *BarangayRepository {
	return &BarangayRepository{db: db}
}

// List returns all barangays ordered by name.
func (r *BarangayRepository) List(ctx context.Context) ([]models.Barangay, error) {
	const query = `SELECT id, name, latitude, longitude FROM barangays ORDER BY name ASC`
	var barangays []models.Barangay
	if err := r.db.SelectContext(ctx, &barangays, query); err != nil {
		return nil, fmt.Errorf("list barangays: %w", err)
	}
	return barangays, nil
}

// FindByID fetches one barangay.
func (r *BarangayRepository) FindByID(ctx context.Context, id string) (*models.Barangay, error) {
	const query = `SELECT id, name, latitude, longitude FROM barangays WHERE id = $1`
	var barangay models.Barangay
	if err := r.db.GetContext(ctx, &barangay, query, id); err != nil {
		return nil, err
	}
	return &barangay, nil
}
