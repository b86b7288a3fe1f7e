package models

// Barangay is the geographic administrative unit used for spatial
// aggregation of patients.
type Barangay struct {
	ID        string   `db:"id" json:"id"`
	Name      string   `db:"name" json:"name"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
}
