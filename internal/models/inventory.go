package models

import "time"

// InventoryItem represents a stock record for the feeding program.
type InventoryItem struct {
	ID         string     `db:"id" json:"id"`
	ItemName   string     `db:"item_name" json:"item_name"`
	Category   string     `db:"category" json:"category"`
	Quantity   int        `db:"quantity" json:"quantity"`
	Unit       string     `db:"unit" json:"unit"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// StockThresholds holds the quantity cut-offs for stock alerts.
type StockThresholds struct {
	Low      int `json:"low"`
	Critical int `json:"critical"`
}

// DefaultStockThresholds returns the program's standard alert levels.
func DefaultStockThresholds() StockThresholds {
	return StockThresholds{Low: 10, Critical: 5}
}

// LowStock reports whether the quantity is below the low-stock threshold.
func (i InventoryItem) LowStock(t StockThresholds) bool {
	return i.Quantity < t.Low
}

// CriticalStock reports whether the quantity is below the critical threshold.
func (i InventoryItem) CriticalStock(t StockThresholds) bool {
	return i.Quantity < t.Critical
}

// Expired reports whether the item's expiry date has passed as of now.
func (i InventoryItem) Expired(now time.Time) bool {
	if i.ExpiryDate == nil {
		return false
	}
	return i.ExpiryDate.Before(now)
}

// InventoryItemStatus decorates an item with the derived stock flags.
type InventoryItemStatus struct {
	InventoryItem
	IsLowStock bool `json:"is_low_stock"`
	IsCritical bool `json:"is_critical"`
	IsExpired  bool `json:"is_expired"`
}

// InventoryFilter captures filtering criteria for inventory listings.
type InventoryFilter struct {
	Search    string
	Category  string
	LowStock  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
