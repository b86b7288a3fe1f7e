package service

import (
	"strings"
	"time"
)

// FilterSpec is a composable, AND-combined predicate applied in memory to an
// already-loaded collection. All fields are optional; a zero spec matches
// everything and reports Applied() == false so callers can distinguish
// "no filters" from "filters matched nothing".
type FilterSpec struct {
	// Search is a case-insensitive substring matched against the
	// collection's registered text fields. When Fields is non-empty the
	// search is restricted to those field names.
	Search string
	Fields []string
	// Equals demands exact (case-insensitive) equality per named field.
	Equals map[string]string
	// DateFrom/DateTo bound the item date inclusively; either may be nil.
	DateFrom *time.Time
	DateTo   *time.Time
	// NumericMin/NumericMax bound the named numeric field inclusively.
	NumericField string
	NumericMin   *float64
	NumericMax   *float64
}

// Applied reports whether the spec constrains anything.
func (s FilterSpec) Applied() bool {
	return s.Search != "" || len(s.Equals) > 0 ||
		s.DateFrom != nil || s.DateTo != nil ||
		s.NumericMin != nil || s.NumericMax != nil
}

// FieldIndex registers the named accessors a collection type exposes to the
// filter engine.
type FieldIndex[T any] struct {
	Text    map[string]func(T) string
	Date    func(T) time.Time
	Numeric map[string]func(T) float64
}

// ApplyFilter returns the items matching the spec, preserving input order.
// It never returns nil: an empty match is a first-class, non-error outcome.
// Applying the same spec to its own output yields the same result.
func ApplyFilter[T any](items []T, spec FilterSpec, idx FieldIndex[T]) []T {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if matchesFilter(item, spec, idx) {
			matched = append(matched, item)
		}
	}
	return matched
}

func matchesFilter[T any](item T, spec FilterSpec, idx FieldIndex[T]) bool {
	if spec.Search != "" {
		if !matchesSearch(item, spec, idx) {
			return false
		}
	}
	for field, want := range spec.Equals {
		accessor, ok := idx.Text[field]
		if !ok {
			return false
		}
		if !strings.EqualFold(strings.TrimSpace(accessor(item)), strings.TrimSpace(want)) {
			return false
		}
	}
	if spec.DateFrom != nil || spec.DateTo != nil {
		if idx.Date == nil {
			return false
		}
		date := idx.Date(item)
		if spec.DateFrom != nil && date.Before(*spec.DateFrom) {
			return false
		}
		if spec.DateTo != nil && date.After(*spec.DateTo) {
			return false
		}
	}
	if spec.NumericMin != nil || spec.NumericMax != nil {
		accessor, ok := idx.Numeric[spec.NumericField]
		if !ok {
			return false
		}
		value := accessor(item)
		if spec.NumericMin != nil && value < *spec.NumericMin {
			return false
		}
		if spec.NumericMax != nil && value > *spec.NumericMax {
			return false
		}
	}
	return true
}

func matchesSearch[T any](item T, spec FilterSpec, idx FieldIndex[T]) bool {
	needle := strings.ToLower(strings.TrimSpace(spec.Search))
	if needle == "" {
		return true
	}
	fields := spec.Fields
	if len(fields) == 0 {
		for name := range idx.Text {
			fields = append(fields, name)
		}
	}
	for _, name := range fields {
		accessor, ok := idx.Text[name]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(accessor(item)), needle) {
			return true
		}
	}
	return false
}

// Paginate slices a filtered collection into the requested page. Page size
// comes from the caller; the engine imposes no fixed size.
func Paginate[T any](items []T, page, pageSize int) ([]T, int) {
	total := len(items)
	if pageSize <= 0 {
		return items, total
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []T{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], total
}
