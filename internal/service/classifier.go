package service

import (
	"strings"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

// Classifier maps a measurement to a severity category using configurable
// BMI thresholds. The reference cut-offs give underweight (< 17) and
// malnourished ([16, 18.5)) overlapping bands; the precedence order decides
// which label wins inside the overlap, with the more severe label first.
type Classifier struct {
	thresholds models.SeverityThresholds
	precedence []models.SeverityCategory
}

// NewClassifier builds a classifier. Zero thresholds fall back to the
// program defaults, and an empty precedence falls back to
// severe > malnourished > underweight > normal.
func NewClassifier(thresholds models.SeverityThresholds, precedence ...models.SeverityCategory) *Classifier {
	if thresholds.Severe <= 0 || thresholds.Underweight <= 0 || thresholds.Malnourished <= 0 {
		thresholds = models.DefaultSeverityThresholds()
	}
	if len(precedence) == 0 {
		precedence = []models.SeverityCategory{
			models.SeveritySevere,
			models.SeverityMalnourished,
			models.SeverityUnderweight,
		}
	}
	return &Classifier{thresholds: thresholds, precedence: precedence}
}

// Thresholds exposes the active cut-offs.
func (c *Classifier) Thresholds() models.SeverityThresholds {
	return c.thresholds
}

// ClassifyBMI maps a BMI value to exactly one category. Pure; safe for any
// finite input.
func (c *Classifier) ClassifyBMI(bmi float64) models.SeverityCategory {
	for _, category := range c.precedence {
		if c.inBand(category, bmi) {
			return category
		}
	}
	return models.SeverityNormal
}

// Classify resolves the category for one measurement. An externally supplied
// severity label wins over local classification; ok=false marks the
// measurement unclassifiable (no usable BMI and no label).
func (c *Classifier) Classify(a models.Assessment) (models.SeverityCategory, bool) {
	if label := parseSeverityLabel(a.SeverityLabel); label != "" {
		return label, true
	}
	bmi, ok := a.BMI()
	if !ok {
		return "", false
	}
	return c.ClassifyBMI(bmi), true
}

func (c *Classifier) inBand(category models.SeverityCategory, bmi float64) bool {
	switch category {
	case models.SeveritySevere:
		return bmi < c.thresholds.Severe
	case models.SeverityMalnourished:
		return bmi >= c.thresholds.Severe && bmi < c.thresholds.Malnourished
	case models.SeverityUnderweight:
		return bmi < c.thresholds.Underweight
	case models.SeverityNormal:
		return bmi >= c.thresholds.Malnourished
	}
	return false
}

// parseSeverityLabel normalises the label vocabulary of the external
// assessment API onto the local enumeration. The legacy service emits both
// the category names and severity grades (severe/moderate/mild).
func parseSeverityLabel(raw string) models.SeverityCategory {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(models.SeveritySevere), "severe":
		return models.SeveritySevere
	case string(models.SeverityMalnourished), "moderate":
		return models.SeverityMalnourished
	case string(models.SeverityUnderweight), "mild":
		return models.SeverityUnderweight
	case string(models.SeverityNormal), "recovered":
		return models.SeverityNormal
	}
	return ""
}
