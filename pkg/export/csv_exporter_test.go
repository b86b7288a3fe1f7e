package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	sheet := Dataset{
		Headers: []string{"Patient", "Barangay", "Severity"},
		Rows: []map[string]string{
			{"Patient": "Ana Cruz", "Barangay": "Poblacion", "Severity": "severe_malnourishment"},
			{"Patient": "Ben Reyes", "Severity": "normal"}, // missing barangay renders empty
		},
	}

	out, err := NewCSVExporter().Render(sheet)
	require.NoError(t, err)
	assert.Equal(t,
		"Patient,Barangay,Severity\n"+
			"Ana Cruz,Poblacion,severe_malnourishment\n"+
			"Ben Reyes,,normal\n",
		string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	sheet := Dataset{
		Headers: []string{"Barangay", "Severe"},
		Rows:    []map[string]string{{"Barangay": "Poblacion", "Severe": "2"}},
	}

	out, err := NewPDFExporter().Render(sheet, "Severity Distribution")
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))

	_, err = NewPDFExporter().Render(Dataset{}, "empty")
	require.Error(t, err)
}
