package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Relevé de notes",
		Summary: []SummaryLine{
			{Label: "Élève", Value: "Awa Diop"},
			{Label: "Moyenne générale", Value: "85%"},
		},
		Table: Dataset{
			Headers: []string{"Matière", "Note"},
			Rows: []map[string]string{
				{"Matière": "Maths", "Note": "18/20"},
				{"Matière": "Français"},
			},
		},
	}
}

func TestCSVExporter(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, []string{
		"Relevé de notes",
		"Élève,Awa Diop",
		"Moyenne générale,85%",
		"",
		"Matière,Note",
		"Maths,18/20",
		"Français,",
	}, lines)
}

func TestPDFExporter(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Report{})
	assert.Error(t, err)
}
