package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders reports into a single-column A4 document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

// Render lays out the title, summary lines and table.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	headers := report.Table.Headers
	if len(headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	if report.Title != "" {
		pdf.SetFont("Helvetica", "B", 20)
		pdf.CellFormat(0, 12, tr(report.Title), "", 1, "L", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range report.Summary {
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s: %s", line.Label, line.Value)), "", 1, "L", false, 0, "")
	}
	if len(report.Summary) > 0 {
		pdf.Ln(6)
	}

	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (width - left - right) / float64(len(headers))

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for _, header := range headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range report.Table.Rows {
		for _, header := range headers {
			pdf.CellFormat(colWidth, 7, tr(row[header]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
