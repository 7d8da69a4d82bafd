package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/stats"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	"github.com/noah-isme/sma-bulletin-core/pkg/export"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

// Report formats.
const (
	ReportFormatPDF = "pdf"
	ReportFormatCSV = "csv"
)

// ExportFile is a rendered report.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders student grade reports.
type ExportService struct {
	renderers map[string]export.Renderer
	logger    *zap.Logger
}

// NewExportService constructs the service with the PDF and CSV renderers.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		renderers: map[string]export.Renderer{
			ReportFormatPDF: export.NewPDFExporter(),
			ReportFormatCSV: export.NewCSVExporter(),
		},
		logger: logger,
	}
}

// StudentReport renders the grade report of a student. An empty format means PDF.
func (s *ExportService) StudentReport(view store.View, studentID, format string, now time.Time) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ReportFormatPDF
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	student, ok := view.Student(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	grades := make([]models.Grade, 0)
	for _, g := range view.Grades {
		if g.StudentID == studentID {
			grades = append(grades, g)
		}
	}
	sort.SliceStable(grades, func(i, j int) bool { return grades[i].Date > grades[j].Date })

	rows := make([]map[string]string, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, map[string]string{
			"Matière": g.Subject,
			"Type":    g.Type,
			"Note":    fmt.Sprintf("%g/%g", g.Score, g.MaxScore),
			"Date":    dateOnly(g.Date),
		})
	}

	report := export.Report{
		Title: "Bulletin de notes",
		Summary: []export.SummaryLine{
			{Label: "Élève", Value: student.Name},
			{Label: "Date", Value: models.DateKey(now)},
			{Label: "Moyenne générale", Value: fmt.Sprintf("%d%%", stats.StudentAverage(view.Grades, studentID))},
			{Label: "Taux de présence", Value: fmt.Sprintf("%d%%", stats.AttendanceRate(view.Attendance, studentID))},
		},
		Table: export.Dataset{
			Headers: []string{"Matière", "Type", "Note", "Date"},
			Rows:    rows,
		},
	}

	content, err := renderer.Render(report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Debug("student report rendered", zap.String("student_id", studentID), zap.String("format", format), zap.Int("grades", len(grades)))
	return &ExportFile{
		Filename:    fmt.Sprintf("bulletin_%s_%s.%s", slug(student.Name), models.DateKey(now), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func dateOnly(raw string) string {
	if t, ok := models.ParseTime(raw); ok {
		return models.DateKey(t)
	}
	return raw
}

func slug(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return "eleve"
	}
	return strings.Join(fields, "_")
}
