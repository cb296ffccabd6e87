package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

// maxGlucoseRows caps the glucose table; continuous monitors produce hundreds of readings a day
const maxGlucoseRows = 60

// PDFGenerator renders health activity reports
type PDFGenerator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// ReportData contains all data needed for report generation.
// Empty sections render a placeholder line.
type ReportData struct {
	Platform string
	Period   model.DateRange
	Steps    []model.DailySteps
	Activity []model.DailyActivitySummary
	Glucose  []model.GlucoseSample
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("report data is required")
	}

	g.logger.Info("generating PDF report",
		zap.String("platform", data.Platform),
		zap.Int("step_days", len(data.Steps)),
		zap.Int("activity_days", len(data.Activity)),
		zap.Int("glucose_samples", len(data.Glucose)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf, data)
	g.addSummary(pdf, data)
	g.addDailySteps(pdf, data.Steps)
	g.addDailyActivity(pdf, data.Activity)
	g.addGlucose(pdf, data.Glucose)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, data *ReportData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Activity Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s to %s",
		data.Period.StartDate.Format("2006-01-02"),
		data.Period.EndDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
	if data.Platform != "" {
		pdf.CellFormat(0, 8, fmt.Sprintf("Source: %s", platformName(data.Platform)), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", g.now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

func platformName(os string) string {
	switch os {
	case "ios":
		return "Apple HealthKit"
	case "android":
		return "Health Connect"
	default:
		return os
	}
}

func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addEmpty(pdf *gofpdf.Fpdf, text string) {
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

// tableRow writes one bordered row; header rows are bold and shaded
func tableRow(pdf *gofpdf.Fpdf, widths []float64, cells []string, header bool) {
	if header {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(245, 245, 245)
	}
	for i, cell := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, cell, "1", 0, align, header, 0, "")
	}
	pdf.Ln(-1)
	if header {
		pdf.SetFont("Arial", "", 10)
	}
}

func (g *PDFGenerator) addSummary(pdf *gofpdf.Fpdf, data *ReportData) {
	g.addSectionHeader(pdf, "Summary")

	if len(data.Steps) > 0 {
		total := model.SumDailySteps(data.Steps)
		pdf.CellFormat(0, 6, fmt.Sprintf("Total steps: %d (average %.0f per day)",
			total, float64(total)/float64(len(data.Steps))), "", 1, "L", false, 0, "")
	}
	if len(data.Activity) > 0 {
		pdf.CellFormat(0, 6, fmt.Sprintf("Active calories: %.0f kcal", model.SumActiveCalories(data.Activity)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Distance: %.2f km", model.SumDistance(data.Activity)/1000), "", 1, "L", false, 0, "")
	}
	if len(data.Glucose) > 0 {
		low, high, sum := data.Glucose[0].ValueMgdl, data.Glucose[0].ValueMgdl, 0.0
		for _, s := range data.Glucose {
			sum += s.ValueMgdl
			low = min(low, s.ValueMgdl)
			high = max(high, s.ValueMgdl)
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("Glucose: %d readings, average %.0f mg/dL (range %.0f-%.0f)",
			len(data.Glucose), sum/float64(len(data.Glucose)), low, high), "", 1, "L", false, 0, "")
	}
	if len(data.Steps) == 0 && len(data.Activity) == 0 && len(data.Glucose) == 0 {
		pdf.CellFormat(0, 6, "No health data recorded during this period.", "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addDailySteps(pdf *gofpdf.Fpdf, days []model.DailySteps) {
	g.addSectionHeader(pdf, "Daily Steps")

	if len(days) == 0 {
		g.addEmpty(pdf, "No step data recorded during this period.")
		return
	}

	widths := []float64{60, 40}
	tableRow(pdf, widths, []string{"Date", "Steps"}, true)
	for _, d := range days {
		tableRow(pdf, widths, []string{d.Date, fmt.Sprintf("%d", d.Steps)}, false)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addDailyActivity(pdf *gofpdf.Fpdf, days []model.DailyActivitySummary) {
	g.addSectionHeader(pdf, "Daily Activity")

	if len(days) == 0 {
		g.addEmpty(pdf, "No activity data recorded during this period.")
		return
	}

	widths := []float64{60, 50, 50}
	tableRow(pdf, widths, []string{"Date", "Active kcal", "Distance (km)"}, true)
	for _, d := range days {
		tableRow(pdf, widths, []string{
			d.Date,
			fmt.Sprintf("%.0f", d.ActiveCaloriesBurned),
			fmt.Sprintf("%.2f", d.Distance/1000),
		}, false)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addGlucose(pdf *gofpdf.Fpdf, samples []model.GlucoseSample) {
	g.addSectionHeader(pdf, "Blood Glucose")

	if len(samples) == 0 {
		g.addEmpty(pdf, "No glucose readings recorded during this period.")
		return
	}

	shown := samples
	if len(shown) > maxGlucoseRows {
		shown = shown[len(shown)-maxGlucoseRows:]
		pdf.CellFormat(0, 6, fmt.Sprintf("Showing the latest %d of %d readings.", maxGlucoseRows, len(samples)), "", 1, "L", false, 0, "")
	}

	widths := []float64{60, 35, 40, 35}
	tableRow(pdf, widths, []string{"Measured (UTC)", "mg/dL", "Recorded as", "Source"}, true)
	for _, s := range shown {
		source := ""
		if s.Source != nil {
			source = *s.Source
		}
		measured := s.MeasuredAtISO
		if t, err := time.Parse(model.ISOFormat, s.MeasuredAtISO); err == nil {
			measured = t.UTC().Format("2006-01-02 15:04")
		}
		tableRow(pdf, widths, []string{
			measured,
			fmt.Sprintf("%.0f", s.ValueMgdl),
			fmt.Sprintf("%g %s", s.OriginalValue, s.OriginalUnit),
			pdf.UnicodeTranslatorFromDescriptor("")(truncate(source, 18)),
		}, false)
	}
	pdf.Ln(5)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
