package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alarms "alarm-cloud/internal/alarms/domain"
	"alarm-cloud/internal/observability/metrics"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Report is an alarm together with its projected occurrences.
type Report struct {
	Alarm       alarms.Alarm
	From        time.Time
	HorizonDays int
	Occurrences []alarms.Occurrence
	GeneratedAt time.Time
}

// Build renders report in format ("pdf" or "xlsx").
func Build(format string, report Report) ([]byte, error) {
	started := time.Now()
	var (
		out []byte
		err error
	)
	switch strings.ToLower(format) {
	case FormatPDF:
		out, err = BuildOccurrencesPDF(report)
	case FormatXLSX:
		out, err = BuildOccurrencesXLSX(report)
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(strings.ToLower(format), result, time.Since(started))
	return out, err
}

// BuildOccurrencesPDF renders a minimal PDF listing upcoming firings.
func BuildOccurrencesPDF(report Report) ([]byte, error) {
	if report.Alarm.ID == "" {
		return nil, errors.New("export: empty alarm")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alarm Occurrences")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Alarm: %s (%s)", alarmName(report.Alarm), report.Alarm.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("User: %s", report.Alarm.UserID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("From: %s", report.From.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Horizon: %d days", report.HorizonDays))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt(report).Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Fires At (UTC)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Schedule", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Override", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, occ := range report.Occurrences {
		pdf.CellFormat(30, 6, occ.Date.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, occ.Instant.UTC().Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, occ.ScheduleID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, overrideText(occ.Override), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	if len(report.Occurrences) == 0 {
		pdf.CellFormat(180, 6, "No occurrences in horizon", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOccurrencesXLSX renders a workbook with a summary sheet and an occurrences sheet.
func BuildOccurrencesXLSX(report Report) ([]byte, error) {
	if report.Alarm.ID == "" {
		return nil, errors.New("export: empty alarm")
	}
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	occurrencesSheet := "occurrences"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(occurrencesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Alarm Occurrences")
	_ = f.SetCellValue(summarySheet, "A3", "Alarm")
	_ = f.SetCellValue(summarySheet, "B3", alarmName(report.Alarm))
	_ = f.SetCellValue(summarySheet, "A4", "Alarm ID")
	_ = f.SetCellValue(summarySheet, "B4", report.Alarm.ID)
	_ = f.SetCellValue(summarySheet, "A5", "User")
	_ = f.SetCellValue(summarySheet, "B5", report.Alarm.UserID)
	_ = f.SetCellValue(summarySheet, "A6", "From")
	_ = f.SetCellValue(summarySheet, "B6", report.From.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A7", "Horizon (days)")
	_ = f.SetCellValue(summarySheet, "B7", report.HorizonDays)
	_ = f.SetCellValue(summarySheet, "A8", "Occurrences")
	_ = f.SetCellValue(summarySheet, "B8", len(report.Occurrences))
	_ = f.SetCellValue(summarySheet, "A9", "Generated")
	_ = f.SetCellValue(summarySheet, "B9", generatedAt(report).Format(time.RFC3339))

	_ = f.SetCellValue(occurrencesSheet, "A1", "Date")
	_ = f.SetCellValue(occurrencesSheet, "B1", "Fires At (UTC)")
	_ = f.SetCellValue(occurrencesSheet, "C1", "Schedule")
	_ = f.SetCellValue(occurrencesSheet, "D1", "Override")
	_ = f.SetCellValue(occurrencesSheet, "E1", "Source")
	for i, occ := range report.Occurrences {
		row := i + 2
		_ = f.SetCellValue(occurrencesSheet, fmt.Sprintf("A%d", row), occ.Date.String())
		_ = f.SetCellValue(occurrencesSheet, fmt.Sprintf("B%d", row), occ.Instant.UTC().Format(time.RFC3339))
		_ = f.SetCellValue(occurrencesSheet, fmt.Sprintf("C%d", row), occ.ScheduleID)
		_ = f.SetCellValue(occurrencesSheet, fmt.Sprintf("D%d", row), overrideText(occ.Override))
		_ = f.SetCellValue(occurrencesSheet, fmt.Sprintf("E%d", row), sourceText(occ.Override))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func alarmName(alarm alarms.Alarm) string {
	if alarm.Name == "" {
		return alarm.ID
	}
	return alarm.Name
}

func generatedAt(report Report) time.Time {
	if report.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return report.GeneratedAt.UTC()
}

func overrideText(resolution alarms.OverrideResolution) string {
	if delay, ok := resolution.Action.(alarms.Delay); ok {
		return fmt.Sprintf("delay %dm", delay.Minutes())
	}
	if resolution.Kind() == alarms.OverrideNone {
		return ""
	}
	return string(resolution.Kind())
}

func sourceText(resolution alarms.OverrideResolution) string {
	if resolution.Source.ID == "" {
		return ""
	}
	return string(resolution.Source.Kind) + ":" + resolution.Source.ID
}
