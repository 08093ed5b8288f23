package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	telemetry "campus-pulse/internal/telemetry/domain"
)

// BuildCommutePDF renders the current commute records as a one-page table.
func BuildCommutePDF(records []telemetry.CommuteRecord, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Commute Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Destinations: %d", len(records)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Destination", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Minutes", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Traffic", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Last Updated", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, record := range records {
		pdf.CellFormat(70, 6, displayName(record), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", record.Minutes), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, string(record.Tier), "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, record.LastUpdated.UTC().Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildCommuteXLSX renders the current commute records as a workbook.
func BuildCommuteXLSX(records []telemetry.CommuteRecord, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	sheet := "commutes"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Commute Report")
	_ = f.SetCellValue(sheet, "A2", "Generated")
	_ = f.SetCellValue(sheet, "B2", generated.UTC().Format(time.RFC3339))

	_ = f.SetCellValue(sheet, "A4", "Destination")
	_ = f.SetCellValue(sheet, "B4", "Minutes")
	_ = f.SetCellValue(sheet, "C4", "Traffic")
	_ = f.SetCellValue(sheet, "D4", "Last Updated")
	for i, record := range records {
		row := i + 5
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), displayName(record))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), record.Minutes)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(record.Tier))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), record.LastUpdated.UTC().Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func displayName(record telemetry.CommuteRecord) string {
	if record.PlaceName != "" {
		return record.PlaceName
	}
	return record.PlaceID
}
