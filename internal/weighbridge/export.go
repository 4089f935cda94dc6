package weighbridge

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Tickets"

var exportHeaders = []string{
	"Ticket",
	"Invoice",
	"Issued At",
	"Vehicle",
	"Plate",
	"Net Weight (kg)",
	"Tare (kg)",
	"Gross Weight (kg)",
	"Status",
	"Document",
}

// ExportTickets writes every ticket as an XLSX workbook to w
func (s *Service) ExportTickets(w io.Writer) error {
	start := time.Now()

	records, err := s.db.ListRecords()
	if err != nil {
		return fmt.Errorf("listing tickets: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet rather than leaving an empty Sheet1 behind
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	location := s.engine.Location()
	for i, r := range records {
		row := []any{
			r.ID,
			r.InvoiceID,
			r.IssueTimestamp.In(location).Format("2006-01-02 15:04:05"),
			r.VehicleID,
			r.PlateNumber,
			r.NetWeightInvoice,
			r.TareWeight,
			r.GrossWeightCalculated,
			r.Status,
			r.DocumentPath,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing ticket %s: %w", r.ID, err)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "B", 12)
	_ = f.SetColWidth(exportSheet, "C", "C", 20)
	_ = f.SetColWidth(exportSheet, "D", "E", 14)
	_ = f.SetColWidth(exportSheet, "F", "H", 18)
	_ = f.SetColWidth(exportSheet, "J", "J", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	slog.Info("Exported tickets", "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
