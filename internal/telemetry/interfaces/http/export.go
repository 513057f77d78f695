package http

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/application"
	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// ExportHandler serves the workbook and report downloads.
type ExportHandler struct {
	status   *application.StatusService
	vehicles telemetry.VehicleStateRepository
	logger   *log.Logger
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(
	status *application.StatusService,
	vehicles telemetry.VehicleStateRepository,
	logger *log.Logger,
) (*ExportHandler, error) {
	if status == nil {
		return nil, errors.New("export handler: nil service")
	}
	if vehicles == nil {
		return nil, errors.New("export handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{status: status, vehicles: vehicles, logger: logger}, nil
}

// ServeHTTP routes export requests.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/telemetry/exports/auv-data.xlsx":
		h.handleHistoryXLSX(w, r)
	case "/api/v1/reports/fleet-status.pdf":
		h.handleFleetStatusPDF(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ExportHandler) handleHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQueryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	points, err := h.vehicles.Query(r.Context(), filter)
	if err != nil {
		h.logger.Printf("export xlsx: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	workbook, err := BuildHistoryXLSX(points)
	if err != nil {
		h.logger.Printf("export xlsx: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="auv-data.xlsx"`)
	_, _ = w.Write(workbook)
}

func (h *ExportHandler) handleFleetStatusPDF(w http.ResponseWriter, r *http.Request) {
	ids, err := h.vehicles.ListAUVIDs(r.Context())
	if err != nil {
		h.logger.Printf("fleet report: %v", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}

	reports := make([]application.StatusReport, 0, len(ids))
	for _, id := range ids {
		report, err := h.status.Status(r.Context(), id)
		if errors.Is(err, telemetry.ErrNotFound) {
			continue
		}
		if err != nil {
			h.logger.Printf("fleet report: status %s: %v", id, err)
			http.Error(w, "report failed", http.StatusInternalServerError)
			return
		}
		reports = append(reports, report)
	}

	doc, err := BuildFleetStatusPDF(time.Now().UTC(), reports)
	if err != nil {
		h.logger.Printf("fleet report: %v", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="fleet-status.pdf"`)
	_, _ = w.Write(doc)
}

// BuildHistoryXLSX renders vehicle-state history as a workbook, one point
// per row, newest first as queried.
func BuildHistoryXLSX(points []telemetry.StoredVehicleState) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "auv-data"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "AUV", "Timestamp", "Latitude", "Longitude", "Depth (m)",
		"Heading", "Speed", "Battery (%)", "System Status", "Mission", "Phase"}
	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}

	for i, p := range points {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.AUVID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.Timestamp.Format(time.RFC3339))
		setOptionalCell(f, sheet, fmt.Sprintf("D%d", row), p.Latitude)
		setOptionalCell(f, sheet, fmt.Sprintf("E%d", row), p.Longitude)
		setOptionalCell(f, sheet, fmt.Sprintf("F%d", row), p.Depth)
		setOptionalCell(f, sheet, fmt.Sprintf("G%d", row), p.Heading)
		setOptionalCell(f, sheet, fmt.Sprintf("H%d", row), p.Speed)
		setOptionalCell(f, sheet, fmt.Sprintf("I%d", row), p.BatteryLevel)
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), p.SystemStatus)
		_ = f.SetCellValue(sheet, fmt.Sprintf("K%d", row), p.MissionID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("L%d", row), p.MissionPhase)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setOptionalCell(f *excelize.File, sheet, cell string, v *float64) {
	if v == nil {
		return
	}
	_ = f.SetCellValue(sheet, cell, *v)
}

// BuildFleetStatusPDF renders the per-AUV derived status table.
func BuildFleetStatusPDF(generatedAt time.Time, reports []application.StatusReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "AUV Fleet Status")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Vehicles: %d", len(reports)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "AUV", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Last Update", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Battery (%)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Depth (m)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, report := range reports {
		pdf.CellFormat(30, 6, report.AUVID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(report.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, report.LastUpdate.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, formatOptional(report.BatteryLevel), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, formatOptional(report.Position.Depth), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
