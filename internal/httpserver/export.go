package httpserver

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/middleware"
	"github.com/radiusdt/roi-tracker/internal/models"
)

var exportHeader = []string{
	"tenant_id", "tenant_name", "ad_platform",
	"utm_source", "utm_medium", "utm_campaign",
	"total_calls", "completed_calls", "missed_calls",
	"total_spend", "cost_per_call",
}

// handleExport serves the filtered ROI view as a file download.
// format=csv (default) or format=xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := middleware.IdentityFrom(r.Context())
	f := scopedFilter(r, id)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := s.store.ListMetrics(ctx, f)
	if err != nil {
		s.logger.Error("failed to list roi metrics for export", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "csv":
		s.exportCSV(w, rows)
	case "xlsx":
		s.exportXLSX(w, rows)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}
}

func (s *Server) exportCSV(w http.ResponseWriter, rows []models.RoiMetric) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="roi_metrics.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, m := range rows {
		_ = cw.Write(exportRecord(m))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Warn("csv export interrupted", zap.Error(err))
	}
}

func (s *Server) exportXLSX(w http.ResponseWriter, rows []models.RoiMetric) {
	file := excelize.NewFile()
	const sheet = "ROI Metrics"

	index, err := file.NewSheet(sheet)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	for col, name := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = file.SetCellValue(sheet, cell, name)
	}
	for i, m := range rows {
		for col, v := range exportRecord(m) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = file.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="roi_metrics.xlsx"`)
	if err := file.Write(w); err != nil {
		s.logger.Warn("xlsx export interrupted", zap.Error(err))
	}
}

func exportRecord(m models.RoiMetric) []string {
	return []string{
		m.TenantID, m.TenantName, string(m.Platform),
		m.UTM.Source, m.UTM.Medium, m.UTM.Campaign,
		strconv.FormatInt(m.TotalCalls, 10),
		strconv.FormatInt(m.CompletedCalls, 10),
		strconv.FormatInt(m.MissedCalls, 10),
		fmt.Sprintf("%.2f", m.TotalSpend),
		fmt.Sprintf("%.2f", m.CostPerCall),
	}
}
