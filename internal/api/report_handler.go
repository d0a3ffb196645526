package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskrelay/internal/api/shared"
	"github.com/phrazzld/taskrelay/internal/export"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
)

// ReportHandler serves task activity reports.
type ReportHandler struct {
	exporter *export.Exporter
	logger   *slog.Logger
	timeFunc func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(exporter *export.Exporter, log *slog.Logger) *ReportHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReportHandler")
	}

	return &ReportHandler{
		exporter: exporter,
		logger:   log.With(slog.String("component", "report_handler")),
		timeFunc: time.Now,
	}
}

// WeeklyReport handles GET /reports/weekly requests, streaming a CSV of
// the last seven days of task activity.
func (h *ReportHandler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	filename := fmt.Sprintf("report_%d.csv", h.timeFunc().Unix())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	rows, err := h.exporter.WeeklyCSV(r.Context(), w)
	if err != nil {
		// Headers may already be written; log and fall back to a plain
		// error response if nothing was streamed yet.
		log.Error("weekly report failed", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	log.Info("weekly report generated", slog.Int("row_count", rows))
}
