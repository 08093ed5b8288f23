package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	telemetry "campus-pulse/internal/telemetry/domain"
)

// ReportHandler lists and exports stored commute records.
type ReportHandler struct {
	reader telemetry.CommuteReader
	now    func() time.Time
}

// NewReportHandler constructs a handler.
func NewReportHandler(reader telemetry.CommuteReader) (*ReportHandler, error) {
	if reader == nil {
		return nil, errors.New("commute report handler: nil reader")
	}
	return &ReportHandler{reader: reader, now: time.Now}, nil
}

// ServeHTTP handles /api/v1/commute/records and /api/v1/commute/report.{xlsx,pdf}.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	switch r.URL.Path {
	case "/api/v1/commute/records", "/api/v1/commute/report.xlsx", "/api/v1/commute/report.pdf":
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	records, err := h.reader.ListCommutes(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []telemetry.CommuteRecord{}
	}

	switch r.URL.Path {
	case "/api/v1/commute/records":
		writeJSON(w, http.StatusOK, records)
	case "/api/v1/commute/report.xlsx":
		payload, err := BuildCommuteXLSX(records, h.now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="commute-report.xlsx"`)
		_, _ = w.Write(payload)
	case "/api/v1/commute/report.pdf":
		payload, err := BuildCommutePDF(records, h.now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="commute-report.pdf"`)
		_, _ = w.Write(payload)
	}
}
