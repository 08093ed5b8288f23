package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"campus-pulse/internal/audit"
	forecastapp "campus-pulse/internal/forecast/application"
	forecast "campus-pulse/internal/forecast/domain"
)

// Handler serves the next-hour forecast.
type Handler struct {
	service *forecastapp.Service
	audit   audit.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAuditLogger records manual refreshes.
func WithAuditLogger(logger audit.Logger) HandlerOption {
	return func(h *Handler) {
		h.audit = logger
	}
}

// NewHandler constructs a handler.
func NewHandler(service *forecastapp.Service, opts ...HandlerOption) (*Handler, error) {
	if service == nil {
		return nil, errors.New("forecast handler: nil service")
	}
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP handles /api/v1/forecast and /api/v1/forecast/refresh.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/forecast":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLatest(w, r)
	case "/api/v1/forecast/refresh":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRefresh(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Latest(r.Context())
	if err != nil || snapshot == nil {
		// nothing usable cached yet; produce one now
		fresh, refreshErr := h.service.TryRefresh(r.Context())
		if refreshErr != nil {
			fresh = forecast.Snapshot{Forecast: forecast.Degraded(), Degraded: true}
		}
		snapshot = &fresh
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.TryRefresh(r.Context())
	if errors.Is(err, forecastapp.ErrRefreshInFlight) {
		h.logAudit(r, "in_flight", nil)
		http.Error(w, "refresh already in progress", http.StatusConflict)
		return
	}
	outcome := "ok"
	if snapshot.Degraded {
		outcome = "degraded"
	}
	h.logAudit(r, outcome, map[string]any{
		"severity":   snapshot.Forecast.Severity,
		"confidence": snapshot.Forecast.Confidence,
	})
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) logAudit(r *http.Request, outcome string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	var payload any
	if len(meta) > 0 {
		payload = meta
	}
	_ = h.audit.Log(r.Context(), audit.FromRequest(r, "", audit.ActionForecastRefresh, "forecast", outcome, payload))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
