package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	alertapp "campus-pulse/internal/alerts/application"
)

const timeLayout = time.RFC3339

// Handler serves the clock alert banner.
type Handler struct {
	ticker *alertapp.Ticker
}

// NewHandler constructs a handler.
func NewHandler(ticker *alertapp.Ticker) (*Handler, error) {
	if ticker == nil {
		return nil, errors.New("alerts handler: nil ticker")
	}
	return &Handler{ticker: ticker}, nil
}

// ServeHTTP handles /api/v1/alerts/current.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/alerts/current" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	state := h.ticker.Current()
	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err := time.Parse(timeLayout, raw)
		if err != nil {
			http.Error(w, "at must be RFC3339", http.StatusBadRequest)
			return
		}
		state = h.ticker.At(at)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}
