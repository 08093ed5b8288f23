package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"campus-pulse/internal/audit"
	"campus-pulse/internal/auth"
	commute "campus-pulse/internal/commute/domain"
	masterdata "campus-pulse/internal/masterdata/domain"
)

const (
	SyncPath      = "/functions/v1/update-traffic-data"
	SyncAliasPath = "/api/v1/commute/sync"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization, X-Client-Info, Apikey",
}

// CallerSyncer runs a sync cycle for the caller's anchor.
type CallerSyncer interface {
	SyncForCaller(ctx context.Context, userID string) (commute.Result, error)
}

// SyncHandler exposes the commute sync job to authenticated callers.
type SyncHandler struct {
	syncer CallerSyncer
	secret []byte
	logger *zap.Logger
	audit  audit.Logger
}

// SyncHandlerOption configures a SyncHandler.
type SyncHandlerOption func(*SyncHandler)

// WithAuditLogger records every authenticated sync request.
func WithAuditLogger(logger audit.Logger) SyncHandlerOption {
	return func(h *SyncHandler) {
		h.audit = logger
	}
}

// NewSyncHandler constructs a handler.
func NewSyncHandler(syncer CallerSyncer, secret []byte, logger *zap.Logger, opts ...SyncHandlerOption) (*SyncHandler, error) {
	if syncer == nil {
		return nil, errors.New("commute sync handler: nil syncer")
	}
	if len(secret) == 0 {
		return nil, errors.New("commute sync handler: empty jwt secret")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &SyncHandler{syncer: syncer, secret: secret, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP handles the sync endpoint and its alias.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != SyncPath && r.URL.Path != SyncAliasPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	for key, value := range corsHeaders {
		w.Header().Set(key, value)
	}
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet, http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		writeError(w, http.StatusUnauthorized, "Missing authorization header")
		return
	}
	claims, err := auth.ParseJWT(strings.TrimPrefix(header, "Bearer "), h.secret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authorization token")
		return
	}

	// A started cycle runs to its commit even if the caller disconnects.
	result, err := h.syncer.SyncForCaller(context.WithoutCancel(r.Context()), claims.Subject)
	h.logAudit(r, claims, result, err)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, masterdata.ErrProfileNotFound):
		writeError(w, http.StatusBadRequest, "User profile or university not found")
	case errors.Is(err, commute.ErrAnchorMissing):
		writeError(w, http.StatusBadRequest, "University coordinates not found")
	default:
		h.logger.Error("commute sync request failed", zap.String("subject", claims.Subject), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
			"stack": string(debug.Stack()),
		})
	}
}

func (h *SyncHandler) logAudit(r *http.Request, claims *auth.Claims, result commute.Result, syncErr error) {
	if h.audit == nil {
		return
	}
	outcome := "ok"
	var meta any = map[string]int{"updated": result.Updated, "total_pois": result.TotalPlaces, "errors": len(result.Errors)}
	if syncErr != nil {
		outcome = "error"
		meta = map[string]string{"error": syncErr.Error()}
	}
	entry := audit.FromRequest(r, claims.Subject, audit.ActionCommuteSync, "poi_traffic", outcome, meta)
	entry.Role = claims.Role
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
