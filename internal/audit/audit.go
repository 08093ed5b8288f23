package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"campus-pulse/internal/auth"
)

// Actions recorded for operator-triggered work.
const (
	ActionCommuteSync     = "commute.sync"
	ActionForecastRefresh = "forecast.refresh"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	Outcome       string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// FromRequest fills actor, role, IP and user agent from an authenticated request.
// actor overrides the subject stored in the request context when non-empty.
func FromRequest(r *http.Request, actor, action, resourceType, outcome string, meta any) Entry {
	entry := Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		Outcome:      outcome,
	}
	if r == nil {
		return entry
	}
	if entry.Actor == "" {
		entry.Actor = auth.SubjectFromContext(r.Context())
	}
	entry.Role = string(auth.RoleFromContext(r.Context()))
	entry.IP = ClientIP(r)
	entry.UserAgent = r.UserAgent()
	if meta != nil {
		if payload, err := json.Marshal(meta); err == nil {
			entry.Metadata = payload
		}
	}
	return entry
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ClientIP resolves the caller address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
