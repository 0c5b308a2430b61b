package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Probes are scraped every few seconds; they are logged only when they fail.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

type accessLogEntry struct {
	Timestamp      string `json:"ts"`
	Level          string `json:"level"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	Route          string `json:"route,omitempty"`
	Status         int    `json:"status"`
	Bytes          int    `json:"bytes"`
	DurationMS     int64  `json:"duration_ms"`
	RequestID      string `json:"request_id,omitempty"`
	DocumentID     string `json:"document_id,omitempty"`
	Agent          string `json:"agent,omitempty"`
	WorkflowAction string `json:"workflow_action,omitempty"`
	RemoteAddr     string `json:"remote_addr,omitempty"`
}

// responseRecorder remembers the status and body size for AccessLog and SentryMiddleware.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// AccessLog writes one JSON line per request, tagged with the document, agent
// and workflow action of the matched route.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.statusOrOK()
		if status < 400 && quietPaths[r.URL.Path] {
			return
		}

		tags := routeTags(r)
		entry := accessLogEntry{
			Timestamp:      start.UTC().Format(time.RFC3339Nano),
			Level:          levelFor(status),
			Method:         r.Method,
			Path:           r.URL.Path,
			Route:          routePattern(r),
			Status:         status,
			Bytes:          rec.bytes,
			DurationMS:     time.Since(start).Milliseconds(),
			RequestID:      GetRequestID(r.Context()),
			DocumentID:     tags["document_id"],
			Agent:          tags["agent"],
			WorkflowAction: tags["workflow_action"],
			RemoteAddr:     clientIP(r),
		}

		payload, err := json.Marshal(entry)
		if err != nil {
			log.Printf("access_log_marshal_error: %v", err)
			return
		}
		log.Println(string(payload))
	})
}

func levelFor(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "warn"
	default:
		return "info"
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
