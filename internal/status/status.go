// Package status serves advisory run information over HTTP while the
// agent runs in watch mode. It exposes no mutation endpoints.
package status

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/raido/internal/agent"
	"github.com/starford/raido/internal/catalog"
)

const defaultRecordLimit = 50

// NewRouter builds the status router. cat may be nil when no catalog is
// configured; the records endpoint then reports the feature as absent.
func NewRouter(stats *agent.Stats, cat catalog.Store, auditPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"audit_path": auditPath,
			"counters":   stats.Snapshot(),
		})
	})

	r.Get("/api/records", func(w http.ResponseWriter, req *http.Request) {
		if cat == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no catalog configured"})
			return
		}
		limit := defaultRecordLimit
		if s := req.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}
		rows, err := cat.Recent(limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toRecords(rows))
	})

	return r
}

// record is the wire form of a catalog row.
type record struct {
	RunID    string `json:"run_id"`
	Time     string `json:"time"`
	Rule     string `json:"rule"`
	Src      string `json:"src"`
	MIME     string `json:"mime"`
	Ext      string `json:"ext"`
	SHA256   string `json:"sha256"`
	Size     int64  `json:"size"`
	CopiedTo string `json:"copied_to"`
	Metadata string `json:"metadata"`
}

func toRecords(rows []catalog.Row) []record {
	out := make([]record, 0, len(rows))
	for _, r := range rows {
		out = append(out, record{
			RunID:    r.RunID,
			Time:     r.Time.UTC().Format("2006-01-02T15:04:05Z"),
			Rule:     r.Rule,
			Src:      r.Src,
			MIME:     r.MIME,
			Ext:      r.Ext,
			SHA256:   r.SHA256,
			Size:     r.Size,
			CopiedTo: r.CopiedTo,
			Metadata: r.Metadata,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
