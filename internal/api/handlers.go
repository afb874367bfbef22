package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/fkbarrett/urldemo/internal/health"
	"github.com/fkbarrett/urldemo/internal/logs"
	"github.com/fkbarrett/urldemo/internal/metrics"
	"github.com/fkbarrett/urldemo/internal/shortener"
	"github.com/fkbarrett/urldemo/internal/store"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	mapper    *shortener.Mapper
	store     *store.MemoryStore
	metrics   *metrics.Registry
	logger    *logs.Logger
	analyzer  *health.Analyzer
	staticDir string
}

// NewHandler creates a new API handler. staticDir may be empty; the
// handler then falls back to minimal inline pages.
func NewHandler(
	mapper *shortener.Mapper,
	st *store.MemoryStore,
	reg *metrics.Registry,
	logger *logs.Logger,
	staticDir string,
) *Handler {
	return &Handler{
		mapper:    mapper,
		store:     st,
		metrics:   reg,
		logger:    logger,
		analyzer:  health.NewAnalyzer(reg, logger),
		staticDir: staticDir,
	}
}

/* ---------------- POST /api/url ---------------- */

type mappingRequest struct {
	URL           string `json:"url"`
	Key           string `json:"key,omitempty"`
	ExpirationMin int    `json:"expiration_min,omitempty"`
}

type mappingResponse struct {
	URL       string `json:"url"`
	Shortname string `json:"shortname"`
}

func (h *Handler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	// TTL policy translation happens here: the API speaks minutes, the
	// core speaks durations. Zero means the store default.
	ttl := time.Duration(req.ExpirationMin) * time.Minute

	token, err := h.mapper.Allocate(req.URL, ttl, req.Key)
	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrTokenTaken):
			h.logger.Warn("token conflict for requested token " + req.Key)
			http.Error(w, "key already in use for a different url", http.StatusConflict)
		case errors.Is(err, shortener.ErrTokensExhausted):
			h.logger.Error("token allocation exhausted")
			http.Error(w, "could not allocate a shortname, try again later", http.StatusServiceUnavailable)
		case errors.Is(err, store.ErrEmptyKey),
			errors.Is(err, store.ErrEmptyValue),
			errors.Is(err, store.ErrPastExpiration):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Debug("mapped " + token + " -> " + req.URL)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(mappingResponse{
		URL:       req.URL,
		Shortname: token,
	})
}

/* ---------------- GET /{shortname} ---------------- */

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortname := chi.URLParam(r, "shortname")

	url, ok := h.mapper.Resolve(shortname)
	if !ok {
		h.servePage(w, "shortname_not_found.html", http.StatusNotFound,
			"<html><body><h1>Not found</h1><p>Unknown or expired shortname.</p></body></html>")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

/* ---------------- GET / ---------------- */

func (h *Handler) Homepage(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "index.html", http.StatusOK,
		"<html><body><h1>URL shortener</h1></body></html>")
}

// servePage writes a static page with the given status, falling back
// to inline markup when the file is unavailable.
func (h *Handler) servePage(w http.ResponseWriter, name string, status int, fallback string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if h.staticDir != "" {
		if page, err := os.ReadFile(filepath.Join(h.staticDir, name)); err == nil {
			w.WriteHeader(status)
			_, _ = w.Write(page)
			return
		}
	}

	w.WriteHeader(status)
	_, _ = w.Write([]byte(fallback))
}

/* ---------------- GET /status ---------------- */

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

/* ---------------- GET /admin/keys ---------------- */

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()

	resp := make(map[string]string, len(entries))
	for k, v := range entries {
		resp[k] = v.Value
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

/* ---------------- GET /admin/logs ---------------- */

func (h *Handler) RecentLogs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if q := r.URL.Query().Get("n"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.logger.GetLast(n))
}

/* ---------------- GET /metrics ---------------- */

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.metrics.Snapshot())
}

/* ---------------- GET /health ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := h.analyzer.Analyze()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
