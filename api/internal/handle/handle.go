package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/httpserver"
	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/store"
)

const welcome = "Welcome to the Vastu Analysis API. POST a floor plan image to /analyze/."

// AnalysisStore caches finished analyses. *store.AnalysisRepo satisfies it.
type AnalysisStore interface {
	FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*store.AnalysisRow, error)
	Save(ctx context.Context, row *store.AnalysisRow) error
}

type Options struct {
	MaxUploadBytes int64
	Timeout        time.Duration
	CacheTTL       time.Duration
	Health         func(context.Context) error // optional readiness probe
}

type Handle struct {
	an   *analyze.Analyzer
	engs *ocr.Engines
	def  ocr.Engine
	repo AnalysisStore // nil disables the cache
	opt  Options
}

func New(an *analyze.Analyzer, engs *ocr.Engines, def ocr.Engine, repo AnalysisStore, opt Options) *Handle {
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 20 << 20
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 180 * time.Second
	}
	return &Handle{an: an, engs: engs, def: def, repo: repo, opt: opt}
}

// Routes wires every endpoint behind the CORS and request-id middleware.
func (h *Handle) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Root)
	mux.HandleFunc("/healthz", httpserver.Health(h.opt.Health))
	mux.HandleFunc("/analyze", h.Analyze)
	mux.HandleFunc("/analyze/", h.Analyze)
	mux.HandleFunc("/rules", h.Rules)
	mux.HandleFunc("/engines", h.Engines)
	return requestID(cors(mux))
}

func (h *Handle) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": welcome})
}

func (h *Handle) Rules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": h.an.Catalog().Rules()})
}

func (h *Handle) Engines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"engines": h.engs.Names(),
		"default": h.def.Name(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
