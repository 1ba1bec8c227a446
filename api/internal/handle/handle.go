package handle

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/risk"
)

const (
	// maxUploadBytes matches the bot's download limit.
	maxUploadBytes = 20 << 20
	// base64 inflates by 4/3; the rest is JSON envelope.
	maxBodyBytes = maxUploadBytes/3*4 + 1<<20
	// maxSide bounds both overlay surfaces and uploaded images.
	maxSide = 8192
)

// Analyzer is the part of analysis.Service the handlers need.
type Analyzer interface {
	Analyze(ctx context.Context, engineName string, img []byte, mime string) (analysis.Outcome, error)
}

type Options struct {
	AnalyzeTimeout   time.Duration
	RadiusScale      float64
	DisplayMaxWidth  int
	DisplayMaxHeight int
}

type Handle struct {
	svc       Analyzer
	presenter *risk.Presenter
	opts      Options
	log       *slog.Logger
}

func New(svc Analyzer, presenter *risk.Presenter, opts Options, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AnalyzeTimeout <= 0 {
		opts.AnalyzeTimeout = 180 * time.Second
	}
	if presenter == nil {
		presenter = risk.NewPresenter(false, logger)
	}
	return &Handle{svc: svc, presenter: presenter, opts: opts, log: logger}
}

func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/analyze", h.Analyze)
	mux.HandleFunc("/v1/overlay", h.Overlay)
	mux.HandleFunc("/v1/render", h.Render)
	mux.HandleFunc("/v1/risk/", h.Risk)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// deadline reads X-Request-Timeout, then ?timeoutSec=, in seconds.
func (h *Handle) deadline(r *http.Request) time.Duration {
	for _, ts := range []string{r.Header.Get("X-Request-Timeout"), r.URL.Query().Get("timeoutSec")} {
		if ts == "" {
			continue
		}
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.opts.AnalyzeTimeout
}
