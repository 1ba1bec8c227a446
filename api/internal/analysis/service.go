package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/store"
	"nodule-lens/api/internal/util"
)

// Cache stores readings per (image hash, engine, model).
type Cache interface {
	Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (types.AnalysisResult, error)
	Upsert(ctx context.Context, imageHash, engine, model string, res types.AnalysisResult) error
}

type Outcome struct {
	Result    types.AnalysisResult
	Engine    string
	Model     string
	Cached    bool
	ImageHash string
}

type Service struct {
	Engines *Engines
	Cache   Cache
	MaxAge  time.Duration
	Logger  *slog.Logger
}

func NewService(engines *Engines, cache Cache, maxAge time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Engines: engines, Cache: cache, MaxAge: maxAge, Logger: logger}
}

// Analyze resolves the engine by name and runs it.
func (s *Service) Analyze(ctx context.Context, engineName string, img []byte, mime string) (Outcome, error) {
	eng, err := s.Engines.GetEngine(engineName)
	if err != nil {
		return Outcome{}, err
	}
	return s.AnalyzeWith(ctx, eng, img, mime)
}

// AnalyzeWith makes at most one engine call; a cache hit makes none.
func (s *Service) AnalyzeWith(ctx context.Context, eng Engine, img []byte, mime string) (Outcome, error) {
	if len(img) == 0 {
		return Outcome{}, errors.New("empty image")
	}
	out := Outcome{Engine: eng.Name(), Model: eng.GetModel(), ImageHash: util.ImageHash(img)}

	if s.Cache != nil {
		res, err := s.Cache.Find(ctx, out.ImageHash, out.Engine, out.Model, s.MaxAge)
		switch {
		case err == nil:
			out.Result = res
			out.Cached = true
			s.Logger.Info("analysis cache hit", "hash", out.ImageHash, "engine", out.Engine, "model", out.Model)
			return out, nil
		case !errors.Is(err, store.ErrNotFound):
			s.Logger.Warn("analysis cache lookup failed", "err", err)
		}
	}

	start := time.Now()
	res, err := eng.Analyze(ctx, img, mime)
	if err != nil {
		s.Logger.Error("analysis failed", "engine", out.Engine, "model", out.Model, "err", err)
		return Outcome{}, errors.Wrapf(err, "%s analyze", out.Engine)
	}
	if res.Detections == nil {
		res.Detections = []types.Detection{}
	}
	s.logContract(res)
	s.Logger.Info("analysis done",
		"engine", out.Engine, "model", out.Model,
		"nodules", len(res.Detections), "total_risk", string(res.OverallRisk),
		"elapsed_ms", time.Since(start).Milliseconds())

	if s.Cache != nil {
		if err := s.Cache.Upsert(ctx, out.ImageHash, out.Engine, out.Model, res); err != nil {
			s.Logger.Warn("analysis cache store failed", "err", err)
		}
	}
	out.Result = res
	return out, nil
}

// logContract reports values outside the declared ranges. They are kept as is;
// the renderer clamps at draw time.
func (s *Service) logContract(res types.AnalysisResult) {
	for i, d := range res.Detections {
		if !d.InRange() {
			s.Logger.Warn("detection out of range", "index", i,
				"x", d.X, "y", d.Y, "radius", d.DisplayRadius, "intensity", d.Intensity)
		}
		if !d.Risk.Known() {
			s.Logger.Warn("detection has unknown risk tier", "index", i, "risk", string(d.Risk))
		}
	}
	if !res.OverallRisk.Known() {
		s.Logger.Warn("unknown overall risk tier", "risk", string(res.OverallRisk))
	}
}
