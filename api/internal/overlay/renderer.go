package overlay

import (
	"image/color"

	"nodule-lens/api/internal/analysis/types"
)

// DefaultAlphaScale maps intensity 1.0 to the centre opacity of a blob.
const DefaultAlphaScale = 0.7

type Options struct {
	RadiusScale  float64
	AlphaScale   float64
	Outline      color.NRGBA
	OutlineWidth float64
}

func DefaultOptions() Options {
	return Options{
		RadiusScale:  DefaultRadiusScale,
		AlphaScale:   DefaultAlphaScale,
		Outline:      color.NRGBA{R: 255, G: 255, B: 255, A: 128},
		OutlineWidth: 1,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.RadiusScale <= 0 {
		o.RadiusScale = def.RadiusScale
	}
	if o.AlphaScale <= 0 {
		o.AlphaScale = def.AlphaScale
	}
	if o.Outline == (color.NRGBA{}) {
		o.Outline = def.Outline
	}
	if o.OutlineWidth <= 0 {
		o.OutlineWidth = def.OutlineWidth
	}
	return o
}

// Renderer redraws the heat layer from scratch on every call. It keeps no
// state between calls apart from the canvas it owns.
type Renderer struct {
	canvas Canvas
	opts   Options
}

func NewRenderer(c Canvas, opts Options) *Renderer {
	return &Renderer{canvas: c, opts: opts.normalized()}
}

// Render syncs the canvas to w×h and paints one blob per detection in list
// order, so later detections end up on top. A surface without a measured
// size is left untouched; the next trigger retries.
func (r *Renderer) Render(detections []types.Detection, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	r.canvas.Resize(w, h)
	r.canvas.Clear()

	for _, d := range detections {
		d = d.Clamped()
		g, ok := Map(d, w, h, r.opts.RadiusScale)
		if !ok || g.R <= 0 {
			continue
		}
		r.canvas.FillCircle(HeatRamp(g, d.Intensity*r.opts.AlphaScale))
		r.canvas.StrokeCircle(g.X, g.Y, g.R, r.opts.Outline, r.opts.OutlineWidth)
	}
}
