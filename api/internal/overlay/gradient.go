package overlay

import (
	"image"
	"image/color"
	"math"
)

var (
	red    = color.RGBA{R: 255, A: 255}
	orange = color.RGBA{R: 255, G: 165, A: 255}
	yellow = color.RGBA{R: 255, G: 255, A: 255}
)

// Stop is one colour stop of a radial ramp. Opacity is in [0,1].
type Stop struct {
	Offset  float64
	Color   color.RGBA
	Opacity float64
}

// RadialGradient is a ramp from the centre (offset 0) to radius R (offset 1).
// It implements image.Image so it can be used directly as a draw source.
type RadialGradient struct {
	CX, CY float64
	R      float64
	Stops  []Stop
}

// HeatRamp builds the red → orange → yellow → transparent ramp for one blob.
func HeatRamp(g Geometry, alpha float64) RadialGradient {
	return RadialGradient{
		CX: g.X,
		CY: g.Y,
		R:  g.R,
		Stops: []Stop{
			{Offset: 0, Color: red, Opacity: alpha},
			{Offset: 0.3, Color: orange, Opacity: alpha * 0.6},
			{Offset: 0.7, Color: yellow, Opacity: alpha * 0.2},
			{Offset: 1, Color: yellow, Opacity: 0},
		},
	}
}

func (g RadialGradient) ColorModel() color.Model { return color.NRGBAModel }

func (g RadialGradient) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(g.CX-g.R)), int(math.Floor(g.CY-g.R)),
		int(math.Ceil(g.CX+g.R))+1, int(math.Ceil(g.CY+g.R))+1,
	)
}

// At samples the ramp at the pixel centre.
func (g RadialGradient) At(x, y int) color.Color {
	if g.R <= 0 {
		return color.NRGBA{}
	}
	dx := float64(x) + 0.5 - g.CX
	dy := float64(y) + 0.5 - g.CY
	return g.ColorAt(math.Hypot(dx, dy) / g.R)
}

// ColorAt interpolates the stops at offset t. Beyond the last stop the ramp
// keeps the last colour.
func (g RadialGradient) ColorAt(t float64) color.NRGBA {
	if len(g.Stops) == 0 {
		return color.NRGBA{}
	}
	first, last := g.Stops[0], g.Stops[len(g.Stops)-1]
	if t <= first.Offset {
		return nrgba(first.Color, first.Opacity)
	}
	if t >= last.Offset {
		return nrgba(last.Color, last.Opacity)
	}
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return nrgba(b.Color, b.Opacity)
		}
		k := (t - a.Offset) / span
		return color.NRGBA{
			R: lerp8(a.Color.R, b.Color.R, k),
			G: lerp8(a.Color.G, b.Color.G, k),
			B: lerp8(a.Color.B, b.Color.B, k),
			A: unit8(a.Opacity + (b.Opacity-a.Opacity)*k),
		}
	}
	return nrgba(last.Color, last.Opacity)
}

func nrgba(c color.RGBA, opacity float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: unit8(opacity)}
}

func lerp8(a, b uint8, k float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*k))
}

func unit8(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
