package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// Canvas is the transparent drawing surface the renderer owns.
type Canvas interface {
	// Resize declares the surface size in pixels. It must match the displayed
	// size of the image underneath.
	Resize(w, h int)
	Clear()
	FillCircle(g RadialGradient)
	StrokeCircle(cx, cy, r float64, c color.NRGBA, width float64)
}

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// Raster is a Canvas backed by an *image.RGBA.
type Raster struct {
	img *image.RGBA
	z   vector.Rasterizer
}

func NewRaster() *Raster {
	return &Raster{img: image.NewRGBA(image.Rectangle{})}
}

func (c *Raster) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	if b := c.img.Bounds(); b.Dx() == w && b.Dy() == h {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

func (c *Raster) Clear() { clear(c.img.Pix) }

func (c *Raster) Size() (w, h int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the backing surface. It is reused across renders.
func (c *Raster) Image() *image.RGBA { return c.img }

func (c *Raster) FillCircle(g RadialGradient) {
	if g.R <= 0 || c.img.Bounds().Empty() {
		return
	}
	c.begin()
	addCircle(&c.z, g.CX, g.CY, g.R, false)
	c.z.Draw(c.img, c.img.Bounds(), g, image.Point{})
}

// StrokeCircle draws a ring of the given width centred on the circle edge.
func (c *Raster) StrokeCircle(cx, cy, r float64, col color.NRGBA, width float64) {
	if r <= 0 || width <= 0 || c.img.Bounds().Empty() {
		return
	}
	c.begin()
	addCircle(&c.z, cx, cy, r+width/2, false)
	if inner := r - width/2; inner > 0 {
		// opposite winding cancels the inner disc
		addCircle(&c.z, cx, cy, inner, true)
	}
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *Raster) begin() {
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = draw.Over
}

func addCircle(z *vector.Rasterizer, cx, cy, r float64, reverse bool) {
	k := r * kappa
	pt := func(x, y float64) (float32, float32) { return float32(cx + x), float32(cy + y) }

	// four quarter arcs starting at the rightmost point
	quarters := [4][6]float64{
		{r, k, k, r, 0, r},
		{-k, r, -r, k, -r, 0},
		{-r, -k, -k, -r, 0, -r},
		{k, -r, r, -k, r, 0},
	}
	if reverse {
		quarters = [4][6]float64{
			{r, -k, k, -r, 0, -r},
			{-k, -r, -r, -k, -r, 0},
			{-r, k, -k, r, 0, r},
			{k, r, r, k, r, 0},
		}
	}
	x0, y0 := pt(r, 0)
	z.MoveTo(x0, y0)
	for _, q := range quarters {
		ax, ay := pt(q[0], q[1])
		bx, by := pt(q[2], q[3])
		ex, ey := pt(q[4], q[5])
		z.CubeTo(ax, ay, bx, by, ex, ey)
	}
	z.ClosePath()
}
