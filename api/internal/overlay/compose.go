package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"nodule-lens/api/internal/analysis/types"
)

type ComposeOptions struct {
	// MaxWidth and MaxHeight bound the displayed size; zero means unbounded.
	MaxWidth  int
	MaxHeight int
	// Labels draws "#n" next to each blob, matching the report numbering.
	Labels bool
	// LabelColor picks the label background per tier; nil draws text only.
	LabelColor func(types.RiskTier) color.RGBA
	Overlay    Options
}

// DisplaySize fits w×h inside maxW×maxH keeping the aspect ratio. Images are
// never upscaled.
func DisplaySize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	ratio := 1.0
	if maxW > 0 && w > maxW {
		ratio = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if r := float64(maxH) / float64(h); r < ratio {
			ratio = r
		}
	}
	if ratio == 1 {
		return w, h
	}
	dw := int(float64(w)*ratio + 0.5)
	dh := int(float64(h)*ratio + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	return dw, dh
}

// RenderLayer renders the transparent heat layer alone at exactly w×h.
// ok is false when the size is not known yet.
func RenderLayer(detections []types.Detection, w, h int, opts Options) (img *image.RGBA, ok bool) {
	if w <= 0 || h <= 0 {
		return nil, false
	}
	c := NewRaster()
	NewRenderer(c, opts).Render(detections, w, h)
	return c.Image(), true
}

// Compose scales src to its displayed size and paints the heat layer on top.
// The layer is rendered at the displayed size, never the native one, so the
// percentage coordinates line up with what the viewer sees.
func Compose(src image.Image, detections []types.Detection, opts ComposeOptions) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New("compose: image is nil")
	}
	b := src.Bounds()
	dw, dh := DisplaySize(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
	if dw == 0 || dh == 0 {
		return nil, errors.New("compose: image is empty")
	}

	shown := src
	if dw != b.Dx() || dh != b.Dy() {
		shown = resize.Resize(uint(dw), uint(dh), src, resize.Lanczos3)
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.Draw(dst, dst.Bounds(), shown, shown.Bounds().Min, draw.Src)

	layer, _ := RenderLayer(detections, dw, dh, opts.Overlay)
	draw.Draw(dst, dst.Bounds(), layer, image.Point{}, draw.Over)

	if opts.Labels {
		drawLabels(dst, detections, opts.Overlay.normalized().RadiusScale, opts.LabelColor)
	}
	return dst, nil
}

func drawLabels(dst *image.RGBA, detections []types.Detection, radiusScale float64, bg func(types.RiskTier) color.RGBA) {
	b := dst.Bounds()
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	textCol := image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	shadowCol := image.NewUniform(color.RGBA{A: 200})

	for i, d := range detections {
		g, ok := Map(d.Clamped(), b.Dx(), b.Dy(), radiusScale)
		if !ok {
			continue
		}
		text := fmt.Sprintf("#%d", i+1)
		dr := &font.Drawer{Dst: dst, Src: textCol, Face: face}
		tw := dr.MeasureString(text).Ceil()

		// upper-right of the blob, kept inside the image
		x := int(g.X + g.R*0.7)
		y := int(g.Y - g.R*0.7)
		x = clampInt(x, 0, b.Dx()-tw-1)
		y = clampInt(y, ascent, b.Dy()-1)

		if bg != nil {
			c := bg(d.Risk)
			fill := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 200}
			rect := image.Rect(x-2, y-ascent-2, x+tw+2, y+3)
			draw.Draw(dst, rect, image.NewUniform(fill), image.Point{}, draw.Over)
		}
		sh := &font.Drawer{Dst: dst, Src: shadowCol, Face: face, Dot: fixed.P(x+1, y+1)}
		sh.DrawString(text)
		dr.Dot = fixed.P(x, y)
		dr.DrawString(text)
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DecodeImage decodes JPEG, PNG or WebP bytes.
func DecodeImage(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
