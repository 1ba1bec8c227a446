package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"nodule-lens/api/internal/analysis/types"
)

func TestRaster_BlobPixels(t *testing.T) {
	img, ok := RenderLayer([]types.Detection{spiculated()}, 200, 200, DefaultOptions())
	require.True(t, ok)
	require.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	// centre is red at ~0.7 opacity (premultiplied in RGBA)
	c := img.RGBAAt(100, 100)
	require.InDelta(t, 178, int(c.A), 3)
	require.InDelta(t, int(c.A), int(c.R), 1)
	require.Less(t, int(c.G), 10)
	require.Zero(t, c.B)

	// corners are outside the blob
	require.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{}, img.RGBAAt(199, 199))

	// the outline sits on the edge of the circle
	edge := img.RGBAAt(160, 100)
	require.Greater(t, int(edge.A), 20)
	require.Greater(t, int(edge.B), 0)
}

func TestRaster_ResizeTracksSurface(t *testing.T) {
	c := NewRaster()
	r := NewRenderer(c, DefaultOptions())

	r.Render([]types.Detection{spiculated()}, 200, 100)
	w, h := c.Size()
	require.Equal(t, 200, w)
	require.Equal(t, 100, h)

	r.Render(nil, 64, 48)
	w, h = c.Size()
	require.Equal(t, 64, w)
	require.Equal(t, 48, h)
	for _, px := range c.Image().Pix {
		require.Zero(t, px)
	}
}

func TestRaster_ZeroSizeIsNoop(t *testing.T) {
	img, ok := RenderLayer([]types.Detection{spiculated()}, 0, 300, DefaultOptions())
	require.False(t, ok)
	require.Nil(t, img)
}

func TestGradient_ColorAt(t *testing.T) {
	g := HeatRamp(Geometry{X: 10, Y: 10, R: 10}, 0.7)

	tests := []struct {
		t       float64
		r, g, b uint8
		a       int
	}{
		{0, 255, 0, 0, 178},
		{0.3, 255, 165, 0, 107},
		{0.7, 255, 255, 0, 36},
	}
	for _, tt := range tests {
		c := g.ColorAt(tt.t)
		require.Equal(t, tt.r, c.R)
		require.Equal(t, tt.g, c.G)
		require.Equal(t, tt.b, c.B)
		require.InDelta(t, tt.a, int(c.A), 1)
	}
	require.Equal(t, uint8(0), g.ColorAt(1).A)
	require.Equal(t, uint8(0), g.ColorAt(3).A)

	mid := g.ColorAt(0.5)
	require.Greater(t, mid.G, uint8(165))
	require.Less(t, mid.A, uint8(107))
}

func TestCompose_DisplaySize(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		ww, wh           int
	}{
		{1200, 1500, 0, 600, 480, 600},
		{400, 300, 0, 600, 400, 300},
		{2000, 1000, 800, 600, 800, 400},
		{100, 100, 0, 0, 100, 100},
		{0, 100, 0, 600, 0, 0},
	}
	for _, tt := range tests {
		w, h := DisplaySize(tt.w, tt.h, tt.maxW, tt.maxH)
		require.Equal(t, tt.ww, w)
		require.Equal(t, tt.wh, h)
	}
}

func TestCompose_OverlayAtDisplayedSize(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 1000, 1200))
	for i := range src.Pix {
		src.Pix[i] = 40
	}
	out, err := Compose(src, []types.Detection{spiculated()}, ComposeOptions{MaxHeight: 600, Labels: true})
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 500, 600), out.Bounds())

	centre := out.RGBAAt(250, 300)
	require.Greater(t, int(centre.R), int(centre.G)+50)

	b, err := EncodePNG(out)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, 500, cfg.Width)
	require.Equal(t, 600, cfg.Height)

	decoded, err := DecodeImage(b)
	require.NoError(t, err)
	require.Equal(t, out.Bounds(), decoded.Bounds())
}

func TestCompose_NilImage(t *testing.T) {
	_, err := Compose(nil, nil, ComposeOptions{})
	require.Error(t, err)

	_, err = DecodeImage([]byte("not an image"))
	require.Error(t, err)
}
