package handle

import (
	"bytes"
	"image"
	"net/http"

	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/overlay"
	"nodule-lens/api/internal/util"
)

type OverlayRequest struct {
	Nodules []types.Detection `json:"nodules"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
}

// Overlay renders the transparent heat layer for the client's current image
// size. Clients call it again on every resize.
func (h *Handle) Overlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req OverlayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		// image not laid out yet
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if req.Width > maxSide || req.Height > maxSide {
		writeError(w, http.StatusBadRequest, "surface too large")
		return
	}

	img, _ := overlay.RenderLayer(req.Nodules, req.Width, req.Height, h.overlayOptions())
	b, err := overlay.EncodePNG(img)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writePNG(w, b)
}

type RenderRequest struct {
	ImageB64  string               `json:"image_b64"`
	Result    types.AnalysisResult `json:"result"`
	MaxWidth  int                  `json:"max_width,omitempty"`
	MaxHeight int                  `json:"max_height,omitempty"`
	Labels    bool                 `json:"labels,omitempty"`
}

// Render returns the upload scaled to its displayed size with the overlay
// composited on top.
func (h *Handle) Render(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req RenderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	raw, _, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad image_b64")
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported image: "+err.Error())
		return
	}
	if cfg.Width > maxSide || cfg.Height > maxSide {
		writeError(w, http.StatusBadRequest, "image too large")
		return
	}
	src, err := overlay.DecodeImage(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := overlay.ComposeOptions{
		MaxWidth:   h.opts.DisplayMaxWidth,
		MaxHeight:  h.opts.DisplayMaxHeight,
		Labels:     req.Labels,
		LabelColor: h.presenter.Color,
		Overlay:    h.overlayOptions(),
	}
	if req.MaxWidth > 0 {
		opts.MaxWidth = req.MaxWidth
	}
	if req.MaxHeight > 0 {
		opts.MaxHeight = req.MaxHeight
	}
	out, err := overlay.Compose(src, req.Result.Detections, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := overlay.EncodePNG(out)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writePNG(w, b)
}

func (h *Handle) overlayOptions() overlay.Options {
	o := overlay.DefaultOptions()
	if h.opts.RadiusScale > 0 {
		o.RadiusScale = h.opts.RadiusScale
	}
	return o
}
