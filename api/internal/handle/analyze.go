package handle

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/report"
	"nodule-lens/api/internal/util"
)

type AnalyzeRequest struct {
	LLMName  string `json:"llm_name"`
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime,omitempty"`
}

func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	img, hint, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		writeError(w, http.StatusBadRequest, "bad image_b64")
		return
	}
	if len(img) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	mime := util.PickMIME(req.MIME, hint, img)

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	runID := uuid.NewString()
	out, err := h.svc.Analyze(ctx, req.LLMName, img, mime)
	if err != nil {
		h.log.Error("analyze failed", "run_id", runID, "llm_name", req.LLMName, "err", err)
		switch {
		case errors.Is(err, analysis.ErrUnknownEngine):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, analysis.ErrBadModelOutput):
			writeError(w, http.StatusBadGateway, analysis.ParseFailedMessage)
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "analyze timeout")
		default:
			writeError(w, http.StatusBadGateway, "analyze error: "+err.Error())
		}
		return
	}

	v := report.Build(out.Result, h.presenter)
	v.RunID = runID
	v.Engine = out.Engine
	v.Model = out.Model
	v.Cached = out.Cached
	writeJSON(w, http.StatusOK, v)
}
