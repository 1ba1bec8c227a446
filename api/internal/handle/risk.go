package handle

import (
	"net/http"
	"net/url"
	"strings"

	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/risk"
)

type RiskResponse struct {
	Tier types.RiskTier `json:"tier"`
	risk.Presentation
	FollowUp string `json:"follow_up"`
}

// Risk serves GET /v1/risk/{tier}. The tier may be LOW|MEDIUM|HIGH in any case
// or one of the Chinese labels.
func (h *Handle) Risk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/v1/risk/"))
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "tier required")
		return
	}
	tier, ok := types.ParseRiskTier(name)
	if !ok {
		_, err := risk.Lookup(types.RiskTier(name))
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RiskResponse{
		Tier:         tier,
		Presentation: h.presenter.Classify(tier),
		FollowUp:     h.presenter.FollowUpInterval(tier),
	})
}
