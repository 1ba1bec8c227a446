// Package report renders an analysis result as the text report sent to chat
// users and as the JSON view returned by the HTTP API.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/risk"
	"nodule-lens/api/internal/util"
)

const (
	NoNodules = "未发现明显异常结节"

	// keeps the whole report under the Telegram message limit
	maxDescriptionRunes = 300
	maxMessageRunes     = 4000
)

// NoduleView is one row of the detail list. Index starts at 1 and matches the
// "#n" label drawn on the overlay.
type NoduleView struct {
	Index        int               `json:"index"`
	X            float64           `json:"x"`
	Y            float64           `json:"y"`
	SizeMm       float64           `json:"size_mm"`
	Risk         types.RiskTier    `json:"risk"`
	Presentation risk.Presentation `json:"presentation"`
	Description  string            `json:"description"`
}

type View struct {
	RunID          string            `json:"run_id,omitempty"`
	Engine         string            `json:"engine,omitempty"`
	Model          string            `json:"model,omitempty"`
	Cached         bool              `json:"cached"`
	TotalRisk      types.RiskTier    `json:"total_risk"`
	Badge          risk.Presentation `json:"badge"`
	NoduleCount    int               `json:"nodule_count"`
	FollowUp       string            `json:"follow_up"`
	Summary        string            `json:"summary"`
	Recommendation string            `json:"recommendation"`
	Nodules        []NoduleView      `json:"nodules"`
	// Result is the reading as returned, unclamped, for clients that draw the
	// overlay themselves.
	Result types.AnalysisResult `json:"result"`
}

func Build(res types.AnalysisResult, p *risk.Presenter) View {
	v := View{
		TotalRisk:      res.OverallRisk,
		Badge:          p.Classify(res.OverallRisk),
		NoduleCount:    len(res.Detections),
		FollowUp:       p.FollowUpInterval(res.OverallRisk),
		Summary:        res.Summary,
		Recommendation: res.Recommendation,
		Nodules:        make([]NoduleView, 0, len(res.Detections)),
		Result:         res,
	}
	for i, d := range res.Detections {
		v.Nodules = append(v.Nodules, NoduleView{
			Index:        i + 1,
			X:            d.X,
			Y:            d.Y,
			SizeMm:       d.PhysicalSizeMm,
			Risk:         d.Risk,
			Presentation: p.Classify(d.Risk),
			Description:  d.Description,
		})
	}
	if v.Result.Detections == nil {
		v.Result.Detections = []types.Detection{}
	}
	return v
}

// Text formats the report panel as plain text.
func Text(v View, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "分析报告汇总 [%s]\n", v.Badge.Label)
	fmt.Fprintf(&b, "检测时间: %s\n\n", at.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "检测到结节数: %d\n", v.NoduleCount)
	fmt.Fprintf(&b, "建议随访周期: %s\n\n", v.FollowUp)
	if s := strings.TrimSpace(v.Summary); s != "" {
		fmt.Fprintf(&b, "影像总结:\n%s\n\n", s)
	}
	if s := strings.TrimSpace(v.Recommendation); s != "" {
		fmt.Fprintf(&b, "临床建议:\n%s\n\n", s)
	}
	b.WriteString("结节明细列表\n")
	if len(v.Nodules) == 0 {
		b.WriteString(NoNodules)
		return b.String()
	}
	for _, n := range v.Nodules {
		b.WriteString(NoduleLine(n))
		b.WriteByte('\n')
	}
	return util.Truncate(strings.TrimRight(b.String(), "\n"), maxMessageRunes)
}

func NoduleLine(n NoduleView) string {
	line := fmt.Sprintf("#%d 结节直径: %smm 位置坐标: (%d%%, %d%%) [%s]",
		n.Index, formatNumber(n.SizeMm), round(n.X), round(n.Y), n.Presentation.Label)
	if d := strings.TrimSpace(n.Description); d != "" {
		line += fmt.Sprintf(" %q", util.Truncate(d, maxDescriptionRunes))
	}
	return line
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "?"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
