package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/risk"
)

var at = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func presenter() *risk.Presenter {
	return risk.NewPresenter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestText_WithNodules(t *testing.T) {
	res := types.AnalysisResult{
		Detections: []types.Detection{
			{Position: types.Position{X: 62.4, Y: 37.6}, DisplayRadius: 12, Intensity: 0.9, Risk: types.RiskHigh, PhysicalSizeMm: 14, Description: "分叶状，可见毛刺"},
			{Position: types.Position{X: 30, Y: 70}, DisplayRadius: 6, Intensity: 0.5, Risk: types.RiskLow, PhysicalSizeMm: 3.5},
		},
		OverallRisk:    types.RiskHigh,
		Summary:        "右肺上叶高危结节",
		Recommendation: "建议增强CT",
	}
	txt := Text(Build(res, presenter()), at)

	require.Contains(t, txt, "分析报告汇总 [高风险]")
	require.Contains(t, txt, "检测到结节数: 2")
	require.Contains(t, txt, "建议随访周期: 立刻复查")
	require.Contains(t, txt, `#1 结节直径: 14mm 位置坐标: (62%, 38%) [高风险] "分叶状，可见毛刺"`)
	require.Contains(t, txt, "#2 结节直径: 3.5mm 位置坐标: (30%, 70%) [低风险]")
	require.NotContains(t, txt, NoNodules)
	require.Less(t, strings.Index(txt, "#1"), strings.Index(txt, "#2"))
}

func TestText_Empty(t *testing.T) {
	res := types.AnalysisResult{OverallRisk: types.RiskLow, Summary: "双肺清晰"}
	txt := Text(Build(res, presenter()), at)
	require.Contains(t, txt, "检测到结节数: 0")
	require.Contains(t, txt, "建议随访周期: 12个月")
	require.True(t, strings.HasSuffix(txt, NoNodules))
}

func TestBuild_UnknownTier(t *testing.T) {
	res := types.AnalysisResult{
		Detections:  []types.Detection{{Risk: "CRITICAL"}},
		OverallRisk: "",
	}
	v := Build(res, presenter())
	require.Equal(t, risk.Neutral, v.Badge)
	require.Equal(t, risk.Neutral, v.Nodules[0].Presentation)
	require.Equal(t, risk.FollowUpUnknown, v.FollowUp)
	require.Contains(t, Text(v, at), "[未知]")
}

func TestBuild_JSON(t *testing.T) {
	v := Build(types.AnalysisResult{OverallRisk: types.RiskMedium}, presenter())
	b, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "MEDIUM", m["total_risk"])
	require.Equal(t, "3-6个月", m["follow_up"])
	require.Equal(t, []any{}, m["nodules"])
	badge := m["badge"].(map[string]any)
	require.Equal(t, "risk-medium", badge["style_class"])
	require.Equal(t, []any{}, m["result"].(map[string]any)["nodules"])
}

func TestNoduleLine_NonFinite(t *testing.T) {
	line := NoduleLine(NoduleView{Index: 3, X: math.Inf(1), Y: 10, SizeMm: math.NaN(), Presentation: risk.Neutral})
	require.Equal(t, "#3 结节直径: ?mm 位置坐标: (0%, 10%) [未知]", line)
}
