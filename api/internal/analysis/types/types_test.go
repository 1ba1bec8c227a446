package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRiskTier(t *testing.T) {
	tests := []struct {
		in   string
		want RiskTier
		ok   bool
	}{
		{"LOW", RiskLow, true},
		{"medium", RiskMedium, true},
		{" High ", RiskHigh, true},
		{"低风险", RiskLow, true},
		{"中风险", RiskMedium, true},
		{"高风险", RiskHigh, true},
		{"CRITICAL", RiskTier("CRITICAL"), false},
		{"", RiskTier(""), false},
	}
	for _, tt := range tests {
		got, ok := ParseRiskTier(tt.in)
		require.Equal(t, tt.want, got, tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestAnalysisResult_DecodeModelOutput(t *testing.T) {
	raw := `{
	  "nodules": [
	    {"x": 32.5, "y": 41, "radius": 12, "intensity": 0.8, "risk": "高风险", "size_mm": 14, "description": "分叶状"},
	    {"x": 70, "y": 60, "radius": 6, "intensity": 0.5, "risk": "极高", "size_mm": 4, "description": "边缘光滑"}
	  ],
	  "summary": "右肺上叶结节",
	  "totalRisk": "中风险",
	  "recommendation": "3个月后复查"
	}`
	var res AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(raw), &res))
	require.Len(t, res.Detections, 2)
	require.Equal(t, 32.5, res.Detections[0].X)
	require.Equal(t, 41.0, res.Detections[0].Y)
	require.Equal(t, RiskHigh, res.Detections[0].Risk)
	require.False(t, res.Detections[1].Risk.Known())
	require.Equal(t, RiskMedium, res.OverallRisk)
	require.Equal(t, "3个月后复查", res.Recommendation)
}

func TestDetection_Clamped(t *testing.T) {
	d := Detection{
		Position:      Position{X: -5, Y: 140},
		DisplayRadius: -3,
		Intensity:     1.5,
	}
	c := d.Clamped()
	require.Equal(t, 0.0, c.X)
	require.Equal(t, 100.0, c.Y)
	require.Equal(t, 0.0, c.DisplayRadius)
	require.Equal(t, 1.0, c.Intensity)
	require.False(t, d.InRange())
	require.True(t, c.InRange())

	// the original is untouched
	require.Equal(t, 1.5, d.Intensity)
}

func TestDetection_ClampedNaN(t *testing.T) {
	d := Detection{Position: Position{X: math.NaN(), Y: 50}, DisplayRadius: 10, Intensity: math.NaN()}
	c := d.Clamped()
	require.Equal(t, 0.0, c.X)
	require.Equal(t, 0.0, c.Intensity)
}
