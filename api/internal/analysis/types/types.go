package types

import (
	"encoding/json"
	"math"
	"strings"
)

// RiskTier is the risk level of a single nodule or of the whole image.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Display labels the model is asked to return (schema enum).
const (
	LabelLow    = "低风险"
	LabelMedium = "中风险"
	LabelHigh   = "高风险"
)

// ParseRiskTier maps canonical names and display labels to a tier.
// Unknown input is returned verbatim with ok=false.
func ParseRiskTier(s string) (RiskTier, bool) {
	v := strings.TrimSpace(s)
	switch strings.ToUpper(v) {
	case string(RiskLow), LabelLow:
		return RiskLow, true
	case string(RiskMedium), LabelMedium:
		return RiskMedium, true
	case string(RiskHigh), LabelHigh:
		return RiskHigh, true
	}
	return RiskTier(v), false
}

func (t RiskTier) Known() bool {
	switch t {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func (t *RiskTier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t, _ = ParseRiskTier(s)
	return nil
}

// Position is a percentage offset (0..100) within the displayed image.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one reported nodule.
type Detection struct {
	Position
	DisplayRadius  float64  `json:"radius"`    // visual size hint, 5..20
	Intensity      float64  `json:"intensity"` // 0..1
	Risk           RiskTier `json:"risk"`
	PhysicalSizeMm float64  `json:"size_mm"`
	Description    string   `json:"description"`
}

// AnalysisResult is produced once per analysis run and never mutated.
type AnalysisResult struct {
	Detections     []Detection `json:"nodules"`
	OverallRisk    RiskTier    `json:"totalRisk"`
	Summary        string      `json:"summary"`
	Recommendation string      `json:"recommendation"`
}

// Clamped returns a copy with numeric fields forced into their documented
// ranges. NaN is treated as zero.
func (d Detection) Clamped() Detection {
	d.X = clamp(d.X, 0, 100)
	d.Y = clamp(d.Y, 0, 100)
	d.DisplayRadius = clamp(d.DisplayRadius, 0, 100)
	d.Intensity = clamp(d.Intensity, 0, 1)
	return d
}

// InRange reports whether every numeric field already lies in its range.
func (d Detection) InRange() bool {
	return d.Clamped() == d
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
