package risk

import (
	"image/color"
	"log/slog"

	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis/types"
)

var ErrUnknownTier = errors.New("unknown risk tier")

// Presentation is the visual treatment of a tier, shared by the detail list
// and the summary badge.
type Presentation struct {
	Label      string `json:"label"`
	StyleClass string `json:"style_class"`
}

var (
	presentations = map[types.RiskTier]Presentation{
		types.RiskLow:    {Label: types.LabelLow, StyleClass: "risk-low"},
		types.RiskMedium: {Label: types.LabelMedium, StyleClass: "risk-medium"},
		types.RiskHigh:   {Label: types.LabelHigh, StyleClass: "risk-high"},
	}
	Neutral = Presentation{Label: "未知", StyleClass: "risk-neutral"}

	followUps = map[types.RiskTier]string{
		types.RiskHigh:   FollowUpImmediate,
		types.RiskMedium: FollowUpShort,
		types.RiskLow:    FollowUpRoutine,
	}

	// badge colours: emerald, amber, rose, slate
	colors = map[types.RiskTier]color.RGBA{
		types.RiskLow:    {R: 0x04, G: 0x78, B: 0x57, A: 0xff},
		types.RiskMedium: {R: 0xb4, G: 0x53, B: 0x09, A: 0xff},
		types.RiskHigh:   {R: 0xbe, G: 0x12, B: 0x3c, A: 0xff},
	}
	neutralColor = color.RGBA{R: 0x47, G: 0x55, B: 0x69, A: 0xff}
)

const (
	FollowUpImmediate = "立刻复查"
	FollowUpShort     = "3-6个月"
	FollowUpRoutine   = "12个月"
	FollowUpUnknown   = "请咨询医生"
)

// Presenter maps tiers to presentations. In strict mode (development) an
// unknown tier is logged as an error; otherwise as a warning. The fallback is
// returned either way.
type Presenter struct {
	Strict bool
	Logger *slog.Logger
}

func NewPresenter(strict bool, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{Strict: strict, Logger: logger}
}

// Lookup returns ErrUnknownTier for values outside LOW/MEDIUM/HIGH.
func Lookup(t types.RiskTier) (Presentation, error) {
	if p, ok := presentations[t]; ok {
		return p, nil
	}
	return Neutral, errors.Wrapf(ErrUnknownTier, "%q", string(t))
}

// Classify never fails.
func (p *Presenter) Classify(t types.RiskTier) Presentation {
	pr, err := Lookup(t)
	if err != nil {
		p.report(err)
	}
	return pr
}

// FollowUpInterval is a fixed lookup on the overall tier.
func (p *Presenter) FollowUpInterval(t types.RiskTier) string {
	if s, ok := followUps[t]; ok {
		return s
	}
	p.report(errors.Wrapf(ErrUnknownTier, "follow-up for %q", string(t)))
	return FollowUpUnknown
}

func (p *Presenter) Color(t types.RiskTier) color.RGBA {
	if c, ok := colors[t]; ok {
		return c
	}
	return neutralColor
}

func (p *Presenter) report(err error) {
	if p == nil || p.Logger == nil {
		return
	}
	if p.Strict {
		p.Logger.Error("risk presenter fallback", "err", err)
		return
	}
	p.Logger.Warn("risk presenter fallback", "err", err)
}
