package analysis

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/util"
)

// ParseFailedMessage is shown to the user when the model reply is not valid JSON.
const ParseFailedMessage = "结果解析失败，请重试。"

var ErrBadModelOutput = errors.New(ParseFailedMessage)

const SystemPrompt = `你是一位专业的放射科医生。请分析这张X光胸片，特别关注是否存在肺结节。
请识别结节的位置（x, y 坐标，范围0-100，相对于图像宽高）、结节大小（毫米）、并评估其风险程度（低、中、高）。

结节定义参考：
- 低风险：边缘平滑，直径小于5mm。
- 中风险：直径5-10mm，或者存在轻微分叶。
- 高风险：直径大于10mm，存在明显分叶、毛刺征或胸膜牵拉。

请严格按照JSON格式返回结果，包含结节列表、总体风险评估、简要描述和后续建议。`

// SchemaJSON is the response contract; the Gemini engine mirrors it as a
// genai.Schema.
const SchemaJSON = `{
  "type": "object",
  "properties": {
    "nodules": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "x": {"type": "number", "description": "x轴百分比位置 (0-100)"},
          "y": {"type": "number", "description": "y轴百分比位置 (0-100)"},
          "radius": {"type": "number", "description": "显示半径 (5-15)"},
          "intensity": {"type": "number", "description": "热力强度 (0.5-1.0)"},
          "risk": {"type": "string", "enum": ["低风险", "中风险", "高风险"]},
          "size_mm": {"type": "number", "description": "结节直径(mm)"},
          "description": {"type": "string", "description": "影像学描述"}
        },
        "required": ["x", "y", "radius", "intensity", "risk", "size_mm", "description"]
      }
    },
    "summary": {"type": "string", "description": "整体病情总结"},
    "totalRisk": {"type": "string", "enum": ["低风险", "中风险", "高风险"]},
    "recommendation": {"type": "string", "description": "医疗建议"}
  },
  "required": ["nodules", "summary", "totalRisk", "recommendation"]
}`

// RiskEnum lists the values the model may return for a tier.
var RiskEnum = []string{types.LabelLow, types.LabelMedium, types.LabelHigh}

// DecodeResult parses a model reply into a result. Code fences and
// surrounding prose are tolerated; anything else is ErrBadModelOutput.
func DecodeResult(raw string) (types.AnalysisResult, error) {
	txt := util.ExtractJSONObject(strings.TrimSpace(raw))
	if txt == "" {
		return types.AnalysisResult{}, errors.Wrap(ErrBadModelOutput, "empty response")
	}
	var out types.AnalysisResult
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return types.AnalysisResult{}, errors.Wrapf(ErrBadModelOutput, "bad JSON: %v", err)
	}
	if out.Detections == nil {
		out.Detections = []types.Detection{}
	}
	return out, nil
}
