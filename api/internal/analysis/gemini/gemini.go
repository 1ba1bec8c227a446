package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/util"
)

const maxAttempts = 3

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// WithModel returns a copy bound to another model; the receiver is unchanged.
func (e *Engine) WithModel(model string) analysis.Engine {
	c := *e
	c.Model = strings.TrimSpace(model)
	return &c
}

// Analyze sends the radiograph with the nodule prompt and decodes the JSON
// reply. Transport errors are retried; a reply that is not valid JSON is not.
func (e *Engine) Analyze(ctx context.Context, img []byte, mime string) (types.AnalysisResult, error) {
	if e.APIKey == "" {
		return types.AnalysisResult{}, errors.New("GEMINI_API_KEY is empty")
	}
	if len(img) == 0 {
		return types.AnalysisResult{}, errors.New("gemini: empty image")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return types.AnalysisResult{}, errors.Wrap(err, "gemini client")
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return types.AnalysisResult{}, errors.New("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResultSchema(),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(analysis.SystemPrompt)},
	}

	parts := []genai.Part{
		genai.Text("请分析这张胸片，只返回JSON。"),
		&genai.Blob{MIMEType: util.PickMIME(mime, "", img), Data: img},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return types.AnalysisResult{}, errors.Wrap(analysis.ErrBadModelOutput, "gemini: empty response")
		}
		return analysis.DecodeResult(util.StripCodeFences(txt))
	}
	return types.AnalysisResult{}, errors.Wrapf(lastErr, "gemini: %d attempts failed", maxAttempts)
}

// ResultSchema mirrors analysis.SchemaJSON in the SDK's schema types.
func ResultSchema() *genai.Schema {
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	}
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	risk := &genai.Schema{Type: genai.TypeString, Enum: analysis.RiskEnum}

	nodule := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"x":           num("x轴百分比位置 (0-100)"),
			"y":           num("y轴百分比位置 (0-100)"),
			"radius":      num("显示半径 (5-15)"),
			"intensity":   num("热力强度 (0.5-1.0)"),
			"risk":        risk,
			"size_mm":     num("结节直径(mm)"),
			"description": str("影像学描述"),
		},
		Required: []string{"x", "y", "radius", "intensity", "risk", "size_mm", "description"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"nodules":        {Type: genai.TypeArray, Items: nodule},
			"summary":        str("整体病情总结"),
			"totalRisk":      risk,
			"recommendation": str("医疗建议"),
		},
		Required: []string{"nodules", "summary", "totalRisk", "recommendation"},
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
