package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/analysis/types"
	"nodule-lens/api/internal/util"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	schemaName     = "nodule_analysis"
)

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// vision replies take a while before the first byte
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: DefaultBaseURL,
		httpc:   &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

// WithModel returns a copy bound to another model; the receiver is unchanged.
func (e *Engine) WithModel(model string) analysis.Engine {
	c := *e
	c.Model = strings.TrimSpace(model)
	return &c
}

func (e *Engine) Analyze(ctx context.Context, img []byte, mime string) (types.AnalysisResult, error) {
	if e.APIKey == "" {
		return types.AnalysisResult{}, errors.New("OPENAI_API_KEY is empty")
	}
	if len(img) == 0 {
		return types.AnalysisResult{}, errors.New("openai: empty image")
	}
	mime = util.PickMIME(mime, "", img)
	if !isOpenAIImageMIME(mime) {
		mime = util.SniffMimeHTTP(img)
		if !isOpenAIImageMIME(mime) {
			return types.AnalysisResult{}, errors.Errorf("openai: unsupported image type %q", mime)
		}
	}

	schema, err := util.LoadSchema("analysis", analysis.SchemaJSON)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	util.FixJSONSchemaStrict(schema)

	dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(img))
	body := map[string]any{
		"model": e.Model,
		"input": []any{
			map[string]any{
				"role": "system",
				"content": []any{
					map[string]any{"type": "input_text", "text": analysis.SystemPrompt},
				},
			},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": "请分析这张胸片，只返回JSON。"},
					map[string]any{"type": "input_image", "image_url": dataURL},
				},
			},
		},
		"temperature": 0,
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   schemaName,
				"strict": true,
				"schema": schema,
			},
		},
	}
	// reasoning models reject temperature 0
	if strings.Contains(e.Model, "gpt-5") {
		body["temperature"] = 1
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return types.AnalysisResult{}, errors.Wrap(err, "openai: marshal request")
	}
	url := strings.TrimRight(e.BaseURL, "/") + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return types.AnalysisResult{}, errors.Wrap(err, "openai")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return types.AnalysisResult{}, errors.Errorf("openai %d: %s", resp.StatusCode, util.Truncate(strings.TrimSpace(string(raw)), 1024))
	}
	out := util.StripCodeFences(extractResponsesText(raw))
	if out == "" {
		return types.AnalysisResult{}, errors.Wrapf(analysis.ErrBadModelOutput, "openai: empty output; body=%s", util.Truncate(string(raw), 1024))
	}
	return analysis.DecodeResult(out)
}

// extractResponsesText pulls model text out of the Responses API envelope.
// It prefers output_text, otherwise joins output[i].content[j].text segments.
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Content []content `json:"content"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var b strings.Builder
	for _, o := range env.Output {
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(c.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isOpenAIImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	return false
}
