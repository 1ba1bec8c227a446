package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/analysis/types"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10}

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	e := New("sk-test", "gpt-4o").WithHTTPClient(srv.Client())
	e.BaseURL = srv.URL
	return e
}

func TestAnalyze_OK(t *testing.T) {
	reply := `{"nodules":[{"x":30,"y":40,"radius":8,"intensity":0.6,"risk":"低风险","size_mm":4,"description":"边缘光滑"}],"summary":"左肺小结节","totalRisk":"低风险","recommendation":"12个月随访"}`

	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/responses", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4o", body["model"])
		format := body["text"].(map[string]any)["format"].(map[string]any)
		require.Equal(t, "json_schema", format["type"])
		require.Equal(t, true, format["strict"])
		schema := format["schema"].(map[string]any)
		require.Equal(t, false, schema["additionalProperties"])

		input := body["input"].([]any)
		user := input[1].(map[string]any)["content"].([]any)
		img := user[1].(map[string]any)
		require.Equal(t, "input_image", img["type"])
		require.True(t, strings.HasPrefix(img["image_url"].(string), "data:image/jpeg;base64,"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": []any{map[string]any{
				"content": []any{map[string]any{"type": "output_text", "text": reply}},
			}},
		})
	})

	res, err := e.Analyze(context.Background(), jpeg, "")
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	require.Equal(t, types.RiskLow, res.Detections[0].Risk)
	require.Equal(t, types.RiskLow, res.OverallRisk)
	require.Equal(t, 4.0, res.Detections[0].PhysicalSizeMm)
}

func TestAnalyze_UpstreamError(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})
	_, err := e.Analyze(context.Background(), jpeg, "image/jpeg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "openai 429")
}

func TestAnalyze_BadJSON(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output_text":"抱歉，我无法分析"}`))
	})
	_, err := e.Analyze(context.Background(), jpeg, "image/jpeg")
	require.True(t, errors.Is(err, analysis.ErrBadModelOutput))
}

func TestAnalyze_Validation(t *testing.T) {
	_, err := New("", "gpt-4o").Analyze(context.Background(), jpeg, "image/jpeg")
	require.EqualError(t, err, "OPENAI_API_KEY is empty")

	_, err = New("k", "gpt-4o").Analyze(context.Background(), []byte("GIF89a...."), "image/gif")
	require.Error(t, err)
}

func TestExtractResponsesText(t *testing.T) {
	require.Equal(t, "a", extractResponsesText([]byte(`{"output_text":" a "}`)))
	require.Equal(t, "x\ny", extractResponsesText([]byte(`{"output":[{"content":[{"type":"output_text","text":"x"},{"type":"refusal","text":"no"},{"type":"text","text":"y"}]}]}`)))
	require.Empty(t, extractResponsesText([]byte(`nope`)))
}
