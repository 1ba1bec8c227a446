package gemini

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"nodule-lens/api/internal/analysis"
)

func TestFirstText(t *testing.T) {
	require.Empty(t, firstText(nil))
	require.Empty(t, firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				&genai.Blob{MIMEType: "image/png"},
				genai.Text(`{"nodules":[]}`),
				genai.Text("second"),
			}}},
		},
	}
	require.Equal(t, `{"nodules":[]}`, firstText(resp))
}

// The SDK schema and the JSON schema given to OpenAI describe the same shape.
func TestResultSchema_MatchesJSON(t *testing.T) {
	var js struct {
		Properties map[string]struct {
			Items struct {
				Properties map[string]any `json:"properties"`
				Required   []string       `json:"required"`
			} `json:"items"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal([]byte(analysis.SchemaJSON), &js))

	s := ResultSchema()
	require.Equal(t, genai.TypeObject, s.Type)
	require.ElementsMatch(t, js.Required, s.Required)
	for k := range js.Properties {
		require.Contains(t, s.Properties, k)
	}

	nodule := s.Properties["nodules"].Items
	require.NotNil(t, nodule)
	require.ElementsMatch(t, js.Properties["nodules"].Items.Required, nodule.Required)
	require.Equal(t, analysis.RiskEnum, nodule.Properties["risk"].Enum)
	require.Equal(t, analysis.RiskEnum, s.Properties["totalRisk"].Enum)
}

func TestAnalyze_RequiresKey(t *testing.T) {
	_, err := New("  ", "gemini-3-pro-preview").Analyze(context.Background(), []byte{1}, "image/png")
	require.EqualError(t, err, "GEMINI_API_KEY is empty")
}

func TestWithModel_Copies(t *testing.T) {
	e := New("k", "gemini-3-pro-preview")
	other := e.WithModel(" gemini-2.5-flash ")
	require.Equal(t, "gemini-2.5-flash", other.GetModel())
	require.Equal(t, "gemini-3-pro-preview", e.GetModel())
	var _ analysis.ModelSwitcher = e
}
