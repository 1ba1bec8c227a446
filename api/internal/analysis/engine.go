package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis/types"
)

var ErrUnknownEngine = errors.New("unknown llm_name; use 'gemini' or 'gpt'")

// Engine sends one image to a hosted multimodal model and returns its
// structured reading. Exactly one upstream request per call (plus retries on
// transport failures).
type Engine interface {
	Name() string
	GetModel() string
	Analyze(ctx context.Context, img []byte, mime string) (types.AnalysisResult, error)
}

// ModelSwitcher is implemented by engines that can run another model of the
// same provider.
type ModelSwitcher interface {
	WithModel(model string) Engine
}

type Engines struct {
	Gemini  Engine
	OpenAI  Engine
	Default string
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = strings.ToLower(e.Default)
	}
	var eng Engine
	switch name {
	case "gemini", "":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	default:
		return nil, errors.Wrapf(ErrUnknownEngine, "%q", llmName)
	}
	if eng == nil {
		return nil, errors.Errorf("engine %q is not configured", name)
	}
	return eng, nil
}

// Manager remembers the engine picked per chat.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
