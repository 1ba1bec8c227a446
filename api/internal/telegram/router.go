package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/overlay"
	"nodule-lens/api/internal/risk"
	"nodule-lens/api/internal/session"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Analyzer runs one analysis with a chosen engine.
type Analyzer interface {
	AnalyzeWith(ctx context.Context, eng analysis.Engine, img []byte, mime string) (analysis.Outcome, error)
}

type Router struct {
	Bot        Bot
	Engines    *analysis.Engines
	EngManager *analysis.Manager
	Analyzer   Analyzer
	Presenter  *risk.Presenter
	Sessions   *session.Sessions

	// Display bounds the photo is fitted into; the overlay is drawn at that size.
	MaxWidth    int
	MaxHeight   int
	RadiusScale float64
	Timeout     time.Duration

	Log      *slog.Logger
	Download func(url string) ([]byte, error)
	Now      func() time.Time
}

type Config struct {
	MaxWidth    int
	MaxHeight   int
	RadiusScale float64
	Timeout     time.Duration
}

func NewRouter(bot Bot, engines *analysis.Engines, analyzer Analyzer, presenter *risk.Presenter, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if presenter == nil {
		presenter = risk.NewPresenter(false, logger)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.RadiusScale <= 0 {
		cfg.RadiusScale = overlay.DefaultRadiusScale
	}
	def, err := engines.GetEngine("")
	if err != nil {
		logger.Warn("default engine unavailable", "err", err)
	}
	r := &Router{
		Bot:         bot,
		Engines:     engines,
		EngManager:  analysis.NewManager(def),
		Analyzer:    analyzer,
		Presenter:   presenter,
		MaxWidth:    cfg.MaxWidth,
		MaxHeight:   cfg.MaxHeight,
		RadiusScale: cfg.RadiusScale,
		Timeout:     cfg.Timeout,
		Log:         logger,
		Download:    download,
		Now:         time.Now,
	}
	r.Sessions = session.NewSessions(logger, func(chatID int64, s *session.Session) {
		s.Subscribe(func(sn session.Snapshot) { r.onSnapshot(chatID, sn) })
	})
	return r
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if len(msg.Photo) > 0 || isImageDocument(msg.Document) {
		r.acceptPhoto(msg)
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		r.send(msg.Chat.ID, helpText)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "clear":
		r.Sessions.Get(cid).Clear()
		r.send(cid, clearedText)
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "未知命令。"+commandsHint)
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine gemini [model]
//	/engine gpt [model]
func (r *Router) handleEngineCommand(chatID int64, argLine string) {
	args := strings.Fields(argLine)
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		if cur == nil {
			r.send(chatID, "当前未配置可用的模型。\n用法: /engine gemini|gpt [model]")
			return
		}
		r.send(chatID, "当前模型: "+cur.Name()+" ("+cur.GetModel()+")\n用法: /engine gemini|gpt [model]")
		return
	}
	eng, err := r.Engines.GetEngine(args[0])
	if err != nil {
		r.send(chatID, "❌ 未知或未配置的模型: "+args[0]+"。可用: gemini | gpt")
		return
	}
	if len(args) > 1 {
		if ms, ok := eng.(analysis.ModelSwitcher); ok {
			eng = ms.WithModel(args[1])
		}
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ 模型: "+eng.Name()+" ("+eng.GetModel()+")")
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send failed", "chat_id", chatID, "err", err)
	}
}
