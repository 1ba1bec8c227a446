package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/overlay"
	"nodule-lens/api/internal/report"
	"nodule-lens/api/internal/session"
	"nodule-lens/api/internal/util"
)

// onSnapshot reacts to session transitions. The overlay is rebuilt from the
// snapshot every time; nothing is cached between renders.
func (r *Router) onSnapshot(chatID int64, sn session.Snapshot) {
	switch sn.Phase {
	case session.PhaseAnalyzing:
		r.send(chatID, analyzingText)
	case session.PhaseResultReady:
		r.deliverResult(chatID, sn)
	case session.PhaseError:
		r.send(chatID, failureText(sn.Err))
		out := tgbotapi.NewMessage(chatID, "可重新分析当前影像。")
		out.ReplyMarkup = analyzeKeyboard()
		_, _ = r.Bot.Send(out)
	}
}

func (r *Router) deliverResult(chatID int64, sn session.Snapshot) {
	if sn.Result == nil {
		return
	}
	v := report.Build(*sn.Result, r.Presenter)

	if png, err := r.renderOverlay(sn); err != nil {
		r.Log.Error("overlay render failed", "chat_id", chatID, "err", err)
	} else {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "nodules.png", Bytes: png})
		photo.Caption = fmt.Sprintf("%s · 结节 %d 个", v.Badge.Label, v.NoduleCount)
		if _, err := r.Bot.Send(photo); err != nil {
			r.Log.Warn("telegram photo send failed", "chat_id", chatID, "err", err)
		}
	}
	r.send(chatID, report.Text(v, r.Now()))
}

func (r *Router) renderOverlay(sn session.Snapshot) ([]byte, error) {
	src, err := overlay.DecodeImage(sn.Image)
	if err != nil {
		return nil, err
	}
	opts := overlay.ComposeOptions{
		MaxWidth:   sn.Width,
		MaxHeight:  sn.Height,
		Labels:     true,
		LabelColor: r.Presenter.Color,
		Overlay:    overlay.DefaultOptions(),
	}
	opts.Overlay.RadiusScale = r.RadiusScale
	img, err := overlay.Compose(src, sn.Result.Detections, opts)
	if err != nil {
		return nil, err
	}
	return overlay.EncodePNG(img)
}

func failureText(err error) string {
	switch {
	case err == nil:
		return failedText
	case errors.Is(err, analysis.ErrBadModelOutput):
		return analysis.ParseFailedMessage
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutText
	default:
		return failedText + "\n" + util.Truncate(err.Error(), 300)
	}
}
