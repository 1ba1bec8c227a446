package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"nodule-lens/api/internal/session"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch cb.Data {
	case cbAnalyze:
		r.onAnalyze(cid, cb.Message.MessageID)
	}
}

func (r *Router) onAnalyze(chatID int64, msgID int) {
	eng := r.EngManager.Get(chatID)
	if eng == nil {
		r.send(chatID, "❌ 未配置可用的模型。")
		return
	}
	sess := r.Sessions.Get(chatID)
	run, err := sess.Begin()
	switch {
	case errors.Is(err, session.ErrBusy):
		r.send(chatID, busyText)
		return
	case errors.Is(err, session.ErrNoImage):
		r.send(chatID, noImageText)
		return
	case err != nil:
		r.sendError(chatID, err)
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Request(edit)

	sn := sess.Snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
		defer cancel()
		out, err := r.Analyzer.AnalyzeWith(ctx, eng, sn.Image, sn.MIME)
		if err != nil {
			sess.Fail(run, err)
			return
		}
		sess.Complete(run, out.Result)
	}()
}
