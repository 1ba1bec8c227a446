package telegram

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"nodule-lens/api/internal/overlay"
	"nodule-lens/api/internal/util"
)

const maxUploadBytes = 20 << 20

func isImageDocument(d *tgbotapi.Document) bool {
	return d != nil && strings.HasPrefix(strings.ToLower(d.MimeType), "image/")
}

// acceptPhoto loads the upload into the chat session and offers the analyze
// button. The displayed size is recorded so the overlay is drawn to match it.
func (r *Router) acceptPhoto(msg *tgbotapi.Message) {
	cid := msg.Chat.ID

	var fileID, mime string
	if len(msg.Photo) > 0 {
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	} else {
		fileID, mime = msg.Document.FileID, msg.Document.MimeType
	}
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(cid, errors.Wrap(err, "获取文件失败"))
		return
	}
	img, err := r.Download(url)
	if err != nil {
		r.sendError(cid, errors.Wrap(err, "下载失败"))
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		r.send(cid, "无法识别的图片格式，请上传 JPG/PNG/WEBP。")
		return
	}
	mime = util.PickMIME(mime, "", img)

	sess := r.Sessions.Get(cid)
	sess.LoadImage(img, mime)
	sess.Resize(overlay.DisplaySize(cfg.Width, cfg.Height, r.MaxWidth, r.MaxHeight))
	r.Log.Info("image loaded", "chat_id", cid, "bytes", len(img), "mime", mime,
		"width", cfg.Width, "height", cfg.Height)

	out := tgbotapi.NewMessage(cid, imageLoadedText)
	out.ReplyMarkup = analyzeKeyboard()
	if _, err := r.Bot.Send(out); err != nil {
		r.Log.Warn("telegram send failed", "chat_id", cid, "err", err)
	}
}

func (r *Router) sendError(chatID int64, err error) {
	r.Log.Error("chat error", "chat_id", chatID, "err", err)
	r.send(chatID, fmt.Sprintf("错误: %v", err))
}

func download(url string) ([]byte, error) {
	resp, err := httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxUploadBytes {
		return nil, errors.New("file too large")
	}
	return b, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
