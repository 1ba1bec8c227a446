package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"nodule-lens/api/internal/app"
	"nodule-lens/api/internal/config"
	"nodule-lens/api/internal/httpserver"
	"nodule-lens/api/internal/logging"
	"nodule-lens/api/internal/telegram"
)

func main() {
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()
	go a.PurgeLoop(ctx)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	r := telegram.NewRouter(bot, a.Engines, a.Service, a.Presenter, telegram.Config{
		MaxWidth:    cfg.DisplayMaxWidth,
		MaxHeight:   cfg.DisplayMaxHeight,
		RadiusScale: cfg.RadiusScale,
		Timeout:     cfg.AnalyzeTimeout,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(a.Ping))
	srv := httpserver.New("0.0.0.0:"+cfg.Port, mux)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, srv, mux, bot, r, webhookURL, logger)
	} else {
		startPollingMode(ctx, srv, bot, r, logger)
	}
}

func startWebhookMode(ctx context.Context, srv *http.Server, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, logger *slog.Logger) {
	// secret path derived from the token
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := make(chan tgbotapi.Update, bot.Buffer)
	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			logger.Warn("webhook: bad update", "err", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		updates <- *upd
	})
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
	}()

	logger.Info("webhook mode", "path", path)
	if err := httpserver.Run(ctx, srv, logger); err != nil {
		log.Fatal(err)
	}
}

func startPollingMode(ctx context.Context, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router, logger *slog.Logger) {
	// health server only; polling does not need it
	go func() {
		if err := httpserver.Run(ctx, srv, logger); err != nil {
			log.Fatal(err)
		}
	}()

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("delete webhook failed", "err", err)
	}
	runPolling(ctx, bot, r.HandleUpdate, logger)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update), logger *slog.Logger) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			logger.Info("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			logger.Warn("polling error", "err", err, "retry_in", d.String())
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// shortHash is FNV-1a as 16 hex chars; stable per token.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
