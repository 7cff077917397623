package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nasi-kandar-bot/apperr"
	"nasi-kandar-bot/config"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"
	"nasi-kandar-bot/order"
	"nasi-kandar-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

const (
	updateTimeoutSeconds = 60
	downloadTimeout      = 30 * time.Second

	msgSlowDown = "⏳ You're sending messages too quickly. Please wait a moment and try again."
)

// Handler consumes decoded chat events.
type Handler interface {
	Handle(ctx context.Context, ev order.Event) error
}

// fetchFunc downloads a Telegram file by id. size is the size Telegram reported, 0 if unknown.
type fetchFunc func(ctx context.Context, fileID string, size int) ([]byte, error)

type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        config.TelegramConfig
	throttle   *services.ChatThrottle
	httpClient *http.Client
	log        *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func New(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:        api,
		cfg:        cfg.Telegram,
		throttle:   services.NewChatThrottle(cfg.Telegram.RateLimitPerSecond, cfg.Telegram.RateLimitBurst),
		httpClient: &http.Client{Timeout: downloadTimeout},
		log:        log,
		metrics:    m,
		now:        time.Now,
	}, nil
}

// Throttle exposes the per-chat limiter so idle entries can be swept.
func (b *Bot) Throttle() *services.ChatThrottle {
	return b.throttle
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start a new order"},
		tgbotapi.BotCommand{Command: "menu", Description: "Show the menu"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Cancel the current order"},
		tgbotapi.BotCommand{Command: "help", Description: "What can I do here?"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Start long-polls for updates until ctx is cancelled. Messages from one chat are
// handled in arrival order; different chats run concurrently, at most
// MaxConcurrentUpdates at a time.
func (b *Bot) Start(ctx context.Context, h Handler) error {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn(ctx, "set bot commands failed", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	limit := b.cfg.MaxConcurrentUpdates
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))
	queue := newChatQueue()
	defer queue.wait()

	b.log.Info(ctx, "bot started", "username", b.api.Self.UserName, "max_concurrent", limit)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.enqueue(ctx, queue, sem, h, update.Message)
		}
	}
}

// enqueue throttles msg and queues it behind earlier messages from the same chat.
// Decoding, including any photo download, happens on the chat's queue.
func (b *Bot) enqueue(ctx context.Context, q *chatQueue, sem *semaphore.Weighted, h Handler, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	allowed, notify := b.throttle.Allow(chatID, b.now())
	if !allowed {
		b.metrics.Throttled()
		if !notify {
			return
		}
	}
	q.submit(chatID, func() {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer sem.Release(1)

		ctx := b.log.WithChatID(ctx, chatID)
		if !allowed {
			b.send(ctx, chatID, msgSlowDown)
			return
		}
		b.handleMessage(ctx, h, msg)
	})
}

func (b *Bot) handleMessage(ctx context.Context, h Handler, msg *tgbotapi.Message) {
	ev, ok := eventFromMessage(ctx, msg, b.downloadFile, b.log)
	if !ok {
		return
	}
	if err := h.Handle(ctx, ev); err != nil {
		b.log.Warn(ctx, "handle update failed", err,
			"kind", string(ev.Kind),
			"code", string(apperr.CodeOf(err)),
		)
	}
}

// eventFromMessage decodes a Telegram message. Unsupported message kinds are ignored.
// A photo that cannot be downloaded still becomes a photo event, with no bytes.
func eventFromMessage(ctx context.Context, msg *tgbotapi.Message, fetch fetchFunc, log *logger.Logger) (order.Event, bool) {
	chatID := msg.Chat.ID
	switch {
	case msg.Location != nil:
		return order.LocationEvent(chatID, msg.Location.Latitude, msg.Location.Longitude), true
	case len(msg.Photo) > 0:
		// Telegram lists sizes smallest first.
		p := msg.Photo[len(msg.Photo)-1]
		return order.PhotoEvent(chatID, fetchOrEmpty(ctx, fetch, p.FileID, p.FileSize, log)), true
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		return order.PhotoEvent(chatID, fetchOrEmpty(ctx, fetch, msg.Document.FileID, msg.Document.FileSize, log)), true
	case msg.IsCommand():
		return order.CommandEvent(chatID, msg.Command()), true
	case msg.Text != "":
		return order.TextEvent(chatID, msg.Text), true
	default:
		return order.Event{}, false
	}
}

func fetchOrEmpty(ctx context.Context, fetch fetchFunc, fileID string, size int, log *logger.Logger) []byte {
	img, err := fetch(ctx, fileID, size)
	if err != nil {
		log.Warn(ctx, "photo download failed", err, "file_id", fileID)
		return nil
	}
	return img
}

func (b *Bot) downloadFile(ctx context.Context, fileID string, size int) ([]byte, error) {
	limit := b.cfg.PhotoMaxBytes
	if limit > 0 && int64(size) > limit {
		return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("file is %d bytes, limit %d", size, limit))
	}
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "resolve file url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "download file")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.CodeDependency, fmt.Sprintf("download file: status %d", resp.StatusCode))
	}
	return readLimited(resp.Body, limit)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("file exceeds %d bytes", limit))
	}
	return data, nil
}

// Deliver sends one outbound action.
func (b *Bot) Deliver(ctx context.Context, a order.Action) error {
	c, err := chattable(a)
	if err != nil {
		return err
	}
	if _, err := b.api.Send(c); err != nil {
		return apperr.Wrap(apperr.CodeDependency, err, "telegram send "+string(a.Kind))
	}
	return nil
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.Deliver(ctx, order.Action{Kind: order.ActionSendText, ChatID: chatID, Body: text}); err != nil {
		b.log.Warn(ctx, "send failed", err)
	}
}

func chattable(a order.Action) (tgbotapi.Chattable, error) {
	switch a.Kind {
	case order.ActionSendText:
		msg := tgbotapi.NewMessage(a.ChatID, a.Body)
		if len(a.Keyboard) > 0 {
			msg.ReplyMarkup = replyKeyboard(a.Keyboard)
		}
		return msg, nil
	case order.ActionRemoveKeyboard:
		msg := tgbotapi.NewMessage(a.ChatID, a.Body)
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		return msg, nil
	case order.ActionSendImage:
		if len(a.Image) == 0 {
			return nil, apperr.New(apperr.CodeValidation, "image action without image bytes")
		}
		photo := tgbotapi.NewPhoto(a.ChatID, tgbotapi.FileBytes{Name: "payment-qr.png", Bytes: a.Image})
		photo.Caption = a.Body
		return photo, nil
	default:
		return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("unknown action kind %q", a.Kind))
	}
}

func replyKeyboard(rows [][]order.Button) tgbotapi.ReplyKeyboardMarkup {
	kbRows := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.RequestLocation {
				buttons = append(buttons, tgbotapi.NewKeyboardButtonLocation(btn.Text))
			} else {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(btn.Text))
			}
		}
		kbRows = append(kbRows, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(kbRows...)
	kb.ResizeKeyboard = true
	return kb
}
