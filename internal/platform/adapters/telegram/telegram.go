// Package telegram adapts the Telegram Bot API to the unified platform
// interfaces.
package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/platform"
)

// Adapter implements platform.Adapter, platform.Sender, platform.MediaResolver,
// and platform.Puller for Telegram.
type Adapter struct {
	logger *slog.Logger
	cfg    config.TelegramConfig

	mu      sync.Mutex
	bots    map[string]*tgbotapi.BotAPI // keyed by bot token
	offsets map[string]int              // getUpdates offset per token
}

// New creates a Telegram adapter from the given configuration.
func New(log *slog.Logger, cfg config.TelegramConfig) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		logger:  log.With(slog.String("adapter", "telegram")),
		cfg:     cfg,
		bots:    make(map[string]*tgbotapi.BotAPI),
		offsets: make(map[string]int),
	}
}

var getOrCreateBotForTest func(a *Adapter, token string) (*tgbotapi.BotAPI, error)

func (a *Adapter) getOrCreateBot(token string) (*tgbotapi.BotAPI, error) {
	if getOrCreateBotForTest != nil {
		return getOrCreateBotForTest(a, token)
	}
	if strings.TrimSpace(token) == "" {
		token = a.cfg.BotToken
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if bot, ok := a.bots[token]; ok {
		return bot, nil
	}
	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/bot%s/%s"
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		a.logger.Error("create bot failed", slog.Any("error", err))
		return nil, err
	}
	a.bots[token] = bot
	return bot, nil
}

// Platform returns the Telegram platform identifier.
func (a *Adapter) Platform() platform.Platform {
	return platform.Telegram
}

// ParseWebhook extracts the message from a Bot API webhook update. Updates
// without a message (edits, channel posts, callback queries) yield nil.
func (a *Adapter) ParseWebhook(payload []byte) *platform.NormalizedMessage {
	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		a.logger.Debug("webhook payload not parseable", slog.Any("error", err))
		return nil
	}
	return normalizeMessage(update.Message)
}

func normalizeMessage(msg *tgbotapi.Message) *platform.NormalizedMessage {
	if msg == nil || msg.Chat == nil {
		return nil
	}

	senderID := ""
	senderName := platform.UnknownSender
	if msg.From != nil {
		senderID = strconv.FormatInt(msg.From.ID, 10)
		name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		if name != "" {
			senderName = name
		} else if msg.From.UserName != "" {
			senderName = msg.From.UserName
		}
	}

	contentType := platform.ContentText
	mediaRef := ""
	switch {
	case len(msg.Photo) > 0:
		contentType = platform.ContentImage
		mediaRef = pickLargestPhoto(msg.Photo).FileID
	case msg.Video != nil:
		contentType = platform.ContentVideo
		mediaRef = msg.Video.FileID
	case msg.Audio != nil:
		contentType = platform.ContentAudio
		mediaRef = msg.Audio.FileID
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	return &platform.NormalizedMessage{
		Platform:            platform.Telegram,
		ExternalMessageID:   strconv.Itoa(msg.MessageID),
		SenderExternalID:    senderID,
		SenderDisplayName:   senderName,
		RecipientExternalID: strconv.FormatInt(msg.Chat.ID, 10),
		ContentText:         text,
		ContentType:         contentType,
		MediaRef:            mediaRef,
		// Bot API dates are epoch seconds.
		OccurredAt: time.Unix(int64(msg.Date), 0).UTC(),
	}
}

func pickLargestPhoto(items []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := items[0]
	for _, item := range items[1:] {
		if item.Width*item.Height > best.Width*best.Height {
			best = item
		}
	}
	return best
}

// VerifyWebhook answers the subscription handshake. Telegram itself has no
// hub challenge flow; the shared handshake contract is applied uniformly so
// the endpoint shape is identical across platforms.
func (a *Adapter) VerifyWebhook(mode, token, challenge string) string {
	if mode == "subscribe" && token != "" && token == a.cfg.VerifyToken {
		return challenge
	}
	return ""
}

// SendMessage sends a text message to a chat id or @channel target.
func (a *Adapter) SendMessage(ctx context.Context, accessToken, recipient, text string) (platform.SendResult, error) {
	bot, err := a.getOrCreateBot(accessToken)
	if err != nil {
		return platform.SendResult{}, &platform.UpstreamSendError{Platform: platform.Telegram, Err: err}
	}

	var msg tgbotapi.MessageConfig
	target := strings.TrimSpace(recipient)
	if strings.HasPrefix(target, "@") {
		msg = tgbotapi.NewMessageToChannel(target, text)
	} else {
		chatID, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return platform.SendResult{}, &platform.UpstreamSendError{Platform: platform.Telegram, Err: err}
		}
		msg = tgbotapi.NewMessage(chatID, text)
	}

	sent, err := bot.Send(msg)
	if err != nil {
		return platform.SendResult{}, &platform.UpstreamSendError{Platform: platform.Telegram, Err: err}
	}
	return platform.SendResult{ExternalMessageID: strconv.Itoa(sent.MessageID)}, nil
}

// ResolveMediaURL resolves a Telegram file id into a direct download URL.
func (a *Adapter) ResolveMediaURL(ctx context.Context, mediaRef string) (string, error) {
	bot, err := a.getOrCreateBot("")
	if err != nil {
		return "", err
	}
	file, err := bot.GetFile(tgbotapi.FileConfig{FileID: mediaRef})
	if err != nil {
		return "", err
	}
	return file.Link(bot.Token), nil
}

// PullMessages fetches pending updates via long polling and returns them
// normalized. The getUpdates offset is tracked per token so each update is
// returned once.
func (a *Adapter) PullMessages(ctx context.Context, accessToken string) ([]platform.NormalizedMessage, error) {
	bot, err := a.getOrCreateBot(accessToken)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	offset := a.offsets[bot.Token]
	a.mu.Unlock()

	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = 0
	updates, err := bot.GetUpdates(cfg)
	if err != nil {
		return nil, err
	}

	messages := make([]platform.NormalizedMessage, 0, len(updates))
	lastUpdateID := offset
	for _, update := range updates {
		if update.UpdateID >= lastUpdateID {
			lastUpdateID = update.UpdateID + 1
		}
		if normalized := normalizeMessage(update.Message); normalized != nil {
			messages = append(messages, *normalized)
		}
	}

	a.mu.Lock()
	a.offsets[bot.Token] = lastUpdateID
	a.mu.Unlock()

	return messages, nil
}
