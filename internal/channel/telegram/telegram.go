// Package telegram adapts the channel.Gateway contract to the Telegram Bot
// API and runs the long-poll dispatch loop.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/darsbot/darsbot/internal/channel"
)

// Adapter implements channel.Gateway over a single bot token and converts
// Telegram updates into channel events.
type Adapter struct {
	logger      *slog.Logger
	bot         *tgbotapi.BotAPI
	pollTimeout int
	httpClient  *http.Client
}

// New authenticates the bot token and returns a ready adapter.
func New(log *slog.Logger, token string, pollTimeoutSeconds int) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if pollTimeoutSeconds <= 0 {
		pollTimeoutSeconds = 30
	}
	return &Adapter{
		logger:      log.With(slog.String("adapter", "telegram")),
		bot:         bot,
		pollTimeout: pollTimeoutSeconds,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Listen long-polls for updates and forwards each inbound event to the
// handler on its own goroutine until ctx is cancelled.
func (a *Adapter) Listen(ctx context.Context, handler channel.Handler) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = a.pollTimeout
	updates := a.bot.GetUpdatesChan(updateConfig)
	a.logger.Info("long polling started", slog.String("bot", a.bot.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			// Drain remaining updates so the library's polling goroutine can
			// finish writing and exit; otherwise the in-flight long-poll
			// keeps the getUpdates session alive.
			for range updates {
			}
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				a.logger.Info("updates channel closed")
				return nil
			}
			event, ok := buildEvent(update)
			if !ok {
				continue
			}
			if update.CallbackQuery != nil {
				// Ack the button press so the client stops its spinner.
				if _, err := a.bot.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
					a.logger.Warn("ack callback failed", slog.Any("error", err))
				}
			}
			a.logger.Info("inbound received",
				slog.String("type", string(event.Type)),
				slog.String("identity", event.Sender.Identity))
			go func() {
				if err := handler(ctx, event); err != nil {
					a.logger.Error("handle inbound failed",
						slog.String("identity", event.Sender.Identity),
						slog.Any("error", err))
				}
			}()
		}
	}
}

// SendText delivers a text message with an optional keyboard.
func (a *Adapter) SendText(ctx context.Context, identity string, text string, kb *channel.Keyboard) error {
	chatID, err := parseIdentity(identity)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := keyboardMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendDocument uploads the file at path as a document message.
func (a *Adapter) SendDocument(ctx context.Context, identity string, path string, caption string) error {
	chatID, err := parseIdentity(identity)
	if err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := a.bot.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// Fetch resolves a Telegram file id to its byte stream.
func (a *Adapter) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	downloadURL, err := a.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() {
			_ = resp.Body.Close()
		}()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("download file status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func parseIdentity(identity string) (int64, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(identity), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identity must be a chat id: %q", identity)
	}
	return chatID, nil
}

func keyboardMarkup(kb *channel.Keyboard) any {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	if kb.Inline {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}

// buildEvent converts a Telegram update into a channel event. Updates with no
// conversational meaning (edits, joins, empty messages) are skipped.
func buildEvent(update tgbotapi.Update) (channel.Event, bool) {
	if cq := update.CallbackQuery; cq != nil && cq.Message != nil && cq.Message.Chat != nil {
		return channel.Event{
			Type:   channel.EventChoice,
			Sender: resolveSender(cq.Message.Chat.ID, cq.From),
			Action: strings.TrimSpace(cq.Data),
		}, true
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return channel.Event{}, false
	}
	sender := resolveSender(msg.Chat.ID, msg.From)
	if msg.IsCommand() && msg.Command() == "start" {
		return channel.Event{Type: channel.EventStart, Sender: sender}, true
	}
	if media := collectMedia(msg); media != nil {
		return channel.Event{Type: channel.EventMedia, Sender: sender, Media: media}, true
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return channel.Event{}, false
	}
	return channel.Event{Type: channel.EventText, Sender: sender, Text: text}, true
}

func resolveSender(chatID int64, from *tgbotapi.User) channel.Sender {
	sender := channel.Sender{Identity: strconv.FormatInt(chatID, 10)}
	if from == nil {
		return sender
	}
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		name = strings.TrimSpace(from.UserName)
	}
	sender.DisplayName = name
	return sender
}

func collectMedia(msg *tgbotapi.Message) *channel.Media {
	forwarded := msg.ForwardDate != 0 || msg.ForwardFrom != nil || msg.ForwardFromChat != nil
	switch {
	case msg.Video != nil:
		return &channel.Media{
			Kind:            channel.MediaVideo,
			FileID:          msg.Video.FileID,
			FileName:        msg.Video.FileName,
			Mime:            msg.Video.MimeType,
			DurationSeconds: msg.Video.Duration,
			SizeBytes:       int64(msg.Video.FileSize),
			Forwarded:       forwarded,
		}
	case msg.VideoNote != nil:
		return &channel.Media{
			Kind:            channel.MediaVideoNote,
			FileID:          msg.VideoNote.FileID,
			DurationSeconds: msg.VideoNote.Duration,
			SizeBytes:       int64(msg.VideoNote.FileSize),
			Forwarded:       forwarded,
		}
	case msg.Document != nil:
		return &channel.Media{
			Kind:      channel.MediaDocument,
			FileID:    msg.Document.FileID,
			FileName:  msg.Document.FileName,
			Mime:      msg.Document.MimeType,
			SizeBytes: int64(msg.Document.FileSize),
			Forwarded: forwarded,
		}
	default:
		return nil
	}
}
