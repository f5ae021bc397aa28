// Package telegram provides an optional Telegram bot surface for genrelay.
//
// The bot mirrors the HTTP API: a plain text message is treated as a prompt,
// /describe <url> (or an uploaded photo) runs image description with the same
// fixed instruction as the HTTP endpoint.
//
// Uses long polling — no public URL or webhook needed.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/genrelay/genrelay/internal/logging"
	"github.com/genrelay/genrelay/llm"
)

// imageInstruction matches the instruction used by the HTTP image endpoint.
const imageInstruction = "What is in this photo?"

const helpText = `I relay messages to a generative model.

Send me any text and I reply with generated text.
Send me a photo, or /describe <url>, and I tell you what is in it.`

// ImageFetcher retrieves and validates a remote image.
type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) (llm.Image, error)
}

// Bot is the Telegram bot for genrelay.
type Bot struct {
	api     *tgbotapi.BotAPI
	model   llm.Client
	fetcher ImageFetcher
	log     *logrus.Logger
}

// NewBot creates a new Telegram bot.
func NewBot(token string, model llm.Client, fetcher ImageFetcher) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating Telegram bot: %w", err)
	}

	log := logging.GetLogger()
	log.Infof("Telegram bot authorized as @%s", api.Self.UserName)

	return &Bot{
		api:     api,
		model:   model,
		fetcher: fetcher,
		log:     log,
	}, nil
}

// Run starts the long-polling loop. Blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	b.log.Info("Telegram bot listening for messages...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				go b.handleMessage(ctx, update.Message)
			}
		}
	}
}

// handleMessage routes one incoming message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	// Uploaded photo → describe it.
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, chatID, msg.MessageID, msg.Photo)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, msg.MessageID, text)
		return
	}

	// Plain text → prompt.
	reply, err := b.model.GenerateText(ctx, text)
	if err != nil {
		b.log.Errorf("Telegram text generation failed: %v", err)
		b.send(chatID, msg.MessageID, "Generation failed, try again later.")
		return
	}
	b.send(chatID, msg.MessageID, reply)
}

// handleCommand processes slash commands.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, replyTo int, text string) {
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])
	// Strip @botname suffix from commands (e.g. /describe@mybot → /describe).
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start", "/help":
		b.send(chatID, replyTo, helpText)

	case "/describe":
		if len(parts) < 2 {
			b.send(chatID, replyTo, "Usage: /describe <image url>")
			return
		}
		b.describeURL(ctx, chatID, replyTo, parts[1])

	default:
		b.send(chatID, replyTo, "Unknown command. Try /help.")
	}
}

// handlePhoto describes an uploaded photo using its Telegram file URL.
func (b *Bot) handlePhoto(ctx context.Context, chatID int64, replyTo int, photos []tgbotapi.PhotoSize) {
	// Telegram sends several sizes; the last one is the largest.
	fileID := photos[len(photos)-1].FileID
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		b.log.Errorf("Telegram file URL lookup failed: %v", err)
		b.send(chatID, replyTo, "Could not read that photo.")
		return
	}
	b.describeURL(ctx, chatID, replyTo, fileURL)
}

func (b *Bot) describeURL(ctx context.Context, chatID int64, replyTo int, rawURL string) {
	img, err := b.fetcher.FetchImage(ctx, rawURL)
	if err != nil {
		b.log.Errorf("Telegram image fetch failed for %s: %v", rawURL, err)
		b.send(chatID, replyTo, "Could not fetch an image from that URL.")
		return
	}

	reply, err := b.model.GenerateFromImage(ctx, imageInstruction, img)
	if err != nil {
		b.log.Errorf("Telegram image description failed: %v", err)
		b.send(chatID, replyTo, "Description failed, try again later.")
		return
	}
	b.send(chatID, replyTo, reply)
}

func (b *Bot) send(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorf("Telegram send failed: %v", err)
	}
}
