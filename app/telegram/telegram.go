// send-only notification bot: payment confirmations, homework feedback
// copies and system alerts
package telegram

import (
	"io"
	"math/rand"
	"net/http"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/models"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

type Bot struct {
	*telego.Bot
	Name         string
	Dummy        bool
	SystemChatID telego.ChatID
}

var BOT *Bot

func NewBot(cfg *config.Config) (*Bot, error) {
	bot, err := telego.NewBot(cfg.TelegramBotToken, botLoggerOption(cfg))
	if err != nil {
		return nil, err
	}

	botInfo, err := bot.GetMe()
	if err != nil {
		return nil, err
	}
	log.Infof("Notification bot info: %+v", botInfo)

	chatId, _ := strconv.ParseInt(cfg.TelegramSystemTo, 10, 64)
	BOT = &Bot{
		Bot:          bot,
		Name:         botInfo.Username,
		SystemChatID: tu.ID(chatId),
	}
	return BOT, nil
}

// NewStubBot creates a bot with a canned transport, used in tests and in
// environments without a bot token.
func NewStubBot(cfg *config.Config) *Bot {
	stubBot, err := telego.NewBot(generateStubToken(), telego.WithHTTPClient(&http.Client{
		Transport: models.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"ok": true, "result": {}}`)),
			}, nil
		}),
	}), botLoggerOption(cfg))
	if err != nil {
		log.Fatalf("Failed to create stub bot: %v", err)
	}

	chatId, _ := strconv.ParseInt(cfg.TelegramSystemTo, 10, 64)
	BOT = &Bot{
		Bot:          stubBot,
		Name:         "stub",
		Dummy:        true,
		SystemChatID: tu.ID(chatId),
	}
	return BOT
}

// NotifyUser sends a message to a user chat, best effort.
func (b *Bot) NotifyUser(chatID int64, text string) {
	if b == nil || chatID == 0 {
		return
	}
	_, err := b.SendMessage(tu.Message(tu.ID(chatID), text))
	if err != nil {
		log.Errorf("NotifyUser: failed to send message to chat %d: %v", chatID, err)
	}
}

// Alert sends a message to the admin system chat.
func (b *Bot) Alert(text string) {
	if b == nil {
		return
	}
	_, err := b.SendMessage(tu.Message(b.SystemChatID, text))
	if err != nil {
		log.Errorf("Alert: failed to send system message: %v", err)
	}
}

func botLoggerOption(cfg *config.Config) telego.BotOption {
	if cfg.Environment == "production" {
		return telego.WithDefaultLogger(false, true)
	}
	return telego.WithDefaultDebugLogger()
}

// stub token that matches the pattern ^\d{9,10}:[\w-]{35}$
func generateStubToken() string {
	const digits = "0123456789"
	const alphaNum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

	tokenBuilder := strings.Builder{}
	for i := 0; i < 9; i++ {
		tokenBuilder.WriteByte(digits[rand.Intn(len(digits))])
	}
	tokenBuilder.WriteString(":")
	for i := 0; i < 35; i++ {
		tokenBuilder.WriteByte(alphaNum[rand.Intn(len(alphaNum))])
	}
	return tokenBuilder.String()
}
