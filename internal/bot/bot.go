package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/transfer_bot/internal/charts"
	"github.com/ivanoskov/transfer_bot/internal/service"
)

// telegramAPI - часть tgbotapi.BotAPI, которой пользуется бот
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	api    telegramAPI
	flow   *service.TransferFlow
	charts *charts.ChartGenerator
}

func NewBot(token string, flow *service.TransferFlow, charts *charts.ChartGenerator) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return newBot(api, flow, charts), nil
}

func newBot(api telegramAPI, flow *service.TransferFlow, charts *charts.ChartGenerator) *Bot {
	return &Bot{
		api:    api,
		flow:   flow,
		charts: charts,
	}
}

// Start запускает бота в режиме long polling. Каждое обновление
// обрабатывается в отдельной горутине, пока не отменен ctx.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go func() {
				// Логируем ошибку, но продолжаем работу
				if err := b.handleUpdate(ctx, update); err != nil {
					log.Printf("bot - Start: update %d: %v", update.UpdateID, err)
				}
			}()
		}
	}
}

// SecretTokenHeader - заголовок, в котором Telegram передает secret_token из setWebhook
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// VerifySecret сравнивает секрет webhook-запроса с настроенным.
// Пустой настроенный секрет не пропускает ничего.
func VerifySecret(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений.
// Источник запроса должен быть проверен через VerifySecret до вызова.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return err
	}

	return b.handleUpdate(ctx, update)
}

func (b *Bot) send(chatID int64, reply service.Reply) {
	if _, err := b.api.Send(newMessage(chatID, reply)); err != nil {
		log.Printf("bot - send: chat %d: %v", chatID, err)
	}
}

// respond отправляет ответ новым сообщением или правит сообщение с кнопкой
func (b *Bot) respond(chatID int64, messageID int, reply service.Reply) {
	if !reply.Edit || messageID == 0 {
		b.send(chatID, reply)
		return
	}
	if _, err := b.api.Send(editMessage(chatID, messageID, reply)); err != nil {
		log.Printf("bot - respond: chat %d message %d: %v", chatID, messageID, err)
	}
}

func (b *Bot) sendPhoto(chatID int64, png []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "transfers.png", Bytes: png})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("bot - sendPhoto: chat %d: %v", chatID, err)
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.send(chatID, service.Reply{Text: "❌ " + text})
}
