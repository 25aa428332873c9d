package bot

import (
	"context"
	"errors"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/transfer_bot/internal/service"
)

// Ввод, которым кнопки подтверждения продвигают сценарий
const (
	confirmInput = "confirm"
	cancelInput  = "cancel"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	// Сообщения каналов приходят без отправителя
	if update.Message != nil && update.Message.From == nil {
		return nil
	}

	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID, userID := message.Chat.ID, message.From.ID

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "menu":
		b.send(chatID, mainMenuReply())
	case "send_to_email":
		b.send(chatID, b.flow.BeginEmailTransfer(ctx, userID))
	case "send_to_wallet":
		b.send(chatID, b.flow.BeginWalletTransfer(ctx, userID))
	case "withdraw":
		b.send(chatID, b.flow.BeginBankWithdrawal(ctx, userID))
	case "transfers":
		b.send(chatID, b.flow.ListRecentTransfers(ctx, userID))
	case "cancel":
		switch {
		case b.flow.CancelFlow(userID):
			b.send(chatID, service.Reply{Text: "❌ Transfer cancelled."})
		case b.flow.Busy(userID):
			b.send(chatID, service.BusyReply())
		default:
			b.send(chatID, service.Reply{Text: "Nothing to cancel."})
		}
	default:
		b.sendErrorMessage(chatID, "Unknown command. Use /menu to see the available actions.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	reply := mainMenuReply()
	reply.Text = "👋 Welcome to the transfer bot!\n\n" +
		"I can help you:\n" +
		"• Send USDC to an email address\n" +
		"• Send USDC to an external wallet\n" +
		"• Withdraw USDC to your bank account\n\n" +
		"Choose an action:"
	reply.Markdown = false
	b.send(message.Chat.ID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// Отвечаем на callback, чтобы убрать loading indicator
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			log.Printf("bot - handleCallback: answer %s: %v", callback.ID, err)
		}
	}()

	if callback.Message == nil {
		return errors.New("callback without message")
	}
	chatID, messageID, userID := callback.Message.Chat.ID, callback.Message.MessageID, callback.From.ID
	data := callback.Data

	switch {
	case data == callbackSendEmail:
		b.send(chatID, b.flow.BeginEmailTransfer(ctx, userID))
	case data == callbackSendWallet:
		b.send(chatID, b.flow.BeginWalletTransfer(ctx, userID))
	case data == callbackWithdrawBank:
		b.send(chatID, b.flow.BeginBankWithdrawal(ctx, userID))
	case data == service.CallbackTransfers:
		b.send(chatID, b.flow.ListRecentTransfers(ctx, userID))
	case data == service.CallbackTransfersChart:
		b.handleTransfersChart(ctx, chatID, userID)
	case data == service.CallbackAddNewRecipient:
		b.respond(chatID, messageID, b.flow.AddNewRecipient(ctx, userID))
	case strings.HasPrefix(data, service.CallbackSelectPayee):
		email := strings.TrimPrefix(data, service.CallbackSelectPayee)
		b.respond(chatID, messageID, b.flow.SelectSavedRecipient(ctx, userID, email))
	case strings.HasPrefix(data, service.CallbackSelectBank):
		accountID := strings.TrimPrefix(data, service.CallbackSelectBank)
		b.respond(chatID, messageID, b.flow.SelectBankAccount(ctx, userID, accountID))
	case data == service.CallbackConfirm:
		b.forwardInput(ctx, chatID, userID, confirmInput)
	case data == service.CallbackCancel:
		b.forwardInput(ctx, chatID, userID, cancelInput)
	case data == service.CallbackMainMenu:
		// меню не рисуем, пока не закончился запрос, иначе он вернет сценарий
		if !b.flow.CancelFlow(userID) && b.flow.Busy(userID) {
			b.send(chatID, service.BusyReply())
			return nil
		}
		reply := mainMenuReply()
		reply.Edit = true
		b.respond(chatID, messageID, reply)
	}

	return nil
}

// forwardInput передает нажатие кнопки подтверждения как текстовый ввод
func (b *Bot) forwardInput(ctx context.Context, chatID, userID int64, text string) {
	reply, ok := b.flow.HandleInput(ctx, userID, text)
	if !ok {
		b.send(chatID, service.Reply{
			Text:    "There is no active transfer to " + text + ".",
			Buttons: mainMenuButtons,
		})
		return
	}
	b.send(chatID, reply)
}

func (b *Bot) handleTransfersChart(ctx context.Context, chatID, userID int64) {
	transfers, err := b.flow.RecentTransfers(ctx, userID)
	if errors.Is(err, service.ErrNotAuthenticated) {
		b.send(chatID, service.LoginReply())
		return
	}
	if err != nil {
		log.Printf("bot - handleTransfersChart: user %d: %v", userID, err)
		b.sendErrorMessage(chatID, "Couldn't fetch your transfers.")
		return
	}

	png, err := b.charts.GenerateTransferHistory(transfers)
	if err != nil {
		log.Printf("bot - handleTransfersChart: user %d: %v", userID, err)
		b.sendErrorMessage(chatID, "Couldn't build the chart.")
		return
	}
	if png == nil {
		b.send(chatID, service.Reply{Text: "📊 No recent transfers found."})
		return
	}
	b.sendPhoto(chatID, png, "📈 Recent transfers")
}

// handleMessage продвигает активный сценарий текстом. Без сценария показывает меню.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// фото, стикеры и голосовые не считаются вводом
	if strings.TrimSpace(message.Text) == "" {
		return
	}

	reply, ok := b.flow.HandleInput(ctx, message.From.ID, message.Text)
	if !ok {
		b.send(message.Chat.ID, mainMenuReply())
		return
	}
	b.send(message.Chat.ID, reply)
}
