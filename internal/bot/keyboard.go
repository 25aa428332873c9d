package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/transfer_bot/internal/service"
)

// Кнопки главного меню
const (
	callbackSendEmail    = "send_email"
	callbackSendWallet   = "send_wallet"
	callbackWithdrawBank = "withdraw_bank"
)

var mainMenuButtons = [][]service.Button{
	{{Text: "📧 Send to Email", Data: callbackSendEmail}},
	{{Text: "🔄 Send to Wallet", Data: callbackSendWallet}},
	{{Text: "🏦 Withdraw to Bank", Data: callbackWithdrawBank}},
	{{Text: "📊 Recent Transfers", Data: service.CallbackTransfers}},
}

const mainMenuText = "💼 *Main Menu*\n\nChoose an action:"

// inlineKeyboard переводит кнопки ответа в inline-клавиатуру Telegram
func inlineKeyboard(buttons [][]service.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		keys := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			keys = append(keys, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, keys)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// newMessage собирает новое сообщение из ответа
func newMessage(chatID int64, reply service.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if markup := inlineKeyboard(reply.Buttons); markup != nil {
		msg.ReplyMarkup = *markup
	}
	return msg
}

// editMessage заменяет текст и кнопки сообщения messageID
func editMessage(chatID int64, messageID int, reply service.Reply) tgbotapi.EditMessageTextConfig {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
	if reply.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	edit.ReplyMarkup = inlineKeyboard(reply.Buttons)
	return edit
}

func mainMenuReply() service.Reply {
	return service.Reply{Text: mainMenuText, Buttons: mainMenuButtons, Markdown: true}
}
