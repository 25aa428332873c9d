package service

var backToMenuButtons = [][]Button{{{Text: "« Back to Menu", Data: CallbackMainMenu}}}

var confirmationButtons = [][]Button{{
	{Text: "✅ Confirm", Data: CallbackConfirm},
	{Text: "❌ Cancel", Data: CallbackCancel},
}}

var afterTransferButtons = [][]Button{
	{{Text: "📊 View Transfers", Data: CallbackTransfers}},
	{{Text: "« Back to Menu", Data: CallbackMainMenu}},
}

const supportSuffix = "Please try again or contact support if the issue persists"

func textReply(text string) Reply {
	return Reply{Text: text, Buttons: backToMenuButtons}
}

func markdownReply(text string, buttons [][]Button) Reply {
	return Reply{Text: text, Buttons: buttons, Markdown: true}
}

// LoginReply - ответ на действие, требующее входа
func LoginReply() Reply {
	return textReply("🔒 This feature requires login!\n\nPlease use /login to connect your account first")
}

// BusyReply - ответ, пока по пользователю выполняется предыдущее событие
func BusyReply() Reply {
	return Reply{Text: "⏳ Still processing your previous request. Please wait a moment."}
}

func confirmationReply(text string) Reply {
	return markdownReply(text, confirmationButtons)
}
