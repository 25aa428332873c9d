package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivanoskov/transfer_bot/internal/metrics"
	"github.com/ivanoskov/transfer_bot/internal/model"
)

const confirmToken = "confirm"

// HandleInput продвигает активный сценарий пользователя текстом text.
// false - у пользователя нет сценария, ввод не обработан.
func (f *TransferFlow) HandleInput(ctx context.Context, userID int64, text string) (Reply, bool) {
	if !f.flows.acquire(userID) {
		metrics.InputsRejected.WithLabelValues("any", "busy").Inc()
		return BusyReply(), true
	}
	defer f.flows.release(userID)

	state := f.flows.get(userID)
	if state == nil {
		return Reply{}, false
	}
	text = strings.TrimSpace(text)

	switch state.Kind {
	case model.EmailTransfer:
		return f.handleEmailInput(ctx, state, text), true
	case model.WalletTransfer:
		return f.handleWalletInput(ctx, state, text), true
	case model.BankWithdrawal:
		return f.handleBankInput(ctx, state, text), true
	}
	return Reply{}, false
}

func (f *TransferFlow) handleEmailInput(ctx context.Context, state *model.FlowState, text string) Reply {
	switch state.Step {
	case model.StepRecipient, model.StepNewRecipient:
		if !IsValidEmail(text) {
			return f.reject(state, "invalid_email", textReply("❌ Invalid email address. Please try again:"))
		}

		var notice string
		if err := f.api.SavePayee(ctx, state.UserID, model.NewPayee{Email: text, NickName: nickName(text)}); err != nil {
			logFlowError("handleEmailInput", state, fmt.Errorf("save payee: %w", err))
			notice = "⚠️ Could not save the recipient, but you can still proceed with the transfer.\n\n"
		}

		if err := advance(ctx, state, eventRecipientEntered); err != nil {
			logFlowError("handleEmailInput", state, err)
			return textReply("❌ Something went wrong.\n\n" + supportSuffix)
		}
		state.Recipient = text
		f.save(state)

		msg := notice + "📧 Recipient: " + escapeMarkdown(text) + "\n\n"
		balanceText, _, err := f.defaultBalance(ctx, state.UserID)
		if err != nil {
			logFlowError("handleEmailInput", state, err)
		} else {
			msg += "💰 *Available Balance:*\n" + balanceText + "\n\n"
		}
		msg += "Please enter the amount you want to send:"
		return markdownReply(msg, backToMenuButtons)

	case model.StepAmount:
		amount, err := ParseAmount(text)
		if err != nil {
			return f.reject(state, "invalid_amount", textReply(`❌ Invalid amount format. Please use format: "100"`))
		}
		if amount.LessThan(minEmailAmount) {
			return f.reject(state, "below_minimum", textReply(
				"❌ Minimum amount for transfers is 1 USDC.\n\nPlease enter a larger amount:"))
		}
		return f.awaitConfirmation(ctx, state, amount.String())

	case model.StepConfirmation:
		return f.confirmSend(ctx, state, text)
	}
	return textReply("❌ Something went wrong.\n\n" + supportSuffix)
}

func (f *TransferFlow) handleWalletInput(ctx context.Context, state *model.FlowState, text string) Reply {
	switch state.Step {
	case model.StepRecipient:
		if !IsValidWalletAddress(text) {
			return f.reject(state, "invalid_address", textReply(
				"❌ Invalid wallet address.\n\nPlease enter a valid wallet address starting with '0x'"))
		}
		if err := advance(ctx, state, eventRecipientEntered); err != nil {
			logFlowError("handleWalletInput", state, err)
			return textReply("❌ Something went wrong.\n\n" + supportSuffix)
		}
		state.Recipient = text
		f.save(state)
		return textReply("💰 Please enter the amount you want to send:")

	case model.StepAmount:
		amount, err := ParseAmount(text)
		if err != nil {
			return f.reject(state, "invalid_amount", textReply("❌ Invalid format.\n\nPlease use format: \"100\""))
		}
		return f.awaitConfirmation(ctx, state, amount.String())

	case model.StepConfirmation:
		return f.confirmSend(ctx, state, text)
	}
	return textReply("❌ Something went wrong.\n\n" + supportSuffix)
}

// awaitConfirmation фиксирует сумму и показывает запрос подтверждения
func (f *TransferFlow) awaitConfirmation(ctx context.Context, state *model.FlowState, amount string) Reply {
	if err := advance(ctx, state, eventAmountEntered); err != nil {
		logFlowError("awaitConfirmation", state, err)
		return textReply("❌ Something went wrong.\n\n" + supportSuffix)
	}
	state.Amount = amount
	state.Symbol = model.DefaultSymbol
	state.AwaitingConfirmation = true
	f.save(state)

	return confirmationReply(formatConfirmation(state))
}

// confirmSend выполняет или отменяет перевод по email или в кошелек.
// Состояние удаляется в любом случае.
func (f *TransferFlow) confirmSend(ctx context.Context, state *model.FlowState, text string) Reply {
	if !strings.EqualFold(text, confirmToken) {
		f.finish(state, metrics.OutcomeCancelled)
		return textReply("❌ Transfer cancelled.")
	}

	amount, err := ParseAmount(state.Amount)
	if err != nil {
		f.finish(state, metrics.OutcomeFailed)
		logFlowError("confirmSend", state, err)
		return textReply("❌ Transfer failed.\n\n" + supportSuffix)
	}

	if state.Kind == model.WalletTransfer {
		err = f.api.WithdrawToWallet(ctx, state.UserID, model.WalletTransferRequest{
			WalletAddress: state.Recipient,
			Amount:        model.ToFixedPoint(amount),
			PurposeCode:   model.PurposeCodeSelf,
			Currency:      state.Symbol,
		})
	} else {
		err = f.api.SendToEmail(ctx, state.UserID, model.EmailTransferRequest{
			Email:       state.Recipient,
			Amount:      model.ToFixedPoint(amount),
			PurposeCode: model.PurposeCodeSelf,
			Currency:    state.Symbol,
		})
	}
	if err != nil {
		f.finish(state, metrics.OutcomeFailed)
		logFlowError("confirmSend", state, err)
		return textReply("❌ Transfer failed.\n\n" + supportSuffix)
	}

	f.finish(state, metrics.OutcomeSuccess)
	return Reply{
		Text:    "✅ Transfer sent successfully!\n\nYou can track the status in your recent transfers.",
		Buttons: afterTransferButtons,
	}
}

func (f *TransferFlow) handleBankInput(ctx context.Context, state *model.FlowState, text string) Reply {
	switch state.Step {
	case model.StepAmountAndQuote:
		return f.requestQuote(ctx, state, text)
	case model.StepConfirmation:
		return f.confirmWithdrawal(ctx, state, text)
	}
	return textReply("❌ Something went wrong.\n\n" + supportSuffix)
}

func (f *TransferFlow) requestQuote(ctx context.Context, state *model.FlowState, text string) Reply {
	if state.BankAccountID == "" {
		f.finish(state, metrics.OutcomeFailed)
		return textReply("❌ No bank account selected.\n\nPlease start the withdrawal again.")
	}

	first, _, _ := strings.Cut(text, " ")
	amount, err := ParseAmount(first)
	if err != nil {
		return f.reject(state, "invalid_amount", textReply("❌ Invalid format.\n\nPlease use format: '100'"))
	}
	if amount.LessThan(minWithdrawalAmount) {
		return f.reject(state, "below_minimum", textReply(
			"❌ Minimum amount for bank withdrawals is 50 USDC.\n\nPlease enter a larger amount:"))
	}

	quote, err := f.api.OfframpQuote(ctx, state.UserID,
		model.NewOfframpQuoteRequest(amount, model.DefaultSymbol, state.BankAccountID))
	if err != nil {
		f.finish(state, metrics.OutcomeFailed)
		logFlowError("requestQuote", state, err)
		return textReply("❌ Failed to get withdrawal quote.\n\n" + supportSuffix)
	}

	if err := advance(ctx, state, eventQuoteReceived); err != nil {
		f.finish(state, metrics.OutcomeFailed)
		logFlowError("requestQuote", state, err)
		return textReply("❌ Something went wrong.\n\n" + supportSuffix)
	}
	state.Amount = amount.String()
	state.Symbol = model.DefaultSymbol
	state.Quote = quote
	state.AwaitingConfirmation = true
	f.save(state)

	return confirmationReply(formatQuote(state.Amount, quote))
}

// confirmWithdrawal - подтверждение одноразовое, котировка повторно не используется
func (f *TransferFlow) confirmWithdrawal(ctx context.Context, state *model.FlowState, text string) Reply {
	if !strings.EqualFold(text, confirmToken) || state.Quote == nil {
		f.finish(state, metrics.OutcomeCancelled)
		return textReply("❌ Withdrawal cancelled.")
	}

	if state.Quote.Expired(f.now(), f.opts.QuoteTTL) {
		f.finish(state, metrics.OutcomeExpired)
		return textReply("⌛ This quote has expired.\n\nPlease start the withdrawal again to get a fresh quote.")
	}

	if err := f.api.ExecuteOfframp(ctx, state.UserID, state.Quote); err != nil {
		f.finish(state, metrics.OutcomeFailed)
		logFlowError("confirmWithdrawal", state, err)
		return textReply("❌ Withdrawal failed.\n\n" + supportSuffix)
	}

	f.finish(state, metrics.OutcomeSuccess)
	return Reply{
		Text:    "✅ Withdrawal initiated successfully!\n\nYou can track the status in your recent transfers.",
		Buttons: afterTransferButtons,
	}
}
