package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ivanoskov/transfer_bot/internal/metrics"
	"github.com/ivanoskov/transfer_bot/internal/model"
)

func (f *TransferFlow) newState(userID int64, kind model.FlowKind) *model.FlowState {
	metrics.FlowsStarted.WithLabelValues(string(kind)).Inc()
	return &model.FlowState{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
		Step:   initialSteps[kind],
	}
}

// BeginEmailTransfer начинает перевод по email
func (f *TransferFlow) BeginEmailTransfer(ctx context.Context, userID int64) Reply {
	return f.exclusive(userID, func() Reply {
		if !f.auth.IsAuthenticated(ctx, userID) {
			return LoginReply()
		}

		state := f.newState(userID, model.EmailTransfer)
		payees, err := f.api.Payees(ctx, userID)
		f.save(state)
		if err != nil {
			logFlowError("BeginEmailTransfer", state, fmt.Errorf("payees: %w", err))
			return markdownReply("📧 *Send to Email*\n\nPlease enter the recipient's email address:", backToMenuButtons)
		}

		var buttons [][]Button
		for _, p := range payees {
			data := CallbackSelectPayee + p.Email
			if p.Email == "" || len(data) > maxCallbackData {
				continue
			}
			buttons = append(buttons, []Button{{Text: p.Label(), Data: data}})
		}

		text := "📧 *Send to Email*\n\n"
		if len(buttons) > 0 {
			text += "Select a saved recipient or add a new one:"
		} else {
			text += "You don't have any saved recipients yet. Add a new one:"
		}
		buttons = append(buttons,
			[]Button{{Text: "➕ Add New Recipient", Data: CallbackAddNewRecipient}},
			backToMenuButtons[0],
		)
		return markdownReply(text, buttons)
	})
}

// BeginWalletTransfer начинает перевод во внешний кошелек
func (f *TransferFlow) BeginWalletTransfer(ctx context.Context, userID int64) Reply {
	return f.exclusive(userID, func() Reply {
		if !f.auth.IsAuthenticated(ctx, userID) {
			return LoginReply()
		}

		state := f.newState(userID, model.WalletTransfer)
		balances, err := f.api.Balances(ctx, userID)
		f.save(state)

		text := "🔄 *External Wallet Transfer*\n\n"
		if err != nil {
			logFlowError("BeginWalletTransfer", state, fmt.Errorf("balances: %w", err))
		} else if lines := formatBalances(balances); lines != "" {
			text += "Available balances:\n" + lines + "\n\n"
		}
		text += "Please enter the recipient's wallet address:"
		return markdownReply(text, backToMenuButtons)
	})
}

// BeginBankWithdrawal показывает проверенные банковские счета. Состояние
// создается только после выбора счета.
func (f *TransferFlow) BeginBankWithdrawal(ctx context.Context, userID int64) Reply {
	return f.exclusive(userID, func() Reply {
		if !f.auth.IsAuthenticated(ctx, userID) {
			return LoginReply()
		}
		if old := f.flows.get(userID); old != nil {
			f.finish(old, metrics.OutcomeCancelled)
		}

		var (
			wg          sync.WaitGroup
			balanceText string
			balanceErr  error
			empty       bool
			accounts    []model.Account
			accountsErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			balanceText, empty, balanceErr = f.defaultBalance(ctx, userID)
		}()
		go func() {
			defer wg.Done()
			accounts, accountsErr = f.api.Accounts(ctx, userID)
		}()
		wg.Wait()

		if balanceErr != nil {
			log.Printf("service - BeginBankWithdrawal: user %d: balances: %v", userID, balanceErr)
			balanceText = noDefaultBalance
		} else if empty {
			return textReply("💰 No funds available for withdrawal.\n\nPlease deposit funds first.")
		}

		if accountsErr != nil {
			log.Printf("service - BeginBankWithdrawal: user %d: accounts: %v", userID, accountsErr)
			return textReply("❌ Couldn't load your bank accounts.\n\n" + supportSuffix)
		}

		var buttons [][]Button
		for _, acc := range accounts {
			if !acc.IsVerifiedBank() {
				continue
			}
			buttons = append(buttons, []Button{{Text: acc.Label(), Data: CallbackSelectBank + acc.ID}})
		}
		if len(buttons) == 0 {
			return textReply("🏦 No bank accounts found.\n\nPlease add a verified bank account first.")
		}
		buttons = append(buttons, backToMenuButtons[0])

		return markdownReply(
			"🏦 *Bank Withdrawal*\n\n"+
				"💰 *Available Balance:*\n"+balanceText+"\n\n"+
				"Select a bank account for withdrawal:",
			buttons,
		)
	})
}

// SelectSavedRecipient - выбор сохраненного получателя кнопкой. Редактирует
// сообщение с кнопками вместо отправки нового.
func (f *TransferFlow) SelectSavedRecipient(ctx context.Context, userID int64, email string) Reply {
	return f.exclusive(userID, func() Reply {
		if !f.auth.IsAuthenticated(ctx, userID) {
			return LoginReply()
		}
		// данные кнопки приходят от клиента и проверяются как ввод
		if !IsValidEmail(email) {
			metrics.InputsRejected.WithLabelValues(string(model.EmailTransfer), "invalid_email").Inc()
			return textReply("❌ Invalid email address. Please try again:")
		}
		state := f.emailStateAtRecipient(userID)
		if err := advance(ctx, state, eventRecipientSelected); err != nil {
			logFlowError("SelectSavedRecipient", state, err)
			return textReply("❌ Something went wrong.\n\n" + supportSuffix)
		}
		state.Recipient = email
		f.save(state)

		text := "📧 *Send to Email*\n\nRecipient: " + escapeMarkdown(email) + "\n\n"
		balanceText, _, err := f.defaultBalance(ctx, userID)
		if err != nil {
			logFlowError("SelectSavedRecipient", state, fmt.Errorf("balances: %w", err))
		} else {
			text += "💰 *Available Balance:*\n" + balanceText + "\n\n"
		}
		text += "Please enter the amount you want to send:"

		reply := markdownReply(text, backToMenuButtons)
		reply.Edit = true
		return reply
	})
}

// AddNewRecipient переводит сценарий email на ввод нового адреса
func (f *TransferFlow) AddNewRecipient(ctx context.Context, userID int64) Reply {
	return f.exclusive(userID, func() Reply {
		if !f.auth.IsAuthenticated(ctx, userID) {
			return LoginReply()
		}
		state := f.emailStateAtRecipient(userID)
		if state.Step == model.StepRecipient {
			if err := advance(ctx, state, eventAddNewRecipient); err != nil {
				logFlowError("AddNewRecipient", state, err)
				return textReply("❌ Something went wrong.\n\n" + supportSuffix)
			}
		}
		f.save(state)

		reply := markdownReply("📧 *Add New Recipient*\n\nPlease enter the recipient's email address:", backToMenuButtons)
		reply.Edit = true
		return reply
	})
}

// SelectBankAccount начинает ввод суммы вывода на выбранный счет
func (f *TransferFlow) SelectBankAccount(ctx context.Context, userID int64, bankAccountID string) Reply {
	return f.exclusive(userID, func() Reply {
		if !f.auth.IsAuthenticated(ctx, userID) {
			return LoginReply()
		}
		if strings.TrimSpace(bankAccountID) == "" {
			metrics.InputsRejected.WithLabelValues(string(model.BankWithdrawal), "invalid_account").Inc()
			return textReply("❌ No bank account selected.\n\nPlease start the withdrawal again.")
		}
		state := f.newState(userID, model.BankWithdrawal)
		state.BankAccountID = bankAccountID
		f.save(state)

		return textReply("💰 Please enter the amount you want to withdraw (e.g., '100'):")
	})
}

// emailStateAtRecipient возвращает текущий сценарий email, если он еще
// ждет получателя, иначе начинает новый
func (f *TransferFlow) emailStateAtRecipient(userID int64) *model.FlowState {
	state := f.flows.get(userID)
	if state != nil && state.Kind == model.EmailTransfer &&
		(state.Step == model.StepRecipient || state.Step == model.StepNewRecipient) {
		return state
	}
	return f.newState(userID, model.EmailTransfer)
}

// defaultBalance загружает балансы и кошелек по умолчанию параллельно.
// empty - у пользователя нет ни одного кошелька с балансом.
func (f *TransferFlow) defaultBalance(ctx context.Context, userID int64) (text string, empty bool, err error) {
	var (
		wg        sync.WaitGroup
		balances  []model.WalletBalance
		wallet    *model.Wallet
		walletErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		balances, err = f.api.Balances(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		wallet, walletErr = f.api.DefaultWallet(ctx, userID)
	}()
	wg.Wait()

	if err != nil {
		return "", false, fmt.Errorf("balances: %w", err)
	}
	if walletErr != nil {
		return "", false, fmt.Errorf("default wallet: %w", walletErr)
	}
	if len(balances) == 0 {
		return noDefaultBalance, true, nil
	}
	return formatDefaultBalance(balances, wallet.ID), false, nil
}

func nickName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
