package model

import "time"

// FlowKind определяет, какой из сценариев перевода ведет пользователь
type FlowKind string

const (
	EmailTransfer  FlowKind = "email_transfer"
	WalletTransfer FlowKind = "wallet_transfer"
	BankWithdrawal FlowKind = "bank_withdrawal"
)

// Step - шаг внутри сценария. Вместе с FlowKind однозначно задает,
// какой ввод ожидается следующим.
type Step string

const (
	StepRecipient      Step = "recipient"
	StepNewRecipient   Step = "new_recipient"
	StepAmount         Step = "amount"
	StepAmountAndQuote Step = "amount_and_quote"
	StepConfirmation   Step = "confirmation"
)

// DefaultSymbol - актив, в котором выполняются все переводы
const DefaultSymbol = "USDC"

// FlowState представляет текущее состояние сценария перевода пользователя
type FlowState struct {
	ID                   string
	UserID               int64
	Kind                 FlowKind
	Step                 Step
	Recipient            string
	Amount               string
	Symbol               string
	BankAccountID        string
	Quote                *Quote
	AwaitingConfirmation bool
	UpdatedAt            time.Time
}

// Clone возвращает независимую копию состояния
func (s *FlowState) Clone() *FlowState {
	c := *s
	if s.Quote != nil {
		q := *s.Quote
		c.Quote = &q
	}
	return &c
}
