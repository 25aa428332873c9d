package model

import "github.com/shopspring/decimal"

const (
	AccountTypeBank       = "bank_account"
	AccountStatusVerified = "verified"
)

// WalletBalance - балансы одного кошелька
type WalletBalance struct {
	WalletID string    `json:"walletId"`
	Balances []Balance `json:"balances"`
}

// Balance - баланс актива в отображаемых единицах (не фиксированная точка)
type Balance struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"balance"`
}

type Wallet struct {
	ID string `json:"id"`
}

// Payee - сохраненный получатель
type Payee struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	NickName    string `json:"nickName"`
}

// Label возвращает подпись для кнопки выбора получателя
func (p *Payee) Label() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.NickName != "":
		return p.NickName
	default:
		return p.Email
	}
}

type NewPayee struct {
	Email    string `json:"email"`
	NickName string `json:"nickName"`
}

type Account struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Status      string       `json:"status"`
	BankAccount *BankAccount `json:"bankAccount,omitempty"`
}

type BankAccount struct {
	BankName          string `json:"bankName"`
	BankAccountNumber string `json:"bankAccountNumber"`
}

// IsVerifiedBank сообщает, можно ли выводить средства на этот счет
func (a *Account) IsVerifiedBank() bool {
	return a.Type == AccountTypeBank && a.Status == AccountStatusVerified
}

// Label возвращает "Банк (1234)" для кнопки выбора счета
func (a *Account) Label() string {
	if a.BankAccount == nil {
		return a.ID
	}
	number := a.BankAccount.BankAccountNumber
	if len(number) > 4 {
		number = number[len(number)-4:]
	}
	return a.BankAccount.BankName + " (" + number + ")"
}
