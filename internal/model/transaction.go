package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer - запись из истории переводов. Amount хранится в формате
// фиксированной точки с 8 знаками.
type Transfer struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	Symbol             string          `json:"symbol"`
	Recipient          string          `json:"recipient"`
	Hash               string          `json:"hash"`
	CreatedAt          time.Time       `json:"createdAt"`
	DestinationAccount TransferAccount `json:"destinationAccount"`
}

type TransferAccount struct {
	WalletAddress string `json:"walletAddress"`
	BankName      string `json:"bankName"`
}

// IsOfframp сообщает, ушел ли перевод на банковский счет
func (t *Transfer) IsOfframp() bool {
	return t.DestinationAccount.BankName != ""
}

// PurposeCodeSelf - назначение платежа для переводов пользователя
const PurposeCodeSelf = "self"

// EmailTransferRequest - тело запроса на перевод по email
type EmailTransferRequest struct {
	Email       string `json:"email"`
	Amount      string `json:"amount"`
	PurposeCode string `json:"purposeCode"`
	Currency    string `json:"currency"`
}

// WalletTransferRequest - тело запроса на вывод во внешний кошелек
type WalletTransferRequest struct {
	WalletAddress string `json:"walletAddress"`
	Amount        string `json:"amount"`
	PurposeCode   string `json:"purposeCode"`
	Currency      string `json:"currency"`
}
