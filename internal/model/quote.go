package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingQuoteField = errors.New("quote payload field is missing")
	ErrInvalidQuote      = errors.New("invalid quote")
)

// Quote - котировка на вывод в банк. Payload и Signature передаются
// обратно в платежный сервис без изменений.
type Quote struct {
	Payload            string
	Signature          string
	ArrivalTimeMessage string
	Terms              QuoteTerms
	FetchedAt          time.Time
}

// QuoteTerms - условия, извлеченные из Payload. Суммы в фиксированной точке,
// Rate - обычное число.
type QuoteTerms struct {
	ToAmount  decimal.Decimal
	Rate      decimal.Decimal
	TotalFee  decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// Expired сообщает, истек ли локальный срок действия котировки
func (q *Quote) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(q.FetchedAt) > ttl
}

// ParseQuoteTerms разбирает JSON из quotePayload. Каждое обязательное поле
// должно присутствовать.
func ParseQuoteTerms(payload string) (QuoteTerms, error) {
	var raw struct {
		ToAmount  *decimal.Decimal `json:"toAmount"`
		Rate      *decimal.Decimal `json:"rate"`
		TotalFee  *decimal.Decimal `json:"totalFee"`
		MinAmount *decimal.Decimal `json:"minAmount"`
		MaxAmount *decimal.Decimal `json:"maxAmount"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return QuoteTerms{}, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}

	fields := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"toAmount", raw.ToAmount},
		{"rate", raw.Rate},
		{"totalFee", raw.TotalFee},
		{"minAmount", raw.MinAmount},
		{"maxAmount", raw.MaxAmount},
	}
	for _, f := range fields {
		if f.value == nil {
			return QuoteTerms{}, fmt.Errorf("%w: %s", ErrMissingQuoteField, f.name)
		}
	}

	return QuoteTerms{
		ToAmount:  *raw.ToAmount,
		Rate:      *raw.Rate,
		TotalFee:  *raw.TotalFee,
		MinAmount: *raw.MinAmount,
		MaxAmount: *raw.MaxAmount,
	}, nil
}

// OfframpQuoteRequest - тело запроса котировки
type OfframpQuoteRequest struct {
	Amount                 string `json:"amount"`
	Currency               string `json:"currency"`
	SourceCountry          string `json:"sourceCountry"`
	DestinationCountry     string `json:"destinationCountry"`
	OnlyRemittance         bool   `json:"onlyRemittance"`
	PreferredBankAccountID string `json:"preferredBankAccountId"`
}

// NewOfframpQuoteRequest собирает запрос котировки для суммы в отображаемых единицах
func NewOfframpQuoteRequest(amount decimal.Decimal, currency, bankAccountID string) OfframpQuoteRequest {
	return OfframpQuoteRequest{
		Amount:                 ToFixedPoint(amount),
		Currency:               currency,
		SourceCountry:          "none",
		DestinationCountry:     "ind",
		OnlyRemittance:         true,
		PreferredBankAccountID: bankAccountID,
	}
}
