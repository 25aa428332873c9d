package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// не больше 8 знаков после запятой, без экспоненты
	amountPattern = regexp.MustCompile(`^\d{1,15}(\.\d{1,8})?$`)
)

// Минимальные суммы по сценариям
var (
	minEmailAmount      = decimal.NewFromInt(1)
	minWithdrawalAmount = decimal.NewFromInt(50)
)

const (
	walletAddressPrefix = "0x"
	walletAddressLength = 42
)

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func IsValidWalletAddress(s string) bool {
	return strings.HasPrefix(s, walletAddressPrefix) && len(s) == walletAddressLength
}

// ParseAmount разбирает положительное число в десятичной записи.
// Дробная часть ограничена точностью фиксированной точки платежного сервиса.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(s)
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount, nil
}
