package model

import "github.com/shopspring/decimal"

// FixedPointDecimals - сколько знаков после запятой закодировано в целых суммах платежного сервиса
const FixedPointDecimals = 8

// ToFixedPoint переводит отображаемую сумму в целое число с 8 знаками
func ToFixedPoint(amount decimal.Decimal) string {
	return amount.Shift(FixedPointDecimals).Truncate(0).String()
}

// FromFixedPoint переводит целое число с 8 знаками в отображаемую сумму
func FromFixedPoint(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(-FixedPointDecimals)
}
