package domain

import "github.com/shopspring/decimal"

// Balance holds the confirmed and unconfirmed funds of one address,
// already converted out of the chain's smallest unit.
type Balance struct {
	Address           string
	Symbol            string
	Currency          Currency
	Amount            decimal.Decimal
	UnconfirmedAmount decimal.Decimal
}
