// README: Common money value object used across modules.
package types

import "fmt"

// Money is an amount in the currency's smallest unit (centavos for BRL).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func BRL(centavos int64) Money {
	return Money{Amount: centavos, Currency: "BRL"}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// String renders the amount in units, e.g. "R$ 45.00".
func (m Money) String() string {
	return fmt.Sprintf("R$ %d.%02d", m.Amount/100, m.Amount%100)
}
