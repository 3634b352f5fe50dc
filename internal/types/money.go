// README: Common money value object used across modules.
package types

// DefaultCurrency is the currency every fare table is priced in.
const DefaultCurrency = "LKR"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func LKR(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// Times scales the amount, e.g. a unit fare by passenger count.
func (m Money) Times(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.currency()}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.currency()}
}

func (m Money) currency() string {
	if m.Currency == "" {
		return DefaultCurrency
	}
	return m.Currency
}
