package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code, always upper case
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// DefaultCurrency is what the agency bills in
const DefaultCurrency = USD

var symbols = map[Currency]string{USD: "$", EUR: "€", GBP: "£"}

// ParseCurrency normalises a currency code as sent by the payment processor ("usd" → USD)
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	return Currency(code), nil
}

// Money is an immutable amount in a single currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses amount as a decimal string
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// USDollars is shorthand for whole-dollar catalog prices
func USDollars(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount), currency: USD}
}

// Zero returns a zero amount in currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency       { return m.currency }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }

// Add sums two amounts of the same currency. A zero value without a
// currency adopts the other operand's currency.
func (m Money) Add(other Money) (Money, error) {
	switch {
	case m.currency == "":
		return Money{amount: m.amount.Add(other.amount), currency: other.currency}, nil
	case other.currency == "" || other.currency == m.currency:
		return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
	default:
		return Money{}, fmt.Errorf("cannot add %s to %s", other.currency, m.currency)
	}
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders "USD 199.00"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(2))
}

// Display renders the amount with its currency symbol when one is known ("$199.00")
func (m Money) Display() string {
	if sym, ok := symbols[m.currency]; ok {
		return sym + m.amount.StringFixed(2)
	}
	return m.String()
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.Round(2), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Currency == "" {
		raw.Currency = DefaultCurrency
	}
	m.amount = raw.Amount
	m.currency = raw.Currency
	return nil
}
