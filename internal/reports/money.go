package reports

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money formats amounts for row values and descriptions.
type Money struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewMoney builds a formatter for an ISO 4217 currency code. An empty code
// selects DefaultCurrency.
func NewMoney(code string) (Money, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Money{}, fmt.Errorf("reports: currency %q: %w", code, err)
	}
	return Money{unit: unit, printer: message.NewPrinter(localeFor(unit))}, nil
}

func mustMoney(code string) Money {
	m, err := NewMoney(code)
	if err != nil {
		panic(err)
	}
	return m
}

// Code returns the ISO 4217 code.
func (m Money) Code() string {
	return m.unit.String()
}

// Format renders amount with the currency symbol and two decimals. The
// amount is rounded before it leaves decimal arithmetic.
func (m Money) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	if m.printer == nil {
		return rounded.StringFixed(2)
	}
	return m.printer.Sprintf("%v", currency.Symbol(m.unit.Amount(rounded.InexactFloat64())))
}

func localeFor(unit currency.Unit) language.Tag {
	switch unit {
	case currency.BRL:
		return language.BrazilianPortuguese
	case currency.EUR:
		return language.German
	case currency.USD:
		return language.AmericanEnglish
	default:
		return language.Und
	}
}
