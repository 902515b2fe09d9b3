// Package currency converts line item amounts into the reporting currency
// using the Frankfurter exchange rate API.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

var (
	ErrNoRate      = errors.New("no exchange rate")
	ErrUpstream    = errors.New("exchange rate service failed")
	ErrUnsupported = errors.New("unsupported currency")
)

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

var supported = []Currency{
	{"EUR", "Euro", "€"},
	{"USD", "US Dollar", "$"},
	{"CHF", "Swiss Franc", "CHF"},
	{"GBP", "British Pound", "£"},
	{"JPY", "Japanese Yen", "¥"},
	{"CNY", "Chinese Yuan", "¥"},
	{"AUD", "Australian Dollar", "A$"},
	{"CAD", "Canadian Dollar", "C$"},
	{"SEK", "Swedish Krona", "kr"},
	{"NOK", "Norwegian Krone", "kr"},
	{"DKK", "Danish Krone", "kr"},
	{"PLN", "Polish Zloty", "zł"},
	{"CZK", "Czech Koruna", "Kč"},
	{"HUF", "Hungarian Forint", "Ft"},
	{"TRY", "Turkish Lira", "₺"},
	{"INR", "Indian Rupee", "₹"},
	{"BRL", "Brazilian Real", "R$"},
	{"MXN", "Mexican Peso", "$"},
	{"ZAR", "South African Rand", "R"},
	{"SGD", "Singapore Dollar", "S$"},
	{"HKD", "Hong Kong Dollar", "HK$"},
	{"KRW", "South Korean Won", "₩"},
	{"RUB", "Russian Ruble", "₽"},
}

// Supported returns the currencies offered for line items, EUR first.
func Supported() []Currency {
	out := make([]Currency, len(supported))
	copy(out, supported)
	return out
}

// Lookup finds a supported currency by code, ignoring case.
func Lookup(code string) (Currency, bool) {
	code = Normalize(code)
	for _, c := range supported {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// Normalize upper-cases and trims a code. Empty means the base currency.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return core.BaseCurrency
	}
	return code
}

// Validate returns ErrUnsupported for codes outside the supported list.
func Validate(code string) error {
	if _, ok := Lookup(code); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupported, code)
	}
	return nil
}

// Format renders EUR in German notation ("1.234,56 €") and every other
// currency as "SYMBOL 1234.56". Unknown codes use the code as symbol.
func Format(amount float64, code string) string {
	code = Normalize(code)
	if code == core.BaseCurrency {
		return core.FormatEuro(amount)
	}
	symbol := code
	if c, ok := Lookup(code); ok {
		symbol = c.Symbol
	}
	return fmt.Sprintf("%s %s", symbol, core.FormatDecimal(amount, 2, "", "."))
}
