// Package format renders prices and dates the way the storefront displays them.
package format

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"f1-pass-storefront/internal/models"
)

// DefaultCurrencyCode is used when a price carries no currency.
const DefaultCurrencyCode = "EUR"

// British English currency prefixes. Codes not listed render as "CODE 1,234".
var currencySymbols = map[string]string{
	"EUR": "€",
	"GBP": "£",
	"USD": "US$",
	"AUD": "A$",
	"CAD": "CA$",
	"JPY": "JP¥",
	"CNY": "CN¥",
	"SGD": "SGD ",
	"CHF": "CHF ",
}

var printer = message.NewPrinter(language.BritishEnglish)

// Money formats amount in whole currency units, e.g. "€1,299".
func Money(amount float64, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" {
		code = DefaultCurrencyCode
	}

	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}

	rounded := math.Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}

	return sign + symbol + printer.Sprintf("%d", int64(rounded))
}

// Date formats an ISO timestamp as "Mar 13, 2026" in UTC, or "TBA".
func Date(value string) string {
	t, ok := models.ParseTimestamp(value)
	if !ok {
		return "TBA"
	}
	return t.Format("Jan 2, 2006")
}

// DateRange formats a race weekend as "Mar 13-15, 2026". Month and year are
// taken from the start date.
func DateRange(start, end string) string {
	s, ok := models.ParseTimestamp(start)
	if !ok {
		return "Dates TBA"
	}
	e, ok := models.ParseTimestamp(end)
	if !ok {
		return "Dates TBA"
	}
	return s.Format("Jan 2") + "-" + e.Format("2") + s.Format(", 2006")
}

// MonthLabel returns the short month of value, or "TBA".
func MonthLabel(value string) string {
	t, ok := models.ParseTimestamp(value)
	if !ok {
		return "TBA"
	}
	return t.Format("Jan")
}

// DateTime formats a timestamp as "13 Mar 2026, 10:00" in UTC, or "".
func DateTime(value string) string {
	t, ok := models.ParseTimestamp(value)
	if !ok {
		return ""
	}
	return t.Format("2 Jan 2006, 15:04")
}
