// Package format renders monetary amounts for humans.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Currency returns a currency string with the given symbol and thousands separators (e.g., "-£1,234.56").
func Currency(symbol string, amount float64) string {
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		return "-" + symbol + formatted
	}
	return symbol + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	sign := ""
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		sign = "-"
	}
	return sign + formatted
}

// Months renders a month count as "N years M months".
func Months(months int) string {
	years, rest := months/12, months%12
	switch {
	case years == 0:
		return plural(rest, "month")
	case rest == 0:
		return plural(years, "year")
	default:
		return plural(years, "year") + " " + plural(rest, "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func formatPositiveCurrency(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
