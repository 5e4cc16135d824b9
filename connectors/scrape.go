package connectors

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var sterlingRe = regexp.MustCompile(`£\s*([\d,]+(?:\.\d+)?)`)

// ParseBalanceString extracts a sterling amount from scraped text like
// "£1,234.56". Returns zero when no amount is present.
func ParseBalanceString(input string) decimal.Decimal {
	m := sterlingRe.FindStringSubmatch(input)
	if m == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}
