package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns base * pct / 100.
func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseAmount coerces user-entered money such as "3.000.000" or "5,000,000 đ"
// into a decimal. Grouping separators and one trailing currency marker are
// ignored; letters anywhere else make the input malformed. An
// empty input clears the amount; any other malformed input keeps last.
func ParseAmount(raw string, last decimal.Decimal) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	var b strings.Builder
	for _, r := range trimCurrencySuffix(trimmed) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',' || r == ' ' || r == '_' || r == '\u00a0':
		default:
			return last
		}
	}
	if b.Len() == 0 {
		return last
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return last
	}
	return d
}

// ParseRate coerces a user-entered percentage such as "1,2" or "8.5%" into a
// decimal. Malformed or negative input keeps last; an empty input clears it.
func ParseRate(raw string, last decimal.Decimal) decimal.Decimal {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if trimmed == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(trimmed, ",", "."))
	if err != nil || d.IsNegative() {
		return last
	}
	return d
}

// currencySuffixes are matched case-insensitively, longest first.
var currencySuffixes = []string{"vnđ", "vnd", "đ", "₫", "d"}

// trimCurrencySuffix drops one trailing currency marker such as "đ" or "VND".
func trimCurrencySuffix(s string) string {
	lower := strings.ToLower(s)
	for _, suffix := range currencySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSpace(s[:len(s)-len(suffix)])
		}
	}
	return s
}
