package restock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// formatMoney renders v with two decimals and thousands separators. Rounding follows the
// exact binary value, so 999.995 prints as 999.99.
func formatMoney(symbol string, v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return symbol + sign + s
	}
	return symbol + sign + humanize.Comma(n) + "." + frac
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
