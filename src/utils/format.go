package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatPnl renders a signed amount with two decimals, e.g. "+5.00" or "-2.10".
func FormatPnl(pnl decimal.Decimal) string {
	return fmt.Sprintf("%+.2f", pnl.Round(2).InexactFloat64())
}
