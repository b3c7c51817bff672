// Package export renders payout tables as CSV, PDF and XLSX downloads.
package export

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Table is the renderer-neutral shape every export format consumes.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

var moneyPrinter = message.NewPrinter(language.English)

// Money formats an amount with thousands separators for display cells.
func Money(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}
