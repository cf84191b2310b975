// Package export は報告書類を PDF と CSV で書き出す。
package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var frPrinter = message.NewPrinter(language.French)

// 桁区切りは印字とCSVで崩れないよう通常の空白に揃える
var spaceFixer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// FormatAmount はフランス式の桁区切り。端数がある時だけ小数2桁をカンマで付ける。
//
//	15000   -> "15 000"
//	1500.5  -> "1 500,50"
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(2)
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0)
	s := spaceFixer.Replace(frPrinter.Sprintf("%d", whole.IntPart()))
	if cents := d.Sub(whole).Shift(2).IntPart(); cents != 0 {
		s += fmt.Sprintf(",%02d", cents)
	}
	if neg {
		s = "-" + s
	}
	return s
}

// FormatCurrency は "15 000 XOF" の形。
func FormatCurrency(d decimal.Decimal, currency string) string {
	return FormatAmount(d) + " " + currency
}

// FormatCount は人数などの整数をフランス式に区切る。
func FormatCount(n int64) string {
	return spaceFixer.Replace(frPrinter.Sprintf("%d", n))
}
