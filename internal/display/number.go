package display

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type unit struct {
	factor int64
	suffix string
}

// Largest first.
var units = []unit{
	{1_000_000_000_000, "t"},
	{1_000_000_000, "b"},
	{1_000_000, "m"},
	{1_000, "k"},
}

// FormatNumber renders a magnitude as a zero padded 4 digit field followed by a
// unit letter. A unit is only used once the number reaches ten of it, so
// 52_000_000 is "0052m" while 9_000_000 is "9000k". Below 10,000 the raw number
// is printed with the "k" suffix anyway (512 -> "0512k"); the matrix always shows
// the same field layout. Halves round to even.
func FormatNumber(n int64) string {
	if n < 0 {
		n = -n
	}
	for _, u := range units {
		if n >= u.factor*10 {
			q := decimal.NewFromInt(n).Div(decimal.NewFromInt(u.factor)).RoundBank(0)
			return fmt.Sprintf("%04d%s", q.IntPart(), u.suffix)
		}
	}
	return fmt.Sprintf("%04dk", n)
}
