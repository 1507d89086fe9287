package display

import "math"

const (
	colorLoss  = "#FF0000"
	colorKill  = "#00FF00"
	colorLabel = "#ffffff"

	// Balance bar geometry on the 32x8 matrix.
	barX       = 2
	barY       = 7
	barLength  = 29
	barMinKill = 2

	labelX = 8
	labelY = 1
)

var (
	downArrow = []Command{
		Pixel(4, 4, "#ff4a4a"),
		Fill(1, 1, 2, 2, colorLoss),
		Fill(2, 2, 2, 2, colorLoss),
		Rect(3, 3, 3, 3, colorLoss),
		Line(5, 1, 5, 5, colorLoss),
		Line(1, 5, 5, 5, colorLoss),
	}
	upArrow = []Command{
		Pixel(4, 2, "#78ff78"),
		Fill(1, 4, 2, 2, colorKill),
		Fill(2, 3, 2, 2, colorKill),
		Rect(3, 1, 3, 3, colorKill),
		Line(1, 1, 5, 1, colorKill),
		Line(5, 1, 5, 5, colorKill),
	}
)

// Render builds the matrix payload for the live values and their total. The
// arrow points up only when total is strictly above lastTotal.
func Render(values []int64, total, lastTotal int64) Payload {
	arrows := downArrow
	if total > lastTotal {
		arrows = upArrow
	}
	bar := BalanceBar(values)

	draw := make([]Command, 0, len(arrows)+len(bar)+1)
	draw = append(draw, arrows...)
	draw = append(draw, bar...)
	draw = append(draw, Text(labelX, labelY, Label(total), colorLabel))
	return Payload{Draw: draw}
}

// BalanceBar draws the kill/loss proportion as a red line overlaid by a green
// one. It returns nil when there is nothing to compare.
func BalanceBar(values []int64) []Command {
	lost, killed := Split(values)
	if lost == 0 && killed == 0 {
		return nil
	}
	return []Command{
		Line(barX, barY, barLength, barY, colorLoss),
		Line(barX, barY, KillWidth(lost, killed), barY, colorKill),
	}
}

// Split sums the negative (lost) and positive (killed) values separately.
func Split(values []int64) (lost, killed int64) {
	for _, v := range values {
		switch {
		case v < 0:
			lost += v
		case v > 0:
			killed += v
		}
	}
	return lost, killed
}

// KillWidth is the green portion of the bar, never narrower than barMinKill.
func KillWidth(lost, killed int64) int {
	denom := math.Max(math.Abs(float64(lost))+float64(killed), 1)
	w := int(math.Ceil(barLength * float64(killed) / denom))
	return max(w, barMinKill)
}

// Label is the signed, fixed width text shown next to the arrow.
func Label(total int64) string {
	if total < 0 {
		return "-" + FormatNumber(total)
	}
	return "  " + FormatNumber(total)
}
