package display

import "fmt"

// Command is a single draw primitive keyed by its AWTRIX short name,
// e.g. {"dl": [2, 7, 29, 7, "#FF0000"]}.
type Command map[string][]any

// Payload is the body published to the matrix custom app topic.
type Payload struct {
	Draw []Command `json:"draw"`
}

const (
	opPixel = "dp" // x, y, color
	opFill  = "df" // x, y, w, h, color
	opRect  = "dr" // x, y, w, h, color
	opLine  = "dl" // x0, y0, x1, y1, color
	opText  = "dt" // x, y, text, color
)

func Pixel(x, y int, color string) Command {
	return Command{opPixel: {x, y, color}}
}

func Fill(x, y, w, h int, color string) Command {
	return Command{opFill: {x, y, w, h, color}}
}

func Rect(x, y, w, h int, color string) Command {
	return Command{opRect: {x, y, w, h, color}}
}

func Line(x0, y0, x1, y1 int, color string) Command {
	return Command{opLine: {x0, y0, x1, y1, color}}
}

func Text(x, y int, text, color string) Command {
	return Command{opText: {x, y, text, color}}
}

// Op returns the primitive name of c, or "" for an empty command.
func (c Command) Op() string {
	for k := range c {
		return k
	}
	return ""
}

func (c Command) String() string {
	op := c.Op()
	return fmt.Sprintf("%s%v", op, c[op])
}
