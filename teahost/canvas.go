package teahost

import (
	"strings"
	"unicode/utf8"
)

// Canvas is a fixed-size grid of cells, drawn by the app between presents.
// It is not safe for concurrent use; draw only from the loop's callbacks.
type Canvas struct {
	cells  []rune
	status string
	width  int
	height int
}

// NewCanvas returns a blank canvas. Non-positive dimensions are treated as
// zero.
func NewCanvas(width, height int) *Canvas {
	c := new(Canvas)
	c.Resize(width, height)
	return c
}

// Size returns the canvas dimensions, in cells.
func (c *Canvas) Size() (width, height int) { return c.width, c.height }

// Resize changes the canvas dimensions, clearing it.
func (c *Canvas) Resize(width, height int) {
	c.width = max(width, 0)
	c.height = max(height, 0)
	if n := c.width * c.height; cap(c.cells) >= n {
		c.cells = c.cells[:n]
	} else {
		c.cells = make([]rune, n)
	}
	c.Clear()
}

// Clear blanks every cell. The status line is left as-is.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = ' '
	}
}

// Set writes a single cell, ignoring out of bounds coordinates.
func (c *Canvas) Set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.cells[y*c.width+x] = r
}

// Text writes s starting at (x, y), clipped to the row.
func (c *Canvas) Text(x, y int, s string) {
	for _, r := range s {
		c.Set(x, y, r)
		x++
	}
}

// Fill writes r to every cell of the given rectangle, clipped to the canvas.
func (c *Canvas) Fill(x, y, width, height int, r rune) {
	for j := y; j < y+height; j++ {
		for i := x; i < x+width; i++ {
			c.Set(i, j, r)
		}
	}
}

// SetStatus sets the line rendered below the canvas.
func (c *Canvas) SetStatus(s string) { c.status = s }

// Status returns the status line.
func (c *Canvas) Status() string { return c.status }

// String renders the cells, one line per row, without the status line.
func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.height * (c.width*utf8.UTFMax + 1))
	for y := 0; y < c.height; y++ {
		if y != 0 {
			b.WriteByte('\n')
		}
		for _, r := range c.cells[y*c.width : (y+1)*c.width] {
			b.WriteRune(r)
		}
	}
	return b.String()
}
