package halsim

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/sarchlab/cadence/hal"
)

var font = &proggy.TinySZ8pt7b

// The framebuffer must satisfy the displayer contract tinyfont and tinydraw
// render against.
var _ drivers.Displayer = (*Framebuffer)(nil)

// Display renders the hal.Display primitives onto a Framebuffer, using
// tinyfont for glyphs and tinydraw for lines and circles.
type Display struct {
	fb *Framebuffer
}

// NewDisplay creates a Display over the framebuffer.
func NewDisplay(fb *Framebuffer) *Display {
	return &Display{fb: fb}
}

// Framebuffer returns the backing frame store, for snapshots.
func (d *Display) Framebuffer() *Framebuffer {
	return d.fb
}

// WritePixel writes one pixel.
func (d *Display) WritePixel(x, y int16, c color.RGBA) {
	d.fb.SetPixel(x, y, c)
}

// Text draws a string with its top-left corner at (x, y), clearing the text
// box to the background color first.
func (d *Display) Text(x, y int16, s string, fg, bg color.RGBA) {
	_, w := tinyfont.LineWidth(font, s)
	h := int16(font.YAdvance)
	d.ClearRegionColor(x, y, x+int16(w), y+h, bg)

	// tinyfont draws from the baseline.
	tinyfont.WriteLine(d.fb, font, x, y+h-1, s, fg)
}

// HLine draws a horizontal line of width w starting at (x, y).
func (d *Display) HLine(x, y, w int16, c color.RGBA) {
	tinydraw.Line(d.fb, x, y, x+w-1, y, c)
}

// VLine draws a vertical line of height h starting at (x, y).
func (d *Display) VLine(x, y, h int16, c color.RGBA) {
	tinydraw.Line(d.fb, x, y, x, y+h-1, c)
}

// FilledCircle draws a filled circle of radius r centered at (x, y).
func (d *Display) FilledCircle(x, y, r int16, c color.RGBA) {
	tinydraw.FilledCircle(d.fb, x, y, r, c)
}

// ClearRegion fills the inclusive rectangle with black.
func (d *Display) ClearRegion(x0, y0, x1, y1 int16) {
	d.ClearRegionColor(x0, y0, x1, y1, hal.ColBlack)
}

// ClearRegionColor fills the inclusive rectangle with the given color.
func (d *Display) ClearRegionColor(x0, y0, x1, y1 int16, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d.fb.SetPixel(x, y, c)
		}
	}
}

// Clear fills the whole screen.
func (d *Display) Clear(c color.RGBA) {
	d.fb.Fill(c)
}
