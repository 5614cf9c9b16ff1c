// Package hal declares the device boundaries the kernel's applications
// consume: an accelerometer, a pixel display, and a button pad. The package
// holds contracts only; host simulations live in halsim, real board drivers
// are supplied by the target.
package hal

import (
	"errors"
	"image/color"
)

// ErrNotReady is returned by a device that cannot serve the call yet.
// Startup code retries until the device stops returning it.
var ErrNotReady = errors.New("device not ready")

// Sample is one accelerometer reading. It is a plain value with no intrinsic
// synchronization; sharing one between tasks is safe only inside a
// semaphore-protected region.
type Sample struct {
	X, Y, Z int16
}

// Accelerometer is a possibly-failing sensor. Open and Init are retried at
// startup until the device reports ready.
type Accelerometer interface {
	Open() error
	Init() error
	Read() (Sample, error)
}

// Display exposes primitive draw operations. Drawing provides no feedback to
// the caller.
type Display interface {
	WritePixel(x, y int16, c color.RGBA)
	Text(x, y int16, s string, fg, bg color.RGBA)
	HLine(x, y, w int16, c color.RGBA)
	VLine(x, y, h int16, c color.RGBA)
	FilledCircle(x, y, r int16, c color.RGBA)
	ClearRegion(x0, y0, x1, y1 int16)
	Clear(c color.RGBA)
}

// ButtonPad exposes the raw push-button bits. A set bit means the button is
// up; pressing a button clears its bit.
type ButtonPad interface {
	Read() uint32
}

// The display colors the applications use.
var (
	ColBlack   = color.RGBA{A: 255}
	ColWhite   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColRed     = color.RGBA{R: 255, A: 255}
	ColGreen   = color.RGBA{G: 255, A: 255}
	ColCyan    = color.RGBA{G: 255, B: 255, A: 255}
	ColMagenta = color.RGBA{R: 255, B: 255, A: 255}
)
