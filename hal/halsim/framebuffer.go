// Package halsim provides host implementations of the hal device contracts:
// an in-memory RGB565 framebuffer, a display that renders through it, a
// deterministic accelerometer waveform, and a scripted button pad.
package halsim

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
)

// Framebuffer is an in-memory RGB565 frame store. It satisfies the
// drivers.Displayer contract consumed by tinyfont and tinydraw, so the same
// rendering code can target a real panel on hardware builds.
type Framebuffer struct {
	mu     sync.Mutex
	w, h   int16
	stride int
	buf    []byte
}

// NewFramebuffer creates a w by h framebuffer cleared to black.
func NewFramebuffer(w, h int16) *Framebuffer {
	stride := int(w) * 2
	return &Framebuffer{
		w:      w,
		h:      h,
		stride: stride,
		buf:    make([]byte, stride*int(h)),
	}
}

func rgb565(c color.RGBA) uint16 {
	rr := uint16(c.R>>3) & 0x1F
	gg := uint16(c.G>>2) & 0x3F
	bb := uint16(c.B>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

func rgb888(p uint16) color.RGBA {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	return color.RGBA{
		R: uint8((rr * 255) / 31),
		G: uint8((gg * 255) / 63),
		B: uint8((bb * 255) / 31),
		A: 255,
	}
}

// Size returns the framebuffer dimensions.
func (f *Framebuffer) Size() (int16, int16) {
	return f.w, f.h
}

// SetPixel writes one pixel. Out-of-bounds writes are dropped.
func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}

	raw := rgb565(c)

	f.mu.Lock()
	i := int(y)*f.stride + int(x)*2
	f.buf[i] = byte(raw)
	f.buf[i+1] = byte(raw >> 8)
	f.mu.Unlock()
}

// Display is a no-op; the buffer is always current.
func (f *Framebuffer) Display() error {
	return nil
}

// At returns the pixel at (x, y) expanded to RGBA.
func (f *Framebuffer) At(x, y int16) color.RGBA {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return color.RGBA{}
	}

	f.mu.Lock()
	i := int(y)*f.stride + int(x)*2
	raw := uint16(f.buf[i]) | uint16(f.buf[i+1])<<8
	f.mu.Unlock()

	return rgb888(raw)
}

// Fill sets every pixel to the given color.
func (f *Framebuffer) Fill(c color.RGBA) {
	raw := rgb565(c)
	lo := byte(raw)
	hi := byte(raw >> 8)

	f.mu.Lock()
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
	f.mu.Unlock()
}

// EncodePNG writes the current frame as a PNG image.
func (f *Framebuffer) EncodePNG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, int(f.w), int(f.h)))
	for y := int16(0); y < f.h; y++ {
		for x := int16(0); x < f.w; x++ {
			img.SetRGBA(int(x), int(y), f.At(x, y))
		}
	}

	return png.Encode(w, img)
}
