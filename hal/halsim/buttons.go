package halsim

import "sync"

// ButtonPad is a scripted push-button register. All buttons read as up (bits
// set) until PressAfter reads have happened, then the configured button reads
// as pressed (bit cleared).
type ButtonPad struct {
	mu sync.Mutex

	reads      int
	pressAfter int
	button     uint32
}

// NewButtonPad creates a pad whose button presses after pressAfter reads.
// Button 0 is pressed by default.
func NewButtonPad(pressAfter int) *ButtonPad {
	return &ButtonPad{pressAfter: pressAfter, button: 0}
}

// WithButton selects which button the script presses.
func (p *ButtonPad) WithButton(n uint32) *ButtonPad {
	p.button = n
	return p
}

// Read returns the raw button bits.
func (p *ButtonPad) Read() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reads++
	if p.reads > p.pressAfter {
		return ^uint32(0) &^ (1 << p.button)
	}

	return ^uint32(0)
}
