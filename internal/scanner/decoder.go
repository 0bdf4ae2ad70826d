// internal/scanner/decoder.go
package scanner

import (
	"bytes"
	"log"
	"sync"

	"github.com/hrterm/periphd/internal/notify"
)

// maxBarcodeLength is the longest barcode the session accumulates
// before the partial value is discarded.
const maxBarcodeLength = 31

// Decoder turns the scanner's raw HID frames into identity values.
// Only the third byte of each 4-byte frame carries a usage code; the
// rest is modifier/reserved noise.
type Decoder struct {
	registry   *Registry
	dispatcher notify.Dispatcher
	log        *log.Logger

	buf [maxBarcodeLength + 1]byte
	pos int

	mu       sync.Mutex
	identity string
}

func NewDecoder(registry *Registry, dispatcher notify.Dispatcher, lg *log.Logger) *Decoder {
	return &Decoder{
		registry:   registry,
		dispatcher: dispatcher,
		log:        lg,
	}
}

// HandleFrame consumes one 4-byte HID report. Short frames are
// skipped. While the registry is locked every frame is discarded and
// the session forced empty; downstream owns the scanner until it
// unlocks.
func (d *Decoder) HandleFrame(frame []byte) {
	if len(frame) < 4 {
		return
	}

	if d.registry.Locked() {
		d.pos = 0
		return
	}

	code := frame[2]
	if code < usageFirst {
		return
	}

	if code == usageTerminator {
		d.finalize()
		d.reset()
		return
	}

	var ch byte
	if code <= usageLast {
		ch = keymap[code-usageFirst]
	}
	d.buf[d.pos] = ch
	d.pos++

	if d.pos > maxBarcodeLength {
		d.log.Printf("barcode value is too long")
		d.reset()
	}
}

// finalize publishes the accumulated value. The stored identity stops
// at the first blank-mapped byte, matching the legacy string handoff.
func (d *Decoder) finalize() {
	if d.registry.Mode() == ModeNone || d.pos == 0 {
		return
	}

	value := d.buf[:d.pos]
	if i := bytes.IndexByte(value, 0); i >= 0 {
		value = value[:i]
	}

	d.registry.Lock()
	d.log.Printf("barcode (id): %s", value)

	d.mu.Lock()
	d.identity = string(value)
	d.mu.Unlock()

	if err := d.dispatcher.Send(notify.EventIdentityScan); err != nil {
		d.log.Printf("dispatch failed: %v", err)
	}

	// Test mode needs repeated scans without an external unlock.
	if d.registry.Mode() == ModeTest {
		d.registry.Unlock()
	}
}

func (d *Decoder) reset() {
	d.pos = 0
	for i := range d.buf {
		d.buf[i] = 0
	}
}

// Identity returns the last finalized barcode value.
func (d *Decoder) Identity() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identity
}

// sessionLen reports the current accumulator length. Test hook.
func (d *Decoder) sessionLen() int {
	return d.pos
}
