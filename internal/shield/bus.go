// internal/shield/bus.go
package shield

import (
	"errors"
	"fmt"
	"time"

	"github.com/hrterm/periphd/internal/gpio"
)

// Bus is the exact hardware contract the engine drives: the 7
// mode-select lines plus a clocked byte channel into whichever board
// register the select pattern exposes.
//
// ReadSelect samples lines that were just driven as outputs. Reading
// back your own outputs is a platform-specific trick, but it is the
// only way to detect a board that failed to latch the select pattern;
// the verification protocol depends on it. Keep every implementation
// behind this interface so tests run against a fake.
type Bus interface {
	// DriveSelect latches the 7-bit pattern on GEN0..GEN6.
	DriveSelect(pattern byte) error

	// ReadSelect samples the current 7-bit select-line state.
	ReadSelect() (byte, error)

	// Write clocks data out, discarding whatever comes back.
	Write(data []byte) error

	// Exchange clocks buf out and replaces it in-place with the
	// bytes read back.
	Exchange(buf []byte) error

	// Close quiesces and releases the lines.
	Close() error
}

// BusConfig describes the GPIO wiring of the expansion board.
type BusConfig struct {
	SysfsRoot  string
	SelectPins []int // GEN0..GEN6, low bit first
	SclkPin    int
	MosiPin    int
	MisoPin    int
	ClockHz    int
}

// gpioBus bit-bangs the board protocol over sysfs GPIO lines.
// SPI mode 0, MSB first.
type gpioBus struct {
	sel  [7]*gpio.Line
	sclk *gpio.Line
	mosi *gpio.Line
	miso *gpio.Line
	half time.Duration
}

// NewBus exports and configures all board lines. Select lines and
// SCLK/MOSI are outputs, MISO is an input, SCLK idles low.
func NewBus(cfg BusConfig) (Bus, error) {
	if len(cfg.SelectPins) != 7 {
		return nil, errors.New("shield: need exactly 7 select pins")
	}
	if cfg.ClockHz <= 0 {
		cfg.ClockHz = 100_000
	}

	b := &gpioBus{
		sclk: gpio.NewLine(cfg.SysfsRoot, cfg.SclkPin),
		mosi: gpio.NewLine(cfg.SysfsRoot, cfg.MosiPin),
		miso: gpio.NewLine(cfg.SysfsRoot, cfg.MisoPin),
		half: time.Second / time.Duration(2*cfg.ClockHz),
	}
	for i, pin := range cfg.SelectPins {
		b.sel[i] = gpio.NewLine(cfg.SysfsRoot, pin)
	}

	for _, l := range b.outputs() {
		if err := l.Export(); err != nil {
			return nil, err
		}
		if err := l.SetDirection(gpio.Out); err != nil {
			return nil, err
		}
	}
	if err := b.miso.Export(); err != nil {
		return nil, err
	}
	if err := b.miso.SetDirection(gpio.In); err != nil {
		return nil, err
	}
	if err := b.sclk.SetValue(0); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *gpioBus) outputs() []*gpio.Line {
	out := make([]*gpio.Line, 0, 9)
	out = append(out, b.sel[:]...)
	return append(out, b.sclk, b.mosi)
}

func (b *gpioBus) DriveSelect(pattern byte) error {
	for i, l := range b.sel {
		if err := l.SetValue(int(pattern>>i) & 1); err != nil {
			return fmt.Errorf("shield: drive GEN%d: %w", i, err)
		}
	}
	return nil
}

func (b *gpioBus) ReadSelect() (byte, error) {
	var pattern byte
	for i, l := range b.sel {
		v, err := l.Value()
		if err != nil {
			return 0, fmt.Errorf("shield: read GEN%d: %w", i, err)
		}
		pattern |= byte(v) << i
	}
	return pattern, nil
}

func (b *gpioBus) Write(data []byte) error {
	for _, tx := range data {
		if _, err := b.transferByte(tx); err != nil {
			return err
		}
	}
	return nil
}

func (b *gpioBus) Exchange(buf []byte) error {
	for i, tx := range buf {
		rx, err := b.transferByte(tx)
		if err != nil {
			return err
		}
		buf[i] = rx
	}
	return nil
}

// transferByte clocks one byte out and one byte in: data is set up
// while SCLK is low and sampled on the rising edge.
func (b *gpioBus) transferByte(tx byte) (byte, error) {
	var rx byte
	for bit := 7; bit >= 0; bit-- {
		if err := b.mosi.SetValue(int(tx>>uint(bit)) & 1); err != nil {
			return 0, err
		}
		time.Sleep(b.half)

		if err := b.sclk.SetValue(1); err != nil {
			return 0, err
		}
		v, err := b.miso.Value()
		if err != nil {
			return 0, err
		}
		rx = rx<<1 | byte(v)
		time.Sleep(b.half)

		if err := b.sclk.SetValue(0); err != nil {
			return 0, err
		}
	}
	return rx, nil
}

// Close parks the bus in the quiescent pattern and unexports every
// line.
func (b *gpioBus) Close() error {
	_ = b.DriveSelect(byte(ModeNone))

	var last error
	for _, l := range append(b.outputs(), b.miso) {
		if err := l.Unexport(); err != nil {
			last = err
		}
	}
	return last
}
