// internal/shield/engine.go
package shield

import (
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/hrterm/periphd/internal/config"
	"github.com/hrterm/periphd/internal/power"
)

const (
	maxSamplingRetries = 3
	maxRebootRetries   = 3

	// RebootCountKey is the durable escalation counter. It lives in
	// the external store so the bound holds across reboots.
	RebootCountKey = "shield.rebootcount"

	adcMaximum    = 4095
	maxMillivolts = 2230

	// dacScale converts millivolts to DAC counts: 4095/2230.
	dacScale = 1.8363228

	defaultGpioSettle = 500 * time.Microsecond
)

// adcConversion holds the per-channel conversion command bytes of the
// ADC chip.
var adcConversion = [8]byte{0x86, 0x8E, 0x96, 0x9E, 0xA6, 0xAE, 0xB6, 0xBE}

// Engine owns the expansion board: the in-memory register mirrors,
// the mode-select bus and the verify/retry/reboot recovery protocol.
//
// The mirrors and the physical bus are one global resource. Every
// operation holds the engine mutex across its whole
// select->transfer->verify sequence; an interleaved mode switch from
// another caller would corrupt the in-flight transfer.
type Engine struct {
	mu    sync.Mutex
	bus   Bus
	store config.Store
	log   *log.Logger

	spiSettle  time.Duration
	gpioSettle time.Duration

	// Mirrors always equal the last successfully transferred value.
	// internalReg powers up all-ones (every port DIO on the board).
	internalReg [2]byte
	outputReg1  [2]byte
	outputReg2  [2]byte

	// Terminal-path hooks. Production restarts or exits the process;
	// tests record the call.
	restart func()
	exit    func(code int)
}

type EngineConfig struct {
	Bus   Bus
	Store config.Store
	Log   *log.Logger

	SpiSettle  time.Duration
	GpioSettle time.Duration

	Restart func()
	Exit    func(code int)
}

func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		bus:         cfg.Bus,
		store:       cfg.Store,
		log:         cfg.Log,
		spiSettle:   cfg.SpiSettle,
		gpioSettle:  cfg.GpioSettle,
		internalReg: [2]byte{0xFF, 0xFF},
		restart:     cfg.Restart,
		exit:        cfg.Exit,
	}
	if e.log == nil {
		e.log = log.Default()
	}
	if e.gpioSettle == 0 {
		e.gpioSettle = defaultGpioSettle
	}
	if e.restart == nil {
		e.restart = power.Restart
	}
	if e.exit == nil {
		e.exit = os.Exit
	}
	return e
}

// Init brings the board up: all select lines LOW, then the ADC
// reachability check that gates the rest of startup, then quiescent.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.setMode(ModeInitAllLow); err != nil {
		return err
	}
	if err := e.setMode(ModeADC); err != nil {
		return err
	}
	e.verifyAndFix(ModeADC)
	return e.setMode(ModeNone)
}

// Close quiesces the bus and releases the lines.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bus.Close()
}

// setMode drives the select pattern and waits the line settle delay.
func (e *Engine) setMode(m Mode) error {
	if err := e.bus.DriveSelect(byte(m)); err != nil {
		return err
	}
	time.Sleep(e.gpioSettle)
	return nil
}

// verifyAndFix confirms the board latched the wanted mode. Up to 3
// read-back samples; a persistent mismatch escalates to a host
// reboot, bounded by the durable counter: once the bound is exceeded
// the counter resets and the process terminates instead, breaking
// what would otherwise be an infinite reboot loop. Neither terminal
// path returns in production.
func (e *Engine) verifyAndFix(m Mode) {
	for sample := 1; sample <= maxSamplingRetries; sample++ {
		got, err := e.bus.ReadSelect()
		if err == nil && Mode(got) == m {
			return
		}
		e.log.Printf("select read-back mismatch, sample %d", sample)
	}

	count, err := e.store.GetInt(RebootCountKey)
	if err != nil {
		e.log.Printf("reboot counter read failed: %v", err)
	}
	count++

	if count <= maxRebootRetries {
		if err := e.store.SetInt(RebootCountKey, count); err != nil {
			e.log.Printf("reboot counter persist failed: %v", err)
		}
		e.log.Printf("failed to switch shield mode [%s]: reboot %d/%d",
			m, count, maxRebootRetries)
		e.restart()
		e.exit(1)
		return
	}

	if err := e.store.SetInt(RebootCountKey, 0); err != nil {
		e.log.Printf("reboot counter reset failed: %v", err)
	}
	e.log.Printf("cannot fix select bus by rebooting %d times", maxRebootRetries)
	if err := e.bus.Close(); err != nil {
		e.log.Printf("bus release failed: %v", err)
	}
	e.exit(1)
}

// quiesce forces the bus back to NONE, verified. Used on caller-input
// errors so a rejected call leaves the hardware in a safe state.
func (e *Engine) quiesce() {
	if err := e.setMode(ModeNone); err != nil {
		e.log.Printf("quiesce failed: %v", err)
		return
	}
	e.verifyAndFix(ModeNone)
}

// PinMode sets the operating mode of one digital port (1..10).
// SPI is valid on ports 1-8 only; SIO only on port 10. The bus is
// left in INTERNAL_REG on success; callers wanting NONE switch back
// themselves (legacy asymmetry with DigitalWrite, kept).
func (e *Engine) PinMode(port int, mode PortMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if port < 1 || port > 10 {
		e.quiesce()
		return fmt.Errorf("shield: port must be 1..10, got %d", port)
	}

	switch mode {
	case DIO:
		if port < 9 {
			e.internalReg[1] &^= 1 << (port - 1)
		} else {
			e.internalReg[0] &^= 1 << (port - 9)
		}
	case SPI:
		if port >= 9 {
			e.log.Printf("cannot use SPI on port %s", portName(port))
			e.quiesce()
			return fmt.Errorf("shield: SPI not available on port %d", port)
		}
		e.internalReg[1] |= 1 << (port - 1)
	case SIO:
		if port != 10 {
			e.log.Printf("cannot use SIO on port %s", portName(port))
			e.quiesce()
			return fmt.Errorf("shield: SIO not available on port %d", port)
		}
		e.internalReg[0] |= 1 << (port - 9)
	default:
		e.quiesce()
		return fmt.Errorf("shield: unknown port mode %d", mode)
	}

	if err := e.setMode(ModeInternalReg); err != nil {
		return err
	}
	if err := e.bus.Write(e.internalReg[:]); err != nil {
		return err
	}
	time.Sleep(e.spiSettle)

	e.log.Printf("set port[%s] mode[%s]: %08b %08b",
		portName(port), mode, e.internalReg[0], e.internalReg[1])
	return nil
}

// DigitalWrite latches one output pin (1..20) HIGH or LOW. The whole
// affected register mirror is recomputed and transferred, then the
// bus returns to NONE, verified.
func (e *Engine) DigitalWrite(pin, value int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		reg  *[2]byte
		mode Mode
	)
	switch {
	case pin >= 1 && pin <= 8:
		setBit(&e.outputReg1[1], uint(pin-1), value)
		reg, mode = &e.outputReg1, ModeOutputReg1
	case pin >= 9 && pin <= 16:
		setBit(&e.outputReg1[0], uint(pin-9), value)
		reg, mode = &e.outputReg1, ModeOutputReg1
	case pin >= 17 && pin <= 20:
		setBit(&e.outputReg2[1], uint(pin-17), value)
		reg, mode = &e.outputReg2, ModeOutputReg2
	default:
		e.log.Printf("pin number shall be in range 1 to 20, current: %d", pin)
		e.quiesce()
		return fmt.Errorf("shield: pin must be 1..20, got %d", pin)
	}

	if err := e.setMode(mode); err != nil {
		return err
	}
	if err := e.bus.Write(reg[:]); err != nil {
		return err
	}
	time.Sleep(e.spiSettle)

	e.log.Printf("set pin[%s] %s: %08b %08b",
		pinName(pin), mode, reg[0], reg[1])

	if err := e.setMode(ModeNone); err != nil {
		return err
	}
	e.verifyAndFix(ModeNone)
	return nil
}

// DigitalRead samples one input port (1..10) from the input register.
// The input register is physically distinct from the output
// registers; a pin written HIGH does not read back here.
func (e *Engine) DigitalRead(pin int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pin < 1 || pin > 10 {
		e.quiesce()
		return 0, fmt.Errorf("shield: input pin must be 1..10, got %d", pin)
	}

	var in [2]byte
	if err := e.setMode(ModeInputReg); err != nil {
		return 0, err
	}
	if err := e.bus.Exchange(in[:]); err != nil {
		return 0, err
	}
	time.Sleep(e.spiSettle)

	if err := e.setMode(ModeNone); err != nil {
		return 0, err
	}
	e.verifyAndFix(ModeNone)

	if pin <= 8 {
		return getBit(in[1], uint(pin)), nil
	}
	return getBit(in[0], uint(pin-8)), nil
}

// AnalogRead converts one ADC channel (0..7) and returns the 12-bit
// result. A response above 12 bits is a known chip glitch; the high
// byte is re-masked to its low nibble instead of failing the read.
func (e *Engine) AnalogRead(channel int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if channel < 0 || channel > 7 {
		e.log.Printf("analog port assignment is out of range: %d", channel)
		return 0, fmt.Errorf("shield: analog channel must be 0..7, got %d", channel)
	}

	if err := e.setMode(ModeADC); err != nil {
		return 0, err
	}
	if err := e.bus.Write([]byte{adcConversion[channel]}); err != nil {
		return 0, err
	}
	time.Sleep(e.spiSettle)

	var rbuf [2]byte
	if err := e.bus.Exchange(rbuf[:]); err != nil {
		return 0, err
	}
	time.Sleep(e.spiSettle)

	result := int(rbuf[0])<<8 + int(rbuf[1])
	if result > adcMaximum {
		e.log.Printf("analog %d: %4d masked to 12 bit", channel+1, result)
		result = int(rbuf[0]&0x0F)<<8 + int(rbuf[1])
	} else {
		e.log.Printf("analog %d: %02X %02X -> %4d %4dmV",
			channel+1, rbuf[0], rbuf[1], result, result*2500/4096)
	}

	if err := e.setMode(ModeNone); err != nil {
		return 0, err
	}
	e.verifyAndFix(ModeNone)
	return result, nil
}

// AnalogWrite outputs a voltage on one DAC address (0 or 1).
// Out-of-range inputs clamp with a warning rather than reject; the
// DAC chip wants a wake command, its address command and a dummy read
// before the 3-byte data frame.
func (e *Engine) AnalogWrite(address, millivolts int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if millivolts > maxMillivolts {
		e.log.Printf("the maximum analog voltage output is %dmV", maxMillivolts)
		millivolts = maxMillivolts
	}
	if millivolts < 0 {
		millivolts = 0
	}
	if address > 1 {
		e.log.Printf("the maximum DAC address is 1")
		address = 1
	}
	if address < 0 {
		address = 0
	}

	dac := float64(millivolts) * dacScale
	frame := [3]byte{
		0x30 + byte(address),
		byte(dac / 16),
		byte(int(math.Floor(dac+0.5))%16) << 4,
	}

	if err := e.setMode(ModeADC); err != nil {
		return err
	}
	if err := e.bus.Write([]byte{0x68}); err != nil {
		return err
	}
	time.Sleep(e.spiSettle)
	if err := e.bus.Write([]byte{0x86}); err != nil {
		return err
	}
	time.Sleep(e.spiSettle)
	var dummy [2]byte
	if err := e.bus.Exchange(dummy[:]); err != nil {
		return err
	}
	time.Sleep(e.spiSettle)

	if err := e.setMode(ModeDAC); err != nil {
		return err
	}
	if err := e.bus.Write(frame[:]); err != nil {
		return err
	}
	time.Sleep(e.spiSettle)

	vout := "A"
	if address == 1 {
		vout = "B"
	}
	e.log.Printf("output %4dmV on VOUT_%s", millivolts, vout)

	if err := e.setMode(ModeNone); err != nil {
		return err
	}
	e.verifyAndFix(ModeNone)
	return nil
}

func setBit(b *byte, n uint, value int) {
	if value != 0 {
		*b |= 1 << n
	} else {
		*b &^= 1 << n
	}
}

// getBit extracts bit n (1-based) of b.
func getBit(b byte, n uint) int {
	return int(b>>(n-1)) & 1
}
