// internal/shield/rpc.go
package shield

import (
	"fmt"
	"strconv"
	"strings"
)

// Name-based access to the board, for callers addressing hardware by
// connector label instead of raw numbers: ports are "shield.cn11"
// through "shield.cn20", pins add a parameter suffix, ex.
// "shield.cn12.4".

const portPrefix = "shield.cn"

// parsePort maps "shield.cn11".."shield.cn20" to port 1..10.
func parsePort(name string) (int, error) {
	if !strings.HasPrefix(name, portPrefix) {
		return 0, fmt.Errorf("shield: unknown port name %q", name)
	}
	n, err := strconv.Atoi(name[len(portPrefix):])
	if err != nil || n < 11 || n > 20 {
		return 0, fmt.Errorf("shield: unknown port name %q", name)
	}
	return n - 10, nil
}

// parsePin maps "shield.cnPP.S" to an output pin 1..20, where PP is
// the connector and S the parameter (2 or 4).
func parsePin(name string) (int, error) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= len(portPrefix) {
		return 0, fmt.Errorf("shield: unknown pin name %q", name)
	}
	port, err := parsePort(name[:dot])
	if err != nil {
		return 0, err
	}
	switch name[dot+1:] {
	case "2":
		return (port-1)*2 + 1, nil
	case "4":
		return (port-1)*2 + 2, nil
	}
	return 0, fmt.Errorf("shield: unknown pin parameter in %q", name)
}

// ChangeModeByName switches a named port to "dio", "spi" or "sio".
func (e *Engine) ChangeModeByName(name, mode string) error {
	port, err := parsePort(name)
	if err != nil {
		return err
	}

	var pm PortMode
	switch strings.ToLower(mode) {
	case "dio":
		pm = DIO
	case "spi":
		pm = SPI
	case "sio":
		pm = SIO
	default:
		return fmt.Errorf("shield: unknown port mode %q", mode)
	}
	return e.PinMode(port, pm)
}

// WritePinByName drives a named output pin to "0" or "1". The port is
// forced to DIO first so a stale SPI/SIO assignment cannot swallow
// the write.
func (e *Engine) WritePinByName(name, value string) error {
	pin, err := parsePin(name)
	if err != nil {
		return err
	}

	var level int
	switch value {
	case "0":
		level = 0
	case "1":
		level = 1
	default:
		return fmt.Errorf("shield: pin value must be 0 or 1, got %q", value)
	}

	if err := e.PinMode((pin-1)/2+1, DIO); err != nil {
		return err
	}
	return e.DigitalWrite(pin, level)
}

// ReadPortByName samples a named input port, forcing DIO first.
func (e *Engine) ReadPortByName(name string) (int, error) {
	port, err := parsePort(name)
	if err != nil {
		return 0, err
	}
	if err := e.PinMode(port, DIO); err != nil {
		return 0, err
	}
	return e.DigitalRead(port)
}
