// internal/shield/modes.go
package shield

import "fmt"

// Mode is the expansion-board bus state selected by the 7 mode-select
// lines (GEN0..GEN6, low bit first). Each value IS the 7-bit line
// pattern; these are board-locked and MUST NOT be configurable.
type Mode byte

const (
	// ModeInitAllLow drives every select line LOW. Bring-up only.
	ModeInitAllLow Mode = 0x00

	// ModeNone is the quiescent state: no SPI traffic reaches any
	// board register.
	ModeNone Mode = 0x70

	// ModeInternalReg exposes the per-port mode register.
	ModeInternalReg Mode = 0x78

	// ModeOutputReg1 exposes digital output register 1 (pins 1-16).
	ModeOutputReg1 Mode = 0x79

	// ModeOutputReg2 exposes digital output register 2 (pins 17-20).
	ModeOutputReg2 Mode = 0x7A

	// ModeInputReg exposes the digital input register.
	ModeInputReg Mode = 0x7B

	// ModeRTC exposes the real-time-clock path.
	ModeRTC Mode = 0x7D

	// ModeDAC exposes the digital-to-analog converter.
	ModeDAC Mode = 0x7E

	// ModeADC exposes the analog-to-digital converter.
	ModeADC Mode = 0x7F
)

func (m Mode) String() string {
	switch m {
	case ModeInitAllLow:
		return "INIT_ALL_LOW"
	case ModeNone:
		return "NONE"
	case ModeInternalReg:
		return "INTERNAL_REG"
	case ModeOutputReg1:
		return "OUTPUT_REG_1"
	case ModeOutputReg2:
		return "OUTPUT_REG_2"
	case ModeInputReg:
		return "INPUT_REG"
	case ModeRTC:
		return "RTC"
	case ModeDAC:
		return "DAC"
	case ModeADC:
		return "ADC"
	}
	return fmt.Sprintf("Mode(%#02x)", byte(m))
}

// PortMode is the operating mode of one digital port (CN11..CN20).
type PortMode int

const (
	DIO PortMode = iota // digital I/O
	SPI                 // serial peripheral interface, ports 1-8 only
	SIO                 // serial I/O, port 10 only
)

func (m PortMode) String() string {
	switch m {
	case DIO:
		return "DIO"
	case SPI:
		return "SPI"
	case SIO:
		return "SIO"
	}
	return fmt.Sprintf("PortMode(%d)", int(m))
}

// portName renders a digital port number (1..10) as its connector
// label, ex. 2 -> CN12.
func portName(port int) string {
	return fmt.Sprintf("CN%d", port+10)
}

// pinName renders a digital output pin number (1..20) as its
// connector label, ex. 4 -> CN12_4.
func pinName(pin int) string {
	port := (pin-1)/2 + 11
	suffix := 2
	if pin%2 == 0 {
		suffix = 4
	}
	return fmt.Sprintf("CN%d_%d", port, suffix)
}
