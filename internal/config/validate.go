// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	p := &cfg.Periph

	// ------------------------------------------------------------
	// SCANNER
	// ------------------------------------------------------------

	if strings.TrimSpace(p.Scanner.VendorID) == "" {
		return fmt.Errorf("scanner: vendor_id required")
	}
	if strings.TrimSpace(p.Scanner.ProductID) == "" {
		return fmt.Errorf("scanner: product_id required")
	}

	// ------------------------------------------------------------
	// GPIO
	// ------------------------------------------------------------

	if p.Gpio.ShutdownSwitch != nil && *p.Gpio.ShutdownSwitch < 0 {
		return fmt.Errorf(
			"gpio: shutdown_switch must be a non-negative pin number, got %d",
			*p.Gpio.ShutdownSwitch,
		)
	}

	// ------------------------------------------------------------
	// SHIELD
	// ------------------------------------------------------------

	if len(p.Shield.SelectPins) != 0 && len(p.Shield.SelectPins) != 7 {
		return fmt.Errorf(
			"shield: select_pins needs exactly 7 lines (GEN0..GEN6), got %d",
			len(p.Shield.SelectPins),
		)
	}

	seen := make(map[int]int)
	for i, pin := range p.Shield.SelectPins {
		if pin < 0 {
			return fmt.Errorf("shield: select_pins[%d] is negative", i)
		}
		if prev, dup := seen[pin]; dup {
			return fmt.Errorf(
				"shield: pin %d used by both select_pins[%d] and select_pins[%d]",
				pin, prev, i,
			)
		}
		seen[pin] = i
	}

	if p.Shield.SpiDelayUs < 0 {
		return fmt.Errorf("shield: spi_delay_us must be >= 0")
	}
	if p.Shield.GpioDelayUs < 0 {
		return fmt.Errorf("shield: gpio_delay_us must be >= 0")
	}
	if p.Shield.SpiHz < 0 {
		return fmt.Errorf("shield: spi_hz must be >= 0")
	}

	indicatorNames := make(map[string]bool)
	for _, ind := range p.Shield.Indicators {
		name := strings.ToLower(strings.TrimSpace(ind.Name))
		switch name {
		case "os", "agent", "net":
		default:
			return fmt.Errorf("shield: unknown indicator %q", ind.Name)
		}
		if indicatorNames[name] {
			return fmt.Errorf("shield: indicator %q declared twice", name)
		}
		indicatorNames[name] = true

		if ind.Enabled && !strings.HasPrefix(ind.Pin, "shield.cn") {
			return fmt.Errorf(
				"shield: indicator %q pin must be a shield.cnXX.Y parameter, got %q",
				name, ind.Pin,
			)
		}
	}

	return nil
}
