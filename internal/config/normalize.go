// internal/config/normalize.go
package config

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	p := &cfg.Periph

	if p.Scanner.HidrawRoot == "" {
		p.Scanner.HidrawRoot = "/sys/class/hidraw"
	}
	if p.Scanner.DevRoot == "" {
		p.Scanner.DevRoot = "/dev"
	}

	if p.Gpio.SysfsRoot == "" {
		p.Gpio.SysfsRoot = "/sys/class/gpio"
	}

	// Settle defaults match the board bring-up values.
	if p.Shield.GpioDelayUs == 0 {
		p.Shield.GpioDelayUs = 500
	}
	if p.Shield.SpiHz == 0 {
		p.Shield.SpiHz = 100_000
	}

	if p.Dispatcher.TimeoutMs == 0 {
		p.Dispatcher.TimeoutMs = 2000
	}

	if p.StateFile == "" {
		p.StateFile = "/var/lib/periphd/state.json"
	}
}
