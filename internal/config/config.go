// internal/config/config.go
package config

type Config struct {
	Periph PeriphConfig `yaml:"periph"`
}

type PeriphConfig struct {
	Scanner    ScannerConfig    `yaml:"scanner"`
	Gpio       GpioConfig       `yaml:"gpio"`
	Shield     ShieldConfig     `yaml:"shield"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`

	// StateFile holds durable runtime parameters (reboot counter).
	StateFile string `yaml:"state_file"`
}

// ---- SCANNER ----

// VendorID and ProductID are matched by case-insensitive substring
// containment against the sysfs idVendor/idProduct attributes, NOT by
// exact equality. This mirrors the legacy terminal and is kept on
// purpose; it may exist to cover multiple device revisions.
type ScannerConfig struct {
	VendorID  string `yaml:"vendor_id"`
	ProductID string `yaml:"product_id"`

	// HidrawRoot and DevRoot default to /sys/class/hidraw and /dev.
	HidrawRoot string `yaml:"hidraw_root"`
	DevRoot    string `yaml:"dev_root"`
}

// ---- GPIO ----

type GpioConfig struct {
	// SysfsRoot defaults to /sys/class/gpio.
	SysfsRoot string `yaml:"sysfs_root"`

	// ShutdownSwitch is the pin number of the hardware shutdown
	// switch. nil means no switch is fitted and the trap is a no-op.
	ShutdownSwitch *int `yaml:"shutdown_switch"`
}

// ---- SHIELD ----

type ShieldConfig struct {
	// SelectPins are the mode-select bus lines GEN0..GEN6, low bit
	// first. Exactly 7 entries.
	SelectPins []int `yaml:"select_pins"`

	// Bit-banged SPI lines.
	SclkPin int `yaml:"sclk_pin"`
	MosiPin int `yaml:"mosi_pin"`
	MisoPin int `yaml:"miso_pin"`

	// SpiDelayUs is the settle delay between transfers. GpioDelayUs
	// is the settle after driving the select lines.
	SpiDelayUs  int `yaml:"spi_delay_us"`
	GpioDelayUs int `yaml:"gpio_delay_us"`

	// SpiHz is the bit-bang clock rate.
	SpiHz int `yaml:"spi_hz"`

	Indicators []IndicatorConfig `yaml:"indicators"`
}

// IndicatorConfig binds a named status LED to a shield output pin
// parameter, ex. name=os pin=shield.cn11.2.
type IndicatorConfig struct {
	Name    string `yaml:"name"`
	Pin     string `yaml:"pin"`
	Enabled bool   `yaml:"enabled"`
}

// ---- DISPATCHER ----

type DispatcherConfig struct {
	// CommandEndpoint receives scan events, ErrorEndpoint receives
	// error notifications. Both are UDP host:port.
	CommandEndpoint string `yaml:"command_endpoint"`
	ErrorEndpoint   string `yaml:"error_endpoint"`
	TimeoutMs       int    `yaml:"timeout_ms"`
}
