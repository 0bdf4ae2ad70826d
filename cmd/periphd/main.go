// cmd/periphd/main.go
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/hrterm/periphd/internal/config"
	"github.com/hrterm/periphd/internal/gpio"
	"github.com/hrterm/periphd/internal/notify"
	"github.com/hrterm/periphd/internal/power"
	"github.com/hrterm/periphd/internal/scanner"
	"github.com/hrterm/periphd/internal/shield"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: periphd <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	p := cfg.Periph
	ctx := context.Background()

	// --------------------
	// Durable state + event sinks
	// --------------------

	store := config.NewFileStore(p.StateFile)

	commandSink := dispatcher(p.Dispatcher.CommandEndpoint, p.Dispatcher.TimeoutMs)
	errorSink := dispatcher(p.Dispatcher.ErrorEndpoint, p.Dispatcher.TimeoutMs)

	// --------------------
	// Shield bring-up
	// --------------------

	bus, err := shield.NewBus(shield.BusConfig{
		SysfsRoot:  p.Gpio.SysfsRoot,
		SelectPins: p.Shield.SelectPins,
		SclkPin:    p.Shield.SclkPin,
		MosiPin:    p.Shield.MosiPin,
		MisoPin:    p.Shield.MisoPin,
		ClockHz:    p.Shield.SpiHz,
	})
	if err != nil {
		log.Fatalf("shield bus failed: %v", err)
	}
	defer bus.Close()

	engine := shield.NewEngine(shield.EngineConfig{
		Bus:        bus,
		Store:      store,
		Log:        log.New(os.Stderr, "shield: ", log.LstdFlags),
		SpiSettle:  time.Duration(p.Shield.SpiDelayUs) * time.Microsecond,
		GpioSettle: time.Duration(p.Shield.GpioDelayUs) * time.Microsecond,
	})
	if err := engine.Init(); err != nil {
		log.Fatalf("shield init failed: %v", err)
	}

	indicators := shield.NewIndicators(engine, p.Shield.Indicators,
		log.New(os.Stderr, "shield: ", log.LstdFlags))
	for _, ind := range p.Shield.Indicators {
		// The OS indicator announces that the peripheral layer is up.
		if ind.Name == "os" {
			if err := indicators.Set("os", 1); err != nil {
				log.Printf("os indicator failed: %v", err)
			}
		}
	}

	// --------------------
	// Shutdown switch trap
	// --------------------

	var switchLine *gpio.Line
	if p.Gpio.ShutdownSwitch != nil {
		switchLine = gpio.NewLine(p.Gpio.SysfsRoot, *p.Gpio.ShutdownSwitch)
	}
	trap := gpio.NewShutdownTrap(switchLine, power.Shutdown,
		log.New(os.Stderr, "gpio: ", log.LstdFlags))
	go func() {
		if err := trap.Run(ctx); err != nil {
			log.Printf("shutdown trap failed: %v", err)
		}
	}()

	// --------------------
	// Barcode scanner pipeline
	// --------------------

	scanLog := log.New(os.Stderr, "scanner: ", log.LstdFlags)
	registry := scanner.NewRegistry(scanLog)
	decoder := scanner.NewDecoder(registry, commandSink, scanLog)
	monitor := scanner.NewMonitor(p.Scanner, decoder, errorSink, scanLog)

	if err := monitor.Run(ctx); err != nil {
		log.Fatalf("scanner monitor failed: %v", err)
	}
}

// dispatcher builds an endpoint client, or a discarding sink when the
// endpoint is not configured.
func dispatcher(endpoint string, timeoutMs int) notify.Dispatcher {
	if endpoint == "" {
		return notify.Discard{}
	}
	client, err := notify.NewEndpointClient(notify.Config{
		Endpoint: endpoint,
		Timeout:  time.Duration(timeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("dispatcher client failed: %v", err)
	}
	return client
}
