// internal/shield/indicators.go
package shield

import (
	"fmt"
	"log"
	"sync"

	"github.com/hrterm/periphd/internal/config"
)

// Indicators drives the status LEDs wired to board output pins. An
// indicator disabled in config accepts writes as no-ops so callers
// never branch on the wiring.
type Indicators struct {
	mu     sync.Mutex
	engine *Engine
	log    *log.Logger
	pins   map[string]config.IndicatorConfig
	levels map[string]int
}

func NewIndicators(engine *Engine, cfgs []config.IndicatorConfig, logger *log.Logger) *Indicators {
	ind := &Indicators{
		engine: engine,
		log:    logger,
		pins:   map[string]config.IndicatorConfig{},
		levels: map[string]int{},
	}
	if ind.log == nil {
		ind.log = log.Default()
	}
	for _, c := range cfgs {
		ind.pins[c.Name] = c
	}
	return ind
}

// Set drives the named indicator HIGH (1) or LOW (0).
func (i *Indicators) Set(name string, level int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	cfg, ok := i.pins[name]
	if !ok {
		return fmt.Errorf("shield: unknown indicator %q", name)
	}
	if !cfg.Enabled {
		i.levels[name] = level
		return nil
	}

	if err := i.engine.WritePinByName(cfg.Pin, fmt.Sprintf("%d", level)); err != nil {
		return err
	}
	i.levels[name] = level
	i.log.Printf("indicator %s -> %d", name, level)
	return nil
}

// Level reports the last level written to the named indicator.
func (i *Indicators) Level(name string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.levels[name]
}
