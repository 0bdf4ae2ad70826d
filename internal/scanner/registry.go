// internal/scanner/registry.go
package scanner

import (
	"log"
	"sync"
)

// Mode is the scan workflow the next finalized barcode belongs to.
// Values are wire-visible to the command dispatcher and MUST NOT be
// renumbered.
type Mode int

const (
	ModeNone       Mode = 0  // no workflow armed, scans are dropped
	ModeCheckIn    Mode = 1  // employee check-in
	ModeCheckOut   Mode = 2  // employee check-out
	ModeBreak      Mode = 3
	ModeOut        Mode = 4
	ModeConfig     Mode = 5  // admin configuration
	ModeTest       Mode = 6  // scanner function test, self-unlocking
	ModeFood       Mode = 10 // food selection
	ModeBreakBegin Mode = 31
	ModeBreakEnd   Mode = 32
	ModeOutStart   Mode = 41
	ModeOutEnd     Mode = 42
)

// Registry holds the process-wide scan mode and lock. The decoder
// thread reads both on every frame while request handlers mutate
// them, so every access goes through the mutex.
type Registry struct {
	mu     sync.Mutex
	mode   Mode
	locked bool
	log    *log.Logger
}

func NewRegistry(lg *log.Logger) *Registry {
	return &Registry{log: lg}
}

func (r *Registry) SetMode(m Mode) {
	r.mu.Lock()
	r.mode = m
	r.mu.Unlock()
}

func (r *Registry) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Lock stops the decoder from accepting input until downstream
// processing of the current identity releases it.
func (r *Registry) Lock() {
	r.log.Printf("lock scanner")
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

func (r *Registry) Unlock() {
	r.log.Printf("unlock scanner")
	r.mu.Lock()
	r.locked = false
	r.mu.Unlock()
}

func (r *Registry) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}
