// internal/power/power.go

// Package power holds the terminal's OS-level side effects. Both
// calls hand control to init and do not normally return.
package power

import (
	"log"
	"os/exec"
)

// Shutdown requests an ordered OS shutdown.
func Shutdown() {
	if err := exec.Command("shutdown", "-h", "now").Run(); err != nil {
		log.Printf("power: shutdown failed: %v", err)
	}
}

// Restart reboots the host. Used by the shield recovery escalation.
func Restart() {
	if err := exec.Command("reboot").Run(); err != nil {
		log.Printf("power: reboot failed: %v", err)
	}
}
