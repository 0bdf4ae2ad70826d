// internal/gpio/line.go

// Package gpio drives pins through the Linux sysfs GPIO interface.
// Every control surface is a plain-text file write: export/unexport
// take the decimal pin number, direction takes "in"/"out", value
// takes "0"/"1" and edge takes rising/falling/both/none.
package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultSysfsRoot = "/sys/class/gpio"

type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

type Edge string

const (
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
	EdgeNone    Edge = "none"
)

// Line is one exported GPIO pin under a sysfs root. The root is a
// parameter so tests can point it at a temp tree.
type Line struct {
	root string
	pin  int
}

func NewLine(root string, pin int) *Line {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Line{root: root, pin: pin}
}

func (l *Line) Pin() int { return l.pin }

func (l *Line) Export() error {
	err := writeFile(filepath.Join(l.root, "export"), strconv.Itoa(l.pin))
	if err != nil && strings.Contains(err.Error(), "device or resource busy") {
		// Already exported, typically left over from a previous run.
		return nil
	}
	return err
}

func (l *Line) Unexport() error {
	return writeFile(filepath.Join(l.root, "unexport"), strconv.Itoa(l.pin))
}

func (l *Line) SetDirection(d Direction) error {
	return writeFile(l.ctl("direction"), string(d))
}

func (l *Line) SetEdge(e Edge) error {
	return writeFile(l.ctl("edge"), string(e))
}

func (l *Line) SetValue(v int) error {
	s := "0"
	if v != 0 {
		s = "1"
	}
	return writeFile(l.ctl("value"), s)
}

// Value reads the current logic level. Anything but '0' reads HIGH.
func (l *Line) Value() (int, error) {
	raw, err := os.ReadFile(l.ctl("value"))
	if err != nil {
		return 0, fmt.Errorf("gpio %d: read value: %w", l.pin, err)
	}
	if len(raw) == 0 || raw[0] == '0' {
		return 0, nil
	}
	return 1, nil
}

// OpenValue opens the value file for blocking edge waits. The caller
// owns the returned file.
func (l *Line) OpenValue() (*os.File, error) {
	f, err := os.Open(l.ctl("value"))
	if err != nil {
		return nil, fmt.Errorf("gpio %d: open value: %w", l.pin, err)
	}
	return f, nil
}

func (l *Line) ctl(name string) string {
	return filepath.Join(l.root, fmt.Sprintf("gpio%d", l.pin), name)
}

func writeFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("gpio: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("gpio: write %s: %w", path, err)
	}
	return nil
}
