// internal/gpio/trap.go
package gpio

import (
	"context"
	"log"
	"time"

	"golang.org/x/sys/unix"
)

// ShutdownTrap blocks on the shutdown switch line and requests an
// ordered OS shutdown when the line is pulled LOW.
type ShutdownTrap struct {
	line     *Line
	shutdown func()
	log      *log.Logger
}

// NewShutdownTrap wires the trap to a line and a shutdown action. A
// nil line means the switch is not fitted; Run then returns at once.
func NewShutdownTrap(line *Line, shutdown func(), lg *log.Logger) *ShutdownTrap {
	return &ShutdownTrap{line: line, shutdown: shutdown, log: lg}
}

// arm exports the line and enables both-edge interrupt reporting.
// The line is configured as an output driven HIGH first; the switch
// shorts it to ground. Reading back a line driven as an output is a
// platform quirk the board relies on (see the matching trick in the
// shield select bus).
func (t *ShutdownTrap) arm() error {
	if err := t.line.Export(); err != nil {
		return err
	}
	if err := t.line.SetDirection(Out); err != nil {
		return err
	}
	if err := t.line.SetValue(1); err != nil {
		return err
	}
	return t.line.SetEdge(EdgeBoth)
}

// Run services the switch until ctx is cancelled. The inner edge wait
// has no timeout by design: a wake is either a genuine shutdown
// (terminal) or spurious and ignored.
func (t *ShutdownTrap) Run(ctx context.Context) error {
	if t.line == nil {
		t.log.Printf("no shutdown switch configured")
		return nil
	}

	t.log.Printf("shutdown switch on GPIO %d", t.line.Pin())
	if err := t.arm(); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		f, err := t.line.OpenValue()
		if err != nil {
			t.log.Printf("open failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// A newly opened edge file is always reported as changed.
		// This discard read arms real edge detection.
		buf := make([]byte, 64)
		_, _ = f.Read(buf)

		fd := int(f.Fd())
		woke, err := waitExcept(fd)
		if err != nil {
			t.log.Printf("edge wait failed: %v", err)
			f.Close()
			continue
		}

		if woke {
			v, err := t.line.Value()
			if err == nil && v == 0 {
				t.log.Printf("shutdown signal on GPIO %d", t.line.Pin())
				f.Close()
				t.shutdown()
				return nil
			}
			// Any other level is a spurious wake; rearm.
		}
		f.Close()
	}
}

// waitExcept blocks until fd reports an exceptional condition.
func waitExcept(fd int) (bool, error) {
	for {
		var efds unix.FdSet
		efds.Zero()
		efds.Set(fd)

		n, err := unix.Select(fd+1, nil, nil, &efds, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && efds.IsSet(fd), nil
	}
}
