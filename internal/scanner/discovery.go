// internal/scanner/discovery.go
package scanner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"

	"github.com/hrterm/periphd/internal/config"
	"github.com/hrterm/periphd/internal/notify"
)

const (
	// rescanBackoff paces the enumeration loop while no scanner is
	// plugged in. The loop has no retry bound; it blocks until
	// hardware shows up.
	rescanBackoff = 2 * time.Second

	// watchTimeout is a liveness heartbeat for the device/hotplug
	// wait. Expiry takes no action.
	watchTimeout = 30 * time.Second
)

// Monitor owns the scanner discovery cycle: enumerate hidraw nodes,
// match VID/PID, feed frames to the decoder, and restart from scratch
// on any hotplug topology change.
type Monitor struct {
	cfg     config.ScannerConfig
	decoder *Decoder
	errSink notify.Dispatcher
	log     *log.Logger
}

func NewMonitor(cfg config.ScannerConfig, decoder *Decoder, errSink notify.Dispatcher, lg *log.Logger) *Monitor {
	return &Monitor{
		cfg:     cfg,
		decoder: decoder,
		errSink: errSink,
		log:     lg,
	}
}

// Run services the scanner until ctx is cancelled. Failure to open
// the hotplug socket is unrecoverable and returned to the caller; all
// other I/O failures are absorbed by the reload loop.
func (m *Monitor) Run(ctx context.Context) error {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("scanner: create udev monitor: %w", err)
	}
	defer conn.Close()

	for ctx.Err() == nil {
		node := m.resolve(ctx)
		if node == "" {
			return nil
		}

		dev, err := os.Open(node)
		if err != nil {
			m.log.Printf("open %s failed: %v", node, err)
			if !sleepCtx(ctx, rescanBackoff) {
				return nil
			}
			continue
		}

		m.log.Printf("scanner device: %s", node)
		m.watch(ctx, dev, conn)

		// Reload drops the handle and any in-flight decode state.
		dev.Close()
	}
	return nil
}

// resolve blocks until an attached hidraw node matches the configured
// VID/PID. Returns "" only on ctx cancellation.
func (m *Monitor) resolve(ctx context.Context) string {
	for {
		if node, found := m.enumerate(); found {
			return node
		}
		if !sleepCtx(ctx, rescanBackoff) {
			return ""
		}
	}
}

// enumerate runs one pass over the hidraw class entries. Every
// candidate that fails the match is reported to the error sink.
func (m *Monitor) enumerate() (string, bool) {
	entries, err := filepath.Glob(filepath.Join(m.cfg.HidrawRoot, "hidraw*"))
	if err != nil {
		m.log.Printf("enumerate failed: %v", err)
		return "", false
	}

	for _, entry := range entries {
		vendor, product, err := usbIdentity(entry)
		if err != nil {
			m.log.Printf("no usb parent for %s: %v", entry, err)
			continue
		}

		if containsFold(m.cfg.VendorID, vendor) && containsFold(m.cfg.ProductID, product) {
			node := filepath.Join(m.cfg.DevRoot, filepath.Base(entry))
			m.log.Printf("matched %s (vid=%s pid=%s)", node, vendor, product)
			return node, true
		}

		if err := m.errSink.Send(notify.EventScannerMismatch); err != nil {
			m.log.Printf("error notify failed: %v", err)
		}
	}
	return "", false
}

// watch multiplexes the device and the hotplug socket. It returns
// when the topology changed (caller restarts discovery) or ctx is
// cancelled.
func (m *Monitor) watch(ctx context.Context, dev *os.File, conn *netlink.UEventConn) {
	devFd := int(dev.Fd())
	monFd := conn.Fd
	frame := make([]byte, 4)

	for ctx.Err() == nil {
		var rfds unix.FdSet
		rfds.Zero()
		rfds.Set(devFd)
		rfds.Set(monFd)

		nfds := devFd
		if monFd > nfds {
			nfds = monFd
		}

		tv := unix.NsecToTimeval(int64(watchTimeout))
		n, err := unix.Select(nfds+1, &rfds, nil, nil, &tv)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			m.log.Printf("select failed: %v", err)
			return
		}
		if n == 0 {
			// Heartbeat expiry, nothing to do.
			continue
		}

		if rfds.IsSet(devFd) {
			nr, err := dev.Read(frame)
			if err == nil && nr == len(frame) {
				m.decoder.HandleFrame(frame)
			}
			// Short or failed reads are skipped, not fatal.
		}

		if rfds.IsSet(monFd) {
			msg, err := conn.ReadMsg()
			if err != nil {
				m.log.Printf("udev read failed: %v", err)
				continue
			}
			evt, err := netlink.ParseUEvent(msg)
			if err != nil {
				continue
			}
			if evt.Env["SUBSYSTEM"] != "hidraw" {
				continue
			}

			action := strings.ToLower(string(evt.Action))
			m.log.Printf("usb message: %s", action)
			switch action {
			case "add", "remove", "change":
				return
			}
		}
	}
}

// usbIdentity resolves a hidraw class entry to its parent USB device
// and reads the idVendor/idProduct attributes.
func usbIdentity(classEntry string) (vendor, product string, err error) {
	dir, err := filepath.EvalSymlinks(classEntry)
	if err != nil {
		return "", "", err
	}

	for ; dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		v, errV := os.ReadFile(filepath.Join(dir, "idVendor"))
		p, errP := os.ReadFile(filepath.Join(dir, "idProduct"))
		if errV == nil && errP == nil {
			return strings.TrimSpace(string(v)), strings.TrimSpace(string(p)), nil
		}
	}
	return "", "", fmt.Errorf("no idVendor/idProduct above %s", classEntry)
}

// containsFold reports whether the configured value contains the
// sysfs attribute, ignoring case. The containment direction matches
// the legacy terminal and is intentionally not exact equality.
func containsFold(configured, attr string) bool {
	return strings.Contains(strings.ToLower(configured), strings.ToLower(attr))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
