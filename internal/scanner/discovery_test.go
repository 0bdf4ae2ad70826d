// internal/scanner/discovery_test.go
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hrterm/periphd/internal/config"
	"github.com/hrterm/periphd/internal/notify"
)

// fakeHidraw builds a sysfs-shaped tree: a class entry symlinked into
// a USB device chain carrying idVendor/idProduct.
type fakeHidraw struct {
	root      string
	classRoot string
	devRoot   string
}

func newFakeHidraw(t *testing.T) *fakeHidraw {
	t.Helper()
	root := t.TempDir()
	f := &fakeHidraw{
		classRoot: filepath.Join(root, "class", "hidraw"),
		devRoot:   filepath.Join(root, "dev"),
	}
	for _, dir := range []string{f.classRoot, f.devRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	f.root = root
	return f
}

func (f *fakeHidraw) add(t *testing.T, name, vendor, product string) {
	t.Helper()
	usbDev := filepath.Join(f.root, "devices", name+"-usb")
	deep := filepath.Join(usbDev, "1-1:1.0", "0003", "hidraw", name)
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(usbDev, "idVendor"), []byte(vendor+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(usbDev, "idProduct"), []byte(product+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(deep, filepath.Join(f.classRoot, name)); err != nil {
		t.Fatal(err)
	}
}

func (f *fakeHidraw) monitor(vid, pid string, sink notify.Dispatcher) *Monitor {
	cfg := config.ScannerConfig{
		VendorID:   vid,
		ProductID:  pid,
		HidrawRoot: f.classRoot,
		DevRoot:    f.devRoot,
	}
	return NewMonitor(cfg, nil, sink, quietLog())
}

func TestEnumerate_MatchResolvesDeviceNode(t *testing.T) {
	f := newFakeHidraw(t)
	f.add(t, "hidraw0", "0c2e", "0200")

	sink := &fakeDispatcher{}
	m := f.monitor("0c2e", "0200", sink)

	node, found := m.enumerate()
	if !found {
		t.Fatalf("expected a match")
	}
	if want := filepath.Join(f.devRoot, "hidraw0"); node != want {
		t.Fatalf("node=%q, want %q", node, want)
	}
	if len(sink.sent) != 0 {
		t.Fatalf("matching pass emitted errors: %v", sink.sent)
	}
}

func TestEnumerate_OneErrorPerNonMatchingCandidate(t *testing.T) {
	f := newFakeHidraw(t)
	f.add(t, "hidraw0", "046d", "c31c") // a keyboard, not the scanner
	f.add(t, "hidraw1", "1a2b", "3c4d")

	sink := &fakeDispatcher{}
	m := f.monitor("0c2e", "0200", sink)

	_, found := m.enumerate()
	if found {
		t.Fatalf("unexpected match")
	}
	if len(sink.sent) != 2 {
		t.Fatalf("expected 2 mismatch notifications, got %d", len(sink.sent))
	}
	for _, payload := range sink.sent {
		if payload != notify.EventScannerMismatch {
			t.Fatalf("unexpected payload %q", payload)
		}
	}
}

func TestEnumerate_SubstringContainmentMatch(t *testing.T) {
	f := newFakeHidraw(t)
	f.add(t, "hidraw0", "0c2e", "0200")

	// The configured value CONTAINS the attribute, case-insensitive.
	// Legacy semantics, preserved.
	m := f.monitor("usb:0C2E:rev2", "xx0200yy", &fakeDispatcher{})

	if _, found := m.enumerate(); !found {
		t.Fatalf("containment match failed")
	}
}

func TestEnumerate_SecondCandidateMatches(t *testing.T) {
	f := newFakeHidraw(t)
	f.add(t, "hidraw0", "046d", "c31c")
	f.add(t, "hidraw1", "0c2e", "0200")

	sink := &fakeDispatcher{}
	m := f.monitor("0c2e", "0200", sink)

	node, found := m.enumerate()
	if !found {
		t.Fatalf("expected hidraw1 to match")
	}
	if want := filepath.Join(f.devRoot, "hidraw1"); node != want {
		t.Fatalf("node=%q, want %q", node, want)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected 1 mismatch notification, got %d", len(sink.sent))
	}
}

func TestResolve_StopsOnCancel(t *testing.T) {
	f := newFakeHidraw(t)
	m := f.monitor("0c2e", "0200", &fakeDispatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan string, 1)
	go func() { done <- m.resolve(ctx) }()

	select {
	case node := <-done:
		if node != "" {
			t.Fatalf("cancelled resolve returned %q", node)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("resolve did not honor cancellation")
	}
}
