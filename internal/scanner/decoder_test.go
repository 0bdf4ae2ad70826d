// internal/scanner/decoder_test.go
package scanner

import (
	"io"
	"log"
	"testing"

	"github.com/hrterm/periphd/internal/notify"
)

type fakeDispatcher struct {
	sent []string
}

func (f *fakeDispatcher) Send(payload string) error {
	f.sent = append(f.sent, payload)
	return nil
}

func quietLog() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestDecoder() (*Decoder, *Registry, *fakeDispatcher) {
	reg := NewRegistry(quietLog())
	disp := &fakeDispatcher{}
	return NewDecoder(reg, disp, quietLog()), reg, disp
}

// frame wraps a usage code in a 4-byte HID report.
func frame(code byte) []byte {
	return []byte{0, 0, code, 0}
}

func feedString(d *Decoder, s string) {
	for i := 0; i < len(s); i++ {
		var code byte
		for k, ch := range keymap {
			if ch == s[i] {
				code = byte(k) + usageFirst
				break
			}
		}
		d.HandleFrame(frame(code))
	}
}

func TestDecoder_DecodesTableCharacters(t *testing.T) {
	d, reg, disp := newTestDecoder()
	reg.SetMode(ModeCheckIn)

	feedString(d, "EMP42")
	d.HandleFrame(frame(usageTerminator))

	if got := d.Identity(); got != "EMP42" {
		t.Fatalf("identity=%q, want EMP42", got)
	}
	if !reg.Locked() {
		t.Fatalf("terminator in check-in mode must lock the scanner")
	}
	if len(disp.sent) != 1 || disp.sent[0] != notify.EventIdentityScan {
		t.Fatalf("dispatch = %v, want one identity event", disp.sent)
	}
	if d.sessionLen() != 0 {
		t.Fatalf("session not reset after terminator")
	}
}

func TestDecoder_NoiseCodesIgnored(t *testing.T) {
	d, reg, _ := newTestDecoder()
	reg.SetMode(ModeCheckIn)

	for code := byte(0); code < usageFirst; code++ {
		d.HandleFrame(frame(code))
	}
	if d.sessionLen() != 0 {
		t.Fatalf("noise codes advanced the session to %d", d.sessionLen())
	}
}

func TestDecoder_LockedDiscardsEveryFrame(t *testing.T) {
	d, reg, disp := newTestDecoder()
	reg.SetMode(ModeCheckIn)
	reg.Lock()

	inputs := []byte{0x04, 0x05, usageTerminator, 0x1E, 0x33}
	for _, code := range inputs {
		d.HandleFrame(frame(code))
		if d.sessionLen() != 0 {
			t.Fatalf("locked session accumulated input at code 0x%02X", code)
		}
	}
	if len(disp.sent) != 0 {
		t.Fatalf("locked decoder dispatched %v", disp.sent)
	}
}

func TestDecoder_TestModeSelfUnlocks(t *testing.T) {
	d, reg, _ := newTestDecoder()
	reg.SetMode(ModeTest)

	feedString(d, "PROBE")
	d.HandleFrame(frame(usageTerminator))

	if reg.Locked() {
		t.Fatalf("test mode must self-unlock after the terminator")
	}

	// A second scan works without any external unlock.
	feedString(d, "PROBE2")
	d.HandleFrame(frame(usageTerminator))
	if got := d.Identity(); got != "PROBE2" {
		t.Fatalf("second test scan identity=%q", got)
	}
}

func TestDecoder_NonTestModesStayLocked(t *testing.T) {
	for _, mode := range []Mode{ModeCheckIn, ModeCheckOut, ModeBreakBegin, ModeConfig, ModeFood} {
		d, reg, _ := newTestDecoder()
		reg.SetMode(mode)

		feedString(d, "X1")
		d.HandleFrame(frame(usageTerminator))

		if !reg.Locked() {
			t.Fatalf("mode %d: expected LOCKED after terminator", mode)
		}
	}
}

func TestDecoder_ModeNoneDropsScan(t *testing.T) {
	d, reg, disp := newTestDecoder()

	feedString(d, "GHOST")
	d.HandleFrame(frame(usageTerminator))

	if reg.Locked() {
		t.Fatalf("NONE mode must not lock")
	}
	if len(disp.sent) != 0 {
		t.Fatalf("NONE mode dispatched %v", disp.sent)
	}
	if d.Identity() != "" {
		t.Fatalf("NONE mode stored identity %q", d.Identity())
	}
	if d.sessionLen() != 0 {
		t.Fatalf("session not reset after NONE-mode terminator")
	}
}

func TestDecoder_EmptySessionTerminatorIsSilent(t *testing.T) {
	d, reg, disp := newTestDecoder()
	reg.SetMode(ModeCheckIn)

	d.HandleFrame(frame(usageTerminator))

	if reg.Locked() || len(disp.sent) != 0 {
		t.Fatalf("empty-session terminator must not lock or dispatch")
	}
}

func TestDecoder_OverflowDiscardsPartialValue(t *testing.T) {
	d, reg, _ := newTestDecoder()
	reg.SetMode(ModeCheckIn)

	for i := 0; i < 40; i++ {
		d.HandleFrame(frame(0x04)) // 'A'
	}
	if d.sessionLen() > maxBarcodeLength {
		t.Fatalf("session length %d exceeds limit", d.sessionLen())
	}

	// The device stays open; the next scan decodes normally.
	feedString(d, "OK")
	d.HandleFrame(frame(usageTerminator))
	if got := d.Identity(); got != "OK" {
		t.Fatalf("post-overflow identity=%q, want OK", got)
	}
}

func TestDecoder_BlankCodeTruncatesStoredIdentity(t *testing.T) {
	d, reg, _ := newTestDecoder()
	reg.SetMode(ModeCheckIn)

	d.HandleFrame(frame(0x04)) // 'A'
	d.HandleFrame(frame(0x29)) // Escape, deliberate blank
	d.HandleFrame(frame(0x05)) // 'B'
	d.HandleFrame(frame(usageTerminator))

	if got := d.Identity(); got != "A" {
		t.Fatalf("identity=%q, want truncation at the blank", got)
	}
}

func TestDecoder_ShortFrameSkipped(t *testing.T) {
	d, reg, _ := newTestDecoder()
	reg.SetMode(ModeCheckIn)

	d.HandleFrame([]byte{0, 0})
	if d.sessionLen() != 0 {
		t.Fatalf("short frame advanced the session")
	}
}

// Exhaustive table check over the full mapped range.
func TestKeymap_Table(t *testing.T) {
	want := map[byte]byte{
		0x04: 'A', 0x1D: 'Z',
		0x1E: '1', 0x26: '9', 0x27: '0',
		0x2C: ' ', 0x2D: '-', 0x2E: '+', 0x2F: '[',
		0x30: ']', 0x31: '|', 0x32: '~', 0x33: ':',
	}
	for code, ch := range want {
		if got := keymap[code-usageFirst]; got != ch {
			t.Fatalf("keymap[0x%02X]=%q, want %q", code, got, ch)
		}
	}

	// 0x28..0x2B are deliberate blanks.
	for code := byte(0x28); code <= 0x2B; code++ {
		if got := keymap[code-usageFirst]; got != 0 {
			t.Fatalf("keymap[0x%02X]=%q, want blank", code, got)
		}
	}

	// Every mapped entry is either blank or printable ASCII.
	for i, ch := range keymap {
		if ch != 0 && (ch < 0x20 || ch > 0x7E) {
			t.Fatalf("keymap[%d]=0x%02X is not printable", i, ch)
		}
	}
}
