// internal/shield/rpc_test.go
package shield

import "testing"

func TestParsePort(t *testing.T) {
	cases := []struct {
		name string
		port int
		ok   bool
	}{
		{"shield.cn11", 1, true},
		{"shield.cn20", 10, true},
		{"shield.cn15", 5, true},
		{"shield.cn10", 0, false},
		{"shield.cn21", 0, false},
		{"shield.cnXX", 0, false},
		{"relay.cn11", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		port, err := parsePort(tc.name)
		if tc.ok != (err == nil) {
			t.Fatalf("parsePort(%q) err=%v, ok=%v", tc.name, err, tc.ok)
		}
		if tc.ok && port != tc.port {
			t.Fatalf("parsePort(%q)=%d, want %d", tc.name, port, tc.port)
		}
	}
}

func TestParsePin(t *testing.T) {
	cases := []struct {
		name string
		pin  int
		ok   bool
	}{
		{"shield.cn11.2", 1, true},
		{"shield.cn11.4", 2, true},
		{"shield.cn12.2", 3, true},
		{"shield.cn20.4", 20, true},
		{"shield.cn11.3", 0, false},
		{"shield.cn11", 0, false},
		{"shield.cn21.2", 0, false},
	}
	for _, tc := range cases {
		pin, err := parsePin(tc.name)
		if tc.ok != (err == nil) {
			t.Fatalf("parsePin(%q) err=%v, ok=%v", tc.name, err, tc.ok)
		}
		if tc.ok && pin != tc.pin {
			t.Fatalf("parsePin(%q)=%d, want %d", tc.name, pin, tc.pin)
		}
	}
}

func TestWritePinByName_ForcesDIO(t *testing.T) {
	r := newTestRig()

	// Put port 2 in SPI first; the named write must flip it back.
	if err := r.engine.PinMode(2, SPI); err != nil {
		t.Fatal(err)
	}
	if err := r.engine.WritePinByName("shield.cn12.4", "1"); err != nil {
		t.Fatal(err)
	}

	// Last internal-register image has port 2 back in DIO.
	var internal []byte
	for _, w := range r.bus.written {
		if len(w) == 2 && w[0] == 0xFF {
			internal = w
		}
	}
	if internal == nil || internal[1]&0x02 != 0 {
		t.Fatalf("port 2 still in SPI after named write: %#v", r.bus.written)
	}

	// The data write landed on pin 4 of output register 1.
	last := r.bus.written[len(r.bus.written)-1]
	if !selectsEqual(last, 0x00, 0x08) {
		t.Fatalf("output write %#v, want pin 4 set", last)
	}
}

func TestWritePinByName_RejectsBadValue(t *testing.T) {
	r := newTestRig()
	if err := r.engine.WritePinByName("shield.cn11.2", "2"); err == nil {
		t.Fatalf("value 2 must fail")
	}
	if len(r.bus.selects) != 0 {
		t.Fatalf("rejected value touched the bus")
	}
}

func TestChangeModeByName(t *testing.T) {
	r := newTestRig()
	if err := r.engine.ChangeModeByName("shield.cn20", "sio"); err != nil {
		t.Fatal(err)
	}
	if err := r.engine.ChangeModeByName("shield.cn11", "pwm"); err == nil {
		t.Fatalf("unknown mode must fail")
	}
	if err := r.engine.ChangeModeByName("shield.cn99", "dio"); err == nil {
		t.Fatalf("unknown port must fail")
	}
}

func TestReadPortByName(t *testing.T) {
	r := newTestRig()
	r.bus.replies = [][]byte{{0x00, 0x04}}

	got, err := r.engine.ReadPortByName("shield.cn13")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("port 3 sampled %d, want 1", got)
	}
}
