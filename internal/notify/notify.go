// internal/notify/notify.go
package notify

import (
	"errors"
	"net"
	"time"
)

// Fixed-shape payloads the peripheral core emits. The receiving
// dispatcher parses these verbatim; do not reformat them.
const (
	// EventIdentityScan tells the command dispatcher that a barcode
	// has been finalized and is waiting in the identity slot.
	EventIdentityScan = `{"cmd":"id"}`

	// EventScannerMismatch reports an enumerated USB device that
	// failed the VID/PID match. -32125 is the dispatcher's
	// device-not-found code.
	EventScannerMismatch = `{"name":"error","value":"-32125"}`
)

// Dispatcher is the exact contract the scanner path uses to reach the
// command dispatcher and the error sink.
type Dispatcher interface {
	Send(payload string) error
}

// EndpointClient is a stateless UDP sender, one datagram per event.
type EndpointClient struct {
	endpoint string
	timeout  time.Duration
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("notify: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &EndpointClient{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
	}, nil
}

func (c *EndpointClient) Close() error { return nil }

func (c *EndpointClient) Send(payload string) error {
	conn, err := net.DialTimeout("udp", c.endpoint, c.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	_, err = conn.Write([]byte(payload))
	return err
}

// Discard is a Dispatcher that drops every event. Used when an
// endpoint is not configured.
type Discard struct{}

func (Discard) Send(string) error { return nil }
