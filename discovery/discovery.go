// Package discovery advertises and browses for board bridges on the local
// network over mDNS/DNS-SD, so a phone or desktop client doesn't need a
// hand-typed address to find a BLE-to-TCP bridge.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"

	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("discovery")

// ServiceType is the DNS-SD service type bridges advertise under.
const ServiceType = "_xprotobridge._tcp"

// Advertiser owns one announced service instance.
type Advertiser struct {
	responder dnssd.Responder
	cancel    context.CancelFunc
	errCh     chan error
}

// Announce starts advertising name on port over mDNS. The responder runs in
// a background goroutine; call Stop to withdraw the announcement.
func Announce(name string, port int) (*Advertiser, error) {
	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: creating service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("discovery: creating responder: %w", err)
	}

	if _, err := rp.Add(svc); err != nil {
		return nil, fmt.Errorf("discovery: adding service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- rp.Respond(ctx)
	}()

	log.Info("announcing service", "name", name, "type", ServiceType, "port", port)
	return &Advertiser{responder: rp, cancel: cancel, errCh: errCh}, nil
}

// Stop withdraws the announcement and waits for the responder goroutine to
// exit.
func (a *Advertiser) Stop() error {
	a.cancel()
	err := <-a.errCh
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// Bridge describes one discovered bridge instance.
type Bridge struct {
	Name string
	Host string
	Port int
}

// Browse runs browser for one discovery pass, returning every bridge seen
// before ctx is done. Intended to be called with a context carrying a
// short timeout.
func Browse(ctx context.Context) ([]Bridge, error) {
	var found []Bridge

	addFn := func(e dnssd.BrowseEntry) {
		port := e.Port
		host := e.Host
		if len(e.IPs) > 0 {
			host = e.IPs[0].String()
		}
		found = append(found, Bridge{Name: e.Name, Host: host, Port: port})
	}
	rmvFn := func(e dnssd.BrowseEntry) {}

	if err := dnssd.LookupType(ctx, ServiceType, addFn, rmvFn); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}
	return found, nil
}
