// Package wireless resolves wifi client association against the networks
// hosted by access points and wifi routers.
package wireless

import (
	"crypto/sha1"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"storenet/internal/domain"
)

const (
	pskIterations = 4096
	pskLength     = 32
)

// DerivePSK computes the WPA2 pre-shared key for a passphrase and SSID
func DerivePSK(passphrase, ssid string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(ssid), pskIterations, pskLength, sha1.New)
}

// Configure validates and stores a client's wifi settings, then resolves its
// association
func Configure(t *domain.Topology, deviceID, ssid, password string) error {
	d := t.Device(deviceID)
	if d == nil {
		return fmt.Errorf("configure wifi %s: %w", deviceID, domain.ErrDeviceNotFound)
	}
	if !d.Capabilities().WifiClient {
		return fmt.Errorf("configure wifi %s (%s): %w", deviceID, d.Type, domain.ErrWirelessUnsupported)
	}

	if ssid == "" {
		d.Wireless = nil
		return nil
	}
	d.Wireless = &domain.WirelessConfig{SSID: ssid, Password: password}
	Resolve(t, d)
	return nil
}

// Host replaces the networks broadcast by a hosting-capable device
func Host(t *domain.Topology, deviceID string, networks []domain.HostedNetwork) error {
	d := t.Device(deviceID)
	if d == nil {
		return fmt.Errorf("host wifi %s: %w", deviceID, domain.ErrDeviceNotFound)
	}
	if !d.Capabilities().WifiHosting {
		return fmt.Errorf("host wifi %s (%s): %w", deviceID, d.Type, domain.ErrHostingUnsupported)
	}
	d.WifiHosting = &domain.WifiHosting{
		Enabled:  len(networks) > 0,
		Networks: append([]domain.HostedNetwork(nil), networks...),
	}
	return nil
}

// Resolve computes the association record of a configured client. Online
// hosts are preferred; a booting host leaves the client associating.
func Resolve(t *domain.Topology, d *domain.Device) {
	w := d.Wireless
	if w == nil {
		return
	}
	w.AssociatedAPID = ""

	host, network, found := findHost(t, w.SSID)
	switch {
	case !found:
		w.AuthState = domain.AuthStateIdle
	case host.Status == domain.DeviceStatusBooting:
		w.AuthState = domain.AuthStateAssociating
		w.AssociatedAPID = host.ID
	case !authenticates(w, network):
		w.AuthState = domain.AuthStateAuthFailed
	default:
		w.AuthState = domain.AuthStateAssociated
		w.AssociatedAPID = host.ID
	}
}

// ResolveAll re-resolves every configured client
func ResolveAll(t *domain.Topology) {
	for _, d := range t.Devices() {
		Resolve(t, d)
	}
}

// ResolvePending re-resolves clients still associating, typically after a
// host finished booting. It returns the IDs of clients whose state changed.
func ResolvePending(t *domain.Topology) []string {
	var changed []string
	for _, d := range t.Devices() {
		if d.Wireless == nil || d.Wireless.AuthState != domain.AuthStateAssociating {
			continue
		}
		Resolve(t, d)
		if d.Wireless.AuthState != domain.AuthStateAssociating {
			changed = append(changed, d.ID)
		}
	}
	return changed
}

func findHost(t *domain.Topology, ssid string) (*domain.Device, domain.HostedNetwork, bool) {
	var booting *domain.Device
	var bootingNet domain.HostedNetwork
	for _, d := range t.Devices() {
		network, ok := d.WifiHosting.Broadcasts(ssid)
		if !ok {
			continue
		}
		switch d.Status {
		case domain.DeviceStatusOnline:
			return d, network, true
		case domain.DeviceStatusBooting:
			if booting == nil {
				booting, bootingNet = d, network
			}
		}
	}
	if booting != nil {
		return booting, bootingNet, true
	}
	return nil, domain.HostedNetwork{}, false
}

func authenticates(w *domain.WirelessConfig, network domain.HostedNetwork) bool {
	if network.Password == "" {
		return true
	}
	want := DerivePSK(network.Password, network.SSID)
	got := DerivePSK(w.Password, w.SSID)
	return subtle.ConstantTimeCompare(want, got) == 1
}
