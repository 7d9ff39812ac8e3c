// Package scenario generates canonical store topologies, the way the setup
// wizard lays out a new store.
package scenario

import (
	"fmt"

	"storenet/internal/domain"
	"storenet/internal/engine"
	"storenet/internal/wireless"
)

// Profile describes the store to generate
type Profile struct {
	Name            string `json:"name" yaml:"name"`
	POSTerminals    int    `json:"pos_terminals" yaml:"pos_terminals"`
	ReceiptPrinters int    `json:"receipt_printers" yaml:"receipt_printers"`
	KitchenPrinters int    `json:"kitchen_printers" yaml:"kitchen_printers"`
	KDSDisplays     int    `json:"kds_displays" yaml:"kds_displays"`
	AccessPoints    int    `json:"access_points" yaml:"access_points"`
	Tablets         int    `json:"tablets" yaml:"tablets"`
	PoESwitch       bool   `json:"poe_switch" yaml:"poe_switch"`
	SSID            string `json:"ssid" yaml:"ssid"`
	Password        string `json:"password" yaml:"password"`
}

// DefaultProfile is a small quick-service restaurant
func DefaultProfile() Profile {
	return Profile{
		Name:            "store",
		POSTerminals:    2,
		ReceiptPrinters: 2,
		KitchenPrinters: 1,
		KDSDisplays:     1,
		AccessPoints:    1,
		Tablets:         2,
		SSID:            "store-pos",
		Password:        "change-me-please",
	}
}

// Validate checks that a profile describes a buildable store
func (p Profile) Validate() error {
	counts := map[string]int{
		"pos_terminals":    p.POSTerminals,
		"receipt_printers": p.ReceiptPrinters,
		"kitchen_printers": p.KitchenPrinters,
		"kds_displays":     p.KDSDisplays,
		"access_points":    p.AccessPoints,
		"tablets":          p.Tablets,
	}
	for field, n := range counts {
		if n < 0 {
			return fmt.Errorf("%s must not be negative", field)
		}
	}
	if p.Tablets > 0 && p.AccessPoints == 0 {
		return fmt.Errorf("tablets need at least one access point")
	}
	if p.PoESwitch && p.AccessPoints > 7 {
		return fmt.Errorf("a PoE switch serves at most 7 access points, got %d", p.AccessPoints)
	}
	if p.Tablets > 0 && p.SSID == "" {
		return fmt.Errorf("ssid is required when tablets are present")
	}
	return nil
}

// builder allocates sockets and switch ports while the store is assembled
type builder struct {
	topo      *domain.Topology
	sockets   []*domain.Port
	dataPorts []*domain.Port
}

// Generate builds a store: modem into router, a managed switch for wired
// endpoints, APs behind injectors or a PoE switch, everything on wall power
// and tablets associated to the store SSID. The returned topology has had one
// pipeline run.
func Generate(p Profile) (*domain.Topology, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	name := p.Name
	if name == "" {
		name = "store"
	}

	b := &builder{topo: domain.NewTopology(name)}

	modem := b.add(domain.DeviceTypeISPModem, "ISP Modem")
	router := b.add(domain.DeviceTypeRouter, "Back Office Router")
	b.cable(modem.Port("lan"), router.Port("wan"))
	b.power(router)

	sw := b.add(domain.DeviceTypeSwitch24, "Front Counter Switch")
	b.cable(router.Port("lan1"), sw.Port("uplink"))
	b.power(sw)
	b.useSwitch(sw)

	endpoints := []struct {
		dt    domain.DeviceType
		label string
		count int
	}{
		{domain.DeviceTypePOSTerminal, "POS", p.POSTerminals},
		{domain.DeviceTypeReceiptPrinter, "Receipt Printer", p.ReceiptPrinters},
		{domain.DeviceTypeKitchenPrinter, "Kitchen Printer", p.KitchenPrinters},
		{domain.DeviceTypeKDSDisplay, "KDS", p.KDSDisplays},
	}
	for _, ep := range endpoints {
		for i := 1; i <= ep.count; i++ {
			d := b.add(ep.dt, fmt.Sprintf("%s %d", ep.label, i))
			b.cable(b.dataPort(), d.Port("eth"))
			b.power(d)
		}
	}

	aps := b.accessPoints(p, router)
	for _, ap := range aps {
		if p.SSID != "" {
			if err := wireless.Host(b.topo, ap.ID, []domain.HostedNetwork{{SSID: p.SSID, Password: p.Password}}); err != nil {
				return nil, err
			}
		}
	}

	var tablets []*domain.Device
	for i := 1; i <= p.Tablets; i++ {
		tablets = append(tablets, b.add(domain.DeviceTypeTabletPOS, fmt.Sprintf("Tablet %d", i)))
	}

	// APs must be online before clients can associate
	engine.Run(b.topo, engine.Options{})
	for _, tablet := range tablets {
		if err := wireless.Configure(b.topo, tablet.ID, p.SSID, p.Password); err != nil {
			return nil, err
		}
	}
	engine.Run(b.topo, engine.Options{})

	return b.topo, nil
}

func (b *builder) accessPoints(p Profile, router *domain.Device) []*domain.Device {
	var aps []*domain.Device
	if p.AccessPoints == 0 {
		return aps
	}

	if p.PoESwitch {
		poe := b.add(domain.DeviceTypePoESwitch8, "PoE Switch")
		b.cable(router.Port("lan2"), poe.Port("port1"))
		b.power(poe)
		for i := 1; i <= p.AccessPoints; i++ {
			ap := b.add(domain.DeviceTypeAccessPoint, fmt.Sprintf("AP %d", i))
			b.cable(poe.Port(fmt.Sprintf("port%d", i+1)), ap.Port("eth"))
			aps = append(aps, ap)
		}
		return aps
	}

	for i := 1; i <= p.AccessPoints; i++ {
		injector := b.add(domain.DeviceTypePoEInjector, fmt.Sprintf("PoE Injector %d", i))
		ap := b.add(domain.DeviceTypeAccessPoint, fmt.Sprintf("AP %d", i))
		b.cable(b.dataPort(), injector.Port("lan_in"))
		b.cable(injector.Port("poe_out"), ap.Port("eth"))
		b.power(injector)
		aps = append(aps, ap)
	}
	return aps
}

func (b *builder) add(dt domain.DeviceType, label string) *domain.Device {
	d, err := b.topo.AddDevice(dt)
	if err != nil {
		// catalog types are fixed, this cannot fail
		panic(err)
	}
	d.Label = label
	return d
}

func (b *builder) cable(a, z *domain.Port) {
	if err := b.topo.Connect(a.ID, z.ID); err != nil {
		panic(fmt.Sprintf("scenario wiring %s-%s: %v", a.ID, z.ID, err))
	}
}

// power plugs every power inlet of d into a free socket
func (b *builder) power(d *domain.Device) {
	for _, in := range d.PortsByRole(domain.PortRolePowerInput) {
		b.cable(b.socket(), in)
	}
}

// socket returns a free power socket, adding a wall outlet when the pool is
// empty. The first outlet feeds a power strip.
func (b *builder) socket() *domain.Port {
	if len(b.sockets) == 0 {
		outlet := b.add(domain.DeviceTypePowerOutlet, fmt.Sprintf("Wall Outlet %d", b.countType(domain.DeviceTypePowerOutlet)+1))
		b.sockets = append(b.sockets, outlet.PortsByRole(domain.PortRolePowerSource)...)
		if b.countType(domain.DeviceTypePowerStrip) == 0 {
			strip := b.add(domain.DeviceTypePowerStrip, "Counter Power Strip")
			b.cable(b.takeSocket(), strip.Port("power"))
			b.sockets = append(b.sockets, strip.PortsByRole(domain.PortRolePowerSource)...)
		}
	}
	return b.takeSocket()
}

func (b *builder) takeSocket() *domain.Port {
	s := b.sockets[0]
	b.sockets = b.sockets[1:]
	return s
}

func (b *builder) useSwitch(sw *domain.Device) {
	b.dataPorts = append(b.dataPorts, sw.PortsByRole(domain.PortRoleAccess)...)
}

// dataPort returns a free switch access port, cascading a new switch off the
// last one when all are used
func (b *builder) dataPort() *domain.Port {
	if len(b.dataPorts) == 1 {
		last := b.dataPorts[0]
		b.dataPorts = nil
		sw := b.add(domain.DeviceTypeSwitch24, fmt.Sprintf("Cascade Switch %d", b.countType(domain.DeviceTypeSwitch24)))
		b.cable(last, sw.Port("uplink"))
		b.power(sw)
		b.useSwitch(sw)
	}
	p := b.dataPorts[0]
	b.dataPorts = b.dataPorts[1:]
	return p
}

func (b *builder) countType(dt domain.DeviceType) int {
	n := 0
	for _, d := range b.topo.Devices() {
		if d.Type == dt {
			n++
		}
	}
	return n
}
