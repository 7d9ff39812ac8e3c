package domain

import (
	"fmt"
	"time"
)

// Topology is the device/port graph of one store. Devices and ports are held
// in flat indexes keyed by ID; cables are symmetric ConnectedTo pairs.
type Topology struct {
	Name        string    `json:"name"`
	LastUpdated time.Time `json:"last_updated"`

	devices  map[string]*Device
	ports    map[string]*Port
	order    []string
	counters map[DeviceType]int
}

// NewTopology creates an empty topology with initialized indexes
func NewTopology(name string) *Topology {
	return &Topology{
		Name:        name,
		LastUpdated: time.Now(),
		devices:     make(map[string]*Device),
		ports:       make(map[string]*Port),
		counters:    make(map[DeviceType]int),
	}
}

// Device returns a device by ID, or nil if not found
func (t *Topology) Device(id string) *Device {
	return t.devices[id]
}

// Port returns a port by ID, or nil if not found
func (t *Topology) Port(id string) *Port {
	return t.ports[id]
}

// Devices returns all devices in insertion order
func (t *Topology) Devices() []*Device {
	result := make([]*Device, 0, len(t.order))
	for _, id := range t.order {
		result = append(result, t.devices[id])
	}
	return result
}

// Len returns the number of devices
func (t *Topology) Len() int {
	return len(t.order)
}

// Owner returns the device that owns a port, or nil
func (t *Topology) Owner(p *Port) *Device {
	if p == nil {
		return nil
	}
	return t.devices[p.DeviceID]
}

// Partner returns the port on the far end of p's cable. A dangling reference
// resolves to nil, the same as no cable.
func (t *Topology) Partner(p *Port) *Port {
	if p == nil || p.ConnectedTo == "" {
		return nil
	}
	return t.ports[p.ConnectedTo]
}

// AddDevice creates a device of the given type with a fresh port set
func (t *Topology) AddDevice(dt DeviceType) (*Device, error) {
	def := Lookup(dt)
	if def == nil {
		return nil, fmt.Errorf("add device %q: %w", dt, ErrUnknownDeviceType)
	}

	device := NewDevice(t.nextID(dt), def)
	if err := t.InsertDevice(device); err != nil {
		return nil, err
	}
	return device, nil
}

// InsertDevice adds a fully built device, as handed over by a loader. The
// device's ports must not collide with ports already in the topology.
func (t *Topology) InsertDevice(d *Device) error {
	if d.ID == "" {
		return fmt.Errorf("insert device: empty id")
	}
	if _, exists := t.devices[d.ID]; exists {
		return fmt.Errorf("insert device: duplicate id %s", d.ID)
	}
	for _, p := range d.Ports {
		if _, exists := t.ports[p.ID]; exists {
			return fmt.Errorf("insert device %s: duplicate port id %s", d.ID, p.ID)
		}
	}

	for _, p := range d.Ports {
		p.DeviceID = d.ID
		if p.LinkStatus == "" {
			p.LinkStatus = LinkStatusDown
		}
		t.ports[p.ID] = p
	}
	t.devices[d.ID] = d
	t.order = append(t.order, d.ID)
	t.touch()
	return nil
}

// RemoveDevice deletes a device and clears the far end of every cable that
// pointed at it
func (t *Topology) RemoveDevice(id string) error {
	device := t.devices[id]
	if device == nil {
		return fmt.Errorf("remove device %s: %w", id, ErrDeviceNotFound)
	}

	for _, p := range device.Ports {
		if partner := t.Partner(p); partner != nil {
			partner.ConnectedTo = ""
			partner.LinkStatus = LinkStatusDown
		}
		delete(t.ports, p.ID)
	}

	delete(t.devices, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.touch()
	return nil
}

// Connect cables two ports together. Existing cables on either port are
// unplugged first. Rejected connections leave the topology unchanged.
func (t *Topology) Connect(portA, portB string) error {
	a := t.ports[portA]
	if a == nil {
		return fmt.Errorf("connect %s: %w", portA, ErrPortNotFound)
	}
	b := t.ports[portB]
	if b == nil {
		return fmt.Errorf("connect %s: %w", portB, ErrPortNotFound)
	}
	if a.DeviceID == b.DeviceID {
		return fmt.Errorf("connect %s to %s: %w", portA, portB, ErrSelfLoop)
	}
	if a.Role.IsPower() != b.Role.IsPower() {
		return fmt.Errorf("connect %s (%s) to %s (%s): %w", portA, a.Role, portB, b.Role, ErrPowerDataMismatch)
	}

	t.unplug(a)
	t.unplug(b)
	a.ConnectedTo = b.ID
	b.ConnectedTo = a.ID
	t.touch()
	return nil
}

// Disconnect unplugs the cable on a port, marking both ends down. Unplugging
// an empty port is a no-op.
func (t *Topology) Disconnect(portID string) error {
	p := t.ports[portID]
	if p == nil {
		return fmt.Errorf("disconnect %s: %w", portID, ErrPortNotFound)
	}
	if p.ConnectedTo == "" {
		return nil
	}
	t.unplug(p)
	t.touch()
	return nil
}

// unplug clears a port and its partner
func (t *Topology) unplug(p *Port) {
	if p.ConnectedTo == "" {
		return
	}
	if partner := t.ports[p.ConnectedTo]; partner != nil && partner.ConnectedTo == p.ID {
		partner.ConnectedTo = ""
		partner.LinkStatus = LinkStatusDown
	}
	p.ConnectedTo = ""
	p.LinkStatus = LinkStatusDown
}

// SetStatus applies an operator status override
func (t *Topology) SetStatus(id string, status DeviceStatus) error {
	device := t.devices[id]
	if device == nil {
		return fmt.Errorf("set status %s: %w", id, ErrDeviceNotFound)
	}
	if !status.Valid() {
		return fmt.Errorf("set status %s to %q: %w", id, status, ErrInvalidStatus)
	}
	device.Status = status
	t.touch()
	return nil
}

// Connections returns every cable once, as (port, partner) pairs in device order
func (t *Topology) Connections() [][2]*Port {
	var result [][2]*Port
	seen := make(map[string]bool)
	for _, d := range t.Devices() {
		for _, p := range d.Ports {
			partner := t.Partner(p)
			if partner == nil || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			seen[partner.ID] = true
			result = append(result, [2]*Port{p, partner})
		}
	}
	return result
}

// Clone returns a deep copy of the topology
func (t *Topology) Clone() *Topology {
	c := NewTopology(t.Name)
	c.LastUpdated = t.LastUpdated
	for k, v := range t.counters {
		c.counters[k] = v
	}
	for _, d := range t.Devices() {
		cp := *d
		cp.Ports = make([]*Port, 0, len(d.Ports))
		for _, p := range d.Ports {
			pc := *p
			cp.Ports = append(cp.Ports, &pc)
			c.ports[pc.ID] = &pc
		}
		if d.Position != nil {
			pos := *d.Position
			cp.Position = &pos
		}
		if d.Wireless != nil {
			w := *d.Wireless
			cp.Wireless = &w
		}
		if d.WifiHosting != nil {
			h := *d.WifiHosting
			h.Networks = append([]HostedNetwork(nil), d.WifiHosting.Networks...)
			cp.WifiHosting = &h
		}
		c.devices[cp.ID] = &cp
		c.order = append(c.order, cp.ID)
	}
	return c
}

// nextID allocates a device ID of the form <type>-<n> not yet in use
func (t *Topology) nextID(dt DeviceType) string {
	for {
		t.counters[dt]++
		id := fmt.Sprintf("%s-%d", dt, t.counters[dt])
		if _, exists := t.devices[id]; !exists {
			return id
		}
	}
}

func (t *Topology) touch() {
	t.LastUpdated = time.Now()
}
