package domain

import "time"

// DeviceType identifies a concrete device model in the catalog
type DeviceType string

const (
	DeviceTypeISPModem        DeviceType = "isp_modem"
	DeviceTypeFiberONT        DeviceType = "fiber_ont"
	DeviceTypeRouter          DeviceType = "router"
	DeviceTypeWifiRouter      DeviceType = "wifi_router"
	DeviceTypeFirewall        DeviceType = "firewall"
	DeviceTypeSwitch8         DeviceType = "switch_8"
	DeviceTypeSwitch24        DeviceType = "switch_24"
	DeviceTypePoESwitch8      DeviceType = "poe_switch_8"
	DeviceTypeAccessPoint     DeviceType = "access_point"
	DeviceTypeOutdoorAP       DeviceType = "outdoor_ap"
	DeviceTypePoEInjector     DeviceType = "poe_injector"
	DeviceTypePowerOutlet     DeviceType = "power_outlet"
	DeviceTypePowerStrip      DeviceType = "power_strip"
	DeviceTypeUPS             DeviceType = "ups"
	DeviceTypePOSTerminal     DeviceType = "pos_terminal"
	DeviceTypeReceiptPrinter  DeviceType = "receipt_printer"
	DeviceTypeKitchenPrinter  DeviceType = "kitchen_printer"
	DeviceTypeKDSDisplay      DeviceType = "kds_display"
	DeviceTypeDigitalSignage  DeviceType = "digital_signage"
	DeviceTypeIPCamera        DeviceType = "ip_camera"
	DeviceTypeVoIPPhone       DeviceType = "voip_phone"
	DeviceTypeTabletPOS       DeviceType = "tablet_pos"
	DeviceTypeHandheldScanner DeviceType = "handheld_scanner"
	DeviceTypeLaptop          DeviceType = "laptop"
	DeviceTypeUnknown         DeviceType = "unknown"
)

// DeviceStatus is the operating state of a device. Offline and online are
// owned by the simulator; booting and error are operator overrides.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusBooting DeviceStatus = "booting"
	DeviceStatusError   DeviceStatus = "error"
)

// Valid reports whether s is a known status
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusBooting, DeviceStatusError:
		return true
	}
	return false
}

// AuthState is the resolved wifi association state of a client
type AuthState string

const (
	AuthStateIdle        AuthState = "idle"
	AuthStateAssociating AuthState = "associating"
	AuthStateAssociated  AuthState = "associated"
	AuthStateAuthFailed  AuthState = "auth_failed"
)

// WirelessConfig is a wifi client's configuration plus its resolved association
type WirelessConfig struct {
	SSID           string    `json:"ssid" yaml:"ssid"`
	Password       string    `json:"password,omitempty" yaml:"password,omitempty"`
	AssociatedAPID string    `json:"associated_ap_id,omitempty" yaml:"-"`
	AuthState      AuthState `json:"auth_state" yaml:"-"`
}

// HostedNetwork is one SSID broadcast by a hosting device
type HostedNetwork struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Hidden   bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// WifiHosting describes the networks an access point or wifi router broadcasts
type WifiHosting struct {
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	Networks []HostedNetwork `json:"networks,omitempty" yaml:"networks,omitempty"`
}

// Broadcasts returns the hosted network with the given SSID, if any
func (w *WifiHosting) Broadcasts(ssid string) (HostedNetwork, bool) {
	if w == nil || !w.Enabled {
		return HostedNetwork{}, false
	}
	for _, n := range w.Networks {
		if n.SSID == ssid {
			return n, true
		}
	}
	return HostedNetwork{}, false
}

// Device is a network element placed in the store model
type Device struct {
	ID        string       `json:"id"`
	Type      DeviceType   `json:"type"`
	Label     string       `json:"label"`
	Ports     []*Port      `json:"ports"`
	Status    DeviceStatus `json:"status"`
	IP        string       `json:"ip,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	Position  *Position    `json:"position,omitempty"`
	CreatedAt time.Time    `json:"created_at"`

	Wireless    *WirelessConfig `json:"wireless,omitempty"`
	WifiHosting *WifiHosting    `json:"wifi_hosting,omitempty"`

	// Derived by the engine
	ConnectionState ConnectionState `json:"connection_state"`
}

// NewDevice creates a device with a fresh port set from its definition
func NewDevice(id string, def *Definition) *Device {
	d := &Device{
		ID:              id,
		Type:            def.Type,
		Label:           def.Name,
		Status:          DeviceStatusOffline,
		CreatedAt:       time.Now(),
		ConnectionState: ConnectionStateDisconnected,
	}
	if def.Power.Source == PowerSourceInternal {
		d.Status = DeviceStatusOnline
	}

	d.Ports = make([]*Port, 0, len(def.Ports))
	for _, tmpl := range def.Ports {
		d.Ports = append(d.Ports, &Port{
			ID:         PortID(id, tmpl.Name),
			Name:       tmpl.Name,
			Role:       tmpl.Role,
			DeviceID:   id,
			LinkStatus: LinkStatusDown,
		})
	}

	if def.Capabilities.WifiHosting {
		d.WifiHosting = &WifiHosting{}
	}
	return d
}

// Port returns the device port with the given name, or nil
func (d *Device) Port(name string) *Port {
	for _, p := range d.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PortsByRole returns the device ports with the given role
func (d *Device) PortsByRole(role PortRole) []*Port {
	var result []*Port
	for _, p := range d.Ports {
		if p.Role == role {
			result = append(result, p)
		}
	}
	return result
}

// IsOnline reports whether the device is online
func (d *Device) IsOnline() bool {
	return d.Status == DeviceStatusOnline
}

// Definition returns the catalog definition for the device type
func (d *Device) Definition() *Definition {
	return Lookup(d.Type)
}

// Capabilities returns the catalog capabilities for the device type
func (d *Device) Capabilities() Capabilities {
	if def := d.Definition(); def != nil {
		return def.Capabilities
	}
	return Capabilities{}
}
