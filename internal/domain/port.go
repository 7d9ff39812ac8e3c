package domain

import "strings"

// PortRole is the functional type of a connector
type PortRole string

const (
	PortRoleWAN         PortRole = "wan"
	PortRoleLAN         PortRole = "lan"
	PortRoleUplink      PortRole = "uplink"
	PortRoleAccess      PortRole = "access"
	PortRoleGeneric     PortRole = "generic"
	PortRolePoESource   PortRole = "poe_source"
	PortRolePoEClient   PortRole = "poe_client"
	PortRolePowerInput  PortRole = "power_input"
	PortRolePowerSource PortRole = "power_source"
)

// IsPower reports whether the role carries mains power rather than data
func (r PortRole) IsPower() bool {
	return r == PortRolePowerInput || r == PortRolePowerSource
}

// Valid reports whether r is a known role
func (r PortRole) Valid() bool {
	switch r {
	case PortRoleWAN, PortRoleLAN, PortRoleUplink, PortRoleAccess, PortRoleGeneric,
		PortRolePoESource, PortRolePoEClient, PortRolePowerInput, PortRolePowerSource:
		return true
	}
	return false
}

// LinkStatus is the physical state of a cable end
type LinkStatus string

const (
	LinkStatusUp          LinkStatus = "up"
	LinkStatusDown        LinkStatus = "down"
	LinkStatusNegotiating LinkStatus = "negotiating"
)

// Port is a connector owned by a device. ConnectedTo holds the port ID on the
// far end of the cable; the pairing is always symmetric.
type Port struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Role        PortRole   `json:"role" yaml:"role"`
	DeviceID    string     `json:"device_id" yaml:"-"`
	ConnectedTo string     `json:"connected_to,omitempty" yaml:"connected_to,omitempty"`
	LinkStatus  LinkStatus `json:"link_status" yaml:"-"`
}

// IsConnected reports whether a cable is plugged into the port
func (p *Port) IsConnected() bool {
	return p.ConnectedTo != ""
}

// IsUp reports whether the port's link is up
func (p *Port) IsUp() bool {
	return p.LinkStatus == LinkStatusUp
}

// PortID builds the globally unique port ID for a device port
func PortID(deviceID, portName string) string {
	return deviceID + ":" + portName
}

// SplitPortID splits "device:port" into its device and port name parts
func SplitPortID(id string) (deviceID, portName string) {
	idx := strings.LastIndex(id, ":")
	if idx < 0 {
		return id, ""
	}
	return id[:idx], id[idx+1:]
}
