package domain

import (
	"fmt"
	"sort"
)

// Category groups device types for display and rule selection
type Category string

const (
	CategoryGateway  Category = "gateway"
	CategoryRouter   Category = "router"
	CategorySwitch   Category = "switch"
	CategoryAP       Category = "access_point"
	CategoryInjector Category = "injector"
	CategoryPower    Category = "power"
	CategoryEndpoint Category = "endpoint"
	CategoryUnknown  Category = "unknown"
)

// PowerSource is where a device draws power from
type PowerSource string

const (
	PowerSourceOutlet   PowerSource = "outlet"
	PowerSourcePoE      PowerSource = "poe"
	PowerSourceInternal PowerSource = "internal"
)

// PowerModel describes how a device is powered
type PowerModel struct {
	RequiresPower bool        `json:"requires_power"`
	Source        PowerSource `json:"source"`
}

// Capabilities are the behavioural flags of a device type
type Capabilities struct {
	IsRouter      bool `json:"is_router,omitempty"`
	IsSwitch      bool `json:"is_switch,omitempty"`
	IsAP          bool `json:"is_ap,omitempty"`
	IsPoEInjector bool `json:"is_poe_injector,omitempty"`
	IsOutlet      bool `json:"is_outlet,omitempty"`
	IsModem       bool `json:"is_modem,omitempty"`
	IsMobile      bool `json:"is_mobile,omitempty"`
	IsEndpoint    bool `json:"is_endpoint,omitempty"`
	WifiHosting   bool `json:"wifi_hosting,omitempty"`
	WifiClient    bool `json:"wifi_client,omitempty"`
	PoESource     bool `json:"poe_source,omitempty"`
}

// PortTemplate is a port a device type is manufactured with
type PortTemplate struct {
	Name string   `json:"name"`
	Role PortRole `json:"role"`
}

// Definition is the static description of a device type
type Definition struct {
	Type         DeviceType     `json:"type"`
	Name         string         `json:"name"`
	Category     Category       `json:"category"`
	Ports        []PortTemplate `json:"ports"`
	Power        PowerModel     `json:"power"`
	Capabilities Capabilities   `json:"capabilities"`
}

// PortTemplate returns the template for the named port, if defined
func (d *Definition) PortTemplate(name string) (PortTemplate, bool) {
	for _, p := range d.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortTemplate{}, false
}

// PortsByRoleTemplate returns the templates with the given role
func (d *Definition) PortsByRoleTemplate(role PortRole) []PortTemplate {
	var result []PortTemplate
	for _, p := range d.Ports {
		if p.Role == role {
			result = append(result, p)
		}
	}
	return result
}

var (
	outletPowered   = PowerModel{RequiresPower: true, Source: PowerSourceOutlet}
	poePowered      = PowerModel{RequiresPower: true, Source: PowerSourcePoE}
	internalPowered = PowerModel{RequiresPower: false, Source: PowerSourceInternal}
	powerInlet      = PortTemplate{Name: "power", Role: PortRolePowerInput}
)

// numbered generates count ports named prefix1..prefixN
func numbered(prefix string, count int, role PortRole) []PortTemplate {
	ports := make([]PortTemplate, 0, count)
	for i := 1; i <= count; i++ {
		ports = append(ports, PortTemplate{Name: fmt.Sprintf("%s%d", prefix, i), Role: role})
	}
	return ports
}

func ports(groups ...[]PortTemplate) []PortTemplate {
	var result []PortTemplate
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}

func one(name string, role PortRole) []PortTemplate {
	return []PortTemplate{{Name: name, Role: role}}
}

// Definitions is the device catalog
var Definitions = map[DeviceType]*Definition{
	DeviceTypeISPModem: {
		Type: DeviceTypeISPModem, Name: "ISP Modem", Category: CategoryGateway,
		Ports:        ports(one("coax", PortRoleWAN), one("lan", PortRoleLAN)),
		Power:        internalPowered,
		Capabilities: Capabilities{IsModem: true},
	},
	DeviceTypeFiberONT: {
		Type: DeviceTypeFiberONT, Name: "Fiber ONT", Category: CategoryGateway,
		Ports:        ports(one("fiber", PortRoleWAN), one("lan", PortRoleLAN), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsModem: true},
	},
	DeviceTypeRouter: {
		Type: DeviceTypeRouter, Name: "Router", Category: CategoryRouter,
		Ports:        ports(one("wan", PortRoleWAN), numbered("lan", 4, PortRoleLAN), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsRouter: true},
	},
	DeviceTypeWifiRouter: {
		Type: DeviceTypeWifiRouter, Name: "Wi-Fi Router", Category: CategoryRouter,
		Ports:        ports(one("wan", PortRoleWAN), numbered("lan", 4, PortRoleLAN), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsRouter: true, WifiHosting: true},
	},
	DeviceTypeFirewall: {
		Type: DeviceTypeFirewall, Name: "Firewall", Category: CategoryRouter,
		Ports:        ports(one("wan", PortRoleWAN), numbered("lan", 8, PortRoleLAN), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsRouter: true},
	},
	DeviceTypeSwitch8: {
		Type: DeviceTypeSwitch8, Name: "8-Port Switch", Category: CategorySwitch,
		Ports:        ports(numbered("port", 8, PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsSwitch: true},
	},
	DeviceTypeSwitch24: {
		Type: DeviceTypeSwitch24, Name: "24-Port Managed Switch", Category: CategorySwitch,
		Ports:        ports(one("uplink", PortRoleUplink), numbered("port", 24, PortRoleAccess), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsSwitch: true},
	},
	DeviceTypePoESwitch8: {
		Type: DeviceTypePoESwitch8, Name: "8-Port PoE Switch", Category: CategorySwitch,
		Ports:        ports(numbered("port", 8, PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsSwitch: true, PoESource: true},
	},
	DeviceTypeAccessPoint: {
		Type: DeviceTypeAccessPoint, Name: "Access Point", Category: CategoryAP,
		Ports:        one("eth", PortRolePoEClient),
		Power:        poePowered,
		Capabilities: Capabilities{IsAP: true, WifiHosting: true},
	},
	DeviceTypeOutdoorAP: {
		Type: DeviceTypeOutdoorAP, Name: "Outdoor Access Point", Category: CategoryAP,
		Ports:        one("eth", PortRolePoEClient),
		Power:        poePowered,
		Capabilities: Capabilities{IsAP: true, WifiHosting: true},
	},
	DeviceTypePoEInjector: {
		Type: DeviceTypePoEInjector, Name: "PoE Injector", Category: CategoryInjector,
		Ports:        ports(one("lan_in", PortRoleUplink), one("poe_out", PortRolePoESource), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsPoEInjector: true},
	},
	DeviceTypePowerOutlet: {
		Type: DeviceTypePowerOutlet, Name: "Wall Outlet", Category: CategoryPower,
		Ports:        numbered("outlet", 4, PortRolePowerSource),
		Power:        internalPowered,
		Capabilities: Capabilities{IsOutlet: true},
	},
	DeviceTypePowerStrip: {
		Type: DeviceTypePowerStrip, Name: "Power Strip", Category: CategoryPower,
		Ports:        ports([]PortTemplate{powerInlet}, numbered("socket", 6, PortRolePowerSource)),
		Power:        outletPowered,
		Capabilities: Capabilities{IsOutlet: true},
	},
	DeviceTypeUPS: {
		Type: DeviceTypeUPS, Name: "UPS", Category: CategoryPower,
		Ports:        ports([]PortTemplate{powerInlet}, numbered("battery", 4, PortRolePowerSource)),
		Power:        outletPowered,
		Capabilities: Capabilities{IsOutlet: true},
	},
	DeviceTypePOSTerminal: {
		Type: DeviceTypePOSTerminal, Name: "POS Terminal", Category: CategoryEndpoint,
		Ports:        ports(one("eth", PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsEndpoint: true},
	},
	DeviceTypeReceiptPrinter: {
		Type: DeviceTypeReceiptPrinter, Name: "Receipt Printer", Category: CategoryEndpoint,
		Ports:        ports(one("eth", PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsEndpoint: true},
	},
	DeviceTypeKitchenPrinter: {
		Type: DeviceTypeKitchenPrinter, Name: "Kitchen Printer", Category: CategoryEndpoint,
		Ports:        ports(one("eth", PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsEndpoint: true},
	},
	DeviceTypeKDSDisplay: {
		Type: DeviceTypeKDSDisplay, Name: "Kitchen Display", Category: CategoryEndpoint,
		Ports:        ports(one("eth", PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsEndpoint: true},
	},
	DeviceTypeDigitalSignage: {
		Type: DeviceTypeDigitalSignage, Name: "Digital Signage", Category: CategoryEndpoint,
		Ports:        ports(one("eth", PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
		Capabilities: Capabilities{IsEndpoint: true, WifiClient: true},
	},
	DeviceTypeIPCamera: {
		Type: DeviceTypeIPCamera, Name: "IP Camera", Category: CategoryEndpoint,
		Ports:        one("eth", PortRolePoEClient),
		Power:        poePowered,
		Capabilities: Capabilities{IsEndpoint: true},
	},
	DeviceTypeVoIPPhone: {
		Type: DeviceTypeVoIPPhone, Name: "VoIP Phone", Category: CategoryEndpoint,
		Ports:        one("eth", PortRolePoEClient),
		Power:        poePowered,
		Capabilities: Capabilities{IsEndpoint: true},
	},
	DeviceTypeTabletPOS: {
		Type: DeviceTypeTabletPOS, Name: "Tablet POS", Category: CategoryEndpoint,
		Power:        internalPowered,
		Capabilities: Capabilities{IsEndpoint: true, IsMobile: true, WifiClient: true},
	},
	DeviceTypeHandheldScanner: {
		Type: DeviceTypeHandheldScanner, Name: "Handheld Scanner", Category: CategoryEndpoint,
		Power:        internalPowered,
		Capabilities: Capabilities{IsEndpoint: true, IsMobile: true, WifiClient: true},
	},
	DeviceTypeLaptop: {
		Type: DeviceTypeLaptop, Name: "Manager Laptop", Category: CategoryEndpoint,
		Ports:        one("eth", PortRoleGeneric),
		Power:        internalPowered,
		Capabilities: Capabilities{IsEndpoint: true, IsMobile: true, WifiClient: true},
	},
	DeviceTypeUnknown: {
		Type: DeviceTypeUnknown, Name: "Unknown Device", Category: CategoryUnknown,
		Ports:        ports(one("eth", PortRoleGeneric), []PortTemplate{powerInlet}),
		Power:        outletPowered,
	},
}

// Lookup returns the definition for a device type, or nil if unknown
func Lookup(t DeviceType) *Definition {
	return Definitions[t]
}

// Catalog returns all definitions sorted by type
func Catalog() []*Definition {
	defs := make([]*Definition, 0, len(Definitions))
	for _, def := range Definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Type < defs[j].Type
	})
	return defs
}
