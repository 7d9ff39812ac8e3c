package validator

import (
	"fmt"

	"storenet/internal/domain"
)

func describe(d *domain.Device) string {
	return fmt.Sprintf("%s (%s)", d.Label, d.ID)
}

// farDevice returns the device on the other end of p's cable
func farDevice(t *domain.Topology, p *domain.Port) (*domain.Port, *domain.Device) {
	partner := t.Partner(p)
	if partner == nil {
		return nil, nil
	}
	owner := t.Owner(partner)
	if owner == nil {
		return nil, nil
	}
	return partner, owner
}

func checkRouterWAN(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, d := range t.Devices() {
		if !d.Capabilities().IsRouter {
			continue
		}
		for _, wan := range d.PortsByRole(domain.PortRoleWAN) {
			partner, far := farDevice(t, wan)
			switch {
			case far == nil:
				findings = append(findings, domain.NewFinding(RuleRouterWANUnconnected, domain.SeverityError,
					fmt.Sprintf("%s has nothing plugged into its WAN port. Connect it to the modem's LAN port.", describe(d)),
					d.ID))
			case far.Capabilities().IsModem && partner.Role == domain.PortRoleWAN:
				findings = append(findings, domain.NewFinding(RuleRouterWANToModemWAN, domain.SeverityError,
					fmt.Sprintf("%s WAN is plugged into the %s port of %s. Use the modem's LAN port instead.", describe(d), partner.Name, describe(far)),
					d.ID, far.ID))
			case far.Capabilities().IsModem:
				// modem LAN, the correct uplink
			default:
				findings = append(findings, domain.NewFinding(RuleRouterWANNotModem, domain.SeverityError,
					fmt.Sprintf("%s WAN is plugged into %s, not the modem. The router will not reach the internet.", describe(d), describe(far)),
					d.ID, far.ID))
			}
		}
	}
	return findings
}

// switchSegments groups switches joined by data cables, in device order
func switchSegments(t *domain.Topology) [][]*domain.Device {
	var segments [][]*domain.Device
	seen := make(map[string]bool)
	for _, d := range t.Devices() {
		if !d.Capabilities().IsSwitch || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		segment := []*domain.Device{d}
		for i := 0; i < len(segment); i++ {
			for _, p := range segment[i].Ports {
				if p.Role.IsPower() {
					continue
				}
				_, far := farDevice(t, p)
				if far == nil || seen[far.ID] || !far.Capabilities().IsSwitch {
					continue
				}
				seen[far.ID] = true
				segment = append(segment, far)
			}
		}
		segments = append(segments, segment)
	}
	return segments
}

// checkDHCPConflict flags a switch segment where a modem LAN and a router LAN
// both hand out addresses
func checkDHCPConflict(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, segment := range switchSegments(t) {
		var modems, routers []string
		seen := make(map[string]bool)
		for _, sw := range segment {
			for _, p := range sw.Ports {
				if p.Role.IsPower() {
					continue
				}
				partner, far := farDevice(t, p)
				if far == nil || seen[far.ID] || partner.Role != domain.PortRoleLAN {
					continue
				}
				caps := far.Capabilities()
				switch {
				case caps.IsModem:
					seen[far.ID] = true
					modems = append(modems, far.ID)
				case caps.IsRouter:
					seen[far.ID] = true
					routers = append(routers, far.ID)
				}
			}
		}
		if len(modems) == 0 || len(routers) == 0 {
			continue
		}
		ids := append(append([]string{}, modems...), routers...)
		findings = append(findings, domain.NewFinding(RuleDHCPConflict, domain.SeverityError,
			fmt.Sprintf("Switch %s connects both the modem LAN and a router LAN. Two DHCP servers will hand out conflicting addresses.", describe(segment[0])),
			ids...))
	}
	return findings
}

// checkRouterBypass walks from each modem's LAN side and flags endpoints and
// APs reached without passing through a router. The walk stops where a cable
// enters a router WAN port; a router reached on a LAN port forwards the raw
// modem segment to its other LAN ports.
func checkRouterBypass(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, modem := range t.Devices() {
		if !modem.Capabilities().IsModem {
			continue
		}
		visited := map[string]bool{modem.ID: true}
		queue := []*domain.Device{modem}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			curCaps := cur.Capabilities()
			for _, p := range cur.Ports {
				if p.Role.IsPower() {
					continue
				}
				if p.Role == domain.PortRoleWAN && (curCaps.IsModem || curCaps.IsRouter) {
					continue
				}
				farPort, far := farDevice(t, p)
				if far == nil || visited[far.ID] {
					continue
				}
				caps := far.Capabilities()
				if caps.IsModem || (caps.IsRouter && farPort.Role == domain.PortRoleWAN) {
					continue
				}
				visited[far.ID] = true
				if (caps.IsEndpoint || caps.IsAP) && !caps.IsRouter {
					findings = append(findings, domain.NewFinding(RuleRouterBypass, domain.SeverityError,
						fmt.Sprintf("%s is on the modem's network without a router in between. It is exposed directly to the ISP.", describe(far)),
						far.ID, modem.ID))
				}
				queue = append(queue, far)
			}
		}
	}
	return findings
}

func checkIsolated(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, d := range t.Devices() {
		if !d.Capabilities().IsEndpoint || d.ConnectionState.HasRouterPath() {
			continue
		}
		findings = append(findings, domain.NewFinding(RuleIsolatedDevice, domain.SeverityWarning,
			fmt.Sprintf("%s has no path to the router (%s).", describe(d), d.ConnectionState),
			d.ID))
	}
	return findings
}

func checkMisidentifiedRouter(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, d := range t.Devices() {
		if !d.Capabilities().IsRouter {
			continue
		}
		wanConnected, lanConnected := false, false
		for _, p := range d.Ports {
			if t.Partner(p) == nil {
				continue
			}
			switch p.Role {
			case domain.PortRoleWAN:
				wanConnected = true
			case domain.PortRoleLAN:
				lanConnected = true
			}
		}
		if !wanConnected && lanConnected {
			findings = append(findings, domain.NewFinding(RuleRouterMisidentified, domain.SeverityWarning,
				fmt.Sprintf("%s has LAN connections but no WAN uplink. It may actually be a switch or access point.", describe(d)),
				d.ID))
		}
	}
	return findings
}

func checkUnknownDevice(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, d := range t.Devices() {
		if d.Type != domain.DeviceTypeUnknown {
			continue
		}
		for _, p := range d.Ports {
			if !p.Role.IsPower() && p.IsUp() {
				findings = append(findings, domain.NewFinding(RuleUnknownDevice, domain.SeverityWarning,
					fmt.Sprintf("%s is live on the network but unidentified. Find out what it is.", describe(d)),
					d.ID))
				break
			}
		}
	}
	return findings
}

func checkMultipleRouters(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, pair := range t.Connections() {
		if pair[0].Role.IsPower() {
			continue
		}
		a, b := t.Owner(pair[0]), t.Owner(pair[1])
		if a == nil || b == nil || !a.Capabilities().IsRouter || !b.Capabilities().IsRouter {
			continue
		}
		findings = append(findings, domain.NewFinding(RuleMultipleRouters, domain.SeverityWarning,
			fmt.Sprintf("%s and %s are cabled to each other. Two routers risk IP conflicts and double NAT.", describe(a), describe(b)),
			a.ID, b.ID))
	}
	return findings
}

// checkPoE covers access point powering and injector wiring. Reachability
// comes from the connection states resolved earlier in the pipeline.
func checkPoE(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, ap := range t.Devices() {
		if !ap.Capabilities().IsAP {
			continue
		}
		for _, eth := range ap.PortsByRole(domain.PortRolePoEClient) {
			partner, far := farDevice(t, eth)
			if far == nil {
				findings = append(findings, domain.NewFinding(RuleAPNotConnected, domain.SeverityWarning,
					fmt.Sprintf("%s is not connected to anything.", describe(ap)),
					ap.ID))
				continue
			}

			caps := far.Capabilities()
			switch {
			case caps.IsPoEInjector && partner.Role != domain.PortRolePoESource:
				findings = append(findings, domain.NewFinding(RuleAPWrongInjectorPort, domain.SeverityError,
					fmt.Sprintf("%s is plugged into the %s port of %s. Use the PoE output port.", describe(ap), partner.Name, describe(far)),
					ap.ID, far.ID))
			case caps.IsPoEInjector:
				findings = append(findings, checkInjector(t, ap, far)...)
			case partner.Role == domain.PortRolePoESource:
			case partner.Role == domain.PortRoleGeneric && caps.PoESource:
			default:
				findings = append(findings, domain.NewFinding(RuleAPNoPoE, domain.SeverityError,
					fmt.Sprintf("%s is plugged straight into %s, which does not supply PoE. Put a PoE injector in between.", describe(ap), describe(far)),
					ap.ID, far.ID))
			}

			if !ap.ConnectionState.HasRouterPath() {
				findings = append(findings, domain.NewFinding(RuleAPNoRouterPath, domain.SeverityWarning,
					fmt.Sprintf("%s has no path to the router (%s).", describe(ap), ap.ConnectionState),
					ap.ID))
			}
		}
	}
	return findings
}

func checkInjector(t *domain.Topology, ap, injector *domain.Device) []domain.Finding {
	var findings []domain.Finding

	for _, in := range injector.PortsByRole(domain.PortRoleUplink) {
		_, up := farDevice(t, in)
		switch {
		case up == nil:
			findings = append(findings, domain.NewFinding(RuleInjectorNoUplink, domain.SeverityError,
				fmt.Sprintf("%s powering %s has nothing on its LAN-in port.", describe(injector), describe(ap)),
				injector.ID, ap.ID))
		case up.Capabilities().IsModem:
			findings = append(findings, domain.NewFinding(RuleInjectorLANToModem, domain.SeverityError,
				fmt.Sprintf("%s LAN-in is plugged into %s. Connect it to the router or a switch behind it.", describe(injector), describe(up)),
				injector.ID, up.ID))
		case up.Capabilities().IsRouter:
		case !up.ConnectionState.HasRouterPath():
			findings = append(findings, domain.NewFinding(RuleInjectorLANIsolated, domain.SeverityWarning,
				fmt.Sprintf("%s LAN-in goes to %s, which has no path to a router.", describe(injector), describe(up)),
				injector.ID, up.ID))
		}
	}

	if !injectorPowered(t, injector) {
		findings = append(findings, domain.NewFinding(RuleInjectorNoPower, domain.SeverityError,
			fmt.Sprintf("%s is powering %s but has no power itself.", describe(injector), describe(ap)),
			injector.ID, ap.ID))
	}
	return findings
}

// injectorPowered reports whether the injector's power inlet is cabled to a
// live source
func injectorPowered(t *domain.Topology, injector *domain.Device) bool {
	if injector.Status == domain.DeviceStatusOffline {
		return false
	}
	for _, p := range injector.PortsByRole(domain.PortRolePowerInput) {
		if _, far := farDevice(t, p); far != nil {
			return true
		}
	}
	return false
}

func checkPowerSource(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, d := range t.Devices() {
		def := d.Definition()
		if def == nil || def.Power.Source != domain.PowerSourceOutlet {
			continue
		}
		for _, p := range d.PortsByRole(domain.PortRolePowerInput) {
			if t.Partner(p) == nil {
				findings = append(findings, domain.NewFinding(RuleNoPowerSource, domain.SeverityWarning,
					fmt.Sprintf("%s is not plugged into power.", describe(d)),
					d.ID))
			}
		}
	}
	return findings
}

func checkWifi(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, d := range t.Devices() {
		w := d.Wireless
		if w == nil || w.SSID == "" {
			continue
		}
		switch {
		case w.AuthState == domain.AuthStateAuthFailed:
			findings = append(findings, domain.NewFinding(RuleWifiAuthFailed, domain.SeverityWarning,
				fmt.Sprintf("%s failed to authenticate to %q. Check the wifi password.", describe(d), w.SSID),
				d.ID))
		case w.AuthState == domain.AuthStateIdle && !ssidHosted(t, w.SSID):
			findings = append(findings, domain.NewFinding(RuleWifiSSIDNotFound, domain.SeverityWarning,
				fmt.Sprintf("%s is configured for %q but no access point broadcasts it.", describe(d), w.SSID),
				d.ID))
		}
	}
	return findings
}

func ssidHosted(t *domain.Topology, ssid string) bool {
	for _, d := range t.Devices() {
		if _, ok := d.WifiHosting.Broadcasts(ssid); ok {
			return true
		}
	}
	return false
}
