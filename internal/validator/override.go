package validator

import (
	"fmt"

	"golang.org/x/exp/slices"

	"storenet/internal/domain"
)

// suppressedForOfflineAP are connectivity-outcome findings that give way to a
// hardware hint when the AP's wiring is correct
var suppressedForOfflineAP = []string{
	RuleAPNotConnected,
	RuleAPNoRouterPath,
	RuleIsolatedDevice,
}

// applyOfflineAPOverride replaces connectivity findings for an offline AP whose
// injector chain is wired correctly with a single check-the-hardware warning
func applyOfflineAPOverride(t *domain.Topology, findings []domain.Finding) []domain.Finding {
	for _, ap := range t.Devices() {
		if !ap.Capabilities().IsAP || ap.Status != domain.DeviceStatusOffline {
			continue
		}
		injector := wiredInjector(t, ap)
		if injector == nil {
			continue
		}

		findings = slices.DeleteFunc(findings, func(f domain.Finding) bool {
			return f.Involves(ap.ID) && slices.Contains(suppressedForOfflineAP, f.Rule)
		})
		findings = append(findings, domain.NewFinding(RuleAPOfflineCheckHardware, domain.SeverityWarning,
			fmt.Sprintf("%s looks correctly wired through %s but is still offline. Check the AP hardware and cable.", describe(ap), describe(injector)),
			ap.ID))
	}
	return findings
}

// wiredInjector returns the injector feeding the AP if the AP sits on its PoE
// output and both the injector's power inlet and LAN-in are cabled
func wiredInjector(t *domain.Topology, ap *domain.Device) *domain.Device {
	for _, eth := range ap.PortsByRole(domain.PortRolePoEClient) {
		partner, injector := farDevice(t, eth)
		if injector == nil || !injector.Capabilities().IsPoEInjector || partner.Role != domain.PortRolePoESource {
			continue
		}
		if allCabled(t, injector.PortsByRole(domain.PortRolePowerInput)) &&
			allCabled(t, injector.PortsByRole(domain.PortRoleUplink)) {
			return injector
		}
	}
	return nil
}

func allCabled(t *domain.Topology, ports []*domain.Port) bool {
	if len(ports) == 0 {
		return false
	}
	for _, p := range ports {
		if t.Partner(p) == nil {
			return false
		}
	}
	return true
}
