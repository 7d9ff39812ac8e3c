package validator

import (
	"storenet/internal/domain"
)

// Rule names. They prefix finding IDs.
const (
	RuleNetworkLoop            = "network-loop"
	RuleRouterWANUnconnected   = "router-wan-unconnected"
	RuleRouterWANToModemWAN    = "router-wan-to-modem-wan"
	RuleRouterWANNotModem      = "router-wan-not-modem"
	RuleDHCPConflict           = "dhcp-conflict"
	RuleRouterBypass           = "router-bypass"
	RuleIsolatedDevice         = "isolated-device"
	RuleRouterMisidentified    = "router-misidentified"
	RuleUnknownDevice          = "unknown-device"
	RuleMultipleRouters        = "multiple-routers"
	RuleAPNoPoE                = "ap-no-poe"
	RuleAPWrongInjectorPort    = "ap-wrong-injector-port"
	RuleAPNotConnected         = "ap-not-connected"
	RuleInjectorNoUplink       = "injector-no-uplink"
	RuleInjectorLANToModem     = "injector-lan-to-modem"
	RuleInjectorLANIsolated    = "injector-lan-isolated"
	RuleInjectorNoPower        = "injector-no-power"
	RuleAPNoRouterPath         = "ap-no-router-path"
	RuleAPOfflineCheckHardware = "ap-offline-check-hardware"
	RuleNoPowerSource          = "no-power-source"
	RuleWifiAuthFailed         = "wifi-auth-failed"
	RuleWifiSSIDNotFound       = "wifi-ssid-not-found"
)

// Check inspects a topology and returns findings. Checks never mutate.
type Check func(t *domain.Topology) []domain.Finding

// Rule is a named check
type Rule struct {
	Name  string
	Check Check
}

// Rules are evaluated in this order; findings keep it
var Rules = []Rule{
	{RuleNetworkLoop, checkLoops},
	{"router-wan", checkRouterWAN},
	{RuleDHCPConflict, checkDHCPConflict},
	{RuleRouterBypass, checkRouterBypass},
	{RuleIsolatedDevice, checkIsolated},
	{RuleRouterMisidentified, checkMisidentifiedRouter},
	{RuleUnknownDevice, checkUnknownDevice},
	{RuleMultipleRouters, checkMultipleRouters},
	{"poe", checkPoE},
	{RuleNoPowerSource, checkPowerSource},
	{"wifi", checkWifi},
}

// Validate runs every rule, applies the offline-AP override and returns the
// findings deduplicated by ID in stable order
func Validate(t *domain.Topology) []domain.Finding {
	var findings []domain.Finding
	for _, rule := range Rules {
		findings = append(findings, rule.Check(t)...)
	}
	findings = applyOfflineAPOverride(t, findings)
	return dedupe(findings)
}

func dedupe(findings []domain.Finding) []domain.Finding {
	seen := make(map[string]bool, len(findings))
	result := make([]domain.Finding, 0, len(findings))
	for _, f := range findings {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		result = append(result, f)
	}
	return result
}
