package engine

import "storenet/internal/domain"

// DefaultMaxPowerPasses bounds the power fixed point. The deepest chain in the
// catalog is outlet -> strip -> injector -> AP.
const DefaultMaxPowerPasses = 5

// PowerResult reports how the power fixed point terminated
type PowerResult struct {
	Passes int  `json:"passes"`
	CapHit bool `json:"cap_hit"`
}

// PropagatePower flips device status between offline and online until no
// device changes or maxPasses is reached. Each pass reads the statuses written
// earlier in the same pass, so multi-hop chains settle in a few passes.
func PropagatePower(t *domain.Topology, maxPasses int) PowerResult {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPowerPasses
	}

	var result PowerResult
	for result.Passes < maxPasses {
		result.Passes++
		changed := false
		for _, d := range t.Devices() {
			if applyPower(d, HasPower(t, d)) {
				changed = true
			}
		}
		if !changed {
			return result
		}
	}
	result.CapHit = true
	return result
}

// applyPower updates status from the power fact and reports a change
func applyPower(d *domain.Device, powered bool) bool {
	if !powered {
		if d.Status != domain.DeviceStatusOffline {
			d.Status = domain.DeviceStatusOffline
			return true
		}
		return false
	}

	// battery devices wait for the user to switch them on
	if d.Status == domain.DeviceStatusOffline && !d.Capabilities().IsMobile {
		d.Status = domain.DeviceStatusOnline
		return true
	}
	return false
}

// HasPower reports whether a device currently receives power
func HasPower(t *domain.Topology, d *domain.Device) bool {
	def := d.Definition()
	if def == nil {
		return false
	}
	if !def.Power.RequiresPower {
		return true
	}

	switch def.Power.Source {
	case domain.PowerSourceOutlet:
		for _, p := range d.PortsByRole(domain.PortRolePowerInput) {
			if owner := t.Owner(t.Partner(p)); owner != nil && owner.IsOnline() {
				return true
			}
		}
	case domain.PowerSourcePoE:
		for _, p := range d.PortsByRole(domain.PortRolePoEClient) {
			if upstream := PoEUpstream(t, p); upstream != nil && suppliesPoE(upstream) {
				return true
			}
		}
	}
	return false
}

// PoEUpstream returns the device feeding PoE into a poe_client port, or nil if
// the port is cabled to something that cannot supply PoE
func PoEUpstream(t *domain.Topology, p *domain.Port) *domain.Device {
	partner := t.Partner(p)
	if partner == nil {
		return nil
	}
	owner := t.Owner(partner)
	if owner == nil {
		return nil
	}
	switch {
	case partner.Role == domain.PortRolePoESource:
		return owner
	case partner.Role == domain.PortRoleGeneric && owner.Capabilities().PoESource:
		return owner
	}
	return nil
}

func suppliesPoE(d *domain.Device) bool {
	return d.Status != domain.DeviceStatusOffline && d.Status != domain.DeviceStatusBooting
}
