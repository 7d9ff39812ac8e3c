package engine

import "storenet/internal/domain"

// PropagateLinks recomputes the link status of every port
func PropagateLinks(t *domain.Topology) {
	r := &linkResolver{
		t:        t,
		memo:     make(map[string]domain.LinkStatus),
		visiting: make(map[string]bool),
	}
	for _, d := range t.Devices() {
		for _, p := range d.Ports {
			p.LinkStatus = r.resolve(p)
		}
	}
}

type linkResolver struct {
	t        *domain.Topology
	memo     map[string]domain.LinkStatus
	visiting map[string]bool
}

func (r *linkResolver) resolve(p *domain.Port) domain.LinkStatus {
	if status, ok := r.memo[p.ID]; ok {
		return status
	}
	if r.visiting[p.ID] {
		return domain.LinkStatusDown
	}
	r.visiting[p.ID] = true
	status := r.compute(p)
	delete(r.visiting, p.ID)
	r.memo[p.ID] = status
	return status
}

func (r *linkResolver) compute(p *domain.Port) domain.LinkStatus {
	owner := r.t.Owner(p)
	if owner == nil || !owner.IsOnline() {
		return domain.LinkStatusDown
	}
	if r.t.Partner(p) == nil {
		return domain.LinkStatusDown
	}
	if owner.Capabilities().IsPoEInjector && p.Role == domain.PortRolePoESource {
		return r.passThrough(owner)
	}
	return domain.LinkStatusUp
}

// passThrough lights an injector's PoE-out only when its LAN-in carries a
// live signal from the far end
func (r *linkResolver) passThrough(injector *domain.Device) domain.LinkStatus {
	for _, in := range injector.PortsByRole(domain.PortRoleUplink) {
		far := r.t.Partner(in)
		if far == nil {
			continue
		}
		if r.resolve(in) == domain.LinkStatusUp && r.resolve(far) == domain.LinkStatusUp {
			return domain.LinkStatusUp
		}
	}
	return domain.LinkStatusDown
}
