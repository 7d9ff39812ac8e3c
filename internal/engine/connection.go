package engine

import "storenet/internal/domain"

// ResolveConnections classifies every device's reachability to the gateway
func ResolveConnections(t *domain.Topology) {
	r := newConnectionResolver(t)
	for _, d := range t.Devices() {
		d.ConnectionState = r.resolve(d)
	}
}

type connectionResolver struct {
	t        *domain.Topology
	memo     map[string]domain.ConnectionState
	visiting map[string]bool
}

func newConnectionResolver(t *domain.Topology) *connectionResolver {
	return &connectionResolver{
		t:        t,
		memo:     make(map[string]domain.ConnectionState),
		visiting: make(map[string]bool),
	}
}

func (r *connectionResolver) resolve(d *domain.Device) domain.ConnectionState {
	if state, ok := r.memo[d.ID]; ok {
		return state
	}
	// an AP chain that leads back to a device being resolved
	if r.visiting[d.ID] {
		return domain.ConnectionStateDisconnected
	}
	r.visiting[d.ID] = true
	state := r.compute(d)
	delete(r.visiting, d.ID)
	r.memo[d.ID] = state
	return state
}

func (r *connectionResolver) compute(d *domain.Device) domain.ConnectionState {
	if !d.IsOnline() {
		return domain.ConnectionStateDisconnected
	}
	if HasWiredLink(r.t, d) {
		return r.wired(d)
	}
	if d.Capabilities().WifiClient && d.Wireless != nil {
		return r.wireless(d)
	}
	return domain.ConnectionStateDisconnected
}

func (r *connectionResolver) wired(d *domain.Device) domain.ConnectionState {
	if d.Capabilities().IsModem {
		return domain.ConnectionStateOnline
	}

	reach := Reach(r.t, d)
	switch {
	case reach.Gateway:
		return domain.ConnectionStateOnline
	case reach.Router:
		return domain.ConnectionStateAssociatedNoInternet
	default:
		return domain.ConnectionStateAssociatedNoIP
	}
}

func (r *connectionResolver) wireless(d *domain.Device) domain.ConnectionState {
	switch d.Wireless.AuthState {
	case domain.AuthStateAuthFailed:
		return domain.ConnectionStateAuthFailed
	case domain.AuthStateAssociating:
		return domain.ConnectionStateAssociatingWifi
	case domain.AuthStateAssociated:
		ap := r.t.Device(d.Wireless.AssociatedAPID)
		if ap == nil || !ap.IsOnline() {
			return domain.ConnectionStateDisconnected
		}
		switch state := r.resolve(ap); state {
		case domain.ConnectionStateOnline,
			domain.ConnectionStateAssociatedNoInternet,
			domain.ConnectionStateAssociatedNoIP:
			return state
		default:
			return domain.ConnectionStateAssociatedNoInternet
		}
	}
	return domain.ConnectionStateDisconnected
}

// HasWiredLink reports whether any data port of d is up with a live partner
func HasWiredLink(t *domain.Topology, d *domain.Device) bool {
	for _, p := range d.Ports {
		if p.Role.IsPower() || !p.IsUp() {
			continue
		}
		if partner := t.Partner(p); partner != nil && partner.IsUp() {
			return true
		}
	}
	return false
}

// Reachability summarizes what a wired BFS from a device found
type Reachability struct {
	Gateway bool
	Router  bool
	Devices []string
}

// Reach walks live data cables from d through online devices. The start
// device itself is not counted.
func Reach(t *domain.Topology, d *domain.Device) Reachability {
	var result Reachability
	visited := map[string]bool{d.ID: true}
	queue := []*domain.Device{d}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, p := range cur.Ports {
			if p.Role.IsPower() || !p.IsUp() {
				continue
			}
			partner := t.Partner(p)
			if partner == nil || !partner.IsUp() {
				continue
			}
			next := t.Owner(partner)
			if next == nil || visited[next.ID] || !next.IsOnline() {
				continue
			}
			visited[next.ID] = true
			result.Devices = append(result.Devices, next.ID)

			caps := next.Capabilities()
			if caps.IsModem {
				result.Gateway = true
			}
			if caps.IsRouter {
				result.Router = true
			}
			queue = append(queue, next)
		}
	}
	return result
}
