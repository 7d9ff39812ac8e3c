package validator

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"storenet/internal/domain"
)

// isL2Node reports whether a device forwards broadcast traffic
func isL2Node(d *domain.Device) bool {
	caps := d.Capabilities()
	return caps.IsSwitch || caps.IsAP || caps.IsRouter
}

// checkLoops reports one error per connected component of switches, APs and
// routers that contains a cycle. Power cables and WAN ports never close a
// broadcast loop. Parallel cables between the same pair count as a cycle,
// so a component is cyclic when it has at least as many cables as devices.
func checkLoops(t *domain.Topology) []domain.Finding {
	g := simple.NewUndirectedGraph()
	index := make(map[string]int64)
	devices := make(map[int64]*domain.Device)

	for _, d := range t.Devices() {
		if !isL2Node(d) {
			continue
		}
		id := int64(len(index))
		index[d.ID] = id
		devices[id] = d
		g.AddNode(simple.Node(id))
	}

	cables := make(map[int64]int)
	for _, pair := range t.Connections() {
		a, b := pair[0], pair[1]
		if a.Role.IsPower() || a.Role == domain.PortRoleWAN || b.Role == domain.PortRoleWAN {
			continue
		}
		from, okA := index[a.DeviceID]
		to, okB := index[b.DeviceID]
		if !okA || !okB {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		cables[from]++
	}

	var findings []domain.Finding
	for _, component := range topo.ConnectedComponents(g) {
		if len(component) < 2 {
			continue
		}
		ids := make([]int64, 0, len(component))
		edges := 0
		for _, n := range component {
			ids = append(ids, n.ID())
			edges += cables[n.ID()]
		}
		if edges < len(component) {
			continue
		}

		// node ids follow insertion order
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		deviceIDs := make([]string, 0, len(ids))
		labels := make([]string, 0, len(ids))
		for _, id := range ids {
			deviceIDs = append(deviceIDs, devices[id].ID)
			labels = append(labels, devices[id].Label)
		}
		findings = append(findings, domain.NewFinding(RuleNetworkLoop, domain.SeverityError,
			fmt.Sprintf("Network loop between %s. This causes a broadcast storm; remove one of the cables.", strings.Join(labels, ", ")),
			deviceIDs...))
	}
	return findings
}
