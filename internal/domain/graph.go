package domain

import "fmt"

// Graph is the derived view for floor-plan visualization
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode represents a device in the visualization
type GraphNode struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	Group           Category        `json:"group"`
	Title           string          `json:"title"` // Tooltip content
	Status          DeviceStatus    `json:"status"`
	ConnectionState ConnectionState `json:"connection_state"`
	Position        *Position       `json:"position,omitempty"`
}

// GraphEdge represents a cable in the visualization
type GraphEdge struct {
	ID     string     `json:"id"`
	From   string     `json:"from"`
	To     string     `json:"to"`
	Label  string     `json:"label"` // "lan1 ↔ wan"
	Power  bool       `json:"power"`
	Status LinkStatus `json:"status"`
}

// DeriveGraph converts a topology to a vis-network compatible Graph
func DeriveGraph(t *Topology) *Graph {
	devices := t.Devices()
	graph := &Graph{
		Nodes: make([]GraphNode, 0, len(devices)),
		Edges: make([]GraphEdge, 0),
	}

	for _, d := range devices {
		group := CategoryUnknown
		if def := d.Definition(); def != nil {
			group = def.Category
		}
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:              d.ID,
			Label:           d.Label,
			Group:           group,
			Title:           buildTooltip(d),
			Status:          d.Status,
			ConnectionState: d.ConnectionState,
			Position:        d.Position,
		})
	}

	for _, pair := range t.Connections() {
		a, b := pair[0], pair[1]
		graph.Edges = append(graph.Edges, GraphEdge{
			ID:     a.ID + "~" + b.ID,
			From:   a.DeviceID,
			To:     b.DeviceID,
			Label:  fmt.Sprintf("%s ↔ %s", a.Name, b.Name),
			Power:  a.Role.IsPower(),
			Status: cableStatus(a, b),
		})
	}

	return graph
}

// cableStatus is up only when both ends are up
func cableStatus(a, b *Port) LinkStatus {
	if a.IsUp() && b.IsUp() {
		return LinkStatusUp
	}
	return LinkStatusDown
}

func buildTooltip(d *Device) string {
	tooltip := fmt.Sprintf("%s\n%s\n%s", d.ID, d.Type, d.Status)
	if d.IP != "" {
		tooltip += "\n" + d.IP
	}
	if d.Notes != "" {
		tooltip += "\n" + d.Notes
	}
	return tooltip
}
