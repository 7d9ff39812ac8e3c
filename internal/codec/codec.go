package codec

import (
	"io"
	"time"

	"storenet/internal/domain"
)

// CurrentVersion is the save-document version written by this build.
// v2 added power inlets, v3 re-roled outlet sockets to power_source.
const CurrentVersion = 3

// Document is the persisted form of a topology
type Document struct {
	Version int            `json:"version"`
	Name    string         `json:"name"`
	SavedAt time.Time      `json:"saved_at"`
	Devices []DeviceRecord `json:"devices"`
}

// DeviceRecord is one persisted device
type DeviceRecord struct {
	ID          string                 `json:"id"`
	Type        domain.DeviceType      `json:"type"`
	Label       string                 `json:"label,omitempty"`
	Status      domain.DeviceStatus    `json:"status,omitempty"`
	IP          string                 `json:"ip,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	Position    *domain.Position       `json:"position,omitempty"`
	Ports       []PortRecord           `json:"ports"`
	Wireless    *domain.WirelessConfig `json:"wireless,omitempty"`
	WifiHosting *domain.WifiHosting    `json:"wifi_hosting,omitempty"`
}

// PortRecord is one persisted port
type PortRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Role        domain.PortRole `json:"role"`
	ConnectedTo string          `json:"connected_to,omitempty"`
}

// Importer parses a document from a serialized form
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// Exporter writes a document in a serialized form
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// FromTopology snapshots a topology into a document at the current version.
// Derived state (link status, connection state) is not persisted.
func FromTopology(t *domain.Topology) *Document {
	doc := &Document{
		Version: CurrentVersion,
		Name:    t.Name,
		SavedAt: time.Now().UTC(),
		Devices: make([]DeviceRecord, 0, t.Len()),
	}

	for _, d := range t.Devices() {
		rec := DeviceRecord{
			ID:       d.ID,
			Type:     d.Type,
			Label:    d.Label,
			Status:   d.Status,
			IP:       d.IP,
			Notes:    d.Notes,
			Position: d.Position,
			Ports:    make([]PortRecord, 0, len(d.Ports)),
		}
		for _, p := range d.Ports {
			rec.Ports = append(rec.Ports, PortRecord{
				ID:          p.ID,
				Name:        p.Name,
				Role:        p.Role,
				ConnectedTo: p.ConnectedTo,
			})
		}
		if d.Wireless != nil {
			w := *d.Wireless
			rec.Wireless = &w
		}
		if d.WifiHosting != nil {
			h := *d.WifiHosting
			h.Networks = append([]domain.HostedNetwork(nil), d.WifiHosting.Networks...)
			rec.WifiHosting = &h
		}
		doc.Devices = append(doc.Devices, rec)
	}
	return doc
}

// Device returns the record with the given ID, or nil
func (d *Document) Device(id string) *DeviceRecord {
	for i := range d.Devices {
		if d.Devices[i].ID == id {
			return &d.Devices[i]
		}
	}
	return nil
}

// Port returns the record with the given port name, or nil
func (r *DeviceRecord) Port(name string) *PortRecord {
	for i := range r.Ports {
		if r.Ports[i].Name == name {
			return &r.Ports[i]
		}
	}
	return nil
}
