package loader

import (
	"fmt"

	"storenet/internal/codec"
	"storenet/internal/domain"
)

// Report lists what a migration changed
type Report struct {
	FromVersion int      `json:"from_version"`
	ToVersion   int      `json:"to_version"`
	Changes     []string `json:"changes,omitempty"`
}

func (r *Report) add(format string, args ...any) {
	r.Changes = append(r.Changes, fmt.Sprintf(format, args...))
}

// Migrate brings a document of any version up to the current port and field
// shape. Afterwards every device has exactly its catalog ports, port IDs are
// canonical, and every connection is symmetric, between different devices and
// never pairs power with data.
func Migrate(doc *codec.Document) Report {
	report := Report{FromVersion: doc.Version, ToVersion: codec.CurrentVersion}

	renamed := make(map[string]string)
	seen := make(map[string]bool)
	devices := make([]codec.DeviceRecord, 0, len(doc.Devices))

	for _, rec := range doc.Devices {
		def := domain.Lookup(rec.Type)
		switch {
		case rec.ID == "":
			report.add("dropped device without id (type %s)", rec.Type)
			continue
		case seen[rec.ID]:
			report.add("dropped duplicate device %s", rec.ID)
			continue
		case def == nil:
			report.add("dropped device %s of unknown type %q", rec.ID, rec.Type)
			continue
		}
		seen[rec.ID] = true

		rec.Ports = migratePorts(&report, rec, def, renamed)
		migrateDevice(&report, &rec, def)
		devices = append(devices, rec)
	}
	doc.Devices = devices

	// rewrite references to legacy port IDs
	for i := range doc.Devices {
		for j := range doc.Devices[i].Ports {
			p := &doc.Devices[i].Ports[j]
			if id, ok := renamed[p.ConnectedTo]; ok {
				p.ConnectedTo = id
			}
		}
	}

	repairConnections(&report, doc)
	doc.Version = codec.CurrentVersion
	return report
}

// migratePorts returns the device's ports in catalog order, keeping existing
// connections and fixing roles
func migratePorts(report *Report, rec codec.DeviceRecord, def *domain.Definition, renamed map[string]string) []codec.PortRecord {
	existing := make(map[string]codec.PortRecord, len(rec.Ports))
	for _, p := range rec.Ports {
		if _, ok := def.PortTemplate(p.Name); !ok {
			report.add("dropped unknown port %s on %s", p.Name, rec.ID)
			continue
		}
		existing[p.Name] = p
	}

	ports := make([]codec.PortRecord, 0, len(def.Ports))
	for _, tmpl := range def.Ports {
		id := domain.PortID(rec.ID, tmpl.Name)
		p, ok := existing[tmpl.Name]
		if !ok {
			report.add("added missing %s port %s on %s", tmpl.Role, tmpl.Name, rec.ID)
			ports = append(ports, codec.PortRecord{ID: id, Name: tmpl.Name, Role: tmpl.Role})
			continue
		}
		if p.ID != "" && p.ID != id {
			renamed[p.ID] = id
		}
		if p.Role != tmpl.Role {
			report.add("re-roled port %s on %s from %s to %s", tmpl.Name, rec.ID, p.Role, tmpl.Role)
		}
		p.ID = id
		p.Role = tmpl.Role
		ports = append(ports, p)
	}
	return ports
}

func migrateDevice(report *Report, rec *codec.DeviceRecord, def *domain.Definition) {
	if rec.Wireless != nil && !def.Capabilities.WifiClient {
		report.add("stripped wireless config from %s (%s)", rec.ID, rec.Type)
		rec.Wireless = nil
	}
	if rec.WifiHosting != nil && !def.Capabilities.WifiHosting {
		report.add("stripped wifi hosting from %s (%s)", rec.ID, rec.Type)
		rec.WifiHosting = nil
	}
	if rec.Wireless != nil && rec.Wireless.AuthState == "" {
		rec.Wireless.AuthState = domain.AuthStateIdle
	}
	if !rec.Status.Valid() {
		status := domain.DeviceStatusOffline
		if def.Power.Source == domain.PowerSourceInternal {
			status = domain.DeviceStatusOnline
		}
		if rec.Status != "" {
			report.add("reset invalid status %q on %s", rec.Status, rec.ID)
		}
		rec.Status = status
	}
	if rec.Label == "" {
		rec.Label = def.Name
	}
}

// repairConnections nulls references that are dangling, one-sided,
// self-looped or mix power with data
func repairConnections(report *Report, doc *codec.Document) {
	ports := make(map[string]*codec.PortRecord)
	owners := make(map[string]string)
	for i := range doc.Devices {
		for j := range doc.Devices[i].Ports {
			p := &doc.Devices[i].Ports[j]
			ports[p.ID] = p
			owners[p.ID] = doc.Devices[i].ID
		}
	}

	for i := range doc.Devices {
		for j := range doc.Devices[i].Ports {
			p := &doc.Devices[i].Ports[j]
			if p.ConnectedTo == "" {
				continue
			}
			far := ports[p.ConnectedTo]
			switch {
			case far == nil:
				report.add("cleared dangling connection %s -> %s", p.ID, p.ConnectedTo)
			case far.ConnectedTo != p.ID:
				report.add("cleared one-sided connection %s -> %s", p.ID, p.ConnectedTo)
			case owners[far.ID] == owners[p.ID]:
				report.add("cleared self connection %s -> %s", p.ID, far.ID)
				far.ConnectedTo = ""
			case far.Role.IsPower() != p.Role.IsPower():
				report.add("cleared power/data connection %s -> %s", p.ID, far.ID)
				far.ConnectedTo = ""
			default:
				continue
			}
			p.ConnectedTo = ""
		}
	}
}
