package codec

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"storenet/internal/domain"
)

// YAMLCodec handles the hand-authored YAML topology format
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlTopology is the authoring structure. Each cable is written once, on
// either end, as `connections: {port: "device:port"}`.
type yamlTopology struct {
	Name    string       `yaml:"name"`
	Devices []yamlDevice `yaml:"devices"`
}

type yamlDevice struct {
	ID          string                 `yaml:"id,omitempty"`
	Type        string                 `yaml:"type"`
	Label       string                 `yaml:"label,omitempty"`
	Status      string                 `yaml:"status,omitempty"`
	IP          string                 `yaml:"ip,omitempty"`
	Notes       string                 `yaml:"notes,omitempty"`
	Position    *domain.Position       `yaml:"position,omitempty"`
	Wireless    *yamlWireless          `yaml:"wireless,omitempty"`
	Hosting     []domain.HostedNetwork `yaml:"hosting,omitempty"`
	Connections map[string]string      `yaml:"connections,omitempty"`
}

type yamlWireless struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password,omitempty"`
}

// Parse builds a current-version document from the authoring format. Devices
// without an id get <type>-<n>; ports come from the catalog.
func (c *YAMLCodec) Parse(r io.Reader) (*Document, error) {
	var yt yamlTopology
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yt); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	doc := &Document{Version: CurrentVersion, Name: yt.Name}

	taken := make(map[string]bool)
	for _, yd := range yt.Devices {
		if yd.ID == "" {
			continue
		}
		if taken[yd.ID] {
			return nil, fmt.Errorf("duplicate device id %q", yd.ID)
		}
		taken[yd.ID] = true
	}

	counters := make(map[string]int)
	for i, yd := range yt.Devices {
		def := domain.Lookup(domain.DeviceType(yd.Type))
		if def == nil {
			return nil, fmt.Errorf("device %d: %w: %q", i, domain.ErrUnknownDeviceType, yd.Type)
		}
		id := yd.ID
		for id == "" || (yd.ID == "" && taken[id]) {
			counters[yd.Type]++
			id = fmt.Sprintf("%s-%d", yd.Type, counters[yd.Type])
		}
		taken[id] = true
		yt.Devices[i].ID = id

		rec := DeviceRecord{
			ID:       id,
			Type:     def.Type,
			Label:    yd.Label,
			Status:   domain.DeviceStatus(yd.Status),
			IP:       yd.IP,
			Notes:    yd.Notes,
			Position: yd.Position,
		}
		if rec.Label == "" {
			rec.Label = def.Name
		}
		for _, tmpl := range def.Ports {
			rec.Ports = append(rec.Ports, PortRecord{
				ID:   domain.PortID(id, tmpl.Name),
				Name: tmpl.Name,
				Role: tmpl.Role,
			})
		}
		if yd.Wireless != nil {
			rec.Wireless = &domain.WirelessConfig{SSID: yd.Wireless.SSID, Password: yd.Wireless.Password}
		}
		if len(yd.Hosting) > 0 {
			rec.WifiHosting = &domain.WifiHosting{Enabled: true, Networks: yd.Hosting}
		}
		doc.Devices = append(doc.Devices, rec)
	}

	for _, yd := range yt.Devices {
		names := make([]string, 0, len(yd.Connections))
		for name := range yd.Connections {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := link(doc, yd.ID, name, yd.Connections[name]); err != nil {
				return nil, err
			}
		}
	}

	return doc, nil
}

// link records a cable on both ends, rejecting ports that already carry a
// different cable
func link(doc *Document, deviceID, portName, target string) error {
	near := doc.Device(deviceID).Port(portName)
	if near == nil {
		return fmt.Errorf("%s: %w", domain.PortID(deviceID, portName), domain.ErrPortNotFound)
	}
	farDevice, farPort := domain.SplitPortID(target)
	rec := doc.Device(farDevice)
	if rec == nil {
		return fmt.Errorf("%s -> %s: %w", near.ID, target, domain.ErrDeviceNotFound)
	}
	far := rec.Port(farPort)
	if far == nil {
		return fmt.Errorf("%s -> %s: %w", near.ID, target, domain.ErrPortNotFound)
	}
	if farDevice == deviceID {
		return fmt.Errorf("%s -> %s: %w", near.ID, target, domain.ErrSelfLoop)
	}
	if near.Role.IsPower() != far.Role.IsPower() {
		return fmt.Errorf("%s -> %s: %w", near.ID, target, domain.ErrPowerDataMismatch)
	}
	if near.ConnectedTo == far.ID && far.ConnectedTo == near.ID {
		return nil
	}
	if near.ConnectedTo != "" || far.ConnectedTo != "" {
		return fmt.Errorf("%s -> %s: port already connected", near.ID, target)
	}
	near.ConnectedTo = far.ID
	far.ConnectedTo = near.ID
	return nil
}

// Export writes the authoring format. Each cable is written on the device
// that appears first.
func (c *YAMLCodec) Export(doc *Document, w io.Writer) error {
	yt := yamlTopology{
		Name:    doc.Name,
		Devices: make([]yamlDevice, 0, len(doc.Devices)),
	}

	written := make(map[string]bool)
	for _, rec := range doc.Devices {
		yd := yamlDevice{
			ID:       rec.ID,
			Type:     string(rec.Type),
			Label:    rec.Label,
			Status:   string(rec.Status),
			IP:       rec.IP,
			Notes:    rec.Notes,
			Position: rec.Position,
		}
		if rec.Wireless != nil {
			yd.Wireless = &yamlWireless{SSID: rec.Wireless.SSID, Password: rec.Wireless.Password}
		}
		if rec.WifiHosting != nil && rec.WifiHosting.Enabled {
			yd.Hosting = rec.WifiHosting.Networks
		}
		for _, p := range rec.Ports {
			if p.ConnectedTo == "" || written[p.ID] {
				continue
			}
			if yd.Connections == nil {
				yd.Connections = make(map[string]string)
			}
			yd.Connections[p.Name] = p.ConnectedTo
			written[p.ID] = true
			written[p.ConnectedTo] = true
		}
		yt.Devices = append(yt.Devices, yd)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yt); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
