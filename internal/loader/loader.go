// Package loader turns persisted documents into live topologies. It upgrades
// older documents and guarantees the structural invariants the engine relies
// on before handing a topology over.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storenet/internal/codec"
	"storenet/internal/domain"
)

// ImporterFor picks a codec by file extension
func ImporterFor(path string) (codec.Importer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return codec.NewJSONCodec(), nil
	case ".yaml", ".yml":
		return codec.NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported topology file %s", path)
}

// LoadFile reads, migrates and builds a topology file
func LoadFile(path string) (*domain.Topology, Report, error) {
	importer, err := ImporterFor(path)
	if err != nil {
		return nil, Report{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := importer.Parse(f)
	if err != nil {
		return nil, Report{}, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Load(doc)
}

// Load migrates a document and builds a topology from it
func Load(doc *codec.Document) (*domain.Topology, Report, error) {
	report := Migrate(doc)
	t, err := Build(doc)
	if err != nil {
		return nil, report, err
	}
	return t, report, nil
}

// Build creates a topology from a migrated document
func Build(doc *codec.Document) (*domain.Topology, error) {
	t := domain.NewTopology(doc.Name)

	for _, rec := range doc.Devices {
		def := domain.Lookup(rec.Type)
		if def == nil {
			return nil, fmt.Errorf("build device %s: %w", rec.ID, domain.ErrUnknownDeviceType)
		}

		d := domain.NewDevice(rec.ID, def)
		d.Label = rec.Label
		d.Status = rec.Status
		d.IP = rec.IP
		d.Notes = rec.Notes
		if rec.Position != nil {
			pos := *rec.Position
			d.Position = &pos
		}
		for _, p := range rec.Ports {
			if port := d.Port(p.Name); port != nil {
				port.ConnectedTo = p.ConnectedTo
			}
		}
		if rec.Wireless != nil {
			w := *rec.Wireless
			d.Wireless = &w
		}
		if rec.WifiHosting != nil {
			h := *rec.WifiHosting
			h.Networks = append([]domain.HostedNetwork(nil), rec.WifiHosting.Networks...)
			d.WifiHosting = &h
		}

		if err := t.InsertDevice(d); err != nil {
			return nil, fmt.Errorf("build topology: %w", err)
		}
	}

	if !doc.SavedAt.IsZero() {
		t.LastUpdated = doc.SavedAt
	}
	return t, nil
}
