package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"storenet/internal/codec"
	"storenet/internal/domain"
	"storenet/internal/engine"
	"storenet/internal/loader"
	"storenet/internal/repository"
	"storenet/internal/scenario"
	"storenet/internal/sink"
	"storenet/internal/wireless"
)

var (
	// ErrInvalidInput marks requests that are malformed rather than
	// structurally rejected by the topology
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoRepository is returned by persistence operations when the service
	// runs without a database
	ErrNoRepository = errors.New("no repository configured")
)

// MetricsRecorder receives one sample per pipeline run
type MetricsRecorder interface {
	Record(s sink.Sample) error
}

// Options configure a TopologyService
type Options struct {
	Name           string
	MaxPowerPasses int
	Boot           engine.BootConfig
	Metrics        MetricsRecorder
	Logger         *zap.Logger
}

// TopologyService serializes every operation on the live topology and reruns
// the pipeline after each one
type TopologyService struct {
	mu       sync.Mutex
	topo     *domain.Topology
	result   engine.Result
	boots    *engine.BootScheduler
	repo     repository.Repository
	eventBus *EventBus
	opts     Options
	logger   *zap.Logger
}

// NewTopologyService creates a service holding an empty topology. repo may be
// nil, in which case persistence operations return ErrNoRepository.
func NewTopologyService(repo repository.Repository, eventBus *EventBus, opts Options) *TopologyService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "store"
	}
	if eventBus == nil {
		eventBus = NewEventBus()
	}

	s := &TopologyService{
		topo:     domain.NewTopology(opts.Name),
		boots:    engine.NewBootScheduler(opts.Boot),
		repo:     repo,
		eventBus: eventBus,
		opts:     opts,
		logger:   opts.Logger.Named("topology"),
	}
	s.runPipeline("init")
	return s
}

// Snapshot is a consistent copy of the topology and its derived state
type Snapshot struct {
	Name         string             `json:"name"`
	LastUpdated  time.Time          `json:"last_updated"`
	Devices      []*domain.Device   `json:"devices"`
	Findings     []domain.Finding   `json:"findings"`
	Power        engine.PowerResult `json:"power"`
	Clock        float64            `json:"clock_seconds"`
	PendingBoots map[string]float64 `json:"pending_boots,omitempty"`
}

// Snapshot returns a deep copy of the current state
func (s *TopologyService) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.topo.Clone()
	pending := make(map[string]float64)
	for id, at := range s.boots.Pending() {
		pending[id] = at.Seconds()
	}
	return &Snapshot{
		Name:         clone.Name,
		LastUpdated:  clone.LastUpdated,
		Devices:      clone.Devices(),
		Findings:     s.findings(),
		Power:        s.result.Power,
		Clock:        s.boots.Now().Seconds(),
		PendingBoots: pending,
	}
}

// Device returns a copy of one device
func (s *TopologyService) Device(id string) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.topo.Device(id) == nil {
		return nil, fmt.Errorf("device %s: %w", id, domain.ErrDeviceNotFound)
	}
	return s.topo.Clone().Device(id), nil
}

// Findings returns the findings of the latest pipeline run
func (s *TopologyService) Findings() []domain.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findings()
}

func (s *TopologyService) findings() []domain.Finding {
	return append([]domain.Finding{}, s.result.Findings...)
}

// Graph returns the node/edge read model used by the diagram
func (s *TopologyService) Graph() *domain.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.DeriveGraph(s.topo)
}

// AddDevice places a new device of the given type
func (s *TopologyService) AddDevice(dt domain.DeviceType, label string, pos *domain.Position) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.topo.AddDevice(dt)
	if err != nil {
		return nil, err
	}
	if label != "" {
		d.Label = label
	}
	if pos != nil {
		p := *pos
		d.Position = &p
	}

	s.publish(EventDeviceAdded, map[string]string{"device_id": d.ID, "type": string(d.Type)})
	s.runPipeline("add_device")
	return s.topo.Clone().Device(d.ID), nil
}

// RemoveDevice unplugs and removes a device
func (s *TopologyService) RemoveDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.topo.RemoveDevice(id); err != nil {
		return err
	}
	s.boots.Cancel(id)

	s.publish(EventDeviceRemoved, map[string]string{"device_id": id})
	s.runPipeline("remove_device")
	return nil
}

// Connect cables two ports, replacing whatever either was connected to
func (s *TopologyService) Connect(portA, portB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.topo.Connect(portA, portB); err != nil {
		s.logger.Info("connect rejected",
			zap.String("a", portA), zap.String("b", portB), zap.Error(err))
		return err
	}

	s.publish(EventPortsConnected, map[string]string{"a": portA, "b": portB})
	s.runPipeline("connect")
	return nil
}

// Disconnect unplugs the cable on a port. Disconnecting a free port is a no-op.
func (s *TopologyService) Disconnect(portID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.topo.Port(portID)
	if p == nil {
		return fmt.Errorf("disconnect %s: %w", portID, domain.ErrPortNotFound)
	}
	partner := s.topo.Partner(p)

	if err := s.topo.Disconnect(portID); err != nil {
		return err
	}
	if partner == nil {
		return nil
	}

	s.publish(EventPortDisconnected, map[string]string{"port_id": portID, "partner_id": partner.ID})
	s.runPipeline("disconnect")
	return nil
}

// DeviceOverride carries operator edits to a device. Nil fields are left as is.
type DeviceOverride struct {
	Status   *domain.DeviceStatus `json:"status,omitempty"`
	Label    *string              `json:"label,omitempty"`
	IP       *string              `json:"ip,omitempty"`
	Notes    *string              `json:"notes,omitempty"`
	Position *domain.Position     `json:"position,omitempty"`
}

// SetDeviceOverride applies operator edits. Setting status to booting
// schedules a boot completion; any other status cancels a pending one.
func (s *TopologyService) SetDeviceOverride(id string, o DeviceOverride) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.topo.Device(id)
	if d == nil {
		return nil, fmt.Errorf("override %s: %w", id, domain.ErrDeviceNotFound)
	}
	if o.Status != nil && !o.Status.Valid() {
		return nil, fmt.Errorf("override %s status %q: %w", id, *o.Status, domain.ErrInvalidStatus)
	}

	if o.Status != nil {
		if err := s.topo.SetStatus(id, *o.Status); err != nil {
			return nil, err
		}
		if *o.Status == domain.DeviceStatusBooting {
			s.boots.Schedule(id)
		} else {
			s.boots.Cancel(id)
		}
	}
	if o.Label != nil {
		d.Label = *o.Label
	}
	if o.IP != nil {
		d.IP = *o.IP
	}
	if o.Notes != nil {
		d.Notes = *o.Notes
	}
	if o.Position != nil {
		pos := *o.Position
		d.Position = &pos
	}

	s.publish(EventDeviceUpdated, map[string]interface{}{"device_id": id, "override": o})
	s.runPipeline("override")
	return s.topo.Clone().Device(id), nil
}

// PowerCycle puts a device into booting and schedules its boot completion.
// It returns the virtual time at which the boot completes.
func (s *TopologyService) PowerCycle(id string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.topo.SetStatus(id, domain.DeviceStatusBooting); err != nil {
		return 0, err
	}
	at := s.boots.Schedule(id)

	s.publish(EventDeviceUpdated, map[string]interface{}{"device_id": id, "status": domain.DeviceStatusBooting, "boot_at": at.Seconds()})
	s.runPipeline("power_cycle")
	return at, nil
}

// SetWirelessConfig stores a client's SSID and passphrase and resolves its
// association once. An empty SSID clears the configuration.
func (s *TopologyService) SetWirelessConfig(id, ssid, password string) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := wireless.Configure(s.topo, id, ssid, password); err != nil {
		return nil, err
	}

	d := s.topo.Device(id)
	payload := map[string]interface{}{"device_id": id, "ssid": ssid}
	if d.Wireless != nil {
		payload["auth_state"] = d.Wireless.AuthState
	}
	s.publish(EventDeviceUpdated, payload)
	s.runPipeline("wireless_config")
	return s.topo.Clone().Device(id), nil
}

// SetWifiHosting replaces the networks a hosting-capable device broadcasts
func (s *TopologyService) SetWifiHosting(id string, networks []domain.HostedNetwork) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range networks {
		if n.SSID == "" {
			return nil, fmt.Errorf("hosted network without ssid: %w", ErrInvalidInput)
		}
	}
	if err := wireless.Host(s.topo, id, networks); err != nil {
		return nil, err
	}

	s.publish(EventDeviceUpdated, map[string]interface{}{"device_id": id, "networks": len(networks)})
	s.runPipeline("wifi_hosting")
	return s.topo.Clone().Device(id), nil
}

// AdvanceResult reports what happened during a clock advance
type AdvanceResult struct {
	Clock      float64  `json:"clock_seconds"`
	Booted     []string `json:"booted"`
	Associated []string `json:"associated,omitempty"`
}

// Advance moves the virtual clock. Devices whose boot completes while still
// booting come online, then clients waiting on a booting host are re-resolved.
func (s *TopologyService) Advance(d time.Duration) AdvanceResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := AdvanceResult{Booted: []string{}}
	for _, id := range s.boots.Advance(d) {
		dev := s.topo.Device(id)
		if dev == nil || dev.Status != domain.DeviceStatusBooting {
			continue
		}
		if err := s.topo.SetStatus(id, domain.DeviceStatusOnline); err != nil {
			continue
		}
		result.Booted = append(result.Booted, id)
	}
	result.Clock = s.boots.Now().Seconds()

	if len(result.Booted) == 0 {
		return result
	}

	// power may still take a booted device back offline
	s.runPipeline("boot")
	result.Associated = wireless.ResolvePending(s.topo)
	if len(result.Associated) > 0 {
		s.runPipeline("wifi_associate")
	}

	for _, id := range result.Booted {
		s.publish(EventBootCompleted, map[string]interface{}{"device_id": id, "clock_seconds": result.Clock})
	}
	s.logger.Debug("boot completed",
		zap.Strings("devices", result.Booted),
		zap.Strings("associated", result.Associated),
		zap.Float64("clock", result.Clock))
	return result
}

// Clock returns the virtual boot clock
func (s *TopologyService) Clock() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boots.Now()
}

// Replace swaps in a new topology. Pending boots of the old one are dropped.
func (s *TopologyService) Replace(t *domain.Topology, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(t, source)
}

func (s *TopologyService) replace(t *domain.Topology, source string) {
	s.topo = t
	s.boots = engine.NewBootScheduler(s.opts.Boot)

	s.publish(EventTopologyLoaded, map[string]interface{}{"source": source, "devices": t.Len()})
	s.logger.Info("topology loaded",
		zap.String("name", t.Name),
		zap.String("source", source),
		zap.Int("devices", t.Len()))
	s.runPipeline("load")
}

// LoadDocument migrates and installs a save document
func (s *TopologyService) LoadDocument(doc *codec.Document, source string) (loader.Report, error) {
	t, report, err := loader.Load(doc)
	if err != nil {
		return report, fmt.Errorf("load %s: %w", source, err)
	}
	s.logMigration(source, report)
	s.Replace(t, source)
	return report, nil
}

// LoadFile reads a JSON or YAML topology file
func (s *TopologyService) LoadFile(path string) (loader.Report, error) {
	t, report, err := loader.LoadFile(path)
	if err != nil {
		return report, fmt.Errorf("load %s: %w", path, err)
	}
	s.logMigration(path, report)
	s.Replace(t, path)
	return report, nil
}

func (s *TopologyService) logMigration(source string, report loader.Report) {
	if len(report.Changes) == 0 {
		return
	}
	s.logger.Info("document migrated",
		zap.String("source", source),
		zap.Int("from_version", report.FromVersion),
		zap.Int("to_version", report.ToVersion),
		zap.Strings("changes", report.Changes))
}

// Import parses data with the named format ("json" or "yaml") and installs it
func (s *TopologyService) Import(format string, data []byte) (loader.Report, error) {
	var importer codec.Importer
	switch format {
	case "json":
		importer = codec.NewJSONCodec()
	case "yaml", "yml":
		importer = codec.NewYAMLCodec()
	default:
		return loader.Report{}, fmt.Errorf("unsupported import format %q: %w", format, ErrInvalidInput)
	}

	doc, err := importer.Parse(bytes.NewReader(data))
	if err != nil {
		if isStructural(err) {
			return loader.Report{}, err
		}
		return loader.Report{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.LoadDocument(doc, "import:"+importer.Format())
}

// isStructural reports whether err wraps a topology rejection that should
// reach the caller unchanged
func isStructural(err error) bool {
	for _, target := range []error{
		domain.ErrPortNotFound,
		domain.ErrDeviceNotFound,
		domain.ErrUnknownDeviceType,
		domain.ErrPowerDataMismatch,
		domain.ErrSelfLoop,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Export writes the current topology with the named format
func (s *TopologyService) Export(format string, w io.Writer) error {
	var exporter codec.Exporter
	switch format {
	case "json":
		exporter = codec.NewJSONCodec()
	case "yaml", "yml":
		exporter = codec.NewYAMLCodec()
	default:
		return fmt.Errorf("unsupported export format %q: %w", format, ErrInvalidInput)
	}

	s.mu.Lock()
	doc := codec.FromTopology(s.topo)
	s.mu.Unlock()

	return exporter.Export(doc, w)
}

// GenerateScenario replaces the topology with a generated store
func (s *TopologyService) GenerateScenario(p scenario.Profile) error {
	t, err := scenario.Generate(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.Replace(t, "scenario")
	return nil
}

// Save stores the current topology under name, or under its current name
// when name is empty
func (s *TopologyService) Save(ctx context.Context, name string) (*repository.Revision, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}

	s.mu.Lock()
	if name != "" {
		s.topo.Name = name
	}
	doc := codec.FromTopology(s.topo)
	findings := s.findings()
	s.mu.Unlock()

	rev, err := s.repo.SaveTopology(ctx, doc, findings)
	if err != nil {
		return nil, fmt.Errorf("save topology %s: %w", doc.Name, err)
	}

	s.publish(EventTopologySaved, map[string]string{"name": doc.Name, "revision_id": rev.ID})
	s.logger.Info("topology saved", zap.String("name", doc.Name), zap.String("revision", rev.ID))
	return rev, nil
}

// Load installs a saved topology
func (s *TopologyService) Load(ctx context.Context, name string) (loader.Report, error) {
	if s.repo == nil {
		return loader.Report{}, ErrNoRepository
	}

	doc, err := s.repo.LoadTopology(ctx, name)
	if err != nil {
		return loader.Report{}, err
	}
	return s.LoadDocument(doc, "saved:"+name)
}

// Restore installs the document of a past revision
func (s *TopologyService) Restore(ctx context.Context, revisionID string) (loader.Report, error) {
	if s.repo == nil {
		return loader.Report{}, ErrNoRepository
	}

	rev, err := s.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return loader.Report{}, err
	}
	return s.LoadDocument(rev.Document, "revision:"+revisionID)
}

// ListSaved lists stored topologies
func (s *TopologyService) ListSaved(ctx context.Context) ([]repository.TopologySummary, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.ListTopologies(ctx)
}

// DeleteSaved removes a stored topology and its history
func (s *TopologyService) DeleteSaved(ctx context.Context, name string) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	return s.repo.DeleteTopology(ctx, name)
}

// Revisions lists the newest revisions of a stored topology
func (s *TopologyService) Revisions(ctx context.Context, name string, limit int) ([]repository.Revision, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.ListRevisions(ctx, name, limit)
}

// PipelineSummary is the payload of pipeline_completed
type PipelineSummary struct {
	Trigger     string `json:"trigger"`
	PowerPasses int    `json:"power_passes"`
	PassCapHit  bool   `json:"pass_cap_hit"`
	Findings    int    `json:"findings"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
}

// runPipeline reruns the engine. Callers hold s.mu.
func (s *TopologyService) runPipeline(trigger string) {
	start := time.Now()
	s.result = engine.Run(s.topo, engine.Options{MaxPowerPasses: s.opts.MaxPowerPasses})
	elapsed := time.Since(start)

	summary := PipelineSummary{
		Trigger:     trigger,
		PowerPasses: s.result.Power.Passes,
		PassCapHit:  s.result.Power.CapHit,
		Findings:    len(s.result.Findings),
	}
	for _, f := range s.result.Findings {
		if f.Severity == domain.SeverityError {
			summary.Errors++
		} else {
			summary.Warnings++
		}
	}

	s.logger.Debug("pipeline run",
		zap.String("trigger", trigger),
		zap.Int("passes", summary.PowerPasses),
		zap.Int("findings", summary.Findings),
		zap.Duration("elapsed", elapsed))
	if summary.PassCapHit {
		s.logger.Warn("power propagation hit pass cap",
			zap.Int("max_passes", summary.PowerPasses),
			zap.String("trigger", trigger))
	}

	s.publish(EventPipelineCompleted, summary)
	s.record(summary, elapsed)
}

func (s *TopologyService) record(summary PipelineSummary, elapsed time.Duration) {
	if s.opts.Metrics == nil {
		return
	}

	sample := sink.Sample{
		Topology:    s.topo.Name,
		Devices:     s.topo.Len(),
		Findings:    summary.Findings,
		Errors:      summary.Errors,
		Warnings:    summary.Warnings,
		PowerPasses: summary.PowerPasses,
		PassCapHit:  summary.PassCapHit,
		Duration:    elapsed,
		At:          time.Now(),
	}
	for _, d := range s.topo.Devices() {
		switch d.Status {
		case domain.DeviceStatusOnline:
			sample.Online++
		case domain.DeviceStatusOffline:
			sample.Offline++
		case domain.DeviceStatusBooting:
			sample.Booting++
		case domain.DeviceStatusError:
			sample.Errored++
		}
		if d.ConnectionState == domain.ConnectionStateOnline {
			sample.Connected++
		}
	}

	if err := s.opts.Metrics.Record(sample); err != nil {
		s.logger.Warn("metrics write failed", zap.Error(err))
	}
}

func (s *TopologyService) publish(t EventType, payload interface{}) {
	s.eventBus.Publish(Event{Type: t, Topology: s.topo.Name, Payload: payload})
}
