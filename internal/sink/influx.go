package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	client "github.com/influxdata/influxdb1-client"
	"go.uber.org/zap"
)

// Sample summarizes one pipeline run
type Sample struct {
	Topology    string
	Devices     int
	Online      int
	Offline     int
	Booting     int
	Errored     int
	Connected   int
	Findings    int
	Errors      int
	Warnings    int
	PowerPasses int
	PassCapHit  bool
	Duration    time.Duration
	At          time.Time
}

// ErrBufferFull is returned when samples arrive faster than they are written
var ErrBufferFull = errors.New("metrics buffer full")

const sampleBuffer = 64

// InfluxRecorder writes pipeline samples to InfluxDB 1.x. Record only queues;
// Run performs the writes.
type InfluxRecorder struct {
	client      *client.Client
	database    string
	measurement string
	samples     chan Sample
	logger      *zap.Logger
}

// NewInfluxRecorder creates a recorder for the given server URL
func NewInfluxRecorder(rawURL, database, measurement string, logger *zap.Logger) (*InfluxRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse influx url: %w", err)
	}

	c, err := client.NewClient(client.Config{URL: *u, Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create influx client: %w", err)
	}

	logger.Info("influx metrics sink configured",
		zap.String("url", u.Redacted()),
		zap.String("database", database))
	return &InfluxRecorder{
		client:      c,
		database:    database,
		measurement: measurement,
		samples:     make(chan Sample, sampleBuffer),
		logger:      logger,
	}, nil
}

// Record queues one sample without blocking
func (r *InfluxRecorder) Record(s Sample) error {
	select {
	case r.samples <- s:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run writes queued samples until ctx is cancelled
func (r *InfluxRecorder) Run(ctx context.Context) {
	for {
		select {
		case s := <-r.samples:
			if err := r.write(s); err != nil {
				r.logger.Warn("influx write failed", zap.String("topology", s.Topology), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *InfluxRecorder) write(s Sample) error {
	bp := client.BatchPoints{
		Points:   []client.Point{samplePoint(r.measurement, s)},
		Database: r.database,
	}

	resp, err := r.client.Write(bp)
	if err != nil {
		return fmt.Errorf("write influx point: %w", err)
	}
	if resp != nil && resp.Error() != nil {
		return fmt.Errorf("write influx point: %w", resp.Error())
	}
	return nil
}

func samplePoint(measurement string, s Sample) client.Point {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	return client.Point{
		Measurement: measurement,
		Tags: map[string]string{
			"topology": s.Topology,
		},
		Time: at,
		Fields: map[string]interface{}{
			"devices":      s.Devices,
			"online":       s.Online,
			"offline":      s.Offline,
			"booting":      s.Booting,
			"errored":      s.Errored,
			"connected":    s.Connected,
			"findings":     s.Findings,
			"errors":       s.Errors,
			"warnings":     s.Warnings,
			"power_passes": s.PowerPasses,
			"pass_cap_hit": s.PassCapHit,
			"duration_us":  s.Duration.Microseconds(),
		},
		Precision: "ms",
	}
}
