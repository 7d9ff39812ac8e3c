package engine

import (
	"sort"
	"time"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

// BootConfig tunes simulated boot delays
type BootConfig struct {
	Delay  time.Duration
	Jitter time.Duration
	Seed   string
}

// bootEvent is the payload carried by a scheduled boot
type bootEvent struct {
	deviceID   string
	generation int
}

// BootScheduler runs device boot completions on a virtual clock. Scheduling
// the same device again supersedes the earlier boot.
type BootScheduler struct {
	cfg     BootConfig
	mgr     *evtm.EventManager
	rng     *rngstream.RngStream
	now     float64
	gen     map[string]int
	pending map[string]float64
	due     []string
}

// NewBootScheduler creates a scheduler with its own event manager and
// random stream
func NewBootScheduler(cfg BootConfig) *BootScheduler {
	if cfg.Seed == "" {
		cfg.Seed = "boot"
	}
	return &BootScheduler{
		cfg:     cfg,
		mgr:     evtm.New(),
		rng:     rngstream.New(cfg.Seed),
		gen:     make(map[string]int),
		pending: make(map[string]float64),
	}
}

// Schedule arranges for deviceID to finish booting after the configured
// delay plus jitter. It returns the virtual time the boot completes.
func (s *BootScheduler) Schedule(deviceID string) time.Duration {
	s.gen[deviceID]++

	delay := s.cfg.Delay.Seconds()
	if s.cfg.Jitter > 0 {
		delay += s.rng.RandU01() * s.cfg.Jitter.Seconds()
	}
	at := s.now + delay
	s.pending[deviceID] = at

	// offsets are relative to the manager's clock, which only moves on events
	offset := at - s.mgr.CurrentSeconds()
	if offset < 0 {
		offset = 0
	}
	s.mgr.Schedule(s, bootEvent{deviceID: deviceID, generation: s.gen[deviceID]}, fireBoot, vrtime.SecondsToTime(offset))
	return seconds(at)
}

// Cancel drops any pending boot for deviceID
func (s *BootScheduler) Cancel(deviceID string) {
	if _, ok := s.pending[deviceID]; !ok {
		return
	}
	s.gen[deviceID]++
	delete(s.pending, deviceID)
}

// Advance moves the virtual clock forward by d and returns the devices whose
// boot completed, in completion order
func (s *BootScheduler) Advance(d time.Duration) []string {
	if d < 0 {
		d = 0
	}
	s.now += d.Seconds()
	s.due = nil
	if len(s.pending) == 0 {
		return nil
	}
	s.mgr.Run(s.now)

	// the pending table is authoritative; pick up anything the event list
	// left behind at the horizon
	var late []string
	for id, at := range s.pending {
		if at <= s.now {
			late = append(late, id)
		}
	}
	sort.Slice(late, func(i, j int) bool {
		if s.pending[late[i]] != s.pending[late[j]] {
			return s.pending[late[i]] < s.pending[late[j]]
		}
		return late[i] < late[j]
	})
	for _, id := range late {
		delete(s.pending, id)
		s.due = append(s.due, id)
	}

	done := s.due
	s.due = nil
	return done
}

// Now returns the current virtual time
func (s *BootScheduler) Now() time.Duration {
	return seconds(s.now)
}

// Pending returns the completion time of every scheduled boot
func (s *BootScheduler) Pending() map[string]time.Duration {
	result := make(map[string]time.Duration, len(s.pending))
	for id, at := range s.pending {
		result[id] = seconds(at)
	}
	return result
}

func fireBoot(mgr *evtm.EventManager, context any, data any) any {
	s := context.(*BootScheduler)
	evt := data.(bootEvent)
	if s.gen[evt.deviceID] != evt.generation {
		return nil
	}
	if at, ok := s.pending[evt.deviceID]; !ok || at > s.now {
		return nil
	}
	delete(s.pending, evt.deviceID)
	s.due = append(s.due, evt.deviceID)
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
