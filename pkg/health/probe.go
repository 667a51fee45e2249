// Package health implements the Health Probe: a 10 Hz supervisory task
// that watches render latency, bus drops, and per-device error rates,
// and triggers recovery actions when thresholds are crossed. See
// §4.K. It is grounded on the original production health monitor's
// metric set, adapted from a polling/threading design to a single
// periodic goroutine over Go channels.
package health

import (
	"context"
	"time"

	"github.com/fw16synth/fw16synth/pkg/framework/debug"
)

// interval is the probe's check frequency (10 Hz, per §4.K).
const interval = 100 * time.Millisecond

// deviceErrorWindow is the rate-limiting facility per §4.K's
// "device error count > 10 within a minute" rule: a ring of the
// times errors were last observed for one device.
type deviceErrorWindow struct {
	lastTotal int
	times     []time.Time
}

// LatencySource reports the render-call latency ring's current
// average and p95; the probe compares them against its own
// Thresholds.BufferPeriod. The Renderer Adapter satisfies this.
type LatencySource interface {
	LatencySample() (avg, p95 time.Duration)
}

// DeviceSnapshot mirrors supervisor.Snapshot without importing the
// supervisor package, keeping the Health Probe's dependency surface
// limited to what it actually reads.
type DeviceSnapshot struct {
	Path   string
	Errors int
}

// Supervisor is the subset of the Device Supervisor's API the probe
// needs: a snapshot of managed devices and the ability to reopen one.
type Supervisor interface {
	Snapshots() []DeviceSnapshot
	Reopen(path string)
}

// Bus is the subset of the Event Bus's API the probe needs.
type Bus interface {
	Drops() uint64
}

// Thresholds holds the crossing points §4.K names.
type Thresholds struct {
	BufferPeriod          time.Duration // render latency over this triggers Panic
	DeviceErrorsPerMinute int           // per-device error count over this triggers reopen
	BusDropsPerSecond     uint64        // sustained drop rate over this triggers a warning
}

// DefaultThresholds returns the baseline defaults: 10 errors/minute
// and 100 drops/second, with BufferPeriod left for the caller to set
// from the actual configured buffer size and sample rate.
func DefaultThresholds(bufferPeriod time.Duration) Thresholds {
	return Thresholds{
		BufferPeriod:          bufferPeriod,
		DeviceErrorsPerMinute: 10,
		BusDropsPerSecond:     100,
	}
}

// Probe is the supervisory-context watchdog. It is stateless between
// ticks except for its own bookkeeping (error windows, last drop
// count); it never touches State Core, HeldNotes, or Voices.
type Probe struct {
	latency    LatencySource
	supervisor Supervisor
	bus        Bus
	log        *debug.Logger
	thresholds Thresholds
	onPanic    func()

	deviceWindows map[string]*deviceErrorWindow
	lastDrops     uint64
	lastDropCheck time.Time
}

// New creates a Probe. onPanic is called when render latency or an
// xrun crosses BufferPeriod; it should forward a Panic event to the
// bus and, if the buffer size is configurable, double it.
func New(latency LatencySource, supervisor Supervisor, bus Bus, log *debug.Logger, thresholds Thresholds, onPanic func()) *Probe {
	return &Probe{
		latency:       latency,
		supervisor:    supervisor,
		bus:           bus,
		log:           log,
		thresholds:    thresholds,
		onPanic:       onPanic,
		deviceWindows: make(map[string]*deviceErrorWindow),
	}
}

// Run ticks at 10 Hz until ctx is cancelled.
func (p *Probe) Run(ctx context.Context) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.tick(now)
		}
	}
}

func (p *Probe) tick(now time.Time) {
	p.checkLatency()
	p.checkDeviceErrors(now)
	p.checkBusDrops(now)
}

func (p *Probe) checkLatency() {
	avg, p95 := p.latency.LatencySample()
	if avg > p.thresholds.BufferPeriod || p95 > p.thresholds.BufferPeriod {
		if p.log != nil {
			p.log.Warn("render latency exceeded buffer period (avg=%v p95=%v budget=%v), panicking", avg, p95, p.thresholds.BufferPeriod)
		}
		if p.onPanic != nil {
			p.onPanic()
		}
	}
}

func (p *Probe) checkDeviceErrors(now time.Time) {
	for _, snap := range p.supervisor.Snapshots() {
		w, ok := p.deviceWindows[snap.Path]
		if !ok {
			w = &deviceErrorWindow{}
			p.deviceWindows[snap.Path] = w
		}

		delta := snap.Errors - w.lastTotal
		w.lastTotal = snap.Errors
		for i := 0; i < delta; i++ {
			w.times = append(w.times, now)
		}

		cutoff := now.Add(-time.Minute)
		kept := w.times[:0]
		for _, t := range w.times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		w.times = kept

		if len(w.times) > p.thresholds.DeviceErrorsPerMinute {
			if p.log != nil {
				p.log.Warn("device %s exceeded %d errors/minute, reopening", snap.Path, p.thresholds.DeviceErrorsPerMinute)
			}
			p.supervisor.Reopen(snap.Path)
			w.times = nil
		}
	}
}

func (p *Probe) checkBusDrops(now time.Time) {
	if p.lastDropCheck.IsZero() {
		p.lastDropCheck = now
		p.lastDrops = p.bus.Drops()
		return
	}

	elapsed := now.Sub(p.lastDropCheck)
	current := p.bus.Drops()
	delta := current - p.lastDrops
	p.lastDrops = current
	p.lastDropCheck = now

	if elapsed <= 0 {
		return
	}
	rate := float64(delta) / elapsed.Seconds()
	if rate > float64(p.thresholds.BusDropsPerSecond) {
		if p.log != nil {
			p.log.Warn("bus drop rate %.1f/s exceeds %d/s (warn only, no automatic action)", rate, p.thresholds.BusDropsPerSecond)
		}
	}
}
