// Package supervisor implements the Device Supervisor: discovery of
// /dev/input device nodes, capability-based classification, and reader
// lifecycle management (grab with backoff, removal handling, ghosting).
// See §4.B.
package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fw16synth/fw16synth/pkg/framework/debug"
	"github.com/fw16synth/fw16synth/pkg/input"
)

const inputDir = "/dev/input"

// DeviceEvent is the unit the Supervisor forwards to the fan-in task. On
// a KindDeviceGone Event, Raws lists every scan-code observed on that
// device during its lifetime, so the fan-in task can release the
// corresponding HeldNotes without itself tracking device ownership.
type DeviceEvent struct {
	DeviceID string
	Class    input.Class
	Event    input.InputEvent
	Raws     []input.RawKey
}

// Snapshot describes one managed device for the public device-state view.
type Snapshot struct {
	Path    string
	Class   input.Class
	Grabbed bool
	Errors  int
}

type managedDevice struct {
	path   string
	class  input.Class
	reader *input.Reader
	ghost  *ghostFilter
	grab   bool

	mu       sync.Mutex
	errors   int
	grabbed  bool
	rawsSeen map[input.RawKey]struct{}
	cancel   context.CancelFunc
}

// Supervisor owns device discovery and the lifecycle of every Reader. It
// runs entirely in the supervisory context; only its Events() channel
// reaches the input fan-in task.
type Supervisor struct {
	grab bool
	log  *debug.Logger

	out chan DeviceEvent

	mu      sync.Mutex
	devices map[string]*managedDevice

	runCtx context.Context
}

// New creates a Supervisor. grab controls whether readers request
// exclusive access to the devices they own.
func New(grab bool, log *debug.Logger) *Supervisor {
	return &Supervisor{
		grab:    grab,
		log:     log,
		out:     make(chan DeviceEvent, 256),
		devices: make(map[string]*managedDevice),
	}
}

// Events returns the channel carrying classified input events merged
// from every owned reader, plus DeviceGone notifications.
func (s *Supervisor) Events() <-chan DeviceEvent { return s.out }

// Snapshots returns a point-in-time view of every managed device.
func (s *Supervisor) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Snapshot, 0, len(s.devices))
	for _, d := range s.devices {
		d.mu.Lock()
		out = append(out, Snapshot{Path: d.path, Class: d.class, Grabbed: d.grabbed, Errors: d.errors})
		d.mu.Unlock()
	}
	return out
}

// Run discovers devices already present, then watches for arrivals and
// removals until ctx is cancelled. It never blocks the input or audio
// contexts; all work here is supervisory.
func (s *Supervisor) Run(ctx context.Context) error {
	s.runCtx = ctx

	existing, err := listEventNodes()
	if err != nil && s.log != nil {
		s.log.Warn("initial device scan failed: %v", err)
	}
	for _, path := range existing {
		s.attach(ctx, path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(inputDir); err != nil {
		if s.log != nil {
			s.log.Warn("cannot watch %s: %v", inputDir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create) != 0:
				s.attach(ctx, ev.Name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				s.detach(ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if s.log != nil {
				s.log.Warn("device watch error: %v", err)
			}
		}
	}
}

// listEventNodes enumerates /dev/input/event* nodes, mirroring the
// original production device manager's directory scan.
func listEventNodes() ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") {
			paths = append(paths, filepath.Join(inputDir, e.Name()))
		}
	}
	return paths, nil
}

func (s *Supervisor) attach(ctx context.Context, path string) {
	s.mu.Lock()
	if _, exists := s.devices[path]; exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	reader, class, err := input.Open(path, s.grab, s.log)
	if err != nil {
		if s.log != nil {
			s.log.Warn("failed to open %s: %v", path, err)
		}
		return
	}
	if class == input.ClassIgnored {
		reader.Release()
		return
	}

	readerCtx, cancel := context.WithCancel(ctx)
	md := &managedDevice{
		path:     path,
		class:    class,
		reader:   reader,
		ghost:    newGhostFilter(),
		grab:     s.grab,
		rawsSeen: make(map[input.RawKey]struct{}),
		cancel:   cancel,
	}

	s.mu.Lock()
	s.devices[path] = md
	s.mu.Unlock()

	go s.grabWithBackoff(readerCtx, md)
}

// grabWithBackoff retries Grab on failure per §4.B, then runs the
// reader loop once grabbed (or immediately, if grab is not requested).
func (s *Supervisor) grabWithBackoff(ctx context.Context, md *managedDevice) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := md.reader.Grab(); err == nil {
			md.mu.Lock()
			md.grabbed = true
			md.mu.Unlock()
			s.runReader(ctx, md)
			return
		} else if s.log != nil {
			s.log.Debug("grab attempt %d failed for %s: %v", attempt+1, md.path, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffDelay(attempt)):
		}
	}
	if s.log != nil {
		s.log.Warn("giving up grabbing %s after %d attempts", md.path, maxAttempts)
	}
	md.reader.Release()
	s.mu.Lock()
	delete(s.devices, md.path)
	s.mu.Unlock()
}

func (s *Supervisor) runReader(ctx context.Context, md *managedDevice) {
	defer md.reader.Release()

	for {
		select {
		case <-ctx.Done():
			// A cancelled context means the device is gone by hotplug
			// removal (detach/Reopen) or shutdown, not a read error: stop
			// the reader and forward its own terminal DeviceGone event so
			// every raw key it ever saw still gets released. Without this,
			// a removal observed by fsnotify before the next read error
			// would leak every HeldNote that device held.
			md.reader.Stop()
			ev, _, _ := md.reader.ReadOne()
			s.sendGone(md, ev)
			return
		default:
		}

		ev, ok, terminal := md.reader.ReadOne()
		if !ok {
			continue
		}

		if ev.Kind == input.KindKeyDown || ev.Kind == input.KindKeyUp {
			md.mu.Lock()
			md.rawsSeen[ev.Raw] = struct{}{}
			md.mu.Unlock()

			filtered, pass := md.ghost.filter(ev)
			if !pass {
				continue
			}
			ev = filtered
		}

		if terminal {
			s.emitGone(md, ev)
			return
		}

		s.send(DeviceEvent{DeviceID: md.path, Class: md.class, Event: ev})
	}
}

// sendGone forwards a DeviceGone event carrying every raw key the
// device observed. It does not touch the device map or error count;
// callers that own map cleanup (emitGone) or already performed it
// (detach, before cancelling) do that separately.
func (s *Supervisor) sendGone(md *managedDevice, ev input.InputEvent) {
	md.mu.Lock()
	raws := make([]input.RawKey, 0, len(md.rawsSeen))
	for r := range md.rawsSeen {
		raws = append(raws, r)
	}
	md.mu.Unlock()

	s.send(DeviceEvent{DeviceID: md.path, Class: md.class, Event: ev, Raws: raws})
}

// emitGone handles the reader's own terminal read-error path: unlike
// the ctx.Done() cancellation path, this device was not already removed
// from the map by detach, and the terminal condition is itself an error
// worth counting toward the Health Probe's threshold.
func (s *Supervisor) emitGone(md *managedDevice, ev input.InputEvent) {
	md.mu.Lock()
	md.errors++
	md.mu.Unlock()

	s.sendGone(md, ev)

	s.mu.Lock()
	delete(s.devices, md.path)
	s.mu.Unlock()
}

func (s *Supervisor) send(ev DeviceEvent) {
	select {
	case s.out <- ev:
	default:
		if s.log != nil {
			s.log.Warn("supervisor output channel full, dropping event from %s", ev.DeviceID)
		}
	}
}

func (s *Supervisor) detach(path string) {
	s.mu.Lock()
	md, ok := s.devices[path]
	if ok {
		delete(s.devices, path)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	md.cancel()
}

// Reopen closes and re-attaches the reader for path, per §4.K's
// "device error count > 10 within a minute" recovery action. It is
// called from the Health Probe, never from the input or audio context.
func (s *Supervisor) Reopen(path string) {
	s.detach(path)
	if s.runCtx != nil {
		s.attach(s.runCtx, path)
	}
}

func (s *Supervisor) shutdown() {
	s.mu.Lock()
	devices := make([]*managedDevice, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	s.mu.Unlock()

	for _, d := range devices {
		d.cancel()
	}
}
